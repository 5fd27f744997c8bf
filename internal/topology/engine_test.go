package topology_test

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldmesh/fieldcoord/internal/models"
	"github.com/fieldmesh/fieldcoord/internal/topology"
)

func device(id string, lat, lng float64) models.Device {
	return models.Device{
		ID:       id,
		Name:     id,
		IsOnline: true,
		Position: &models.Coordinate{Latitude: lat, Longitude: lng},
		WorkRole: models.RoleWorker,
	}
}

func facility(id string, lat, lng float64, priority int) models.Facility {
	return models.Facility{
		ID:           id,
		Position:     models.Coordinate{Latitude: lat, Longitude: lng},
		WorkPriority: priority,
	}
}

func TestBuild_FewerThanTwoDevicesYieldsNoConnections(t *testing.T) {
	e := topology.NewEngine(zerolog.Nop())
	facilities := []models.Facility{facility("f1", 22.60, 88.26, 10)}

	for _, mode := range []models.TopologyMode{
		models.ModeEmergency, models.ModeWorkOptimal, models.ModeMinimumSpanning,
	} {
		connections, _ := e.Build(nil, facilities, mode)
		assert.Empty(t, connections, "mode %s with zero devices", mode)

		connections, _ = e.Build([]models.Device{device("solo", 22.59, 88.26)}, facilities, mode)
		assert.Empty(t, connections, "mode %s with one device", mode)
	}
}

func TestBuild_EmergencyStarScenario(t *testing.T) {
	// Two devices ~5 km apart; the facility sits within 2 km of A.
	a := device("a", 22.5958, 88.2636)
	b := device("b", 22.6408, 88.2636)
	facilities := []models.Facility{facility("er", 22.6008, 88.2636, 21)}
	e := topology.NewEngine(zerolog.Nop())

	connections, devices := e.Build([]models.Device{a, b}, facilities, models.ModeEmergency)

	require.Len(t, connections, 1)
	assert.Equal(t, "a", connections[0].FromID)
	assert.Equal(t, "b", connections[0].ToID)
	assert.True(t, connections[0].IsEmergencyPath)
	assert.InDelta(t, 5.0, connections[0].DistanceKm, 0.1)

	roles := map[string]models.Device{}
	for _, d := range devices {
		roles[d.ID] = d
	}
	assert.Equal(t, models.RoleEmergencyResponder, roles["a"].WorkRole)
	assert.True(t, roles["a"].EmergencyResponder)
	assert.Equal(t, models.RoleWorker, roles["b"].WorkRole)
}

func TestBuild_EmergencyWithoutFacilitiesYieldsNoConnections(t *testing.T) {
	e := topology.NewEngine(zerolog.Nop())

	connections, devices := e.Build([]models.Device{
		device("a", 22.59, 88.26), device("b", 22.60, 88.26),
	}, nil, models.ModeEmergency)

	assert.Empty(t, connections)
	for _, d := range devices {
		assert.False(t, d.EmergencyResponder)
	}
}

func TestBuild_UnknownModeFallsBackToEmergency(t *testing.T) {
	a := device("a", 22.5958, 88.2636)
	b := device("b", 22.6408, 88.2636)
	facilities := []models.Facility{facility("er", 22.6008, 88.2636, 21)}
	e := topology.NewEngine(zerolog.Nop())

	connections, _ := e.Build([]models.Device{a, b}, facilities, models.TopologyMode("satellite"))

	require.Len(t, connections, 1)
	assert.True(t, connections[0].IsEmergencyPath)
}

func TestBuild_WorkOptimalScoresAndCaps(t *testing.T) {
	// Five devices in a tight cluster produce 10 pairs; the cap keeps 2n.
	var devices []models.Device
	for i := 0; i < 5; i++ {
		devices = append(devices, device(fmt.Sprintf("d%d", i), 22.59+float64(i)*0.001, 88.26))
	}
	e := topology.NewEngine(zerolog.Nop())

	connections, _ := e.Build(devices, nil, models.ModeWorkOptimal)

	require.Len(t, connections, 10)
	for i := 1; i < len(connections); i++ {
		assert.GreaterOrEqual(t, connections[i-1].WorkScore, connections[i].WorkScore)
	}

	// Add more devices so pairs exceed the 2n cap.
	for i := 5; i < 8; i++ {
		devices = append(devices, device(fmt.Sprintf("d%d", i), 22.59+float64(i)*0.001, 88.26))
	}
	connections, _ = e.Build(devices, nil, models.ModeWorkOptimal)
	assert.Len(t, connections, 16) // 28 pairs capped at 2*8
}

func TestBuild_WorkOptimalFacilityBonusStacks(t *testing.T) {
	a := device("a", 22.5958, 88.2636)
	b := device("b", 22.5968, 88.2636) // ~111 m apart
	// Two of the top-3 facilities within 2 km of the pair; +20 each.
	facilities := []models.Facility{
		facility("f1", 22.5960, 88.2636, 20),
		facility("f2", 22.5962, 88.2636, 15),
	}
	e := topology.NewEngine(zerolog.Nop())

	connections, _ := e.Build([]models.Device{a, b}, facilities, models.ModeWorkOptimal)

	require.Len(t, connections, 1)
	distance := connections[0].DistanceKm
	assert.InDelta(t, 100-distance*10+40, connections[0].WorkScore, 1e-9)
}

func TestBuild_MinimumSpanningEdgeCap(t *testing.T) {
	var devices []models.Device
	for i := 0; i < 6; i++ {
		devices = append(devices, device(fmt.Sprintf("d%d", i), 22.59+float64(i)*0.01, 88.26))
	}
	e := topology.NewEngine(zerolog.Nop())

	connections, _ := e.Build(devices, nil, models.ModeMinimumSpanning)

	assert.LessOrEqual(t, len(connections), len(devices)-1)
}

func TestBuild_MinimumSpanningPrefersShortEdges(t *testing.T) {
	// A chain of devices: the greedy pass accepts edges shortest-first.
	devices := []models.Device{
		device("a", 22.59, 88.26),
		device("b", 22.591, 88.26),
		device("c", 22.60, 88.26),
	}
	e := topology.NewEngine(zerolog.Nop())

	connections, _ := e.Build(devices, nil, models.ModeMinimumSpanning)

	require.NotEmpty(t, connections)
	for i := 1; i < len(connections); i++ {
		assert.LessOrEqual(t, connections[i-1].DistanceKm, connections[i].DistanceKm)
	}
}

func TestBuild_OfflineAndUnpositionedDevicesExcluded(t *testing.T) {
	online := device("online", 22.5958, 88.2636)
	offline := device("offline", 22.5968, 88.2636)
	offline.IsOnline = false
	unpositioned := models.Device{ID: "blind", IsOnline: true, WorkRole: models.RoleWorker}
	facilities := []models.Facility{facility("er", 22.60, 88.26, 10)}
	e := topology.NewEngine(zerolog.Nop())

	connections, _ := e.Build([]models.Device{online, offline, unpositioned}, facilities, models.ModeEmergency)

	// Only one eligible device, so no connections at all.
	assert.Empty(t, connections)
}

func TestBuild_ExactlyOneResponder(t *testing.T) {
	devices := []models.Device{
		device("a", 22.59, 88.26),
		device("b", 22.60, 88.26),
		device("c", 22.61, 88.26),
	}
	facilities := []models.Facility{facility("er", 22.612, 88.26, 10)}
	e := topology.NewEngine(zerolog.Nop())

	_, assigned := e.Build(devices, facilities, models.ModeWorkOptimal)

	responders := 0
	for _, d := range assigned {
		if d.EmergencyResponder {
			responders++
			assert.Equal(t, "c", d.ID)
		}
	}
	assert.Equal(t, 1, responders)
}

func TestBuild_NoFacilitiesNoResponder(t *testing.T) {
	devices := []models.Device{device("a", 22.59, 88.26), device("b", 22.60, 88.26)}
	e := topology.NewEngine(zerolog.Nop())

	_, assigned := e.Build(devices, nil, models.ModeWorkOptimal)

	for _, d := range assigned {
		assert.False(t, d.EmergencyResponder)
		assert.Equal(t, models.RoleWorker, d.WorkRole)
	}
}
