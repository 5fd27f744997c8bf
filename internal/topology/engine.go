// Package topology builds the device connection graph under one of
// three strategies and assigns work roles.
package topology

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/models"
	"github.com/fieldmesh/fieldcoord/pkg/geomath"
)

const (
	// pairBaseScore and distancePenalty define the raw pair score
	// 100 - distance*10 used by the work-optimal and mst modes.
	pairBaseScore   = 100.0
	distancePenalty = 10.0

	// facilityBonus is added per top facility with an endpoint within
	// facilityBonusRangeKm; the bonus stacks across facilities.
	facilityBonus        = 20.0
	facilityBonusRangeKm = 2.0
	facilityBonusTopN    = 3

	// edgeCapFactor bounds work-optimal edge count at factor*devices.
	edgeCapFactor = 2
)

// Engine computes connections and role projections over the online,
// positioned device subset. It holds no state between rebuilds.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates a topology engine.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Build produces the connection set for the given mode and a copy of
// the devices with roles assigned. Unknown modes behave as emergency.
func (e *Engine) Build(devices []models.Device, facilities []models.Facility, mode models.TopologyMode) ([]models.Connection, []models.Device) {
	positioned := positionedOnline(devices)

	var connections []models.Connection
	switch mode {
	case models.ModeWorkOptimal:
		connections = e.buildWorkOptimal(positioned, facilities)
	case models.ModeMinimumSpanning:
		connections = e.buildMinimumSpanning(positioned, facilities)
	default:
		connections = e.buildEmergencyStar(positioned, facilities)
	}

	return connections, assignRoles(devices, facilities)
}

// buildEmergencyStar connects the device nearest the top facility to
// every other device. Fewer than 2 devices or zero facilities yields no
// connections.
func (e *Engine) buildEmergencyStar(devices []models.Device, facilities []models.Facility) []models.Connection {
	if len(devices) < 2 || len(facilities) == 0 {
		return nil
	}

	hub := nearestDevice(devices, facilities[0].Position)
	connections := make([]models.Connection, 0, len(devices)-1)
	for _, d := range devices {
		if d.ID == hub.ID {
			continue
		}
		connections = append(connections, models.Connection{
			FromID:          hub.ID,
			ToID:            d.ID,
			FromPosition:    *hub.Position,
			ToPosition:      *d.Position,
			DistanceKm:      geomath.DistanceKm(*hub.Position, *d.Position),
			IsEmergencyPath: true,
		})
	}
	return connections
}

// scoredPair is an unordered device pair with its work score.
type scoredPair struct {
	a, b       models.Device
	distanceKm float64
	workScore  float64
}

// scorePairs computes every unordered pair's work score: a distance
// penalty plus stacking bonuses for proximity to the top facilities.
func scorePairs(devices []models.Device, facilities []models.Facility) []scoredPair {
	topFacilities := facilities
	if len(topFacilities) > facilityBonusTopN {
		topFacilities = topFacilities[:facilityBonusTopN]
	}

	var pairs []scoredPair
	for i := 0; i < len(devices); i++ {
		for j := i + 1; j < len(devices); j++ {
			a, b := devices[i], devices[j]
			distance := geomath.DistanceKm(*a.Position, *b.Position)
			score := pairBaseScore - distance*distancePenalty
			for _, f := range topFacilities {
				if geomath.DistanceKm(*a.Position, f.Position) < facilityBonusRangeKm ||
					geomath.DistanceKm(*b.Position, f.Position) < facilityBonusRangeKm {
					score += facilityBonus
				}
			}
			pairs = append(pairs, scoredPair{a: a, b: b, distanceKm: distance, workScore: score})
		}
	}
	return pairs
}

// buildWorkOptimal keeps the highest-scoring pairs up to a density cap
// of 2x the device count. The result may be disconnected; the mode
// optimizes useful pairs, not spanning coverage.
func (e *Engine) buildWorkOptimal(devices []models.Device, facilities []models.Facility) []models.Connection {
	if len(devices) < 2 {
		return nil
	}

	pairs := scorePairs(devices, facilities)
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].workScore > pairs[j].workScore })

	edgeCap := edgeCapFactor * len(devices)
	if len(pairs) > edgeCap {
		pairs = pairs[:edgeCap]
	}
	return toConnections(pairs, false)
}

// buildMinimumSpanning greedily accepts the shortest pairs while at
// least one endpoint is still unconnected, stopping at n-1 edges. This
// is a connectivity heuristic, not a true Kruskal MST: it skips no
// cross-component edges by cycle detection, so the result is a spanning
// tree only for favorable edge orderings.
func (e *Engine) buildMinimumSpanning(devices []models.Device, facilities []models.Facility) []models.Connection {
	if len(devices) < 2 {
		return nil
	}

	pairs := scorePairs(devices, facilities)
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].distanceKm < pairs[j].distanceKm })

	connected := make(map[string]bool, len(devices))
	var accepted []scoredPair
	for _, p := range pairs {
		if len(accepted) >= len(devices)-1 {
			break
		}
		if connected[p.a.ID] && connected[p.b.ID] {
			continue
		}
		connected[p.a.ID] = true
		connected[p.b.ID] = true
		accepted = append(accepted, p)
	}
	return toConnections(accepted, false)
}

func toConnections(pairs []scoredPair, emergencyPath bool) []models.Connection {
	connections := make([]models.Connection, 0, len(pairs))
	for _, p := range pairs {
		connections = append(connections, models.Connection{
			FromID:          p.a.ID,
			ToID:            p.b.ID,
			FromPosition:    *p.a.Position,
			ToPosition:      *p.b.Position,
			DistanceKm:      p.distanceKm,
			WorkScore:       p.workScore,
			IsEmergencyPath: emergencyPath,
		})
	}
	return connections
}

// assignRoles returns device copies with every online device reset to
// worker and the device nearest the top facility promoted to emergency
// responder. Exactly one responder when at least one positioned online
// device and one facility exist.
func assignRoles(devices []models.Device, facilities []models.Facility) []models.Device {
	out := make([]models.Device, len(devices))
	for i, d := range devices {
		c := d.Clone()
		if c.IsOnline {
			c.WorkRole = models.RoleWorker
			c.EmergencyResponder = false
		}
		out[i] = c
	}

	if len(facilities) == 0 {
		return out
	}
	positioned := positionedOnline(out)
	if len(positioned) == 0 {
		return out
	}

	responder := nearestDevice(positioned, facilities[0].Position)
	for i := range out {
		if out[i].ID == responder.ID {
			out[i].WorkRole = models.RoleEmergencyResponder
			out[i].EmergencyResponder = true
		}
	}
	return out
}

func positionedOnline(devices []models.Device) []models.Device {
	var out []models.Device
	for _, d := range devices {
		if d.IsOnline && d.Position != nil {
			out = append(out, d)
		}
	}
	return out
}

func nearestDevice(devices []models.Device, target models.Coordinate) models.Device {
	best := devices[0]
	bestDistance := geomath.DistanceKm(*best.Position, target)
	for _, d := range devices[1:] {
		if distance := geomath.DistanceKm(*d.Position, target); distance < bestDistance {
			best = d
			bestDistance = distance
		}
	}
	return best
}
