package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldmesh/fieldcoord/internal/api"
	"github.com/fieldmesh/fieldcoord/internal/coordination"
	"github.com/fieldmesh/fieldcoord/internal/metrics"
	"github.com/fieldmesh/fieldcoord/internal/models"
	"github.com/fieldmesh/fieldcoord/internal/ranking"
	"github.com/fieldmesh/fieldcoord/internal/registry"
	"github.com/fieldmesh/fieldcoord/internal/routing"
	"github.com/fieldmesh/fieldcoord/internal/topology"
	"github.com/fieldmesh/fieldcoord/internal/ws"
)

type stubDirectory struct{}

func (stubDirectory) Search(_ context.Context, _ models.Coordinate, _ uint) ([]models.Facility, error) {
	return nil, errors.New("offline in tests")
}

type stubProvider struct{}

func (stubProvider) Directions(_ context.Context, _, _ models.Coordinate, _ string) (models.Route, error) {
	return models.Route{}, errors.New("offline in tests")
}

func newServer(t *testing.T) (*httptest.Server, *registry.DeviceRegistry) {
	t.Helper()
	logger := zerolog.Nop()
	reg := registry.NewDeviceRegistry(logger)
	service := coordination.NewService(
		reg,
		ranking.NewHospitalRanker(stubDirectory{}, logger),
		routing.NewOrchestrator(stubProvider{}, "", logger),
		topology.NewEngine(logger),
		metrics.New(prometheus.NewRegistry()),
		coordination.Options{},
		logger,
	)
	hub := ws.NewHub(logger)
	go hub.Run()

	router := api.NewRouter(service, hub, prometheus.NewRegistry(), []string{"*"}, logger)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, reg
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRegisterAndLocateDevice(t *testing.T) {
	server, reg := newServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/devices", `{"id":"dev-1","name":"Alpha"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/devices/dev-1/location",
		`{"latitude":22.5958,"longitude":88.2636,"accuracy":5}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	d, ok := reg.Get("dev-1")
	require.True(t, ok)
	require.NotNil(t, d.Position)
	assert.Equal(t, 22.5958, d.Position.Latitude)
}

func TestRegisterDevice_RequiresID(t *testing.T) {
	server, _ := newServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/devices", `{"name":"NoID"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateLocation_RejectsOutOfRangeCoordinates(t *testing.T) {
	server, _ := newServer(t)
	doJSON(t, http.MethodPost, server.URL+"/devices", `{"id":"dev-1"}`)

	resp := doJSON(t, http.MethodPost, server.URL+"/devices/dev-1/location",
		`{"latitude":123.0,"longitude":88.2636}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetTopologyMode_RejectsUnknownMode(t *testing.T) {
	server, _ := newServer(t)

	resp := doJSON(t, http.MethodPut, server.URL+"/topology/mode", `{"mode":"mesh"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, server.URL+"/topology/mode", `{"mode":"work-optimal"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSelectRoute_UnknownFacility(t *testing.T) {
	server, _ := newServer(t)

	resp := doJSON(t, http.MethodPut, server.URL+"/routes/selected", `{"facility_id":"nope"}`)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetSnapshot(t *testing.T) {
	server, _ := newServer(t)
	doJSON(t, http.MethodPost, server.URL+"/devices", `{"id":"dev-1","name":"Alpha"}`)

	resp := doJSON(t, http.MethodGet, server.URL+"/snapshot", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestRemoveDevice(t *testing.T) {
	server, reg := newServer(t)
	doJSON(t, http.MethodPost, server.URL+"/devices", `{"id":"dev-1"}`)

	resp := doJSON(t, http.MethodDelete, server.URL+"/devices/dev-1", "")

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, reg.Count())
}
