// Package api exposes the coordination control surface over HTTP. The
// display layer reads snapshots; every mutation goes through the
// coordination service.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/coordination"
	"github.com/fieldmesh/fieldcoord/internal/models"
)

// Handlers bundles the HTTP endpoints over one coordination service.
type Handlers struct {
	service *coordination.Service
	logger  zerolog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(service *coordination.Service, logger zerolog.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

type registerRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type selectRouteRequest struct {
	FacilityID string `json:"facility_id"`
}

type autoRoutingRequest struct {
	Enabled bool `json:"enabled"`
}

// RegisterDevice handles POST /devices.
func (h *Handlers) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if req.Name == "" {
		req.Name = req.ID
	}
	h.service.RegisterDevice(req.ID, req.Name)
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// UpdateLocation handles POST /devices/{id}/location.
func (h *Handlers) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid location payload")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		writeError(w, http.StatusBadRequest, "coordinates out of range")
		return
	}
	h.service.HandleLocationUpdate(r.Context(), id,
		models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}, req.Accuracy)
	w.WriteHeader(http.StatusAccepted)
}

// RemoveDevice handles DELETE /devices/{id}.
func (h *Handlers) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	h.service.RemoveDevice(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// SetTopologyMode handles PUT /topology/mode.
func (h *Handlers) SetTopologyMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid mode payload")
		return
	}
	mode := models.TopologyMode(req.Mode)
	switch mode {
	case models.ModeEmergency, models.ModeWorkOptimal, models.ModeMinimumSpanning:
	default:
		// Unknown modes fall back to emergency behavior in the engine,
		// but the API rejects them so operators notice typos.
		writeError(w, http.StatusBadRequest, "unknown topology mode")
		return
	}
	h.service.SetTopologyMode(mode)
	w.WriteHeader(http.StatusNoContent)
}

// SelectRoute handles PUT /routes/selected.
func (h *Handlers) SelectRoute(w http.ResponseWriter, r *http.Request) {
	var req selectRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FacilityID == "" {
		writeError(w, http.StatusBadRequest, "facility_id is required")
		return
	}
	if !h.service.SelectRoute(req.FacilityID) {
		writeError(w, http.StatusNotFound, "no ranked route for facility")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetAutoRouting handles PUT /routes/auto.
func (h *Handlers) SetAutoRouting(w http.ResponseWriter, r *http.Request) {
	var req autoRoutingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid auto-routing payload")
		return
	}
	h.service.SetAutoRouting(req.Enabled)
	w.WriteHeader(http.StatusNoContent)
}

// GetSnapshot handles GET /snapshot.
func (h *Handlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
