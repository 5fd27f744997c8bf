package models

import (
	"time"

	"github.com/fieldmesh/fieldcoord/pkg/geomath"
)

// Coordinate aliases the shared geomath pair so the rest of the engine
// has a single coordinate type.
type Coordinate = geomath.Coordinate

// WorkRole is the role a device plays inside the current topology.
type WorkRole string

const (
	RoleWorker             WorkRole = "worker"
	RoleEmergencyResponder WorkRole = "emergency-responder"
)

// TopologyMode selects which graph-construction strategy produces
// connections between devices.
type TopologyMode string

const (
	ModeEmergency       TopologyMode = "emergency"
	ModeWorkOptimal     TopologyMode = "work-optimal"
	ModeMinimumSpanning TopologyMode = "mst"
)

// Device represents a registered mobile device. Position and LastUpdate
// are nil until the device reports its first location.
type Device struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Position           *Coordinate `json:"position,omitempty"`
	LastUpdate         *time.Time  `json:"last_update,omitempty"`
	IsOnline           bool        `json:"is_online"`
	AccuracyM          float64     `json:"accuracy_m"`
	WorkRole           WorkRole    `json:"work_role"`
	EmergencyResponder bool        `json:"emergency_responder"`
}

// Clone returns a deep copy so registry state never leaks by reference
// into snapshots.
func (d Device) Clone() Device {
	c := d
	if d.Position != nil {
		pos := *d.Position
		c.Position = &pos
	}
	if d.LastUpdate != nil {
		ts := *d.LastUpdate
		c.LastUpdate = &ts
	}
	return c
}

// Facility is a medical facility returned by the directory and scored by
// the ranker. Immutable once constructed; a fresh ranking pass builds a
// new list instead of mutating old entries.
type Facility struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Position     Coordinate `json:"position"`
	DistanceKm   float64    `json:"distance_km"`
	Emergency    bool       `json:"emergency"`
	Wheelchair   bool       `json:"wheelchair"`
	WorkPriority int        `json:"work_priority"`
	Address      string     `json:"address,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Hours        string     `json:"hours,omitempty"`
	IsFallback   bool       `json:"is_fallback,omitempty"`
}

// Route is an aggregate path between two points. Coordinates hold the
// polyline; for fallback routes it degenerates to the two endpoints.
type Route struct {
	Coordinates []Coordinate `json:"coordinates"`
	DistanceKm  float64      `json:"distance_km"`
	DurationMin float64      `json:"duration_min"`
	IsFallback  bool         `json:"is_fallback"`
}

// RankedRoute merges a facility with its computed route. This is what
// the display layer and the route selection policy consume.
type RankedRoute struct {
	Facility       Facility `json:"facility"`
	Route          Route    `json:"route"`
	RoadDistanceKm float64  `json:"road_distance_km"`
	EstimatedTime  float64  `json:"estimated_time_min"`
	Urgency        float64  `json:"urgency"`
}

// Connection is an edge between two devices in the computed topology.
// Connections are recomputed wholesale on every rebuild.
type Connection struct {
	FromID          string     `json:"from_id"`
	ToID            string     `json:"to_id"`
	FromPosition    Coordinate `json:"from_position"`
	ToPosition      Coordinate `json:"to_position"`
	DistanceKm      float64    `json:"distance_km"`
	WorkScore       float64    `json:"work_score"`
	IsEmergencyPath bool       `json:"is_emergency_path"`
}

// NetworkSnapshot is the unit of publication: a full, internally
// consistent view of coordination state. Subscribers all receive the
// same value and must treat it as read-only.
type NetworkSnapshot struct {
	Generation    uint64        `json:"generation"`
	Timestamp     time.Time     `json:"timestamp"`
	Devices       []Device      `json:"devices"`
	Connections   []Connection  `json:"connections"`
	Facilities    []Facility    `json:"facilities"`
	Routes        []RankedRoute `json:"routes"`
	TopologyMode  TopologyMode  `json:"topology_mode"`
	EmergencyMode bool          `json:"emergency_mode"`
	SelectedRoute *RankedRoute  `json:"selected_route,omitempty"`
	ShortestRoute *RankedRoute  `json:"shortest_route,omitempty"`
	Status        string        `json:"status,omitempty"`
}
