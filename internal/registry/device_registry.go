// Package registry owns device state: registration, location updates and
// online/offline staleness detection.
package registry

import (
	"sort"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/models"
)

// DefaultStaleTimeout is how long a device may go without a location
// update before it is considered offline.
const DefaultStaleTimeout = 30 * time.Second

// DeviceRegistry is the single owner of Device records. Derived fields
// (work role, responder flag) are never stored here; the topology engine
// computes them on snapshot copies.
type DeviceRegistry struct {
	devices cmap.ConcurrentMap[string, models.Device]
	logger  zerolog.Logger
}

// NewDeviceRegistry creates an empty registry.
func NewDeviceRegistry(logger zerolog.Logger) *DeviceRegistry {
	return &DeviceRegistry{
		devices: cmap.New[models.Device](),
		logger:  logger,
	}
}

// Register adds a device or refreshes the name of an existing one. It
// never resets position or online state of a known device.
func (r *DeviceRegistry) Register(id, name string) {
	r.devices.Upsert(id, models.Device{}, func(exists bool, current, _ models.Device) models.Device {
		if exists {
			current.Name = name
			return current
		}
		r.logger.Info().Str("device_id", id).Str("name", name).Msg("Device registered")
		return models.Device{
			ID:       id,
			Name:     name,
			IsOnline: true,
			WorkRole: models.RoleWorker,
		}
	})
}

// UpdateLocation records a new position for a known device and marks it
// online. Unknown ids are a no-op and return false; the registry never
// auto-creates devices.
func (r *DeviceRegistry) UpdateLocation(id string, pos models.Coordinate, accuracyM float64, now time.Time) bool {
	if !r.devices.Has(id) {
		r.logger.Warn().Str("device_id", id).Msg("Location update for unknown device ignored")
		return false
	}
	r.devices.Upsert(id, models.Device{}, func(exists bool, current, _ models.Device) models.Device {
		if !exists {
			return current
		}
		ts := now
		current.Position = &pos
		current.AccuracyM = accuracyM
		current.LastUpdate = &ts
		current.IsOnline = true
		return current
	})
	return true
}

// Remove deletes a device. Returns false if the id was unknown.
func (r *DeviceRegistry) Remove(id string) bool {
	removed := false
	r.devices.RemoveCb(id, func(_ string, _ models.Device, ok bool) bool {
		removed = ok
		return ok
	})
	return removed
}

// Get returns a copy of the device, if present.
func (r *DeviceRegistry) Get(id string) (models.Device, bool) {
	d, ok := r.devices.Get(id)
	if !ok {
		return models.Device{}, false
	}
	return d.Clone(), true
}

// Count returns the number of registered devices.
func (r *DeviceRegistry) Count() int {
	return r.devices.Count()
}

// SweepStale flips IsOnline=false for every device whose last update is
// older than timeout, and returns the ids that actually changed state.
// Devices that never reported a position have no LastUpdate and are left
// untouched.
func (r *DeviceRegistry) SweepStale(now time.Time, timeout time.Duration) []string {
	var flipped []string
	for _, id := range r.devices.Keys() {
		r.devices.Upsert(id, models.Device{}, func(exists bool, current, _ models.Device) models.Device {
			if !exists || !current.IsOnline || current.LastUpdate == nil {
				return current
			}
			if now.Sub(*current.LastUpdate) > timeout {
				current.IsOnline = false
				flipped = append(flipped, id)
			}
			return current
		})
	}
	if len(flipped) > 0 {
		r.logger.Info().Strs("device_ids", flipped).Msg("Marked stale devices offline")
	}
	return flipped
}

// Snapshot returns deep copies of all devices, ordered by id for
// deterministic output.
func (r *DeviceRegistry) Snapshot() []models.Device {
	items := r.devices.Items()
	devices := make([]models.Device, 0, len(items))
	for _, d := range items {
		devices = append(devices, d.Clone())
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// OnlinePositioned returns copies of the devices eligible for topology
// and distance computations: online with a known position.
func (r *DeviceRegistry) OnlinePositioned() []models.Device {
	var devices []models.Device
	for _, d := range r.devices.Items() {
		if d.IsOnline && d.Position != nil {
			devices = append(devices, d.Clone())
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}
