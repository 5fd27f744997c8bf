// Package location supplies the host device's own position, either
// from a serial GPS sensor or the Google Geolocation API.
package location

import "context"

// Location represents the geographical coordinates of the host device.
type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Provider is implemented by position sources for the host device.
type Provider interface {
	GetLocation(ctx context.Context) (Location, error)
	Close() error
}
