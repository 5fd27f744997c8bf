package location

import (
	"context"

	"googlemaps.github.io/maps"
)

// GoogleGeolocationProvider resolves the host position through the
// Google Maps Geolocation API using IP-based positioning. Accuracy is
// coarse; a GPS sensor provider is preferred when hardware is present.
type GoogleGeolocationProvider struct {
	client *maps.Client
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
func NewGoogleGeolocationProvider(apiKey string) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GoogleGeolocationProvider{client: c}, nil
}

// GetLocation retrieves the device's location via the Geolocation API.
func (g *GoogleGeolocationProvider) GetLocation(ctx context.Context) (Location, error) {
	req := &maps.GeolocationRequest{
		ConsiderIP: true,
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Location{}, err
	}

	return Location{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
		Accuracy:  resp.Accuracy,
	}, nil
}

// Close is a no-op; the maps client holds no persistent resources.
func (g *GoogleGeolocationProvider) Close() error {
	return nil
}
