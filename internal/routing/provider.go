package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"github.com/fieldmesh/fieldcoord/internal/models"
)

// RouteProvider is the external routing contract. Implementations
// return road-network routes in km/minutes or an error; the
// orchestrator maps every error to a straight-line fallback.
type RouteProvider interface {
	Directions(ctx context.Context, origin, dest models.Coordinate, profile string) (models.Route, error)
}

// MapsRouteProvider resolves routes through the Google Directions API.
type MapsRouteProvider struct {
	client  *maps.Client
	timeout time.Duration
}

// NewMapsRouteProvider creates a Directions-backed provider.
func NewMapsRouteProvider(apiKey string) (*MapsRouteProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &MapsRouteProvider{
		client:  c,
		timeout: 10 * time.Second,
	}, nil
}

// Directions requests a route and converts provider units (meters,
// seconds) to the engine's km/minutes.
func (p *MapsRouteProvider) Directions(ctx context.Context, origin, dest models.Coordinate, profile string) (models.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Latitude, origin.Longitude),
		Destination: fmt.Sprintf("%f,%f", dest.Latitude, dest.Longitude),
		Mode:        travelMode(profile),
	}

	routes, _, err := p.client.Directions(ctx, req)
	if err != nil {
		return models.Route{}, fmt.Errorf("directions request failed: %w", err)
	}
	if len(routes) == 0 {
		return models.Route{}, errors.New("provider returned no routes")
	}

	best := routes[0]
	var distanceM int
	var duration time.Duration
	for _, leg := range best.Legs {
		distanceM += leg.Distance.Meters
		duration += leg.Duration
	}

	points, err := best.OverviewPolyline.Decode()
	if err != nil {
		return models.Route{}, fmt.Errorf("polyline decode failed: %w", err)
	}
	coords := make([]models.Coordinate, 0, len(points))
	for _, pt := range points {
		coords = append(coords, models.Coordinate{Latitude: pt.Lat, Longitude: pt.Lng})
	}

	return models.Route{
		Coordinates: coords,
		DistanceKm:  float64(distanceM) / 1000,
		DurationMin: duration.Minutes(),
	}, nil
}

func travelMode(profile string) maps.Mode {
	switch profile {
	case "walking":
		return maps.TravelModeWalking
	case "cycling":
		return maps.TravelModeBicycling
	default:
		return maps.TravelModeDriving
	}
}
