// Package directory queries an external points-of-interest source for
// medical facilities near a coordinate.
package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"

	"github.com/fieldmesh/fieldcoord/internal/models"
)

// Directory is the facility-directory contract consumed by the ranker.
// Implementations return raw facilities without scores; zero results is
// a valid answer, not an error.
type Directory interface {
	Search(ctx context.Context, center models.Coordinate, radiusM uint) ([]models.Facility, error)
}

// PlacesDirectory resolves nearby hospitals and clinics through the
// Google Places Nearby Search API.
type PlacesDirectory struct {
	client  *maps.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPlacesDirectory creates a directory backed by the Places API.
func NewPlacesDirectory(apiKey string, logger zerolog.Logger) (*PlacesDirectory, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &PlacesDirectory{
		client:  c,
		timeout: 10 * time.Second,
		logger:  logger,
	}, nil
}

// Search queries hospitals within radiusM meters of center. Entries
// without resolvable coordinates are dropped, not treated as errors.
func (p *PlacesDirectory) Search(ctx context.Context, center models.Coordinate, radiusM uint) ([]models.Facility, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req := &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: center.Latitude, Lng: center.Longitude},
		Radius:   radiusM,
		Type:     maps.PlaceTypeHospital,
	}

	resp, err := p.client.NearbySearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("nearby search failed: %w", err)
	}

	facilities := make([]models.Facility, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.Geometry.Location.Lat == 0 && result.Geometry.Location.Lng == 0 {
			p.logger.Debug().Str("place_id", result.PlaceID).Msg("Dropping facility without coordinates")
			continue
		}
		facilities = append(facilities, models.Facility{
			ID:   result.PlaceID,
			Name: result.Name,
			Type: facilityType(result.Types),
			Position: models.Coordinate{
				Latitude:  result.Geometry.Location.Lat,
				Longitude: result.Geometry.Location.Lng,
			},
			Emergency:  hasTag(result.Types, "hospital"),
			Wheelchair: hasTag(result.Types, "wheelchair_accessible_entrance"),
			Address:    result.Vicinity,
			Hours:     openingHours(result.OpeningHours),
		})
	}
	return facilities, nil
}

func facilityType(types []string) string {
	if hasTag(types, "hospital") {
		return "hospital"
	}
	if hasTag(types, "doctor") || hasTag(types, "clinic") {
		return "clinic"
	}
	if len(types) > 0 {
		return types[0]
	}
	return "facility"
}

func hasTag(types []string, tag string) bool {
	for _, t := range types {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func openingHours(hours *maps.OpeningHours) string {
	if hours == nil || len(hours.WeekdayText) == 0 {
		return ""
	}
	return strings.Join(hours.WeekdayText, "; ")
}
