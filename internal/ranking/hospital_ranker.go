// Package ranking scores and orders medical facilities by a composite
// work priority, with a deterministic synthetic fallback when the
// directory is unreachable.
package ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/directory"
	"github.com/fieldmesh/fieldcoord/internal/models"
	"github.com/fieldmesh/fieldcoord/pkg/geomath"
)

// Priority weights. Proximity brackets are mutually exclusive; the
// nearest matching bracket wins.
const (
	emergencyBonus  = 10
	wheelchairBonus = 5
	hoursBonus      = 3
	proximityNear   = 8 // < 2 km
	proximityMid    = 5 // < 5 km
	proximityFar    = 2 // < 10 km

	fallbackEmergencyPriority = 10
	fallbackClinicPriority    = 5
)

// HospitalRanker queries the facility directory and produces a scored,
// ordered facility list. Rank never returns an error: directory
// failures are absorbed into a synthetic fallback set.
type HospitalRanker struct {
	directory directory.Directory
	logger    zerolog.Logger
}

// NewHospitalRanker creates a ranker over the given directory.
func NewHospitalRanker(dir directory.Directory, logger zerolog.Logger) *HospitalRanker {
	return &HospitalRanker{
		directory: dir,
		logger:    logger,
	}
}

// Rank returns facilities within radiusKm of origin, scored and sorted
// by descending work priority with ascending distance as tie-break.
// The second return value reports whether the fallback set was used.
func (h *HospitalRanker) Rank(ctx context.Context, origin models.Coordinate, radiusKm float64) ([]models.Facility, bool) {
	raw, err := h.directory.Search(ctx, origin, uint(radiusKm*1000))
	if err != nil {
		h.logger.Warn().Err(err).
			Float64("radius_km", radiusKm).
			Msg("Facility directory unavailable, using fallback set")
		return h.fallbackFacilities(origin), true
	}

	facilities := make([]models.Facility, 0, len(raw))
	for _, f := range raw {
		f.DistanceKm = geomath.DistanceKm(origin, f.Position)
		f.WorkPriority = scoreFacility(f)
		facilities = append(facilities, f)
	}
	sortByPriority(facilities)
	return facilities, false
}

// scoreFacility computes the composite work priority for one facility.
func scoreFacility(f models.Facility) int {
	score := 0
	if f.Emergency {
		score += emergencyBonus
	}
	if f.Wheelchair {
		score += wheelchairBonus
	}
	if f.Hours != "" {
		score += hoursBonus
	}
	switch {
	case f.DistanceKm < 2:
		score += proximityNear
	case f.DistanceKm < 5:
		score += proximityMid
	case f.DistanceKm < 10:
		score += proximityFar
	}
	return score
}

func sortByPriority(facilities []models.Facility) {
	sort.Slice(facilities, func(i, j int) bool {
		if facilities[i].WorkPriority != facilities[j].WorkPriority {
			return facilities[i].WorkPriority > facilities[j].WorkPriority
		}
		return facilities[i].DistanceKm < facilities[j].DistanceKm
	})
}

// fallbackFacilities builds the deterministic four-facility set used
// when the directory call fails: offsets of ±0.01° around the origin,
// alternating emergency capability.
func (h *HospitalRanker) fallbackFacilities(origin models.Coordinate) []models.Facility {
	offsets := []struct {
		dLat, dLng float64
	}{
		{0.01, 0},
		{-0.01, 0},
		{0, 0.01},
		{0, -0.01},
	}

	facilities := make([]models.Facility, 0, len(offsets))
	for i, off := range offsets {
		pos := models.Coordinate{
			Latitude:  origin.Latitude + off.dLat,
			Longitude: origin.Longitude + off.dLng,
		}
		emergency := i%2 == 0
		priority := fallbackClinicPriority
		kind := "clinic"
		if emergency {
			priority = fallbackEmergencyPriority
			kind = "hospital"
		}
		facilities = append(facilities, models.Facility{
			ID:           fmt.Sprintf("fallback-%d", i+1),
			Name:         fmt.Sprintf("Field Medical Station %d", i+1),
			Type:         kind,
			Position:     pos,
			DistanceKm:   geomath.DistanceKm(origin, pos),
			Emergency:    emergency,
			WorkPriority: priority,
			IsFallback:   true,
		})
	}
	sortByPriority(facilities)
	return facilities
}
