// Package routing aggregates road routes to ranked facilities, with
// straight-line fallback and per-destination failure isolation.
package routing

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/models"
	"github.com/fieldmesh/fieldcoord/pkg/geomath"
)

// DefaultProfile is the travel profile used when none is configured.
const DefaultProfile = "driving"

// fallbackSpeedFactor converts straight-line km to minutes at an
// assumed 30 km/h average.
const fallbackSpeedFactor = 2.0

// Orchestrator fans out routing requests and merges the results with
// facility priorities into an urgency-ordered list. No call on it ever
// returns an error; provider failures degrade to fallback routes.
type Orchestrator struct {
	provider RouteProvider
	profile  string
	logger   zerolog.Logger
}

// NewOrchestrator creates an orchestrator over the given provider.
func NewOrchestrator(provider RouteProvider, profile string, logger zerolog.Logger) *Orchestrator {
	if profile == "" {
		profile = DefaultProfile
	}
	return &Orchestrator{
		provider: provider,
		profile:  profile,
		logger:   logger,
	}
}

// RouteOne returns a route from origin to dest. On any provider failure
// it returns a two-point straight-line fallback with duration derived
// from the haversine distance.
func (o *Orchestrator) RouteOne(ctx context.Context, origin, dest models.Coordinate) models.Route {
	route, err := o.provider.Directions(ctx, origin, dest, o.profile)
	if err != nil {
		o.logger.Warn().Err(err).Msg("Routing provider failed, using direct path")
		return fallbackRoute(origin, dest)
	}
	if len(route.Coordinates) == 0 {
		o.logger.Warn().Msg("Routing provider returned empty polyline, using direct path")
		return fallbackRoute(origin, dest)
	}
	return route
}

// RouteMany routes origin to every facility concurrently. Each
// destination is isolated: one failed route never affects siblings.
// Results are sorted by descending urgency.
func (o *Orchestrator) RouteMany(ctx context.Context, origin models.Coordinate, facilities []models.Facility) []models.RankedRoute {
	ranked := make([]models.RankedRoute, len(facilities))

	var wg sync.WaitGroup
	for i, facility := range facilities {
		wg.Add(1)
		go func(i int, facility models.Facility) {
			defer wg.Done()
			route := o.RouteOne(ctx, origin, facility.Position)
			ranked[i] = models.RankedRoute{
				Facility:       facility,
				Route:          route,
				RoadDistanceKm: route.DistanceKm,
				EstimatedTime:  route.DurationMin,
				Urgency:        urgency(facility.WorkPriority, route.DistanceKm),
			}
		}(i, facility)
	}
	wg.Wait()

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Urgency > ranked[j].Urgency })
	return ranked
}

// urgency rewards high medical priority and short road distance. The
// +0.1 guards against blow-up at zero distance.
func urgency(workPriority int, roadDistanceKm float64) float64 {
	return float64(workPriority) + 20/(roadDistanceKm+0.1)
}

func fallbackRoute(origin, dest models.Coordinate) models.Route {
	distance := geomath.DistanceKm(origin, dest)
	return models.Route{
		Coordinates: []models.Coordinate{origin, dest},
		DistanceKm:  distance,
		DurationMin: distance * fallbackSpeedFactor,
		IsFallback:  true,
	}
}
