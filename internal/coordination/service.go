// Package coordination orchestrates the registry, ranker, routing and
// topology layers and publishes consistent network snapshots.
package coordination

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/metrics"
	"github.com/fieldmesh/fieldcoord/internal/models"
	"github.com/fieldmesh/fieldcoord/internal/ranking"
	"github.com/fieldmesh/fieldcoord/internal/registry"
	"github.com/fieldmesh/fieldcoord/internal/routing"
	"github.com/fieldmesh/fieldcoord/internal/topology"
)

const (
	statusFacilitiesFallback = "facilities unavailable, showing fallback"
	statusRoutingFallback    = "routing unavailable, using direct paths"
)

// Options configure a coordination service.
type Options struct {
	SearchRadiusKm float64       // facility search radius around the reporting device
	TopK           int           // how many top-ranked facilities get road routes
	StaleTimeout   time.Duration // device offline threshold
	SweepInterval  time.Duration // staleness sweep period
	TopologyMode   models.TopologyMode
	AutoRouting    bool
}

func (o *Options) applyDefaults() {
	if o.SearchRadiusKm <= 0 {
		o.SearchRadiusKm = 5
	}
	if o.TopK <= 0 {
		o.TopK = 3
	}
	if o.StaleTimeout <= 0 {
		o.StaleTimeout = registry.DefaultStaleTimeout
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Second
	}
	if o.TopologyMode == "" {
		o.TopologyMode = models.ModeEmergency
	}
}

// Service is the single source of truth for one coordination session.
// One mutex guards every coordination cycle so no subscriber ever
// observes a half-updated state.
type Service struct {
	// Dependencies
	registry *registry.DeviceRegistry
	ranker   *ranking.HospitalRanker
	router   *routing.Orchestrator
	topo     *topology.Engine
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	opts Options

	// Coordination state, guarded by mu.
	mu            sync.Mutex
	mode          models.TopologyMode
	autoRouting   bool
	facilities    []models.Facility
	routes        []models.RankedRoute
	selectedRoute *models.RankedRoute
	status        string
	generation    uint64

	// Subscribers, guarded separately so a slow callback never blocks
	// subscription management.
	subMu       sync.Mutex
	subscribers map[int]func(models.NetworkSnapshot)
	nextSubID   int

	// Lifecycle of the staleness sweep loop.
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewService wires a coordination service from its collaborators.
func NewService(reg *registry.DeviceRegistry, ranker *ranking.HospitalRanker, router *routing.Orchestrator,
	topo *topology.Engine, m *metrics.Metrics, opts Options, logger zerolog.Logger) *Service {
	opts.applyDefaults()
	return &Service{
		registry:    reg,
		ranker:      ranker,
		router:      router,
		topo:        topo,
		metrics:     m,
		logger:      logger,
		opts:        opts,
		mode:        opts.TopologyMode,
		autoRouting: opts.AutoRouting,
		subscribers: make(map[int]func(models.NetworkSnapshot)),
	}
}

// Start launches the periodic staleness sweep.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn().Msg("CoordinationService is already running")
		return errors.New("coordination service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.opts.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweepOnce(time.Now())
			case <-s.ctx.Done():
				s.logger.Info().Msg("CoordinationService sweep loop stopping")
				return
			}
		}
	}()

	s.logger.Info().
		Dur("sweep_interval", s.opts.SweepInterval).
		Dur("stale_timeout", s.opts.StaleTimeout).
		Str("topology_mode", string(s.mode)).
		Msg("CoordinationService started")
	return nil
}

// Stop terminates the sweep loop.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Warn().Msg("CoordinationService is not running")
		return errors.New("coordination service is not running")
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info().Msg("CoordinationService stopped")
	return nil
}

// Subscribe registers a callback for every published snapshot and
// returns its unsubscribe function. Callbacks run synchronously on the
// publishing goroutine; all subscribers receive the same snapshot.
func (s *Service) Subscribe(fn func(models.NetworkSnapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// RegisterDevice adds or renames a device and publishes.
func (s *Service) RegisterDevice(id, name string) {
	s.registry.Register(id, name)

	s.mu.Lock()
	snapshot := s.rebuildLocked()
	s.mu.Unlock()
	s.publish(snapshot)
}

// RemoveDevice deletes a device and publishes. Unknown ids are a no-op.
func (s *Service) RemoveDevice(id string) {
	if !s.registry.Remove(id) {
		return
	}

	s.mu.Lock()
	snapshot := s.rebuildLocked()
	s.mu.Unlock()
	s.publish(snapshot)
}

// HandleLocationUpdate runs the full pipeline for one position report:
// registry update, hospital refresh, route fan-out, topology rebuild,
// snapshot publish. Updates for unknown devices are dropped.
func (s *Service) HandleLocationUpdate(ctx context.Context, id string, pos models.Coordinate, accuracyM float64) {
	now := time.Now()
	if !s.registry.UpdateLocation(id, pos, accuracyM, now) {
		return
	}
	s.metrics.CoordinationCycles.Inc()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	// Network-bound stage runs outside the lock; both calls absorb
	// downstream failures into fallback results.
	facilities, usedFallback := s.ranker.Rank(ctx, pos, s.opts.SearchRadiusKm)
	if usedFallback {
		s.metrics.DirectoryFallbacks.Inc()
	}
	top := facilities
	if len(top) > s.opts.TopK {
		top = top[:s.opts.TopK]
	}
	routes := s.router.RouteMany(ctx, pos, top)

	s.mu.Lock()
	if gen != s.generation {
		// A newer update superseded this batch while it was in flight.
		s.mu.Unlock()
		s.metrics.StaleBatchesDropped.Inc()
		s.logger.Debug().Str("device_id", id).Uint64("generation", gen).Msg("Discarding superseded routing batch")
		return
	}

	s.facilities = facilities
	s.routes = routes
	s.status = statusFor(usedFallback, routes)
	for _, r := range routes {
		if r.Route.IsFallback {
			s.metrics.RouteFallbacks.Inc()
		}
	}
	s.applyAutoSelectionLocked()
	snapshot := s.rebuildLocked()
	s.mu.Unlock()

	s.publish(snapshot)
}

// SetTopologyMode switches the graph-construction strategy and
// publishes the rebuilt topology.
func (s *Service) SetTopologyMode(mode models.TopologyMode) {
	s.mu.Lock()
	s.mode = mode
	snapshot := s.rebuildLocked()
	s.mu.Unlock()
	s.publish(snapshot)
}

// SelectRoute pins the route for the given facility id and switches to
// manual selection. Returns false if no ranked route matches.
func (s *Service) SelectRoute(facilityID string) bool {
	s.mu.Lock()
	var chosen *models.RankedRoute
	for i := range s.routes {
		if s.routes[i].Facility.ID == facilityID {
			route := s.routes[i]
			chosen = &route
			break
		}
	}
	if chosen == nil {
		s.mu.Unlock()
		return false
	}
	s.selectedRoute = chosen
	s.autoRouting = false
	snapshot := s.rebuildLocked()
	s.mu.Unlock()

	s.publish(snapshot)
	return true
}

// SetAutoRouting toggles automatic route selection. Enabling it
// immediately re-evaluates the selection against the latest routes.
func (s *Service) SetAutoRouting(enabled bool) {
	s.mu.Lock()
	s.autoRouting = enabled
	if enabled {
		s.applyAutoSelectionLocked()
	}
	snapshot := s.rebuildLocked()
	s.mu.Unlock()
	s.publish(snapshot)
}

// Snapshot returns the current state without mutating anything.
func (s *Service) Snapshot() models.NetworkSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked()
}

// sweepOnce flips stale devices offline and publishes only when at
// least one device actually changed state.
func (s *Service) sweepOnce(now time.Time) {
	s.mu.Lock()
	flipped := s.registry.SweepStale(now, s.opts.StaleTimeout)
	if len(flipped) == 0 {
		s.mu.Unlock()
		return
	}
	s.metrics.StaleDevicesSwept.Add(float64(len(flipped)))
	snapshot := s.rebuildLocked()
	s.mu.Unlock()
	s.publish(snapshot)
}

// applyAutoSelectionLocked implements the auto-routing policy: the
// highest-urgency route replaces the current selection when none is
// selected or the candidate's road distance is strictly shorter.
func (s *Service) applyAutoSelectionLocked() {
	if !s.autoRouting || len(s.routes) == 0 {
		return
	}
	candidate := s.routes[0]
	if s.selectedRoute == nil || candidate.RoadDistanceKm < s.selectedRoute.RoadDistanceKm {
		s.selectedRoute = &candidate
	}
}

// rebuildLocked recomputes topology and roles and assembles a snapshot.
// Callers must hold mu.
func (s *Service) rebuildLocked() models.NetworkSnapshot {
	devices := s.registry.Snapshot()
	connections, devices := s.topo.Build(devices, s.facilities, s.mode)

	var shortest *models.RankedRoute
	for i := range s.routes {
		if shortest == nil || s.routes[i].RoadDistanceKm < shortest.RoadDistanceKm {
			route := s.routes[i]
			shortest = &route
		}
	}

	// Drop a selection whose facility vanished from the latest ranking.
	if s.selectedRoute != nil {
		found := false
		for i := range s.routes {
			if s.routes[i].Facility.ID == s.selectedRoute.Facility.ID {
				found = true
				break
			}
		}
		if !found {
			s.selectedRoute = nil
		}
	}

	return models.NetworkSnapshot{
		Generation:    s.generation,
		Timestamp:     time.Now(),
		Devices:       devices,
		Connections:   connections,
		Facilities:    append([]models.Facility(nil), s.facilities...),
		Routes:        append([]models.RankedRoute(nil), s.routes...),
		TopologyMode:  s.mode,
		EmergencyMode: s.mode == models.ModeEmergency,
		SelectedRoute: s.selectedRoute,
		ShortestRoute: shortest,
		Status:        s.status,
	}
}

// publish pushes one snapshot to every subscriber. Order across
// subscribers is unspecified.
func (s *Service) publish(snapshot models.NetworkSnapshot) {
	s.metrics.SnapshotsPublished.Inc()

	s.subMu.Lock()
	subs := make([]func(models.NetworkSnapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

func statusFor(directoryFallback bool, routes []models.RankedRoute) string {
	if directoryFallback {
		return statusFacilitiesFallback
	}
	for _, r := range routes {
		if r.Route.IsFallback {
			return statusRoutingFallback
		}
	}
	return ""
}
