package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/coordination"
	"github.com/fieldmesh/fieldcoord/internal/models"
	"github.com/fieldmesh/fieldcoord/pkg/location"
)

// LocalPublisher periodically reads the host device's own position from
// a location provider and pushes it through the coordination pipeline,
// so the coordinator host participates in the topology like any remote
// device.
type LocalPublisher struct {
	deviceID   string
	deviceName string
	interval   time.Duration

	provider location.Provider
	service  *coordination.Service
	logger   zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewLocalPublisher creates a publisher for the host device.
func NewLocalPublisher(deviceID, deviceName string, interval time.Duration,
	provider location.Provider, service *coordination.Service, logger zerolog.Logger) *LocalPublisher {
	return &LocalPublisher{
		deviceID:   deviceID,
		deviceName: deviceName,
		interval:   interval,
		provider:   provider,
		service:    service,
		logger:     logger,
	}
}

// Start registers the host device and begins the publish loop.
func (p *LocalPublisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.logger.Warn().Msg("LocalPublisher is already running")
		return errors.New("local publisher is already running")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.running = true

	p.service.RegisterDevice(p.deviceID, p.deviceName)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.publishOnce()
			case <-p.ctx.Done():
				p.logger.Info().Msg("LocalPublisher is stopping")
				return
			}
		}
	}()

	p.logger.Info().
		Str("device_id", p.deviceID).
		Dur("interval", p.interval).
		Msg("LocalPublisher started")
	return nil
}

// Stop terminates the publish loop and closes the location provider.
func (p *LocalPublisher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		p.logger.Warn().Msg("LocalPublisher is not running")
		return errors.New("local publisher is not running")
	}

	p.cancel()
	p.wg.Wait()

	if err := p.provider.Close(); err != nil {
		p.logger.Error().Err(err).Msg("Failed to close location provider")
		return err
	}

	p.running = false
	p.logger.Info().Msg("LocalPublisher stopped")
	return nil
}

func (p *LocalPublisher) publishOnce() {
	loc, err := p.provider.GetLocation(p.ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to get location from provider")
		return
	}

	p.service.HandleLocationUpdate(p.ctx, p.deviceID,
		models.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude},
		loc.Accuracy)
}
