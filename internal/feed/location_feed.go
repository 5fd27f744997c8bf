// Package feed consumes device location updates from the MQTT broker
// and forwards them into the coordination service.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/coordination"
	"github.com/fieldmesh/fieldcoord/internal/models"
	"github.com/fieldmesh/fieldcoord/pkg/mqtt"
)

// LocationFeed subscribes to the location topic and feeds decoded
// updates into the coordination pipeline.
type LocationFeed struct {
	topic   string
	qos     int
	client  mqtt.MQTTClient
	service *coordination.Service
	logger  zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewLocationFeed creates a feed over the shared MQTT connection.
func NewLocationFeed(topic string, qos int, client mqtt.MQTTClient, service *coordination.Service, logger zerolog.Logger) *LocationFeed {
	return &LocationFeed{
		topic:   topic,
		qos:     qos,
		client:  client,
		service: service,
		logger:  logger,
	}
}

// Start subscribes to the location topic.
func (f *LocationFeed) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		f.logger.Warn().Msg("LocationFeed is already running")
		return errors.New("location feed is already running")
	}

	f.ctx, f.cancel = context.WithCancel(context.Background())

	token := f.client.Subscribe(f.topic, byte(f.qos), f.handleMessage)
	if token.Wait() && token.Error() != nil {
		f.cancel()
		return token.Error()
	}

	f.running = true
	f.logger.Info().Str("topic", f.topic).Int("qos", f.qos).Msg("LocationFeed started")
	return nil
}

// Stop unsubscribes and waits for in-flight handlers.
func (f *LocationFeed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		f.logger.Warn().Msg("LocationFeed is not running")
		return errors.New("location feed is not running")
	}

	token := f.client.Unsubscribe(f.topic)
	token.Wait()
	f.cancel()
	f.wg.Wait()

	f.running = false
	f.logger.Info().Msg("LocationFeed stopped")
	return nil
}

// handleMessage decodes one location payload. Malformed payloads are
// logged and skipped, never fatal. Unknown senders are registered
// before forwarding; the registry itself never auto-creates devices.
func (f *LocationFeed) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	var update models.LocationUpdate
	if err := json.Unmarshal(msg.Payload(), &update); err != nil {
		f.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Dropping malformed location payload")
		return
	}
	if update.DeviceID == "" {
		f.logger.Warn().Str("topic", msg.Topic()).Msg("Dropping location payload without device id")
		return
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()

		name := update.DeviceName
		if name == "" {
			name = update.DeviceID
		}
		f.service.RegisterDevice(update.DeviceID, name)
		f.service.HandleLocationUpdate(f.ctx, update.DeviceID,
			models.Coordinate{Latitude: update.Latitude, Longitude: update.Longitude},
			update.Accuracy)
	}()
}
