package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/api"
	"github.com/fieldmesh/fieldcoord/internal/coordination"
	"github.com/fieldmesh/fieldcoord/internal/directory"
	"github.com/fieldmesh/fieldcoord/internal/feed"
	"github.com/fieldmesh/fieldcoord/internal/metrics"
	"github.com/fieldmesh/fieldcoord/internal/models"
	"github.com/fieldmesh/fieldcoord/internal/ranking"
	"github.com/fieldmesh/fieldcoord/internal/registry"
	"github.com/fieldmesh/fieldcoord/internal/routing"
	"github.com/fieldmesh/fieldcoord/internal/topology"
	"github.com/fieldmesh/fieldcoord/internal/utils"
	"github.com/fieldmesh/fieldcoord/internal/ws"
	"github.com/fieldmesh/fieldcoord/pkg/file"
	"github.com/fieldmesh/fieldcoord/pkg/identity"
	"github.com/fieldmesh/fieldcoord/pkg/location"
	"github.com/fieldmesh/fieldcoord/pkg/mqtt"
)

func main() {
	// Structured JSON logging to stdout
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	fileClient := file.NewFileService()

	config, err := utils.LoadConfig("configs/config.yaml", fileClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Stable opaque id for the host device
	deviceInfo := identity.NewDeviceInfo(config.Identity.DeviceFile, fileClient)
	if err := deviceInfo.LoadDeviceInfo(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load device identity")
	}
	hostDeviceID, err := deviceInfo.EnsureDeviceID()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to persist device identity")
	}

	// External collaborators
	placesDir, err := directory.NewPlacesDirectory(config.Maps.APIKey, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create facility directory client")
	}
	routeProvider, err := routing.NewMapsRouteProvider(config.Maps.APIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create routing provider client")
	}

	// Core engine
	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)
	deviceRegistry := registry.NewDeviceRegistry(log)
	ranker := ranking.NewHospitalRanker(placesDir, log)
	orchestrator := routing.NewOrchestrator(routeProvider, config.Maps.Profile, log)
	engine := topology.NewEngine(log)

	service := coordination.NewService(deviceRegistry, ranker, orchestrator, engine, m, coordination.Options{
		SearchRadiusKm: config.Coordination.SearchRadiusKm,
		TopK:           config.Coordination.TopK,
		StaleTimeout:   config.Coordination.StaleTimeout,
		SweepInterval:  config.Coordination.SweepInterval,
		TopologyMode:   models.TopologyMode(config.Coordination.TopologyMode),
		AutoRouting:    config.Coordination.AutoRouting,
	}, log)
	if err := service.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start coordination service")
	}

	// Display push: every published snapshot goes to the websocket hub
	hub := ws.NewHub(log)
	go hub.Run()
	unsubscribe := service.Subscribe(hub.BroadcastSnapshot)
	defer unsubscribe()

	// Location feed from remote devices over MQTT
	clientID := config.MQTT.ClientID + "-" + uuid.New().String()
	log.Info().Str("client_id", clientID).Msg("Using MQTT client ID")

	mqttClient := mqtt.NewMqttService(fileClient)
	if err := mqttClient.Initialize(config.MQTT.Broker, clientID, config.MQTT.CACertificate); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}
	locationFeed := feed.NewLocationFeed(config.MQTT.LocationTopic, config.MQTT.QOS, mqttClient, service, log)
	if err := locationFeed.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start location feed")
	}

	// Optional: publish the host device's own position
	var localPublisher *feed.LocalPublisher
	if config.Location.Enabled {
		var provider location.Provider
		if config.Location.SensorBased {
			provider = location.NewGPSSensorProvider(config.Location.GPSDevicePort, config.Location.GPSDeviceBaudRate)
		} else {
			provider, err = location.NewGoogleGeolocationProvider(config.Maps.APIKey)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create geolocation provider")
			}
		}
		localPublisher = feed.NewLocalPublisher(hostDeviceID, config.Identity.DeviceName,
			config.Location.Interval, provider, service, log)
		if err := localPublisher.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start local position publisher")
		}
	}

	// Control API for the display layer and operators
	router := api.NewRouter(service, hub, promRegistry, config.HTTP.AllowedOrigins, log)
	httpServer := &http.Server{
		Addr:              config.HTTP.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("address", config.HTTP.ListenAddress).Msg("Control API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Control API failed")
		}
	}()

	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	_ = httpServer.Close()
	if localPublisher != nil {
		_ = localPublisher.Stop()
	}
	_ = locationFeed.Stop()
	_ = service.Stop()
	mqttClient.Disconnect(250)
}
