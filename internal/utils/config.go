package utils

import (
	"time"

	"github.com/fieldmesh/fieldcoord/pkg/file"
)

// Config represents the structure of the configuration file.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate; empty for plain TCP
		LocationTopic string `yaml:"location_topic"` // Topic remote devices publish positions on
		QOS           int    `yaml:"qos"`            // MQTT QoS level for the location feed
	} `yaml:"mqtt"`

	Identity struct {
		DeviceFile string `yaml:"device_file"` // Path to the device identity file
		DeviceName string `yaml:"device_name"` // Display name for the host device
	} `yaml:"identity"`

	Coordination struct {
		SearchRadiusKm float64       `yaml:"search_radius_km"` // Facility search radius
		TopK           int           `yaml:"top_k"`            // Ranked facilities that get road routes
		StaleTimeout   time.Duration `yaml:"stale_timeout"`    // Device offline threshold
		SweepInterval  time.Duration `yaml:"sweep_interval"`   // Staleness sweep period
		TopologyMode   string        `yaml:"topology_mode"`    // emergency, work-optimal or mst
		AutoRouting    bool          `yaml:"auto_routing"`     // Automatic route selection
	} `yaml:"coordination"`

	Maps struct {
		APIKey  string `yaml:"api_key"` // Google Maps API key (Directions, Places, Geolocation)
		Profile string `yaml:"profile"` // Travel profile for routing requests
	} `yaml:"maps"`

	Location struct {
		Enabled           bool          `yaml:"enabled"`         // Publish the host device's own position
		Interval          time.Duration `yaml:"interval"`        // Interval between local position reads
		SensorBased       bool          `yaml:"sensor_based"`    // Use GPS sensor instead of geolocation API
		GPSDevicePort     string        `yaml:"gps_device_port"` // Serial port where the GPS sensor is mounted
		GPSDeviceBaudRate int           `yaml:"gps_baud_rate"`   // Baud rate for the GPS sensor
	} `yaml:"location"`

	HTTP struct {
		ListenAddress  string   `yaml:"listen_address"`  // Address for the control API and websocket hub
		AllowedOrigins []string `yaml:"allowed_origins"` // CORS origins for the display layer
	} `yaml:"http"`
}

// LoadConfig loads the YAML configuration from the specified file.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}
	return &config, nil
}
