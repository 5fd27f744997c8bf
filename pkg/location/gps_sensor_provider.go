package location

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// GPSSensorProvider reads fixes from a GPS device on a serial port. The
// port is opened lazily on the first read and held open until Close.
type GPSSensorProvider struct {
	portName string
	baudRate int

	mu   sync.Mutex
	port *serial.Port
}

// NewGPSSensorProvider creates a provider for the given serial port and
// baud rate.
func NewGPSSensorProvider(portName string, baudRate int) *GPSSensorProvider {
	return &GPSSensorProvider{
		portName: portName,
		baudRate: baudRate,
	}
}

// GetLocation blocks until the sensor emits a GGA fix or ctx expires.
func (g *GPSSensorProvider) GetLocation(ctx context.Context) (Location, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.port == nil {
		port, err := serial.OpenPort(&serial.Config{Name: g.portName, Baud: g.baudRate})
		if err != nil {
			return Location{}, err
		}
		g.port = port
	}

	scanner := bufio.NewScanner(g.port)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return Location{}, ctx.Err()
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "$GPGGA") {
			continue
		}
		sentence, err := nmea.Parse(line)
		if err != nil {
			continue // garbled sentence, wait for the next fix
		}
		if gga, ok := sentence.(nmea.GGA); ok {
			return Location{
				Latitude:  gga.Latitude,
				Longitude: gga.Longitude,
				Accuracy:  float64(gga.HDOP), // HDOP as accuracy proxy
			}, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return Location{}, err
	}
	return Location{}, errors.New("no valid GPS data found")
}

// Close releases the serial port.
func (g *GPSSensorProvider) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.port == nil {
		return nil
	}
	err := g.port.Close()
	g.port = nil
	return err
}
