// Package serial opens the UART wired to the sensor.
package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is the factory baud rate of R30x sensors.
const DefaultBaud = 57600

// Port is a serial port able to drop stale input.
type Port interface {
	io.ReadWriteCloser
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path, e.g. /dev/ttyUSB0 or COM3.
	Device string
	Baud   int
	// ReadTimeout bounds a single Read, 0 blocks.
	ReadTimeout time.Duration
}

// DefaultConfig returns the configuration of a factory sensor on device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("serial device not specified")
	}
	if c.Baud <= 0 || c.Baud%9600 != 0 {
		return fmt.Errorf("baud %d is not a multiple of 9600", c.Baud)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout")
	}
	return nil
}

type nativePort struct {
	*serial.Port
}

// Open opens the port. Reads time out after cfg.ReadTimeout
// returning no byte, which r308.Driver treats as idle.
func Open(cfg *Config) (Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return &nativePort{Port: port}, nil
}
