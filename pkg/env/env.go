// Package env assembles the locker from configuration.
package env

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/multilocker/pkg/access"
	"github.com/robotalks/multilocker/pkg/events"
	"github.com/robotalks/multilocker/pkg/events/mqtt"
	"github.com/robotalks/multilocker/pkg/framework"
	"github.com/robotalks/multilocker/pkg/metrics"
	"github.com/robotalks/multilocker/pkg/r308"
	"github.com/robotalks/multilocker/pkg/roles"
	"github.com/robotalks/multilocker/pkg/serial"
	"github.com/robotalks/multilocker/pkg/store"
)

// Config provides options to setup the locker.
type Config struct {
	Device          string
	Baud            int
	ReadTimeout     time.Duration
	ResponseTimeout time.Duration
	Password        uint

	// StorePath is the EEPROM image keeping role locations.
	StorePath string
	// RolesFile is an optional YAML role table, the default table otherwise.
	RolesFile string

	Attempts     int
	PollInterval time.Duration

	// MQTTBrokerURL enables event publishing,
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string
	DeviceID      string
	// MetricsAddr is the listen address of /metrics, empty disables.
	MetricsAddr string
}

var defaultConfig = Config{
	Device:          "/dev/ttyUSB0",
	Baud:            serial.DefaultBaud,
	ReadTimeout:     100 * time.Millisecond,
	ResponseTimeout: r308.DefaultTimeout,
	Password:        uint(r308.DefaultPassword),
	StorePath:       "multilocker.eeprom",
	Attempts:        access.DefaultAttempts,
	PollInterval:    access.DefaultPollInterval,
}

func init() {
	loadEnv(&defaultConfig, os.Getenv)
}

func loadEnv(conf *Config, getenv func(string) string) {
	if val := getenv("LOCKER_DEVICE"); val != "" {
		conf.Device = val
	}
	if val := getenv("LOCKER_BAUD"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			conf.Baud = n
		} else {
			glog.Warningf("LOCKER_BAUD: %v", err)
		}
	}
	if val := getenv("LOCKER_STORE"); val != "" {
		conf.StorePath = val
	}
	if val := getenv("LOCKER_ROLES"); val != "" {
		conf.RolesFile = val
	}
	if val := getenv("LOCKER_MQTT_URL"); val != "" {
		conf.MQTTBrokerURL = val
	}
	if val := getenv("LOCKER_DEVICE_ID"); val != "" {
		conf.DeviceID = val
	}
	if val := getenv("LOCKER_METRICS_ADDR"); val != "" {
		conf.MetricsAddr = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial device of the sensor")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Baud rate")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial read timeout")
	flag.DurationVar(&defaultConfig.ResponseTimeout, "response-timeout", defaultConfig.ResponseTimeout, "Sensor response timeout")
	flag.UintVar(&defaultConfig.Password, "password", defaultConfig.Password, "Sensor password")
	flag.StringVar(&defaultConfig.StorePath, "store", defaultConfig.StorePath, "Location store file")
	flag.StringVar(&defaultConfig.RolesFile, "roles", defaultConfig.RolesFile, "Role table YAML file")
	flag.IntVar(&defaultConfig.Attempts, "attempts", defaultConfig.Attempts, "Captures while waiting for a finger")
	flag.DurationVar(&defaultConfig.PollInterval, "poll-interval", defaultConfig.PollInterval, "Interval between captures")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for events")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID in event topics")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics", defaultConfig.MetricsAddr, "Listen address for metrics")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the assembled locker.
type Env struct {
	Config      *Config
	Table       *roles.Table
	Locations   *store.Locations
	Driver      *r308.Driver
	Fingerprint *access.Fingerprint
	Registry    *prometheus.Registry
	Publisher   *mqtt.Publisher

	closers []io.Closer
}

// Table loads the role table.
func (c *Config) Table() (*roles.Table, error) {
	if c.RolesFile == "" {
		return roles.Default(), nil
	}
	return roles.LoadFile(c.RolesFile)
}

// NewEnv opens the serial port and assembles the locker.
func (c *Config) NewEnv(prompter access.Prompter) (*Env, error) {
	cfg := serial.DefaultConfig(c.Device)
	cfg.Baud, cfg.ReadTimeout = c.Baud, c.ReadTimeout
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	env, err := c.NewEnvWith(port, prompter)
	if err != nil {
		port.Close()
		return nil, err
	}
	env.closers = append(env.closers, port)
	return env, nil
}

// NewEnvWith assembles the locker over an opened port.
func (c *Config) NewEnvWith(port io.ReadWriter, prompter access.Prompter) (*Env, error) {
	table, err := c.Table()
	if err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("role table: %w", err)
	}
	cellCount := 0
	for _, role := range table.Roles() {
		if int(role)+1 > cellCount {
			cellCount = int(role) + 1
		}
	}
	cells, err := store.OpenFileCells(c.StorePath, cellCount)
	if err != nil {
		return nil, err
	}
	locs, err := store.Load(cells, table)
	if err != nil {
		return nil, err
	}

	env := &Env{Config: c, Table: table, Locations: locs, Registry: metrics.NewRegistry()}
	collector := metrics.NewCollector(env.Registry)
	sinks := events.Mux{collector}
	if c.MQTTBrokerURL != "" {
		deviceID := c.DeviceID
		if deviceID == "" {
			deviceID = mqtt.DefaultDeviceID()
		}
		if env.Publisher, err = mqtt.Dial(c.MQTTBrokerURL, deviceID); err != nil {
			return nil, err
		}
		env.closers = append(env.closers, env.Publisher)
		sinks = append(sinks, env.Publisher)
	}

	env.Driver = r308.NewDriver(port)
	env.Driver.Timeout = c.ResponseTimeout
	env.Driver.Password = uint32(c.Password)
	env.Driver.Observer = collector

	opts := []access.Option{
		access.WithAttempts(c.Attempts),
		access.WithPollInterval(c.PollInterval),
		access.WithEvents(sinks),
	}
	if prompter != nil {
		opts = append(opts, access.WithPrompter(prompter))
	}
	env.Fingerprint = access.New(env.Driver, table, locs, opts...)
	return env, nil
}

// Close implements io.Closer.
func (e *Env) Close() error {
	errs := &framework.AggregatedError{}
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs.Add(e.closers[i].Close())
	}
	e.closers = nil
	return errs.Aggregate()
}
