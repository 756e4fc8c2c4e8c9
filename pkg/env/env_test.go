package env

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/multilocker/pkg/access"
	"github.com/robotalks/multilocker/pkg/r308/r308test"
	"github.com/robotalks/multilocker/pkg/roles"
)

func TestLoadEnv(t *testing.T) {
	vars := map[string]string{
		"LOCKER_DEVICE":       "/dev/ttyS3",
		"LOCKER_BAUD":         "115200",
		"LOCKER_STORE":        "/var/lib/locker.bin",
		"LOCKER_ROLES":        "/etc/locker/roles.yaml",
		"LOCKER_MQTT_URL":     "mqtt://broker:1883/lockers/",
		"LOCKER_DEVICE_ID":    "hall-3",
		"LOCKER_METRICS_ADDR": ":9100",
	}
	conf := Config{Baud: 57600}
	loadEnv(&conf, func(key string) string { return vars[key] })
	require.Equal(t, Config{
		Device:        "/dev/ttyS3",
		Baud:          115200,
		StorePath:     "/var/lib/locker.bin",
		RolesFile:     "/etc/locker/roles.yaml",
		MQTTBrokerURL: "mqtt://broker:1883/lockers/",
		DeviceID:      "hall-3",
		MetricsAddr:   ":9100",
	}, conf)

	conf = Config{Baud: 57600}
	loadEnv(&conf, func(key string) string {
		if key == "LOCKER_BAUD" {
			return "fast"
		}
		return ""
	})
	require.Equal(t, 57600, conf.Baud)
}

func TestNewEnvWith(t *testing.T) {
	dir := t.TempDir()
	conf := NewConfig()
	conf.StorePath = filepath.Join(dir, "eeprom.bin")
	conf.MQTTBrokerURL = ""
	conf.RolesFile = ""
	conf.ResponseTimeout = time.Second
	conf.PollInterval = time.Millisecond

	sensor := r308test.NewSensor()
	env, err := conf.NewEnvWith(sensor, nil)
	require.NoError(t, err)
	defer env.Close()

	ctx := context.Background()
	require.True(t, env.Fingerprint.Init(ctx))
	sensor.Press(5).Lift(1).Press(5)
	require.True(t, env.Fingerprint.RegisterUser(ctx, roles.Guest))

	image, err := os.ReadFile(conf.StorePath)
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x15}, image)

	families, err := env.Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	require.True(t, names["sensor_commands_total"])
	require.True(t, names["locker_events_total"])
}

func TestNewEnvWithRolesFile(t *testing.T) {
	dir := t.TempDir()
	conf := NewConfig()
	conf.StorePath = filepath.Join(dir, "eeprom.bin")
	conf.MQTTBrokerURL = ""
	conf.RolesFile = filepath.Join(dir, "roles.yaml")
	require.NoError(t, os.WriteFile(conf.RolesFile, []byte("roles:\n  - {role: guest, min: 100, max: 109}\n"), 0644))

	env, err := conf.NewEnvWith(r308test.NewSensor(), access.PromptFunc(func(access.Prompt) {}))
	require.NoError(t, err)
	require.Equal(t, []roles.Role{roles.Guest}, env.Table.Roles())
	require.Equal(t, map[roles.Role]uint16{roles.Guest: 100}, env.Fingerprint.Locations())
	require.NoError(t, env.Close())
}
