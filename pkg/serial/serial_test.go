package serial

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig("/dev/ttyUSB0").Validate())
	require.Error(t, DefaultConfig("").Validate())

	cfg := DefaultConfig("/dev/ttyUSB0")
	cfg.Baud = 1000
	require.Error(t, cfg.Validate())
	cfg.Baud = 115200
	require.NoError(t, cfg.Validate())
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "ttyNone")))
	require.Error(t, err)
}
