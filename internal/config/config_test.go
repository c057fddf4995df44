package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rs232.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
port: /dev/ttyUSB3
baud_rate: 115200
affinity: false
driver: TERMIOS
queue_size: 8
log:
  level: debug
  format: json
  outputs: [stdout]
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB3", cfg.Port)
	assert.Equal(t, 115200, cfg.BaudRate)
	assert.False(t, cfg.Affinity)
	assert.Equal(t, "termios", cfg.Driver)
	assert.Equal(t, 8, cfg.QueueSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"stdout"}, cfg.Log.Outputs)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, "baud_rate: 19200\ndriver: termios\nqueue_size: 16\n")
	t.Setenv("RS232_BAUD_RATE", "38400")
	t.Setenv("RS232_QUEUE_SIZE", "32")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("baud", 9600, "")
	flags.Int("queue-size", 64, "")
	flags.String("driver", "bugst", "")
	require.NoError(t, flags.Parse([]string{"--baud", "57600"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	// flag beats env beats file
	assert.Equal(t, 57600, cfg.BaudRate)
	assert.Equal(t, 32, cfg.QueueSize)
	// unset flags do not override the file
	assert.Equal(t, "termios", cfg.Driver)
}

func TestLoadConfigEnvVar(t *testing.T) {
	path := writeConfig(t, "port: MOCK\n")
	t.Setenv("RS232_CONFIG", path)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "MOCK", cfg.Port)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad level", "log:\n  level: loud\n"},
		{"zero baud", "baud_rate: 0\n"},
		{"negative queue", "queue_size: -1\n"},
		{"not yaml", "baud_rate: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
