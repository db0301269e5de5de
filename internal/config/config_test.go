// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "readout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("READOUT_CONFIG", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, "0x08000000", cfg.Device.Base)
	assert.Equal(t, 10*time.Millisecond, cfg.Device.PollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Empty(t, cfg.Logging.File.Filename)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
serial:
  port: /dev/ttyACM0
  baud: 9600
device:
  image: flash.bin
  base: "0x20000000"
  pollInterval: 2ms
logging:
  level: debug
  format: json
metrics:
  addr: ":9100"
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.Baud)
	assert.Equal(t, "flash.bin", cfg.Device.Image)
	assert.Equal(t, 2*time.Millisecond, cfg.Device.PollInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)

	base, err := cfg.Device.BaseAddress()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x20000000), base)
}

func TestLoad_EnvAndFlagsOverride(t *testing.T) {
	path := writeConfig(t, "serial:\n  port: /dev/ttyS0\n  baud: 9600\n")
	t.Setenv("READOUT_SERIAL_BAUD", "57600")
	t.Setenv("READOUT_SERIAL_PORT", "/dev/ttyUSB1")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("port", "", "")
	flags.Int("baud", 115200, "")
	require.NoError(t, flags.Parse([]string{"--port", "/dev/ttyUSB9"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB9", cfg.Serial.Port, "changed flag wins")
	assert.Equal(t, 57600, cfg.Serial.Baud, "env beats file")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestBaseAddress(t *testing.T) {
	tests := []struct {
		base    string
		want    uint32
		wantErr bool
	}{
		{"0x08000000", 0x08000000, false},
		{"134217728", 0x08000000, false},
		{" 0x10 ", 0x10, false},
		{"0x100000000", 0, true},
		{"flash", 0, true},
	}
	for _, tt := range tests {
		got, err := DeviceConfig{Base: tt.base}.BaseAddress()
		if tt.wantErr {
			assert.Error(t, err, tt.base)
			continue
		}
		require.NoError(t, err, tt.base)
		assert.Equal(t, tt.want, got, tt.base)
	}
}
