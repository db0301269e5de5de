// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the probe configuration from file, environment and
// command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. READOUT_SERIAL_PORT
const EnvPrefix = "READOUT"

// SerialConfig selects the serial link
type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// DeviceConfig describes the emulated target served by `serve`
type DeviceConfig struct {
	Image        string        `mapstructure:"image"`
	Base         string        `mapstructure:"base"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// BaseAddress parses Base, accepting 0x-prefixed hex
func (d DeviceConfig) BaseAddress() (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(d.Base), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid base address %q: %w", d.Base, err)
	}
	return uint32(v), nil
}

// FileConfig configures the rolling log file. An empty Filename disables it.
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig selects log level and output
type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	File   FileConfig `mapstructure:"file"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// Config is the top-level configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Device  DeviceConfig  `mapstructure:"device"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// flagKeys maps configuration keys to the command line flags that override them
var flagKeys = map[string]string{
	"serial.port":           "port",
	"serial.baud":           "baud",
	"device.image":          "image",
	"device.base":           "base",
	"device.pollInterval":   "poll-interval",
	"logging.level":         "log-level",
	"logging.format":        "log-format",
	"logging.file.filename": "log-file",
	"metrics.addr":          "metrics-addr",
}

// Load reads configuration from a YAML/TOML/JSON file, READOUT_* environment
// variables and flags, in increasing precedence. With an empty path the file
// named by READOUT_CONFIG is used, falling back to readout.yaml in the working
// directory; a missing default file is not an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("readout")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 115200)

	v.SetDefault("device.image", "")
	v.SetDefault("device.base", "0x08000000")
	v.SetDefault("device.pollInterval", "10ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")
}
