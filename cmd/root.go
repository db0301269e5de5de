// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/flashprobe/internal/config"
	"github.com/Thermoquad/flashprobe/internal/logging"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Ambient flags
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "flashprobe",
	Short: "Serial flash readout interpreter and host tools",
	Long: `Flashprobe - A line-oriented serial command interpreter for reading out flash
memory, plus the host-side tools that drive it.

The device side ("serve") accepts short command lines terminated by CR or LF:

  A<hex>   set start address (aligned down to 4 bytes)
  L<hex>   set readout length (aligned up to 4 bytes)
  B / H    select binary or hex output
  e / E    select little or big endian words
  S        start the readout
  P        print statistics

The host side ("send", "probe", "dump", "console") talks to such a device.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings may also come from a config file (--config, READOUT_CONFIG or
./readout.yaml) and READOUT_* environment variables, e.g. READOUT_SERIAL_PORT.

For WebSocket authentication, the password is read from the READOUT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./readout.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig merges config file, environment and the flags of cmd, and
// builds the logger it describes
func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.New(cfg.Logging), nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
