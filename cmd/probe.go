// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/flashprobe/pkg/readout"
)

// probeLine is a command no device accepts, so any live device answers it
// with its error line without changing state
const probeLine = "?"

var probeTimeout int

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that a readout device answers on the connection",
	Long: `Send a command the device does not know and wait for its error line.

The probe leaves the device settings untouched.

Exit codes:
  0 - Device answered before timeout
  1 - Timeout reached, or the device answered with something else
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 10, "Timeout in seconds to wait for an answer")
}

// probeExitCode maps the probe outcome to the documented exit codes
func probeExitCode(err error) int {
	switch {
	case errors.Is(err, readout.ErrUnknownCommand):
		return 0
	case err == nil, errors.Is(err, readout.ErrTimeout):
		return 1
	default:
		return 2
	}
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	conn, connInfo, err := OpenConnection(cfg.Serial, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Flashprobe - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", probeTimeout)

	client := readout.NewClient(readout.NewStreamTransport(conn), time.Duration(probeTimeout)*time.Second)
	start := time.Now()
	_, err = client.Command(probeLine)
	conn.Close()

	code := probeExitCode(err)
	switch code {
	case 0:
		fmt.Printf("SUCCESS: Device answered in %v\n", time.Since(start).Round(time.Millisecond))
	case 1:
		if err == nil {
			fmt.Fprintf(os.Stderr, "FAIL: Device accepted %q\n", probeLine)
		} else {
			fmt.Fprintf(os.Stderr, "TIMEOUT: No answer within %d seconds\n", probeTimeout)
		}
	default:
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
	}
	os.Exit(code)
	return nil
}
