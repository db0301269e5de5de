// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/flashprobe/pkg/readout"
)

var sendWait time.Duration

var sendCmd = &cobra.Command{
	Use:   "send COMMAND...",
	Short: "Send command lines and print the device's responses",
	Long: `Send each argument as one command line (terminated by CR) and print every
line the device sends back until it stays silent for --wait.

Example:
  flashprobe send -p /dev/ttyUSB0 A08000000 L10 H S`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().DurationVar(&sendWait, "wait", 500*time.Millisecond, "Idle time that ends each response")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	conn, connInfo, err := OpenConnection(cfg.Serial, false)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Debug("connected", zap.String("connection", connInfo))

	client := readout.NewClient(readout.NewStreamTransport(conn), sendWait)
	out := cmd.OutOrStdout()

	for _, line := range args {
		if err := client.Send(line); err != nil {
			return err
		}
		for {
			resp, err := client.ReadLine()
			if errors.Is(err, readout.ErrTimeout) {
				if err != readout.ErrTimeout {
					logger.Warn("response ended mid-line", zap.String("command", line), zap.Error(err))
				}
				break
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, resp)
		}
	}
	return nil
}
