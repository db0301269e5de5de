// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Thermoquad/flashprobe/internal/config"
	"github.com/Thermoquad/flashprobe/internal/metrics"
	"github.com/Thermoquad/flashprobe/pkg/readout"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the readout command interpreter on a connection",
	Long: `Run the device side of the protocol: accept command lines on the connection
and stream the configured memory window when a readout is started.

The memory served is a flat image file (--image) mapped at --base. Reads
outside the image return zero words and are counted as read errors.

Use --port - to serve on standard input and output. Logs always go to stderr
(and optionally --log-file) so they never mix with protocol output.

With --metrics-addr set, Prometheus metrics are served at /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("image", "", "Memory image file to serve")
	serveCmd.Flags().String("base", "0x08000000", "Address of the first image byte")
	serveCmd.Flags().Duration("poll-interval", 10*time.Millisecond, "Receive timeout while idle")
	serveCmd.Flags().String("metrics-addr", "", "Listen address for Prometheus metrics, e.g. :9100")
	serveCmd.Flags().String("log-format", "", "Log format: console or json")
	serveCmd.Flags().String("log-file", "", "Also write logs to this rolling file")
}

// loadMemory reads the configured image, or an empty memory if none is set
func loadMemory(dev config.DeviceConfig) (*readout.ImageMemory, error) {
	base, err := dev.BaseAddress()
	if err != nil {
		return nil, err
	}
	if dev.Image == "" {
		return readout.NewImageMemory(base, nil), nil
	}
	data, err := os.ReadFile(dev.Image)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return readout.NewImageMemory(base, data), nil
}

// startMetrics serves the collector on addr until the returned function is called
func startMetrics(cfg config.MetricsConfig, collector *metrics.Collector, logger *zap.Logger) func() {
	reg := metrics.NewRegistry()
	reg.MustRegister(collector)

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler(reg))
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	mem, err := loadMemory(cfg.Device)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg.Serial, true)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Info("serving flash readout",
		zap.String("connection", connInfo),
		zap.String("image", cfg.Device.Image),
		zap.String("base", fmt.Sprintf("0x%08X", mem.Base)),
		zap.Int("image_bytes", len(mem.Data)))

	transport := readout.NewStreamTransport(conn)
	stats := readout.NewStatistics()
	dev := readout.NewDevice(transport,
		readout.WithMemory(mem),
		readout.WithStatistics(stats),
		readout.WithPollInterval(cfg.Device.PollInterval),
		readout.WithLogger(logger),
	)

	if cfg.Metrics.Addr != "" {
		stop := startMetrics(cfg.Metrics, metrics.NewCollector(stats, dev.State()), logger)
		defer stop()
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = dev.Run(ctx)
	logger.Info("final statistics", zap.Any("counters", stats.Snapshot()))
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
