// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Config holds the device loop configuration
type Config struct {
	// PollInterval bounds how long an idle loop waits for the next byte
	PollInterval time.Duration

	Stats  *Statistics
	Memory Memory
	Logger *zap.Logger
}

func defaultConfig() Config {
	return Config{
		PollInterval: 10 * time.Millisecond,
		Memory:       NewImageMemory(0, nil),
		Logger:       zap.NewNop(),
	}
}

// Option is a functional option for configuring the Device
type Option func(*Config)

// WithPollInterval sets how long an idle loop waits for input
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithStatistics shares a statistics tracker with the caller
func WithStatistics(s *Statistics) Option {
	return func(c *Config) {
		c.Stats = s
	}
}

// WithMemory sets the memory the readout loop reads from
func WithMemory(m Memory) Option {
	return func(c *Config) {
		if m != nil {
			c.Memory = m
		}
	}
}

// WithLogger sets the logger for loop lifecycle events
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// Device wires the accumulator, interpreter and readout loop to one
// transport and drives them from a single goroutine.
type Device struct {
	transport Transport
	state     *ControlState
	acc       *Accumulator
	interp    *Interpreter
	dumper    *Dumper
	config    Config
}

// NewDevice creates a device on transport with default control settings
func NewDevice(transport Transport, opts ...Option) *Device {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Stats == nil {
		cfg.Stats = NewStatistics()
	}

	state := NewControlState()
	reporter := TransportReporter{Stats: cfg.Stats, Transport: transport}
	interp := NewInterpreter(state, transport, reporter, cfg.Stats)

	return &Device{
		transport: transport,
		state:     state,
		acc:       NewAccumulator(interp, cfg.Stats),
		interp:    interp,
		dumper:    NewDumper(state, cfg.Memory, transport, cfg.Stats),
		config:    cfg,
	}
}

// State returns the control state for read access
func (d *Device) State() *ControlState {
	return d.state
}

// Statistics returns the device statistics
func (d *Device) Statistics() *Statistics {
	return d.config.Stats
}

// Step runs one loop cycle: take at most one input byte, then advance the
// readout by at most one word. While a readout is in progress the receive
// does not wait; otherwise it waits up to PollInterval.
func (d *Device) Step() bool {
	timeout := d.config.PollInterval
	if d.dumper.Running() {
		timeout = 0
	}

	worked := false
	if b, ok := d.transport.ReceiveByte(timeout); ok {
		d.acc.Receive(b)
		worked = true
	}

	wasRunning := d.dumper.Running()
	if d.dumper.Step() {
		worked = true
		if !wasRunning {
			s := d.state.Snapshot()
			d.config.Logger.Info("readout started",
				zap.String("address", formatHex32(s.Address)),
				zap.String("length", formatHex32(s.Length)),
				zap.Bool("hex", s.TransmitHex),
				zap.Stringer("endianness", s.Endianness()),
			)
		}
		if !d.dumper.Running() {
			d.config.Logger.Info("readout complete",
				zap.Uint64("words_sent", d.config.Stats.Snapshot().WordsSent))
		}
	}
	return worked
}

// Run loops until ctx is cancelled or the transport reports the end of its
// stream. A transport without a Done channel runs until cancellation.
func (d *Device) Run(ctx context.Context) error {
	var done <-chan struct{}
	if ender, ok := d.transport.(interface{ Done() <-chan struct{} }); ok {
		done = ender.Done()
	}

	d.config.Logger.Info("device loop started", zap.Duration("poll_interval", d.config.PollInterval))
	for {
		select {
		case <-ctx.Done():
			d.config.Logger.Info("device loop stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		default:
		}

		if d.Step() {
			continue
		}

		select {
		case <-done:
			var err error
			if errer, ok := d.transport.(interface{ Err() error }); ok {
				err = errer.Err()
			}
			d.config.Logger.Info("transport closed", zap.Error(err))
			return err
		default:
		}
	}
}

func formatHex32(v uint32) string {
	h := Word32ToHex(v, BigEndian)
	return "0x" + string(h[:])
}
