// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import "sync"

// Settings is a copy of the control state at one point in time.
type Settings struct {
	Active       bool
	TransmitHex  bool
	LittleEndian bool
	Address      uint32 // always a multiple of 4
	Length       uint32 // always a multiple of 4

	// Starts counts accepted start commands. The readout loop compares it
	// with the last value it served to detect a new request.
	Starts uint64
}

// Endianness returns the configured output byte order
func (s Settings) Endianness() Endianness {
	if s.LittleEndian {
		return LittleEndian
	}
	return BigEndian
}

// DefaultSettings returns the power-on configuration
func DefaultSettings() Settings {
	return Settings{TransmitHex: true}
}

// ControlState holds the configuration written by the Interpreter and read by
// the readout loop. The setters are unexported: the Interpreter is the only
// writer.
type ControlState struct {
	mu sync.RWMutex
	s  Settings
}

// NewControlState creates a control state with default settings
func NewControlState() *ControlState {
	return &ControlState{s: DefaultSettings()}
}

// Snapshot returns the current settings
func (c *ControlState) Snapshot() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s
}

func (c *ControlState) update(fn func(*Settings)) Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.s)
	return c.s
}

func (c *ControlState) setAddress(v uint32) uint32 {
	return c.update(func(s *Settings) { s.Address = AlignDown(v) }).Address
}

func (c *ControlState) setLength(v uint32) uint32 {
	return c.update(func(s *Settings) { s.Length = AlignUp(v) }).Length
}

func (c *ControlState) setTransmitHex(hex bool) {
	c.update(func(s *Settings) { s.TransmitHex = hex })
}

func (c *ControlState) setLittleEndian(le bool) {
	c.update(func(s *Settings) { s.LittleEndian = le })
}

func (c *ControlState) start() {
	c.update(func(s *Settings) {
		s.Active = true
		s.Starts++
	})
}
