// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Counters is a point-in-time copy of the statistics counters
type Counters struct {
	StartTime time.Time

	// Command intake
	Frames          uint64
	Commands        uint64
	UnknownCommands uint64
	DroppedBytes    uint64

	// Readout
	ReadoutsStarted   uint64
	ReadoutsCompleted uint64
	WordsSent         uint64
	ReadErrors        uint64

	// Transport
	BytesSent  uint64
	SendErrors uint64
}

// Statistics tracks command and readout activity. It is safe for concurrent
// use so that a metrics endpoint can read it while the device loop runs.
type Statistics struct {
	mu sync.Mutex
	c  Counters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{c: Counters{StartTime: time.Now()}}
}

// add applies fn under the lock. A nil tracker ignores updates so that
// components can run without statistics.
func (s *Statistics) add(fn func(*Counters)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	fn(&s.c)
	s.mu.Unlock()
}

func (s *Statistics) frame()          { s.add(func(c *Counters) { c.Frames++ }) }
func (s *Statistics) command()        { s.add(func(c *Counters) { c.Commands++ }) }
func (s *Statistics) unknownCommand() { s.add(func(c *Counters) { c.UnknownCommands++ }) }
func (s *Statistics) droppedByte()    { s.add(func(c *Counters) { c.DroppedBytes++ }) }
func (s *Statistics) readoutStarted() { s.add(func(c *Counters) { c.ReadoutsStarted++ }) }
func (s *Statistics) readoutDone()    { s.add(func(c *Counters) { c.ReadoutsCompleted++ }) }
func (s *Statistics) wordSent()       { s.add(func(c *Counters) { c.WordsSent++ }) }
func (s *Statistics) readError()      { s.add(func(c *Counters) { c.ReadErrors++ }) }

func (s *Statistics) sent(n int, err error) {
	s.add(func(c *Counters) {
		c.BytesSent += uint64(n)
		if err != nil {
			c.SendErrors++
		}
	})
}

// Snapshot returns a copy of the counters
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c
}

// String returns a formatted statistics summary. Lines end in CRLF so the
// report can go straight onto the wire.
func (s *Statistics) String() string {
	c := s.Snapshot()
	elapsed := time.Since(c.StartTime)

	var b strings.Builder
	fmt.Fprintf(&b, "=== Statistics (%.0f seconds) ===\r\n", elapsed.Seconds())
	fmt.Fprintf(&b, "Frames:            %8d\r\n", c.Frames)
	fmt.Fprintf(&b, "Commands:          %8d\r\n", c.Commands)
	if c.UnknownCommands > 0 {
		fmt.Fprintf(&b, "Unknown Commands:  %8d\r\n", c.UnknownCommands)
	}
	if c.DroppedBytes > 0 {
		fmt.Fprintf(&b, "Dropped Bytes:     %8d\r\n", c.DroppedBytes)
	}
	fmt.Fprintf(&b, "Readouts Started:  %8d\r\n", c.ReadoutsStarted)
	fmt.Fprintf(&b, "Readouts Complete: %8d\r\n", c.ReadoutsCompleted)
	fmt.Fprintf(&b, "Words Sent:        %8d\r\n", c.WordsSent)
	if c.ReadErrors > 0 {
		fmt.Fprintf(&b, "Read Errors:       %8d\r\n", c.ReadErrors)
	}
	fmt.Fprintf(&b, "Bytes Sent:        %8d\r\n", c.BytesSent)
	if c.SendErrors > 0 {
		fmt.Fprintf(&b, "Send Errors:       %8d\r\n", c.SendErrors)
	}
	b.WriteString("================================\r\n")
	return b.String()
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = Counters{StartTime: time.Now()}
}
