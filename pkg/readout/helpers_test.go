// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// mockTransport queues input bytes and records everything sent
type mockTransport struct {
	in      []byte
	out     bytes.Buffer
	sendErr error
	polls   []time.Duration
}

func (m *mockTransport) ReceiveByte(timeout time.Duration) (byte, bool) {
	m.polls = append(m.polls, timeout)
	if len(m.in) == 0 {
		return 0, false
	}
	b := m.in[0]
	m.in = m.in[1:]
	return b, true
}

func (m *mockTransport) SendBytes(p []byte) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.out.Write(p)
	return nil
}

func (m *mockTransport) feed(s string) {
	m.in = append(m.in, s...)
}

var errMockSend = errors.New("mock send failure")

// recordingExecutor keeps a copy of each dispatched frame
type recordingExecutor struct {
	frames [][]byte
}

func (r *recordingExecutor) Execute(frame []byte) {
	r.frames = append(r.frames, append([]byte(nil), frame...))
}

// countingReporter counts statistics requests
type countingReporter struct {
	calls int
}

func (c *countingReporter) ReportStatistics() {
	c.calls++
}

// newTestInterpreter builds an interpreter over a fresh state and transport
func newTestInterpreter() (*Interpreter, *ControlState, *mockTransport, *Statistics) {
	state := NewControlState()
	tr := &mockTransport{}
	stats := NewStatistics()
	return NewInterpreter(state, tr, nil, stats), state, tr, stats
}

// feedLine pushes every byte of s through the accumulator
func feedLine(a *Accumulator, s string) {
	for i := 0; i < len(s); i++ {
		a.Receive(s[i])
	}
}

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}
