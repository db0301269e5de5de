// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

// Executor runs a completed command frame
type Executor interface {
	Execute(frame []byte)
}

// Accumulator collects incoming bytes into command frames and hands each
// frame to an Executor when a line delimiter arrives. It has a single
// collecting state and runs for the lifetime of the device.
type Accumulator struct {
	frame Frame
	exec  Executor
	stats *Statistics
}

// NewAccumulator creates an accumulator dispatching to exec. stats may be nil.
func NewAccumulator(exec Executor, stats *Statistics) *Accumulator {
	return &Accumulator{exec: exec, stats: stats}
}

// Receive processes a single byte.
//
// Tabs are ignored. CR and LF dispatch the current frame (even an empty one)
// and clear it. Any other byte is appended; bytes beyond the frame capacity
// are dropped.
func (a *Accumulator) Receive(b byte) {
	switch b {
	case Tab:
		return

	case CR, LF:
		a.stats.frame()
		a.exec.Execute(a.frame.Bytes())
		a.frame.Clear()

	default:
		if !a.frame.Append(b) {
			a.stats.droppedByte()
		}
	}
}

// Poll performs one non-blocking receive on t and processes the byte, if
// any. It reports whether a byte was consumed.
func (a *Accumulator) Poll(t Transport) bool {
	b, ok := t.ReceiveByte(0)
	if !ok {
		return false
	}
	a.Receive(b)
	return true
}

// Pending returns the bytes collected since the last delimiter
func (a *Accumulator) Pending() []byte {
	return a.frame.Bytes()
}
