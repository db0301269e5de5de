// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"bytes"
	"testing"
)

// ============================================================
// Frame Tests
// ============================================================

func TestFrame_AppendUntilFull(t *testing.T) {
	var f Frame
	for i := 0; i < FrameDataMax; i++ {
		if !f.Append(byte('0' + i)) {
			t.Fatalf("Append %d refused before frame was full", i)
		}
	}
	if f.Append('X') {
		t.Error("Append accepted a byte beyond capacity")
	}
	if f.Len() != FrameDataMax {
		t.Errorf("Len() = %d, want %d", f.Len(), FrameDataMax)
	}
	if f.buf[FrameCapacity-1] != 0 {
		t.Errorf("terminator slot = 0x%02X, want 0", f.buf[FrameCapacity-1])
	}
}

func TestFrame_ClearZeroes(t *testing.T) {
	var f Frame
	f.Append('A')
	f.Append('1')
	f.Clear()
	if f.Len() != 0 {
		t.Errorf("Len() after Clear = %d", f.Len())
	}
	if f.buf != [FrameCapacity]byte{} {
		t.Errorf("buffer not zeroed: % X", f.buf)
	}
}

// ============================================================
// Accumulator Tests
// ============================================================

func TestAccumulator_DelimitersDispatch(t *testing.T) {
	for _, delim := range []byte{CR, LF} {
		exec := &recordingExecutor{}
		a := NewAccumulator(exec, nil)
		feedLine(a, "A1A")
		a.Receive(delim)

		if len(exec.frames) != 1 {
			t.Fatalf("delimiter 0x%02X: %d frames dispatched, want 1", delim, len(exec.frames))
		}
		if string(exec.frames[0]) != "A1A" {
			t.Errorf("frame = %q, want %q", exec.frames[0], "A1A")
		}
		if len(a.Pending()) != 0 {
			t.Errorf("pending after dispatch = %q", a.Pending())
		}
	}
}

func TestAccumulator_EmptyFrameDispatched(t *testing.T) {
	exec := &recordingExecutor{}
	a := NewAccumulator(exec, nil)
	feedLine(a, "\r\n")
	if len(exec.frames) != 2 {
		t.Fatalf("%d frames dispatched, want 2", len(exec.frames))
	}
	for i, f := range exec.frames {
		if len(f) != 0 {
			t.Errorf("frame %d = %q, want empty", i, f)
		}
	}
}

func TestAccumulator_TabIgnored(t *testing.T) {
	exec := &recordingExecutor{}
	a := NewAccumulator(exec, nil)
	feedLine(a, "\tL\t5\t\r")
	if len(exec.frames) != 1 || string(exec.frames[0]) != "L5" {
		t.Errorf("frames = %q, want [\"L5\"]", exec.frames)
	}
}

func TestAccumulator_OverflowDropped(t *testing.T) {
	exec := &recordingExecutor{}
	stats := NewStatistics()
	a := NewAccumulator(exec, stats)

	input := []byte("ABCDEFGHIJKLMNO") // 15 bytes
	for _, b := range input {
		a.Receive(b)
	}
	a.Receive(CR)

	if len(exec.frames) != 1 {
		t.Fatalf("%d frames dispatched, want 1", len(exec.frames))
	}
	if !bytes.Equal(exec.frames[0], input[:11]) {
		t.Errorf("frame = %q, want %q", exec.frames[0], input[:11])
	}
	c := stats.Snapshot()
	if c.DroppedBytes != 4 {
		t.Errorf("DroppedBytes = %d, want 4", c.DroppedBytes)
	}
	if c.Frames != 1 {
		t.Errorf("Frames = %d, want 1", c.Frames)
	}
}

func TestAccumulator_ReentersCollecting(t *testing.T) {
	exec := &recordingExecutor{}
	a := NewAccumulator(exec, nil)
	feedLine(a, "ABCDEFGHIJKLMNOP\rh\r")
	if len(exec.frames) != 2 {
		t.Fatalf("%d frames dispatched, want 2", len(exec.frames))
	}
	if string(exec.frames[1]) != "h" {
		t.Errorf("second frame = %q, want %q", exec.frames[1], "h")
	}
}

func TestAccumulator_Poll(t *testing.T) {
	exec := &recordingExecutor{}
	a := NewAccumulator(exec, nil)
	tr := &mockTransport{}

	if a.Poll(tr) {
		t.Error("Poll on empty transport reported a byte")
	}
	if len(tr.polls) != 1 || tr.polls[0] != 0 {
		t.Errorf("poll timeouts = %v, want [0]", tr.polls)
	}

	tr.feed("s\r")
	for a.Poll(tr) {
	}
	if len(exec.frames) != 1 || string(exec.frames[0]) != "s" {
		t.Errorf("frames = %q", exec.frames)
	}
}
