// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestControlState_Defaults(t *testing.T) {
	s := NewControlState().Snapshot()
	want := Settings{TransmitHex: true}
	if s != want {
		t.Errorf("defaults = %+v, want %+v", s, want)
	}
	if s.Endianness() != BigEndian {
		t.Errorf("default endianness = %s", s.Endianness())
	}
}

func TestControlState_AlignmentInvariant(t *testing.T) {
	c := NewControlState()
	if got := c.setAddress(0x1003); got != 0x1000 {
		t.Errorf("setAddress = 0x%X", got)
	}
	if got := c.setLength(0x1001); got != 0x1004 {
		t.Errorf("setLength = 0x%X", got)
	}
	s := c.Snapshot()
	if s.Address%4 != 0 || s.Length%4 != 0 {
		t.Errorf("unaligned state %+v", s)
	}
}

func TestControlState_ConcurrentReaders(t *testing.T) {
	c := NewControlState()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if s := c.Snapshot(); s.Address%4 != 0 {
					t.Errorf("torn read %+v", s)
					return
				}
			}
		}()
	}
	for j := uint32(0); j < 1000; j++ {
		c.setAddress(j)
	}
	wg.Wait()
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_NilSafe(t *testing.T) {
	var s *Statistics
	s.frame()
	s.sent(10, nil)
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics()
	s.frame()
	s.wordSent()
	s.sent(4, nil)
	s.sent(0, errMockSend)
	before := s.Snapshot().StartTime

	time.Sleep(time.Millisecond)
	s.Reset()

	c := s.Snapshot()
	if c.Frames != 0 || c.WordsSent != 0 || c.BytesSent != 0 || c.SendErrors != 0 {
		t.Errorf("counters after reset = %+v", c)
	}
	if !c.StartTime.After(before) {
		t.Error("StartTime not advanced")
	}
}

func TestStatistics_StringOmitsZeroErrors(t *testing.T) {
	s := NewStatistics()
	out := s.String()
	for _, line := range []string{"Unknown Commands", "Dropped Bytes", "Read Errors", "Send Errors"} {
		if strings.Contains(out, line) {
			t.Errorf("report shows %q with zero count", line)
		}
	}
	s.droppedByte()
	if !strings.Contains(s.String(), "Dropped Bytes:            1\r\n") {
		t.Errorf("report = %q", s.String())
	}
}
