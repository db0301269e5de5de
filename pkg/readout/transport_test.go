// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestStreamTransport_ReceiveAndEnd(t *testing.T) {
	rw := &struct {
		io.Reader
		io.Writer
	}{bytes.NewReader([]byte("ab")), io.Discard}
	tr := NewStreamTransport(rw)

	for _, want := range []byte("ab") {
		b, ok := tr.ReceiveByte(time.Second)
		if !ok || b != want {
			t.Fatalf("ReceiveByte = (%q, %v), want %q", b, ok, want)
		}
	}

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after EOF")
	}
	if !errors.Is(tr.Err(), io.EOF) {
		t.Errorf("Err() = %v, want EOF", tr.Err())
	}
	if _, ok := tr.ReceiveByte(10 * time.Millisecond); ok {
		t.Error("ReceiveByte returned a byte after EOF")
	}
}

func TestStreamTransport_ZeroTimeoutPolls(t *testing.T) {
	host, dev := net.Pipe()
	defer host.Close()
	defer dev.Close()
	tr := NewStreamTransport(dev)

	start := time.Now()
	if _, ok := tr.ReceiveByte(0); ok {
		t.Error("ReceiveByte(0) returned a byte on a silent link")
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("ReceiveByte(0) waited")
	}
}

func TestStreamTransport_SendBytes(t *testing.T) {
	host, dev := net.Pipe()
	defer host.Close()
	tr := NewStreamTransport(dev)

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 5)
		_, _ = io.ReadFull(host, buf)
		got <- buf
	}()

	if err := tr.SendBytes([]byte("hello")); err != nil {
		t.Fatalf("SendBytes: %v", err)
	}
	if b := <-got; string(b) != "hello" {
		t.Errorf("received %q", b)
	}

	dev.Close()
	if err := tr.SendBytes([]byte("x")); err == nil {
		t.Error("SendBytes on closed pipe succeeded")
	}
}

// flakyReader fails once with a transient error before delivering data
type flakyReader struct {
	failed bool
	data   []byte
}

func (f *flakyReader) Read(p []byte) (int, error) {
	if !f.failed {
		f.failed = true
		return 0, errors.New("transient")
	}
	if len(f.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func (f *flakyReader) Write(p []byte) (int, error) { return len(p), nil }

func TestStreamTransport_RetriesTransientErrors(t *testing.T) {
	tr := NewStreamTransport(&flakyReader{data: []byte("z")})
	b, ok := tr.ReceiveByte(time.Second)
	if !ok || b != 'z' {
		t.Errorf("ReceiveByte = (%q, %v), want 'z'", b, ok)
	}
}
