// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// Transport is the byte-level link the protocol runs over.
type Transport interface {
	// ReceiveByte returns the next byte if one arrives within timeout.
	// A zero timeout polls without waiting. Transport failures are reported
	// as "no byte".
	ReceiveByte(timeout time.Duration) (byte, bool)

	// SendBytes blocks until all of p has been written.
	SendBytes(p []byte) error
}

// ErrStreamClosed is returned when sending on a stream whose reader has ended
var ErrStreamClosed = errors.New("stream closed")

const (
	streamBufferSize = 4096
	readChunkSize    = 128
	retryDelay       = 10 * time.Millisecond
	maxWriteRetries  = 100
)

// StreamTransport adapts an io.ReadWriter (serial port, WebSocket, pipe) to
// Transport. A background goroutine reads the stream into a buffered
// channel so ReceiveByte can honour its timeout on any reader.
type StreamTransport struct {
	rw    io.ReadWriter
	bytes chan byte
	done  chan struct{}

	writeMu sync.Mutex

	errMu sync.Mutex
	err   error
}

// NewStreamTransport starts reading rw and returns the transport
func NewStreamTransport(rw io.ReadWriter) *StreamTransport {
	t := &StreamTransport{
		rw:    rw,
		bytes: make(chan byte, streamBufferSize),
		done:  make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *StreamTransport) readLoop() {
	defer close(t.done)
	buf := make([]byte, readChunkSize)
	for {
		n, err := t.rw.Read(buf)
		for i := 0; i < n; i++ {
			t.bytes <- buf[i]
		}
		if err != nil {
			if isStreamEnd(err) {
				t.setErr(err)
				return
			}
			// Brief pause before retry on transient errors (e.g., serial)
			time.Sleep(retryDelay)
		}
	}
}

func isStreamEnd(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, ErrStreamClosed)
}

func (t *StreamTransport) setErr(err error) {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	t.err = err
}

// Err returns the error that ended the stream, or nil while it is running
func (t *StreamTransport) Err() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

// Done is closed when the underlying reader has ended
func (t *StreamTransport) Done() <-chan struct{} {
	return t.done
}

// ReceiveByte implements Transport. Bytes already read are still delivered
// after the stream has ended.
func (t *StreamTransport) ReceiveByte(timeout time.Duration) (byte, bool) {
	select {
	case b := <-t.bytes:
		return b, true
	default:
	}
	if timeout <= 0 {
		return 0, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case b := <-t.bytes:
		return b, true
	case <-t.done:
		select {
		case b := <-t.bytes:
			return b, true
		default:
			return 0, false
		}
	case <-timer.C:
		return 0, false
	}
}

// SendBytes implements Transport. Short writes are continued until p is
// exhausted; transient write errors are retried a bounded number of times.
func (t *StreamTransport) SendBytes(p []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	retries := 0
	for len(p) > 0 {
		n, err := t.rw.Write(p)
		p = p[n:]
		if err == nil {
			continue
		}
		if isStreamEnd(err) || retries >= maxWriteRetries {
			return err
		}
		retries++
		time.Sleep(retryDelay)
	}
	return nil
}
