// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned when the device stops sending before a response
	// is complete
	ErrTimeout = errors.New("timed out waiting for device")

	// ErrUnknownCommand is returned when the device answers with its error line
	ErrUnknownCommand = errors.New("device rejected command")
)

// FeedbackError indicates a response line that does not match the command sent
type FeedbackError struct {
	Command string
	Line    string
}

func (e *FeedbackError) Error() string {
	return fmt.Sprintf("unexpected response to %q: %q", e.Command, e.Line)
}

// DefaultClientTimeout is the idle timeout between received bytes
const DefaultClientTimeout = 2 * time.Second

// Client drives a device from the host side of the link.
type Client struct {
	t       Transport
	timeout time.Duration
}

// NewClient creates a client. timeout is the longest gap tolerated between
// two bytes of a response; zero selects DefaultClientTimeout.
func NewClient(t Transport, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	return &Client{t: t, timeout: timeout}
}

// ReadLine returns the next non-empty line from the device without its line
// ending.
func (c *Client) ReadLine() (string, error) {
	var line []byte
	for {
		b, ok := c.t.ReceiveByte(c.timeout)
		if !ok {
			if len(line) > 0 {
				return "", fmt.Errorf("%w: partial line %q", ErrTimeout, line)
			}
			return "", ErrTimeout
		}
		switch b {
		case LF:
			if len(line) > 0 {
				return string(line), nil
			}
		case CR:
		default:
			line = append(line, b)
		}
	}
}

// Send writes one command line terminated by CR
func (c *Client) Send(line string) error {
	if err := c.t.SendBytes([]byte(line + "\r")); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	return nil
}

// Command sends line and returns the first response line
func (c *Client) Command(line string) (string, error) {
	if err := c.Send(line); err != nil {
		return "", err
	}
	resp, err := c.ReadLine()
	if err != nil {
		return "", fmt.Errorf("command %q: %w", line, err)
	}
	if resp == FeedbackUnknown {
		return "", fmt.Errorf("command %q: %w", line, ErrUnknownCommand)
	}
	return resp, nil
}

func (c *Client) expect(line, want string) error {
	resp, err := c.Command(line)
	if err != nil {
		return err
	}
	if resp != want {
		return &FeedbackError{Command: line, Line: resp}
	}
	return nil
}

func (c *Client) setWord(line, prefix string) (uint32, error) {
	resp, err := c.Command(line)
	if err != nil {
		return 0, err
	}
	if !strings.HasPrefix(resp, prefix) {
		return 0, &FeedbackError{Command: line, Line: resp}
	}
	s := ScanHex32([]byte(resp[len(prefix):]))
	if s.Digits != WordHexSize {
		return 0, &FeedbackError{Command: line, Line: resp}
	}
	return s.Value, nil
}

// SetAddress sets the readout start address and returns the aligned value
// the device stored.
func (c *Client) SetAddress(addr uint32) (uint32, error) {
	return c.setWord(fmt.Sprintf("A%X", addr), FeedbackAddress)
}

// SetLength sets the readout length and returns the aligned value the
// device stored.
func (c *Client) SetLength(length uint32) (uint32, error) {
	return c.setWord(fmt.Sprintf("L%X", length), FeedbackLength)
}

// SetOutput selects ASCII hex (true) or raw binary (false) output
func (c *Client) SetOutput(hex bool) error {
	if hex {
		return c.expect("H", FeedbackHex)
	}
	return c.expect("B", FeedbackBinary)
}

// SetEndianness selects the output byte order
func (c *Client) SetEndianness(e Endianness) error {
	if e == LittleEndian {
		return c.expect("e", FeedbackLittleEndian)
	}
	return c.expect("E", FeedbackBigEndian)
}

// Statistics requests the statistics report and returns its lines
func (c *Client) Statistics() ([]string, error) {
	if err := c.Send("P"); err != nil {
		return nil, err
	}
	var lines []string
	for {
		line, err := c.ReadLine()
		if err != nil {
			return lines, fmt.Errorf("statistics: %w", err)
		}
		lines = append(lines, line)
		if strings.Trim(line, "=") == "" {
			return lines, nil
		}
	}
}

// DumpOptions describes a readout to capture
type DumpOptions struct {
	Address    uint32
	Length     uint32
	Hex        bool
	Endianness Endianness
}

// Dump configures the device, starts the readout and collects the payload.
func (c *Client) Dump(ctx context.Context, opts DumpOptions) (*Capture, error) {
	addr, err := c.SetAddress(opts.Address)
	if err != nil {
		return nil, err
	}
	length, err := c.SetLength(opts.Length)
	if err != nil {
		return nil, err
	}
	if err := c.SetOutput(opts.Hex); err != nil {
		return nil, err
	}
	if err := c.SetEndianness(opts.Endianness); err != nil {
		return nil, err
	}
	if err := c.expect("S", FeedbackStarted); err != nil {
		return nil, err
	}

	payload, err := c.readPayload(ctx, length, opts.Hex)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	words, err := DecodeWords(payload, opts.Hex, opts.Endianness)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	return &Capture{
		Address:    addr,
		Length:     length,
		Hex:        opts.Hex,
		Endianness: opts.Endianness,
		Words:      words,
		Taken:      time.Now(),
	}, nil
}

// readPayload reads exactly the bytes a readout of length produces. In hex
// mode line breaks are kept but not counted.
func (c *Client) readPayload(ctx context.Context, length uint32, hex bool) ([]byte, error) {
	want := int(length)
	if hex {
		want *= 2
	}
	payload := make([]byte, 0, want)
	got := 0
	for got < want {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		b, ok := c.t.ReceiveByte(c.timeout)
		if !ok {
			return nil, fmt.Errorf("%w after %d of %d bytes", ErrTimeout, got, want)
		}
		payload = append(payload, b)
		if hex && (b == CR || b == LF) {
			continue
		}
		got++
	}
	return payload, nil
}
