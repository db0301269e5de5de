// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/sigurn/crc16"
)

// CaptureVersion is the capture file format version
const CaptureVersion = 1

// ErrCaptureChecksum is returned when a capture file fails its CRC check
var ErrCaptureChecksum = errors.New("capture checksum mismatch")

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Capture is one completed readout as seen by the host
type Capture struct {
	Address    uint32     `cbor:"1,keyasint"`
	Length     uint32     `cbor:"2,keyasint"`
	Hex        bool       `cbor:"3,keyasint"`
	Endianness Endianness `cbor:"4,keyasint"`
	Words      []uint32   `cbor:"5,keyasint"`
	Taken      time.Time  `cbor:"6,keyasint"`
}

// Bytes returns the captured memory in target byte order (little-endian words)
func (c *Capture) Bytes() []byte {
	out := make([]byte, len(c.Words)*WordSize)
	for i, w := range c.Words {
		binary.LittleEndian.PutUint32(out[i*WordSize:], w)
	}
	return out
}

// Checksum returns the CRC-16/CCITT-FALSE of Bytes
func (c *Capture) Checksum() uint16 {
	return crc16.Checksum(c.Bytes(), crcTable)
}

type captureFile struct {
	Version int      `cbor:"0,keyasint"`
	Capture *Capture `cbor:"1,keyasint"`
	CRC     uint16   `cbor:"2,keyasint"`
}

var captureEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("readout: cbor enc mode: %v", err))
	}
	return em
}()

// WriteCapture encodes c as a CBOR capture file
func WriteCapture(w io.Writer, c *Capture) error {
	data, err := captureEncMode.Marshal(captureFile{
		Version: CaptureVersion,
		Capture: c,
		CRC:     c.Checksum(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode capture: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write capture: %w", err)
	}
	return nil
}

// ReadCapture decodes a CBOR capture file and verifies its checksum
func ReadCapture(r io.Reader) (*Capture, error) {
	var f captureFile
	if err := cbor.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode capture: %w", err)
	}
	if f.Version != CaptureVersion {
		return nil, fmt.Errorf("unsupported capture version %d", f.Version)
	}
	if f.Capture == nil {
		return nil, fmt.Errorf("capture file has no capture")
	}
	if got := f.Capture.Checksum(); got != f.CRC {
		return nil, fmt.Errorf("%w: stored 0x%04X, computed 0x%04X", ErrCaptureChecksum, f.CRC, got)
	}
	return f.Capture, nil
}
