// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

func TestCapture_Bytes(t *testing.T) {
	c := &Capture{Words: []uint32{0x03020100, 0x07060504}}
	want := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	if got := c.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("Bytes() = % X, want % X", got, want)
	}
}

func TestCapture_ChecksumKnownValue(t *testing.T) {
	// Memory bytes spell "12345678"
	c := &Capture{Words: []uint32{0x34333231, 0x38373635}}
	if got := c.Checksum(); got != 0xA12B {
		t.Errorf("Checksum() = 0x%04X, want 0xA12B", got)
	}
}

func TestCapture_RoundTrip(t *testing.T) {
	in := &Capture{
		Address:    0x08000000,
		Length:     8,
		Hex:        true,
		Endianness: LittleEndian,
		Words:      []uint32{0xDEADBEEF, 0x01020304},
		Taken:      time.Date(2025, 3, 1, 12, 30, 0, 123456789, time.UTC),
	}

	var buf bytes.Buffer
	if err := WriteCapture(&buf, in); err != nil {
		t.Fatalf("WriteCapture: %v", err)
	}
	out, err := ReadCapture(&buf)
	if err != nil {
		t.Fatalf("ReadCapture: %v", err)
	}

	if out.Address != in.Address || out.Length != in.Length || out.Hex != in.Hex || out.Endianness != in.Endianness {
		t.Errorf("header mismatch: %+v", out)
	}
	if !bytes.Equal(out.Bytes(), in.Bytes()) {
		t.Errorf("words = %X, want %X", out.Words, in.Words)
	}
	if !out.Taken.Equal(in.Taken) {
		t.Errorf("Taken = %v, want %v", out.Taken, in.Taken)
	}
}

func TestReadCapture_Errors(t *testing.T) {
	good := &Capture{Words: []uint32{1, 2}}

	corrupt, err := cbor.Marshal(captureFile{Version: CaptureVersion, Capture: good, CRC: good.Checksum() ^ 1})
	if err != nil {
		t.Fatal(err)
	}
	version, err := cbor.Marshal(captureFile{Version: 99, Capture: good, CRC: good.Checksum()})
	if err != nil {
		t.Fatal(err)
	}
	empty, err := cbor.Marshal(captureFile{Version: CaptureVersion})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		data     []byte
		checksum bool
	}{
		{"checksum", corrupt, true},
		{"version", version, false},
		{"no capture", empty, false},
		{"garbage", []byte{0xFF, 0x00}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCapture(bytes.NewReader(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrCaptureChecksum) != tt.checksum {
				t.Errorf("errors.Is(ErrCaptureChecksum) = %v, err = %v", !tt.checksum, err)
			}
		})
	}
}
