// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"fmt"
	"math/bits"
)

// Endianness selects the byte order used when a 32-bit word goes on the wire.
type Endianness uint8

const (
	BigEndian Endianness = iota
	LittleEndian
)

func (e Endianness) String() string {
	switch e {
	case BigEndian:
		return "big-endian"
	case LittleEndian:
		return "little-endian"
	default:
		return fmt.Sprintf("Endianness(%d)", uint8(e))
	}
}

// HexScan is the tagged result of scanning an ASCII hex argument.
//
// The protocol never rejects an argument: Value is always usable. Partial
// reports that the scan stopped on a non-hex byte before reaching the end of
// the input or the scan limit, and Wrapped that more than eight digits were
// shifted in so the high digits fell off the 32-bit accumulator.
type HexScan struct {
	Value   uint32
	Digits  int
	Partial bool
	Wrapped bool
}

// ScanHex32 reads ASCII hex digits from the start of b, at most HexScanLimit
// of them, stopping at the first byte that is not a hex digit.
func ScanHex32(b []byte) HexScan {
	var s HexScan
	limit := len(b)
	if limit > HexScanLimit {
		limit = HexScanLimit
	}
	for _, c := range b[:limit] {
		nibble, ok := hexNibble(c)
		if !ok {
			s.Partial = true
			break
		}
		s.Value = s.Value<<4 | uint32(nibble)
		s.Digits++
	}
	s.Wrapped = s.Digits > WordHexSize
	return s
}

// ParseHex32 returns the value of the leading hex digits in b and the number
// of bytes consumed. Zero digits yield zero.
func ParseHex32(b []byte) (uint32, int) {
	s := ScanHex32(b)
	return s.Value, s.Digits
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// AlignDown rounds v down to a multiple of four. Used for start addresses.
func AlignDown(v uint32) uint32 {
	return v &^ wordAlignMask
}

// AlignUp rounds v up to a multiple of four. Used for readout lengths.
// Values above 0xFFFFFFFC wrap to zero, as 32-bit unsigned arithmetic does.
func AlignUp(v uint32) uint32 {
	return (v + wordAlignMask) &^ wordAlignMask
}

// ByteToHex expands b into two upper case hex characters, high nibble first.
func ByteToHex(b byte) [2]byte {
	return [2]byte{hexDigits[b>>4], hexDigits[b&0x0F]}
}

// Word32ToRaw returns the four bytes of v in the requested order.
func Word32ToRaw(v uint32, e Endianness) [WordSize]byte {
	if e == LittleEndian {
		return [WordSize]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}
	return [WordSize]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// Word32ToHex returns v as eight hex characters, byte order as Word32ToRaw.
func Word32ToHex(v uint32, e Endianness) [WordHexSize]byte {
	var out [WordHexSize]byte
	for i, b := range Word32ToRaw(v, e) {
		h := ByteToHex(b)
		out[i*2] = h[0]
		out[i*2+1] = h[1]
	}
	return out
}

// EncodeWord renders v the way the readout loop puts it on the wire.
func EncodeWord(v uint32, hex bool, e Endianness) []byte {
	if hex {
		h := Word32ToHex(v, e)
		return h[:]
	}
	r := Word32ToRaw(v, e)
	return r[:]
}

// DecodeWords reverses EncodeWord over a captured payload. In hex mode line
// breaks are skipped; any other non-hex byte is an error.
func DecodeWords(data []byte, hex bool, e Endianness) ([]uint32, error) {
	if hex {
		digits := make([]byte, 0, len(data))
		for i, c := range data {
			if c == CR || c == LF {
				continue
			}
			if _, ok := hexNibble(c); !ok {
				return nil, fmt.Errorf("invalid hex digit 0x%02X at offset %d", c, i)
			}
			digits = append(digits, c)
		}
		if len(digits)%WordHexSize != 0 {
			return nil, fmt.Errorf("hex payload of %d digits is not a whole number of words", len(digits))
		}
		words := make([]uint32, 0, len(digits)/WordHexSize)
		for i := 0; i < len(digits); i += WordHexSize {
			v, _ := ParseHex32(digits[i : i+WordHexSize])
			if e == LittleEndian {
				v = bits.ReverseBytes32(v)
			}
			words = append(words, v)
		}
		return words, nil
	}

	if len(data)%WordSize != 0 {
		return nil, fmt.Errorf("binary payload of %d bytes is not a whole number of words", len(data))
	}
	words := make([]uint32, 0, len(data)/WordSize)
	for i := 0; i < len(data); i += WordSize {
		b := data[i : i+WordSize]
		if e == LittleEndian {
			words = append(words, uint32(b[0])|uint32(b[1])<<8|uint32(b[2])<<16|uint32(b[3])<<24)
		} else {
			words = append(words, uint32(b[0])<<24|uint32(b[1])<<16|uint32(b[2])<<8|uint32(b[3]))
		}
	}
	return words, nil
}
