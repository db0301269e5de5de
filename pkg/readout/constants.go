// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package readout implements the line-oriented control protocol of the flash
// readout probe.
//
// A host sends short ASCII commands, one per line, to configure a memory
// readout window (start address, length), pick the output encoding (ASCII hex
// or raw binary) and byte order, start the readout and request statistics.
// This package provides the command accumulator and interpreter, the numeric
// codec used on the wire, the device loop that drives them from a byte
// transport, and a host-side client that captures readouts.
package readout

// Frame sizing
const (
	FrameCapacity = 12                // fixed buffer size, including the terminator slot
	FrameDataMax  = FrameCapacity - 1 // bytes actually stored per command line
	HexScanLimit  = FrameDataMax - 1  // argument bytes examined after the command byte
)

// Word geometry
const (
	WordSize      = 4
	WordHexSize   = WordSize * 2
	wordAlignMask = WordSize - 1
)

// Line delimiters and ignored bytes
const (
	CR  = '\r'
	LF  = '\n'
	Tab = '\t'
	NUL = 0x00
)

// Command bytes
const (
	CmdAddress      = 'a'
	CmdLength       = 'l'
	CmdBinary       = 'b'
	CmdHex          = 'h'
	CmdLittleEndian = 'e'
	CmdBigEndian    = 'E'
	CmdStart        = 's'
	CmdStatistics   = 'p'
)

// Feedback text sent back over the transport
const (
	LineEnd = "\r\n"

	FeedbackAddress      = "Start address set to 0x"
	FeedbackLength       = "Readout length set to 0x"
	FeedbackBinary       = "Binary output mode selected"
	FeedbackHex          = "Hex output mode selected"
	FeedbackLittleEndian = "Little Endian mode enabled"
	FeedbackBigEndian    = "Big Endian mode enabled"
	FeedbackStarted      = "Flash readout started!"
	FeedbackUnknown      = "ERROR: unknown command"
)

// hexDigits maps a nibble to its ASCII character.
const hexDigits = "0123456789ABCDEF"

// Readout output layout: hex mode breaks the line after this many words.
const hexWordsPerLine = 4
