// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

// Frame is one command line being collected. It never grows past
// FrameDataMax bytes; the last slot of the fixed buffer stays zero.
type Frame struct {
	buf [FrameCapacity]byte
	n   int
}

// Append stores b if there is room and reports whether it was kept.
func (f *Frame) Append(b byte) bool {
	if f.n >= FrameDataMax {
		return false
	}
	f.buf[f.n] = b
	f.n++
	return true
}

// Len returns the number of stored bytes
func (f *Frame) Len() int {
	return f.n
}

// Bytes returns the stored bytes. The slice aliases the frame and is only
// valid until the next Append or Clear.
func (f *Frame) Bytes() []byte {
	return f.buf[:f.n]
}

// Clear empties the frame and zeroes its buffer
func (f *Frame) Clear() {
	f.buf = [FrameCapacity]byte{}
	f.n = 0
}
