// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package readout

import (
	"encoding/binary"
	"fmt"
)

// Memory is the target address space the readout loop reads from
type Memory interface {
	ReadWord(addr uint32) (uint32, error)
}

// OutOfRangeError indicates a read outside the mapped memory
type OutOfRangeError struct {
	Address uint32
	Base    uint32
	Size    int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("address 0x%08X outside mapped range 0x%08X+0x%X", e.Address, e.Base, e.Size)
}

// ImageMemory serves words from a byte image mapped at Base. Words are
// assembled little-endian, the byte order of the target.
type ImageMemory struct {
	Base uint32
	Data []byte
}

// NewImageMemory maps data at base
func NewImageMemory(base uint32, data []byte) *ImageMemory {
	return &ImageMemory{Base: base, Data: data}
}

// ReadWord implements Memory
func (m *ImageMemory) ReadWord(addr uint32) (uint32, error) {
	if addr < m.Base {
		return 0, &OutOfRangeError{Address: addr, Base: m.Base, Size: len(m.Data)}
	}
	off := uint64(addr - m.Base)
	if off+WordSize > uint64(len(m.Data)) {
		return 0, &OutOfRangeError{Address: addr, Base: m.Base, Size: len(m.Data)}
	}
	return binary.LittleEndian.Uint32(m.Data[off : off+WordSize]), nil
}
