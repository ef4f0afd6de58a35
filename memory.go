// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package acpi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/xerrors"
)

// PhysicalMemory provides read-only access to physical memory through a
// linear mapping. Every physical address is translated by adding a fixed
// offset before being read from the underlying io.ReaderAt.
type PhysicalMemory struct {
	r      io.ReaderAt
	offset uint64
}

// NewPhysicalMemory returns a new PhysicalMemory that reads from r. The
// supplied offset is added to every physical address, and is normally the
// address at which physical memory is linearly mapped. Use an offset of 0
// for a source that is indexed by physical address, such as /dev/mem.
func NewPhysicalMemory(r io.ReaderAt, offset uint64) *PhysicalMemory {
	return &PhysicalMemory{r: r, offset: offset}
}

// Offset returns the linear mapping offset.
func (m *PhysicalMemory) Offset() uint64 {
	return m.offset
}

func (m *PhysicalMemory) translate(addr PhysicalAddress, n int) (int64, error) {
	start := uint64(addr) + m.offset
	if start < uint64(addr) {
		return 0, errors.New("address overflows the linear mapping")
	}
	end := start + uint64(n)
	if end < start || end > math.MaxInt64 {
		return 0, errors.New("range is outside of the addressable space")
	}
	return int64(start), nil
}

// ReadAt reads exactly len(p) bytes from the physical address addr. A
// range that can't be read completely is an error.
func (m *PhysicalMemory) ReadAt(p []byte, addr PhysicalAddress) error {
	off, err := m.translate(addr, len(p))
	if err != nil {
		return xerrors.Errorf("cannot read %d bytes at %v: %w", len(p), addr, err)
	}

	n, err := m.r.ReadAt(p, off)
	if n == len(p) {
		// io.ReaderAt implementations are permitted to return io.EOF
		// when the read ends exactly at the end of the source.
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return xerrors.Errorf("cannot read %d bytes at %v: %w", len(p), addr, err)
}

func (m *PhysicalMemory) readUint16(addr PhysicalAddress) (uint16, error) {
	var b [2]byte
	if err := m.ReadAt(b[:], addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func (m *PhysicalMemory) String() string {
	return fmt.Sprintf("PhysicalMemory(offset=0x%x)", m.offset)
}
