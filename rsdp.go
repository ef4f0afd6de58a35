// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package acpi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/xerrors"

	"github.com/canonical/go-acpilib/internal/ioerr"
	"github.com/canonical/go-acpilib/internal/wire"
)

// RootPointer corresponds to the root system description pointer (RSDP),
// the entry point to the ACPI tables.
type RootPointer struct {
	// Address is the physical address at which the pointer was found.
	Address PhysicalAddress

	Checksum uint8
	OEMID    string

	// Revision is 0 for ACPI 1.0 and 2 for later versions. The fields
	// after RSDTAddress are only present for revision 2 and later.
	Revision uint8

	// RSDTAddress is the physical address of the 32-bit root system
	// description table.
	RSDTAddress PhysicalAddress

	Length uint32

	// XSDTAddress is the physical address of the 64-bit extended system
	// description table.
	XSDTAddress PhysicalAddress

	ExtendedChecksum uint8
}

func (p *RootPointer) String() string {
	s := fmt.Sprintf("RSD PTR  at %v rev %d (%6s) RSDT %v", p.Address, p.Revision, p.OEMID, p.RSDTAddress)
	if p.Revision >= wire.RSDP_REVISION_2 {
		s += fmt.Sprintf(" XSDT %v", p.XSDTAddress)
	}
	return s
}

func (p *RootPointer) size() int {
	if p.Revision >= wire.RSDP_REVISION_2 {
		return wire.RSDP_EXT_DESCRIPTOR_SIZE
	}
	return wire.RSDP_DESCRIPTOR_SIZE
}

// Write serializes this root pointer to w. The checksum fields are computed
// automatically, as is the Length field if it is zero.
func (p *RootPointer) Write(w io.Writer) error {
	desc := wire.RSDP_EXT_DESCRIPTOR{
		RSDP_DESCRIPTOR: wire.RSDP_DESCRIPTOR{
			Signature: wire.RSDP_SIGNATURE,
			Revision:  p.Revision},
		Length:      p.Length,
		XsdtAddress: uint64(p.XSDTAddress)}
	if len(p.OEMID) > len(desc.OemId) {
		return errors.New("OEMID is too long")
	}
	copy(desc.OemId[:], p.OEMID)
	if p.RSDTAddress > 0xffffffff {
		return errors.New("RSDTAddress is out of range")
	}
	desc.RsdtAddress = uint32(p.RSDTAddress)
	if desc.Length == 0 && p.Revision >= wire.RSDP_REVISION_2 {
		desc.Length = wire.RSDP_EXT_DESCRIPTOR_SIZE
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, &desc); err != nil {
		return err
	}

	b := buf.Bytes()[:p.size()]
	b[8] = -wire.Checksum(b[:wire.RSDP_DESCRIPTOR_SIZE])
	if p.Revision >= wire.RSDP_REVISION_2 {
		b[32] = -wire.Checksum(b)
	}

	_, err := w.Write(b)
	return err
}

func decodeRootPointer(addr PhysicalAddress, b []byte) (*RootPointer, error) {
	r := bytes.NewReader(b)

	var desc wire.RSDP_DESCRIPTOR
	if err := binary.Read(r, binary.LittleEndian, &desc); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read descriptor: %w", err)
	}
	if desc.Signature != wire.RSDP_SIGNATURE {
		return nil, errors.New("invalid signature")
	}

	out := &RootPointer{
		Address:     addr,
		Checksum:    desc.Checksum,
		OEMID:       string(desc.OemId[:]),
		Revision:    desc.Revision,
		RSDTAddress: PhysicalAddress(desc.RsdtAddress)}
	if desc.Revision < wire.RSDP_REVISION_2 {
		return out, nil
	}

	var ext struct {
		Length           uint32
		XsdtAddress      uint64
		ExtendedChecksum uint8
	}
	if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read extended descriptor: %w", err)
	}
	out.Length = ext.Length
	out.XSDTAddress = PhysicalAddress(ext.XsdtAddress)
	out.ExtendedChecksum = ext.ExtendedChecksum
	return out, nil
}

// readRootPointer reads the root pointer at addr, assuming that the
// signature has already been matched.
func readRootPointer(mem *PhysicalMemory, addr PhysicalAddress, checkChecksum bool) (*RootPointer, error) {
	b := make([]byte, wire.RSDP_EXT_DESCRIPTOR_SIZE)
	if err := mem.ReadAt(b[:wire.RSDP_DESCRIPTOR_SIZE], addr); err != nil {
		return nil, err
	}
	if checkChecksum && wire.Checksum(b[:wire.RSDP_DESCRIPTOR_SIZE]) != 0 {
		return nil, ErrChecksumMismatch
	}

	if b[15] < wire.RSDP_REVISION_2 {
		return decodeRootPointer(addr, b[:wire.RSDP_DESCRIPTOR_SIZE])
	}

	if err := mem.ReadAt(b[wire.RSDP_DESCRIPTOR_SIZE:], addr+wire.RSDP_DESCRIPTOR_SIZE); err != nil {
		return nil, err
	}
	if checkChecksum && wire.Checksum(b) != 0 {
		return nil, ErrChecksumMismatch
	}
	return decodeRootPointer(addr, b)
}

// ReadRootPointer decodes the root system description pointer at the
// supplied physical address. This is useful on platforms where the
// firmware publishes its location, such as EFI systems. If checkChecksum
// is true and the pointer has an invalid checksum, an error will be
// returned.
func ReadRootPointer(mem *PhysicalMemory, addr PhysicalAddress, checkChecksum bool) (*RootPointer, error) {
	rp, err := readRootPointer(mem, addr, checkChecksum)
	if err != nil {
		return nil, xerrors.Errorf("cannot read root pointer at %v: %w", addr, err)
	}
	return rp, nil
}

// RootPointerLocator describes the memory ranges that are scanned for the
// root system description pointer.
type RootPointerLocator struct {
	// BIOSAreaStart and BIOSAreaEnd define the primary range, which is
	// scanned first.
	BIOSAreaStart PhysicalAddress
	BIOSAreaEnd   PhysicalAddress

	// EBDAPointer is the address of the 16-bit real mode segment of the
	// extended BIOS data area. The first EBDASearchLength bytes of the
	// EBDA are scanned if the primary range doesn't contain the pointer.
	EBDAPointer      PhysicalAddress
	EBDASearchLength uint32

	// Alignment is the step between candidate addresses.
	Alignment uint32

	// CheckChecksum causes candidates with an invalid checksum to be
	// skipped.
	CheckChecksum bool
}

// DefaultRootPointerLocator scans the locations defined for PC platforms.
var DefaultRootPointerLocator = RootPointerLocator{
	BIOSAreaStart:    0x000e0000,
	BIOSAreaEnd:      0x00100000,
	EBDAPointer:      0x40e,
	EBDASearchLength: 1024,
	Alignment:        16}

func (l *RootPointerLocator) scan(mem *PhysicalMemory, start, end PhysicalAddress, trace io.Writer) (*RootPointer, error) {
	if end <= start {
		return nil, nil
	}

	window := make([]byte, end-start)
	if err := mem.ReadAt(window, start); err != nil {
		return nil, err
	}

	sig := wire.RSDP_SIGNATURE[:]
	for off := 0; off+len(sig) <= len(window); off += int(l.Alignment) {
		if !bytes.Equal(window[off:off+len(sig)], sig) {
			continue
		}

		addr := start + PhysicalAddress(off)
		rp, err := readRootPointer(mem, addr, l.CheckChecksum)
		switch {
		case err == ErrChecksumMismatch:
			tracef(trace, "RSD PTR  at %v [checksum mismatch; skipping]", addr)
			continue
		case err != nil:
			return nil, xerrors.Errorf("cannot read root pointer at %v: %w", addr, err)
		}

		tracef(trace, "%v", rp)
		return rp, nil
	}

	return nil, nil
}

// Locate scans the configured memory ranges for the root system
// description pointer. The first candidate with a matching signature is
// returned. The EBDA is only read if the primary range doesn't contain a
// match. If neither range contains a match, ErrRootPointerNotFound is
// returned.
func (l *RootPointerLocator) Locate(mem *PhysicalMemory, trace io.Writer) (*RootPointer, error) {
	if l.Alignment == 0 {
		return nil, errors.New("invalid alignment")
	}

	rp, err := l.scan(mem, l.BIOSAreaStart, l.BIOSAreaEnd, trace)
	switch {
	case err != nil:
		return nil, xerrors.Errorf("cannot scan BIOS area: %w", err)
	case rp != nil:
		return rp, nil
	}

	segment, err := mem.readUint16(l.EBDAPointer)
	if err != nil {
		return nil, xerrors.Errorf("cannot read EBDA pointer: %w", err)
	}
	ebda := PhysicalAddress(segment) << 4

	rp, err = l.scan(mem, ebda, ebda+PhysicalAddress(l.EBDASearchLength), trace)
	switch {
	case err != nil:
		return nil, xerrors.Errorf("cannot scan EBDA at %v: %w", ebda, err)
	case rp != nil:
		return rp, nil
	}

	return nil, ErrRootPointerNotFound
}

// LocateRootPointer scans the default locations for the root system
// description pointer without checksum verification.
func LocateRootPointer(mem *PhysicalMemory) (*RootPointer, error) {
	return DefaultRootPointerLocator.Locate(mem, nil)
}
