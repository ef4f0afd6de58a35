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
	"math"

	"golang.org/x/xerrors"

	"github.com/canonical/go-acpilib/internal/wire"
)

// MADTFlags corresponds to the flags field of the MADT.
type MADTFlags uint32

const (
	// MADTPCATCompat indicates that the system also has a PC-AT
	// compatible dual-8259 setup.
	MADTPCATCompat MADTFlags = 1 << 0
)

// LocalAPICFlags corresponds to the flags of a processor local APIC entry.
type LocalAPICFlags uint32

const (
	// LocalAPICEnabled indicates that the processor is usable.
	LocalAPICEnabled LocalAPICFlags = 1 << 0

	// LocalAPICOnlineCapable indicates that a disabled processor can be
	// enabled at runtime.
	LocalAPICOnlineCapable LocalAPICFlags = 1 << 1
)

// MADTEntryType is the type of an entry in the MADT.
type MADTEntryType uint8

const (
	MADTEntryTypeLocalAPIC                MADTEntryType = wire.MADT_TYPE_LOCAL_APIC
	MADTEntryTypeIOAPIC                   MADTEntryType = wire.MADT_TYPE_IO_APIC
	MADTEntryTypeInterruptOverride        MADTEntryType = wire.MADT_TYPE_INTERRUPT_OVERRIDE
	MADTEntryTypeLocalAPICNMI             MADTEntryType = wire.MADT_TYPE_LOCAL_APIC_NMI
	MADTEntryTypeLocalAPICAddressOverride MADTEntryType = wire.MADT_TYPE_LOCAL_APIC_ADDR_OVERRIDE
)

func (t MADTEntryType) String() string {
	switch t {
	case MADTEntryTypeLocalAPIC:
		return "LocalAPIC"
	case MADTEntryTypeIOAPIC:
		return "IOAPIC"
	case MADTEntryTypeInterruptOverride:
		return "InterruptOverride"
	case MADTEntryTypeLocalAPICNMI:
		return "LocalAPICNMI"
	case MADTEntryTypeLocalAPICAddressOverride:
		return "LocalAPICAddressOverride"
	default:
		return fmt.Sprintf("Entry[%02x]", uint8(t))
	}
}

// IsRecognized indicates whether entries of this type can be decoded.
func (t MADTEntryType) IsRecognized() bool {
	switch t {
	case MADTEntryTypeLocalAPIC, MADTEntryTypeIOAPIC, MADTEntryTypeInterruptOverride,
		MADTEntryTypeLocalAPICNMI, MADTEntryTypeLocalAPICAddressOverride:
		return true
	default:
		return false
	}
}

// MADTEntry represents a single entry in the MADT. It is implemented by
// *LocalAPICEntry, *IOAPICEntry and *RawMADTEntry.
type MADTEntry interface {
	fmt.Stringer
	Type() MADTEntryType
	Write(w io.Writer) error
}

// LocalAPICEntry corresponds to a processor local APIC entry, which
// describes a single logical processor.
type LocalAPICEntry struct {
	ProcessorID uint8
	APICID      uint8
	Flags       LocalAPICFlags
}

func (*LocalAPICEntry) Type() MADTEntryType { return MADTEntryTypeLocalAPIC }

func (e *LocalAPICEntry) String() string {
	return fmt.Sprintf("LocalAPIC(0x%x,0x%x,0x%x)", e.ProcessorID, e.APICID, uint32(e.Flags))
}

func (e *LocalAPICEntry) Write(w io.Writer) error {
	data := wire.MADT_LOCAL_APIC{
		Header: wire.MADT_ENTRY_HEADER{
			Type:   wire.MADT_TYPE_LOCAL_APIC,
			Length: wire.MADT_LOCAL_APIC_SIZE},
		ProcessorId: e.ProcessorID,
		Id:          e.APICID,
		LapicFlags:  uint32(e.Flags)}
	return binary.Write(w, binary.LittleEndian, &data)
}

// IOAPICEntry corresponds to an I/O APIC entry.
type IOAPICEntry struct {
	IOAPICID uint8

	// Address is the physical address of the controller's registers.
	Address uint32

	// GlobalSystemInterruptBase is the first global system interrupt
	// number handled by this controller.
	GlobalSystemInterruptBase uint32
}

func (*IOAPICEntry) Type() MADTEntryType { return MADTEntryTypeIOAPIC }

func (e *IOAPICEntry) String() string {
	return fmt.Sprintf("IOAPIC(0x%x,0x%08x,0x%x)", e.IOAPICID, e.Address, e.GlobalSystemInterruptBase)
}

func (e *IOAPICEntry) Write(w io.Writer) error {
	data := wire.MADT_IO_APIC{
		Header: wire.MADT_ENTRY_HEADER{
			Type:   wire.MADT_TYPE_IO_APIC,
			Length: wire.MADT_IO_APIC_SIZE},
		Id:            e.IOAPICID,
		Address:       e.Address,
		GlobalIrqBase: e.GlobalSystemInterruptBase}
	return binary.Write(w, binary.LittleEndian, &data)
}

// RawMADTEntry corresponds to a MADT entry whose payload isn't decoded.
type RawMADTEntry struct {
	EntryType MADTEntryType
	Data      []byte
}

func (e *RawMADTEntry) Type() MADTEntryType { return e.EntryType }

func (e *RawMADTEntry) String() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "%s(", e.EntryType)
	if len(e.Data) > 0 {
		fmt.Fprintf(&builder, "0x")
		for _, b := range e.Data {
			fmt.Fprintf(&builder, "%02x", b)
		}
	}
	fmt.Fprintf(&builder, ")")
	return builder.String()
}

func (e *RawMADTEntry) Write(w io.Writer) error {
	l := wire.MADT_ENTRY_HEADER_SIZE + len(e.Data)
	if l > math.MaxUint8 {
		return errors.New("data too large")
	}
	hdr := wire.MADT_ENTRY_HEADER{Type: uint8(e.EntryType), Length: uint8(l)}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	_, err := w.Write(e.Data)
	return err
}

func decodeMADTEntry(b []byte) (MADTEntry, error) {
	r := bytes.NewReader(b)
	t := MADTEntryType(b[0])

	switch t {
	case MADTEntryTypeLocalAPIC:
		if len(b) < wire.MADT_LOCAL_APIC_SIZE {
			return nil, xerrors.Errorf("%v entry length %d is too short: %w", t, len(b), ErrMalformedLength)
		}
		var e wire.MADT_LOCAL_APIC
		if err := binary.Read(r, binary.LittleEndian, &e); err != nil {
			return nil, err
		}
		return &LocalAPICEntry{
			ProcessorID: e.ProcessorId,
			APICID:      e.Id,
			Flags:       LocalAPICFlags(e.LapicFlags)}, nil
	case MADTEntryTypeIOAPIC:
		if len(b) < wire.MADT_IO_APIC_SIZE {
			return nil, xerrors.Errorf("%v entry length %d is too short: %w", t, len(b), ErrMalformedLength)
		}
		var e wire.MADT_IO_APIC
		if err := binary.Read(r, binary.LittleEndian, &e); err != nil {
			return nil, err
		}
		return &IOAPICEntry{
			IOAPICID:                  e.Id,
			Address:                   e.Address,
			GlobalSystemInterruptBase: e.GlobalIrqBase}, nil
	case MADTEntryTypeInterruptOverride, MADTEntryTypeLocalAPICNMI, MADTEntryTypeLocalAPICAddressOverride:
		data := make([]byte, len(b)-wire.MADT_ENTRY_HEADER_SIZE)
		copy(data, b[wire.MADT_ENTRY_HEADER_SIZE:])
		return &RawMADTEntry{EntryType: t, Data: data}, nil
	default:
		return nil, xerrors.Errorf("type 0x%02x: %w", uint8(t), ErrUnknownEntryType)
	}
}

// MADTEntryIterator provides forward-only access to the entries of a MADT.
// It stops at the first malformed entry. Obtain a new iterator from
// MADT.Entries to iterate again.
type MADTEntryIterator struct {
	data        []byte
	offset      int
	skipUnknown bool
	trace       io.Writer

	entry MADTEntry
	err   error
}

// Next advances the iterator to the next entry, returning false when
// there are no more entries or an error occurred.
func (i *MADTEntryIterator) Next() bool {
	i.entry = nil
	if i.err != nil {
		return false
	}

	for len(i.data) > 0 {
		if len(i.data) < wire.MADT_ENTRY_HEADER_SIZE {
			i.err = xerrors.Errorf("entry at offset %d: %d trailing bytes can't contain an entry header: %w", i.offset, len(i.data), ErrMalformedLength)
			return false
		}

		length := int(i.data[1])
		if length < wire.MADT_ENTRY_HEADER_SIZE || length > len(i.data) {
			i.err = xerrors.Errorf("entry at offset %d: length %d is inconsistent with the %d remaining bytes: %w", i.offset, length, len(i.data), ErrMalformedLength)
			return false
		}

		b := i.data[:length]
		offset := i.offset
		i.data = i.data[length:]
		i.offset += length

		entry, err := decodeMADTEntry(b)
		switch {
		case xerrors.Is(err, ErrUnknownEntryType) && i.skipUnknown:
			tracef(i.trace, "MADT entry at offset %d: skipping unknown type 0x%02x", offset, b[0])
			continue
		case err != nil:
			i.err = xerrors.Errorf("entry at offset %d: %w", offset, err)
			return false
		}

		tracef(i.trace, "MADT entry at offset %d: %v", offset, entry)
		i.entry = entry
		return true
	}

	return false
}

// Entry returns the current entry.
func (i *MADTEntryIterator) Entry() MADTEntry {
	return i.entry
}

// Err returns the error that stopped the iterator, if any.
func (i *MADTEntryIterator) Err() error {
	return i.err
}

// MADT corresponds to the multiple APIC description table.
type MADT struct {
	// Address is the physical address of the table, or zero if it
	// wasn't read from physical memory.
	Address PhysicalAddress

	Header TableHeader

	// LocalAPICAddress is the physical address at which each processor
	// can access its local APIC.
	LocalAPICAddress uint32

	Flags MADTFlags

	// RawEntries contains the undecoded entry stream that follows the
	// fixed part of the table.
	RawEntries []byte
}

// NewMADT returns a new MADT containing the supplied entries.
func NewMADT(hdr TableHeader, localAPICAddress uint32, flags MADTFlags, entries ...MADTEntry) (*MADT, error) {
	buf := new(bytes.Buffer)
	for i, e := range entries {
		if err := e.Write(buf); err != nil {
			return nil, xerrors.Errorf("cannot encode entry %d: %w", i, err)
		}
	}
	hdr.Signature = SignatureMADT
	return &MADT{
		Header:           hdr,
		LocalAPICAddress: localAPICAddress,
		Flags:            flags,
		RawEntries:       buf.Bytes()}, nil
}

// DecodeMADT decodes the fixed part of the supplied table, which must be a
// MADT. The entries are decoded lazily by MADT.Entries.
func DecodeMADT(t *Table) (*MADT, error) {
	if t.Header.Signature != SignatureMADT {
		return nil, errors.New("invalid signature")
	}
	if uint64(len(t.Data)) != uint64(t.Header.Length) {
		return nil, xerrors.Errorf("table has %d bytes but declares %d: %w", len(t.Data), t.Header.Length, ErrMalformedLength)
	}
	if len(t.Data) < wire.MADT_FIXED_SIZE {
		return nil, xerrors.Errorf("table length %d is shorter than the fixed part: %w", len(t.Data), ErrMalformedLength)
	}

	var fixed wire.MADT_FIXED
	if err := binary.Read(bytes.NewReader(t.Data), binary.LittleEndian, &fixed); err != nil {
		return nil, err
	}

	entries := make([]byte, len(t.Data)-wire.MADT_FIXED_SIZE)
	copy(entries, t.Data[wire.MADT_FIXED_SIZE:])

	return &MADT{
		Address:          t.Address,
		Header:           t.Header,
		LocalAPICAddress: fixed.Address,
		Flags:            MADTFlags(fixed.Flags),
		RawEntries:       entries}, nil
}

// Entries returns an iterator over the entries of this table. If
// opts.SkipUnknownEntries is set, entries with an unrecognized type are
// skipped, otherwise they stop the iterator with ErrUnknownEntryType.
func (t *MADT) Entries(opts *Options) *MADTEntryIterator {
	opts = opts.orDefault()
	return &MADTEntryIterator{
		data:        t.RawEntries,
		skipUnknown: opts.SkipUnknownEntries,
		trace:       opts.Trace}
}

// Write serializes this table to w. The Length and Checksum fields of the
// header are computed automatically.
func (t *MADT) Write(w io.Writer) error {
	body := new(bytes.Buffer)
	binary.Write(body, binary.LittleEndian, t.LocalAPICAddress)
	binary.Write(body, binary.LittleEndian, uint32(t.Flags))
	body.Write(t.RawEntries)

	hdr := t.Header
	hdr.Signature = SignatureMADT
	return writeTable(w, &hdr, body.Bytes())
}
