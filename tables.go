// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package acpi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/xerrors"

	"github.com/canonical/go-acpilib/internal/wire"
)

// maxTableLength bounds the amount of memory allocated for a single table,
// as the length is read from untrusted firmware data.
const maxTableLength = 16 << 20

// Table is a complete ACPI system description table.
type Table struct {
	// Address is the physical address of the table. It is zero for tables
	// that weren't read from physical memory.
	Address PhysicalAddress

	Header TableHeader

	// Data contains the complete table, including the header. Its length
	// is always Header.Length.
	Data []byte
}

// NewTable returns a new table consisting of the supplied header and
// payload. The Length and Checksum fields of the header are computed.
func NewTable(hdr TableHeader, payload []byte) (*Table, error) {
	buf := new(bytes.Buffer)
	if err := writeTable(buf, &hdr, payload); err != nil {
		return nil, err
	}
	return DecodeTable(buf.Bytes(), true)
}

// Write serializes this table to w as-is.
func (t *Table) Write(w io.Writer) error {
	_, err := w.Write(t.Data)
	return err
}

// Payload returns the part of the table that follows the header.
func (t *Table) Payload() []byte {
	return t.Data[wire.ACPI_TABLE_HEADER_SIZE:]
}

func checkTableLength(length uint32) error {
	switch {
	case length < wire.ACPI_TABLE_HEADER_SIZE:
		return xerrors.Errorf("table length %d is shorter than its header: %w", length, ErrMalformedLength)
	case length > maxTableLength:
		return xerrors.Errorf("table length %d is too large: %w", length, ErrMalformedLength)
	}
	return nil
}

// DecodeTable decodes a table from the supplied bytes, such as the contents
// of a file exported by the operating system. The data must contain at least
// the number of bytes declared by the table header; any trailing bytes are
// ignored. If checkChecksum is true and the table has an invalid checksum,
// an error will be returned.
func DecodeTable(data []byte, checkChecksum bool) (*Table, error) {
	hdr, err := wire.Read_ACPI_TABLE_HEADER(bytes.NewReader(data))
	switch {
	case err == io.EOF:
		return nil, io.ErrUnexpectedEOF
	case err != nil:
		return nil, err
	}
	if err := checkTableLength(hdr.Length); err != nil {
		return nil, err
	}
	if uint64(hdr.Length) > uint64(len(data)) {
		return nil, xerrors.Errorf("table length %d exceeds the %d bytes available: %w", hdr.Length, len(data), ErrMalformedLength)
	}

	t := &Table{
		Header: *newTableHeader(hdr),
		Data:   make([]byte, hdr.Length)}
	copy(t.Data, data)

	if checkChecksum && wire.Checksum(t.Data) != 0 {
		return nil, xerrors.Errorf("%v: %w", t.Header.Signature, ErrChecksumMismatch)
	}
	return t, nil
}

// ReadTable reads the complete table at the supplied physical address.
func ReadTable(mem *PhysicalMemory, addr PhysicalAddress, opts *Options) (*Table, error) {
	opts = opts.orDefault()

	var h [wire.ACPI_TABLE_HEADER_SIZE]byte
	if err := mem.ReadAt(h[:], addr); err != nil {
		return nil, xerrors.Errorf("cannot read table header: %w", err)
	}
	length := binary.LittleEndian.Uint32(h[4:8])
	if err := checkTableLength(length); err != nil {
		return nil, xerrors.Errorf("invalid table at %v: %w", addr, err)
	}

	data := make([]byte, length)
	if err := mem.ReadAt(data, addr); err != nil {
		return nil, xerrors.Errorf("cannot read table: %w", err)
	}

	t, err := DecodeTable(data, opts.CheckChecksums)
	if err != nil {
		return nil, xerrors.Errorf("invalid table at %v: %w", addr, err)
	}
	t.Address = addr

	tracef(opts.Trace, "%s at %v", &t.Header, addr)
	return t, nil
}

// RootSystemTable corresponds to either the RSDT, which contains 32-bit
// table addresses, or the XSDT, which contains 64-bit table addresses. The
// signature in the header determines the format.
type RootSystemTable struct {
	Header  TableHeader
	Entries []PhysicalAddress
}

func rootSystemTableEntrySize(sig Signature) int {
	if sig == SignatureXSDT {
		return 8
	}
	return 4
}

// Write serializes this table to w. The Length and Checksum fields of the
// header are computed automatically.
func (t *RootSystemTable) Write(w io.Writer) error {
	sz := rootSystemTableEntrySize(t.Header.Signature)

	body := new(bytes.Buffer)
	for i, addr := range t.Entries {
		switch sz {
		case 4:
			if addr > 0xffffffff {
				return xerrors.Errorf("entry %d: address %v is out of range", i, addr)
			}
			binary.Write(body, binary.LittleEndian, uint32(addr))
		default:
			binary.Write(body, binary.LittleEndian, uint64(addr))
		}
	}

	return writeTable(w, &t.Header, body.Bytes())
}

// DecodeRootSystemTable decodes the table addresses contained in the
// supplied RSDT or XSDT.
func DecodeRootSystemTable(t *Table) (*RootSystemTable, error) {
	if t.Header.Signature != SignatureRSDT && t.Header.Signature != SignatureXSDT {
		return nil, errors.New("invalid signature")
	}

	payload := t.Payload()
	sz := rootSystemTableEntrySize(t.Header.Signature)
	if len(payload)%sz != 0 {
		return nil, xerrors.Errorf("%v payload of %d bytes isn't a multiple of %d: %w", t.Header.Signature, len(payload), sz, ErrMalformedLength)
	}

	out := &RootSystemTable{
		Header:  t.Header,
		Entries: make([]PhysicalAddress, len(payload)/sz)}
	for i := range out.Entries {
		switch sz {
		case 4:
			out.Entries[i] = PhysicalAddress(binary.LittleEndian.Uint32(payload[i*sz:]))
		default:
			out.Entries[i] = PhysicalAddress(binary.LittleEndian.Uint64(payload[i*sz:]))
		}
	}
	return out, nil
}

// ReadRootSystemTable reads the root system description table referenced
// by the supplied root pointer. The XSDT is used instead of the RSDT if
// opts.UseXSDT is set and the root pointer provides one.
func ReadRootSystemTable(mem *PhysicalMemory, rp *RootPointer, opts *Options) (*RootSystemTable, error) {
	opts = opts.orDefault()

	addr := rp.RSDTAddress
	if opts.UseXSDT && rp.Revision >= wire.RSDP_REVISION_2 && rp.XSDTAddress != 0 {
		addr = rp.XSDTAddress
	}

	t, err := ReadTable(mem, addr, opts)
	if err != nil {
		return nil, err
	}
	rst, err := DecodeRootSystemTable(t)
	if err != nil {
		return nil, xerrors.Errorf("cannot decode root system table at %v: %w", addr, err)
	}
	return rst, nil
}

// FindTable searches the tables referenced by the root system description
// table for one with the supplied signature, and returns the first match.
// Only the signature of each candidate is read until a match is found. If
// there is no match, ErrTableNotFound is returned.
func FindTable(mem *PhysicalMemory, rp *RootPointer, sig Signature, opts *Options) (*Table, error) {
	opts = opts.orDefault()

	rst, err := ReadRootSystemTable(mem, rp, opts)
	if err != nil {
		return nil, err
	}

	for i, addr := range rst.Entries {
		var s Signature
		if err := mem.ReadAt(s[:], addr); err != nil {
			return nil, xerrors.Errorf("cannot read signature of table %d: %w", i, err)
		}
		if s != sig {
			continue
		}

		t, err := ReadTable(mem, addr, opts)
		if err != nil {
			return nil, xerrors.Errorf("cannot read %v table: %w", sig, err)
		}
		return t, nil
	}

	return nil, xerrors.Errorf("%v: %w", sig, ErrTableNotFound)
}
