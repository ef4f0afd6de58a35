// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// Package acpi locates and decodes the ACPI firmware tables that describe
// the interrupt controllers of a platform.
package acpi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/xerrors"

	"github.com/canonical/go-acpilib/internal/wire"
)

// PhysicalAddress is an address in the physical address space of the
// platform.
type PhysicalAddress uint64

func (a PhysicalAddress) String() string {
	return fmt.Sprintf("0x%08x", uint64(a))
}

// Signature is the 4 byte identifier at the start of every ACPI table.
type Signature [4]byte

func (s Signature) String() string {
	return string(s[:])
}

var (
	SignatureMADT = Signature{'A', 'P', 'I', 'C'}
	SignatureRSDT = Signature{'R', 'S', 'D', 'T'}
	SignatureXSDT = Signature{'X', 'S', 'D', 'T'}
	SignatureFADT = Signature{'F', 'A', 'C', 'P'}
)

// TableHeader corresponds to the header common to all ACPI system
// description tables.
type TableHeader struct {
	Signature Signature

	// Length is the size of the complete table in bytes, including
	// this header.
	Length uint32

	Revision uint8
	Checksum uint8

	OEMID           string
	OEMTableID      string
	OEMRevision     uint32
	CreatorID       uint32
	CreatorRevision uint32
}

func (h *TableHeader) String() string {
	return fmt.Sprintf("%s length 0x%x rev %d (%6s %8s)", h.Signature, h.Length, h.Revision, h.OEMID, h.OEMTableID)
}

func (h *TableHeader) toWire() (*wire.ACPI_TABLE_HEADER, error) {
	out := &wire.ACPI_TABLE_HEADER{
		Signature:       h.Signature,
		Length:          h.Length,
		Revision:        h.Revision,
		Checksum:        h.Checksum,
		OemRevision:     h.OEMRevision,
		CreatorId:       h.CreatorID,
		CreatorRevision: h.CreatorRevision}
	if len(h.OEMID) > len(out.OemId) {
		return nil, errors.New("OEMID is too long")
	}
	if len(h.OEMTableID) > len(out.OemTableId) {
		return nil, errors.New("OEMTableID is too long")
	}
	copy(out.OemId[:], h.OEMID)
	copy(out.OemTableId[:], h.OEMTableID)
	return out, nil
}

// Write serializes this header to w as-is. Use the Write method of a
// complete table to have the Length and Checksum fields computed.
func (h *TableHeader) Write(w io.Writer) error {
	hdr, err := h.toWire()
	if err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, hdr)
}

func newTableHeader(hdr *wire.ACPI_TABLE_HEADER) *TableHeader {
	return &TableHeader{
		Signature:       Signature(hdr.Signature),
		Length:          hdr.Length,
		Revision:        hdr.Revision,
		Checksum:        hdr.Checksum,
		OEMID:           string(hdr.OemId[:]),
		OEMTableID:      string(hdr.OemTableId[:]),
		OEMRevision:     hdr.OemRevision,
		CreatorID:       hdr.CreatorId,
		CreatorRevision: hdr.CreatorRevision}
}

// ReadTableHeader reads a table header from the supplied io.Reader.
func ReadTableHeader(r io.Reader) (*TableHeader, error) {
	hdr, err := wire.Read_ACPI_TABLE_HEADER(r)
	if err != nil {
		return nil, err
	}
	return newTableHeader(hdr), nil
}

// writeTable serializes a table consisting of the supplied header and
// body to w, computing the Length and Checksum fields of the header.
func writeTable(w io.Writer, h *TableHeader, body []byte) error {
	length := uint64(wire.ACPI_TABLE_HEADER_SIZE) + uint64(len(body))
	if length > maxTableLength {
		return errors.New("table too large")
	}

	hdr, err := h.toWire()
	if err != nil {
		return xerrors.Errorf("invalid header: %w", err)
	}
	hdr.Length = uint32(length)
	hdr.Checksum = 0

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, hdr); err != nil {
		return err
	}
	buf.Write(body)

	b := buf.Bytes()
	b[9] = -wire.Checksum(b)

	_, err = w.Write(b)
	return err
}
