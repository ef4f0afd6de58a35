// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package wire

import (
	"encoding/binary"
	"io"

	"github.com/canonical/go-acpilib/internal/ioerr"
)

var RSDP_SIGNATURE = [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}

const (
	RSDP_REVISION_1 = 0
	RSDP_REVISION_2 = 2

	// Sizes of the packed layouts below.
	RSDP_DESCRIPTOR_SIZE     = 20
	RSDP_EXT_DESCRIPTOR_SIZE = 36
	ACPI_TABLE_HEADER_SIZE   = 36
)

// RSDP_DESCRIPTOR is the ACPI 1.0 root system description pointer.
type RSDP_DESCRIPTOR struct {
	Signature   [8]byte
	Checksum    uint8
	OemId       [6]byte
	Revision    uint8
	RsdtAddress uint32
}

// RSDP_EXT_DESCRIPTOR is the ACPI 2.0+ root system description pointer.
type RSDP_EXT_DESCRIPTOR struct {
	RSDP_DESCRIPTOR
	Length           uint32
	XsdtAddress      uint64
	ExtendedChecksum uint8
	Reserved         [3]byte
}

type ACPI_TABLE_HEADER struct {
	Signature       [4]byte
	Length          uint32
	Revision        uint8
	Checksum        uint8
	OemId           [6]byte
	OemTableId      [8]byte
	OemRevision     uint32
	CreatorId       uint32
	CreatorRevision uint32
}

func Read_ACPI_TABLE_HEADER(r io.Reader) (out *ACPI_TABLE_HEADER, err error) {
	out = &ACPI_TABLE_HEADER{}
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, ioerr.PassRawEOF("cannot read table header: %w", err)
	}
	return out, nil
}

// Checksum returns the 8-bit sum of data. A valid ACPI structure sums
// to zero.
func Checksum(data []byte) (sum uint8) {
	for _, b := range data {
		sum += b
	}
	return sum
}
