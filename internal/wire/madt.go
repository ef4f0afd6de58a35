// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package wire

const (
	MADT_FIXED_SIZE        = ACPI_TABLE_HEADER_SIZE + 8
	MADT_ENTRY_HEADER_SIZE = 2

	MADT_LOCAL_APIC_SIZE = 8
	MADT_IO_APIC_SIZE    = 12
)

const (
	MADT_TYPE_LOCAL_APIC               = 0
	MADT_TYPE_IO_APIC                  = 1
	MADT_TYPE_INTERRUPT_OVERRIDE       = 2
	MADT_TYPE_NMI_SOURCE               = 3
	MADT_TYPE_LOCAL_APIC_NMI           = 4
	MADT_TYPE_LOCAL_APIC_ADDR_OVERRIDE = 5
)

// MADT_FIXED is the fixed part of the multiple APIC description table
// that precedes the entry stream.
type MADT_FIXED struct {
	Header  ACPI_TABLE_HEADER
	Address uint32
	Flags   uint32
}

type MADT_ENTRY_HEADER struct {
	Type   uint8
	Length uint8
}

type MADT_LOCAL_APIC struct {
	Header      MADT_ENTRY_HEADER
	ProcessorId uint8
	Id          uint8
	LapicFlags  uint32
}

type MADT_IO_APIC struct {
	Header        MADT_ENTRY_HEADER
	Id            uint8
	Reserved      uint8
	Address       uint32
	GlobalIrqBase uint32
}
