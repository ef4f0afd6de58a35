// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package acpi

import (
	"bytes"
	"fmt"

	"golang.org/x/xerrors"
)

// MaxProcessors is the maximum number of processors that an
// APICConfiguration can describe.
const MaxProcessors = 16

// Processor describes a logical processor and its local APIC.
type Processor struct {
	ProcessorID uint8
	APICID      uint8
	Flags       LocalAPICFlags
}

// APICConfiguration is the interrupt controller configuration described by
// the MADT.
type APICConfiguration struct {
	LocalAPICAddress PhysicalAddress
	IOAPICAddress    PhysicalAddress

	// Processors is in the order that the firmware lists them, which
	// normally begins with the bootstrap processor.
	Processors []Processor
}

func (c *APICConfiguration) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Local APIC: %v\n", c.LocalAPICAddress)
	fmt.Fprintf(&b, "I/O APIC:   %v\n", c.IOAPICAddress)
	fmt.Fprintf(&b, "Processors: %d\n", len(c.Processors))
	for i, p := range c.Processors {
		fmt.Fprintf(&b, "  %d: processor 0x%x APIC ID 0x%x flags 0x%x\n", i, p.ProcessorID, p.APICID, uint32(p.Flags))
	}
	return b.String()
}

// Configuration decodes the entries of this table into an
// APICConfiguration. The local APIC address is taken from the fixed part of
// the table. Processors are recorded in the order of their entries, and if
// there is more than one I/O APIC entry, the last one is used.
//
// ErrNoIOAPIC is returned if there are no I/O APIC entries, and
// ErrCapacityExceeded is returned if there are more than MaxProcessors
// processor local APIC entries.
func (t *MADT) Configuration(opts *Options) (*APICConfiguration, error) {
	config := &APICConfiguration{LocalAPICAddress: PhysicalAddress(t.LocalAPICAddress)}
	foundIOAPIC := false

	entries := t.Entries(opts)
	for entries.Next() {
		switch e := entries.Entry().(type) {
		case *LocalAPICEntry:
			if len(config.Processors) == MaxProcessors {
				return nil, xerrors.Errorf("cannot add processor 0x%x (APIC ID 0x%x): %w", e.ProcessorID, e.APICID, ErrCapacityExceeded)
			}
			config.Processors = append(config.Processors, Processor{
				ProcessorID: e.ProcessorID,
				APICID:      e.APICID,
				Flags:       e.Flags})
		case *IOAPICEntry:
			config.IOAPICAddress = PhysicalAddress(e.Address)
			foundIOAPIC = true
		case *RawMADTEntry:
		default:
			panic(fmt.Sprintf("unhandled MADT entry %T", e))
		}
	}
	if err := entries.Err(); err != nil {
		return nil, xerrors.Errorf("cannot decode MADT entries: %w", err)
	}

	if !foundIOAPIC {
		return nil, ErrNoIOAPIC
	}
	return config, nil
}

// ReadAPICConfiguration locates the root system description pointer, finds
// the MADT and decodes it into an APICConfiguration.
func ReadAPICConfiguration(mem *PhysicalMemory, opts *Options) (*APICConfiguration, error) {
	opts = opts.orDefault()

	locator := DefaultRootPointerLocator
	if opts.Locator != nil {
		locator = *opts.Locator
	}
	locator.CheckChecksum = locator.CheckChecksum || opts.CheckChecksums

	rp, err := locator.Locate(mem, opts.Trace)
	if err != nil {
		return nil, err
	}

	t, err := FindTable(mem, rp, SignatureMADT, opts)
	if err != nil {
		return nil, err
	}

	madt, err := DecodeMADT(t)
	if err != nil {
		return nil, xerrors.Errorf("cannot decode MADT: %w", err)
	}

	return madt.Configuration(opts)
}
