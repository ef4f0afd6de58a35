// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/jessevdk/go-flags"

	"github.com/canonical/go-acpilib"
	"github.com/canonical/go-acpilib/linux"
)

type source string

const (
	sourceSysfs  source = "sysfs"
	sourceDevMem source = "devmem"
	sourceImage  source = "image"
)

func (s source) MarshalFlag() (string, error) {
	switch s {
	case sourceSysfs, sourceDevMem, sourceImage:
		return string(s), nil
	default:
		return "", fmt.Errorf("invalid value: %v", string(s))
	}
}

func (s *source) UnmarshalFlag(value string) error {
	switch source(value) {
	case sourceSysfs, sourceDevMem, sourceImage:
		*s = source(value)
	default:
		return fmt.Errorf("invalid value: %v", value)
	}
	return nil
}

type offset uint64

func (o offset) MarshalFlag() (string, error) {
	return fmt.Sprintf("0x%x", uint64(o)), nil
}

func (o *offset) UnmarshalFlag(value string) error {
	v, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid offset: %v", err)
	}
	*o = offset(v)
	return nil
}

type options struct {
	Source         source `long:"source" short:"s" description:"Where to read the MADT from" default:"sysfs" choice:"sysfs" choice:"devmem" choice:"image"`
	Image          string `long:"image" description:"Physical memory image to read from when the source is image"`
	Offset         offset `long:"offset" description:"Offset added to physical addresses when reading from the image" default:"0x0"`
	CheckChecksums bool   `long:"check-checksums" description:"Reject tables with an invalid checksum"`
	SkipUnknown    bool   `long:"skip-unknown" description:"Skip MADT entries with an unrecognized type"`
	XSDT           bool   `long:"xsdt" description:"Walk the XSDT rather than the RSDT when available"`
	Hexdump        bool   `long:"hexdump" description:"Display a hexdump of the MADT"`
	Verbose        bool   `long:"verbose" short:"v" description:"Trace each structure as it is decoded"`
}

var opts options

func readMADT(mem *acpi.PhysicalMemory, rp *acpi.RootPointer, o *acpi.Options) (*acpi.MADT, error) {
	t, err := acpi.FindTable(mem, rp, acpi.SignatureMADT, o)
	if err != nil {
		return nil, err
	}
	return acpi.DecodeMADT(t)
}

func readMADTFromDevMem(o *acpi.Options) (*acpi.MADT, error) {
	mem, err := linux.OpenPhysicalMemory()
	if err != nil {
		return nil, err
	}
	defer mem.Close()

	rp, err := linux.LocateRootPointer(mem.PhysicalMemory, o.CheckChecksums, o.Trace)
	if err != nil {
		return nil, err
	}
	return readMADT(mem.PhysicalMemory, rp, o)
}

func readMADTFromImage(o *acpi.Options) (*acpi.MADT, error) {
	if opts.Image == "" {
		return nil, errors.New("no image specified")
	}
	f, err := os.Open(opts.Image)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mem := acpi.NewPhysicalMemory(f, uint64(opts.Offset))

	locator := acpi.DefaultRootPointerLocator
	locator.CheckChecksum = o.CheckChecksums
	rp, err := locator.Locate(mem, o.Trace)
	if err != nil {
		return nil, err
	}
	return readMADT(mem, rp, o)
}

func run() error {
	if _, err := flags.Parse(&opts); err != nil {
		return err
	}

	o := &acpi.Options{
		CheckChecksums:     opts.CheckChecksums,
		UseXSDT:            opts.XSDT,
		SkipUnknownEntries: opts.SkipUnknown}
	if opts.Verbose {
		o.Trace = os.Stderr
	}

	var madt *acpi.MADT
	var err error
	switch opts.Source {
	case sourceDevMem:
		madt, err = readMADTFromDevMem(o)
	case sourceImage:
		madt, err = readMADTFromImage(o)
	default:
		madt, err = linux.ReadMADT(o)
	}
	if err != nil {
		return fmt.Errorf("cannot read MADT: %v", err)
	}

	config, err := madt.Configuration(o)
	if err != nil {
		return fmt.Errorf("cannot decode MADT: %v", err)
	}
	fmt.Print(config)

	if opts.Hexdump {
		d := hex.Dumper(os.Stdout)
		defer d.Close()

		fmt.Println()
		if err := madt.Write(d); err != nil {
			return fmt.Errorf("cannot serialize MADT: %v", err)
		}
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		switch e := err.(type) {
		case *flags.Error:
			// flags already prints this
			if e.Type != flags.ErrHelp {
				os.Exit(1)
			}
		default:
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
