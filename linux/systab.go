// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package linux

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/canonical/go-acpilib"
)

func systabPath() string {
	return filepath.Join(sysfsPath, "firmware/efi/systab")
}

// RootPointerAddress returns the physical address of the root system
// description pointer published by EFI firmware. The ACPI 2.0 entry is
// preferred. On systems that didn't boot via EFI, acpi.ErrRootPointerNotFound
// is returned, and the BIOS areas should be scanned instead.
func RootPointerAddress() (acpi.PhysicalAddress, error) {
	f, err := osOpen(systabPath())
	switch {
	case os.IsNotExist(err):
		return 0, acpi.ErrRootPointerNotFound
	case err != nil:
		return 0, err
	}
	defer f.Close()

	var acpi10, acpi20 string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "=", 2)
		if len(fields) != 2 {
			continue
		}
		switch fields[0] {
		case "ACPI":
			acpi10 = fields[1]
		case "ACPI20":
			acpi20 = fields[1]
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, xerrors.Errorf("cannot read EFI system table: %w", err)
	}

	s := acpi20
	if s == "" {
		s = acpi10
	}
	if s == "" {
		return 0, acpi.ErrRootPointerNotFound
	}

	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, xerrors.Errorf("invalid root pointer address %q: %w", s, err)
	}
	return acpi.PhysicalAddress(addr), nil
}

// LocateRootPointer returns the root system description pointer, using
// the address published by EFI firmware if there is one and otherwise
// scanning the locations defined by acpi.DefaultRootPointerLocator.
func LocateRootPointer(mem *acpi.PhysicalMemory, checkChecksum bool, trace io.Writer) (*acpi.RootPointer, error) {
	addr, err := RootPointerAddress()
	switch {
	case err == acpi.ErrRootPointerNotFound:
		locator := acpi.DefaultRootPointerLocator
		locator.CheckChecksum = checkChecksum
		return locator.Locate(mem, trace)
	case err != nil:
		return nil, err
	}

	rp, err := acpi.ReadRootPointer(mem, addr, checkChecksum)
	if err != nil {
		return nil, err
	}
	if trace != nil {
		io.WriteString(trace, rp.String()+" (from EFI system table)\n")
	}
	return rp, nil
}
