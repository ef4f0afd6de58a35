// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package linux

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/canonical/go-acpilib"
)

// ErrTablesUnavailable is returned when the ACPI tables aren't exported by
// the kernel in the expected location.
var ErrTablesUnavailable = errors.New("no ACPI tables exported by sysfs in the expected location")

func tablesPath() string {
	return filepath.Join(sysfsPath, "firmware/acpi/tables")
}

// IsAvailable indicates whether sysfs is mounted and exports the ACPI
// tables.
func IsAvailable() (bool, error) {
	var st unix.Statfs_t
	if err := unixStatfs(sysfsPath, &st); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if st.Type != unix.SYSFS_MAGIC {
		return false, nil
	}

	if _, err := os.Stat(tablesPath()); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReadTable reads the table with the supplied signature from the copies
// exported by the kernel. The returned table has no physical address. If
// the kernel doesn't export a table with this signature,
// acpi.ErrTableNotFound is returned.
func ReadTable(sig acpi.Signature, checkChecksum bool) (*acpi.Table, error) {
	if available, err := IsAvailable(); err != nil {
		return nil, err
	} else if !available {
		return nil, ErrTablesUnavailable
	}

	f, err := osOpen(filepath.Join(tablesPath(), sig.String()))
	switch {
	case os.IsNotExist(err):
		return nil, xerrors.Errorf("%v: %w", sig, acpi.ErrTableNotFound)
	case err != nil:
		return nil, err
	}
	defer f.Close()

	data, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, xerrors.Errorf("cannot read %v table: %w", sig, err)
	}

	t, err := acpi.DecodeTable(data, checkChecksum)
	if err != nil {
		return nil, xerrors.Errorf("cannot decode %v table: %w", sig, err)
	}
	if t.Header.Signature != sig {
		return nil, xerrors.Errorf("%v table has unexpected signature %v", sig, t.Header.Signature)
	}
	return t, nil
}

// ReadMADT reads and decodes the MADT exported by the kernel.
func ReadMADT(opts *acpi.Options) (*acpi.MADT, error) {
	var checkChecksum bool
	if opts != nil {
		checkChecksum = opts.CheckChecksums
	}

	t, err := ReadTable(acpi.SignatureMADT, checkChecksum)
	if err != nil {
		return nil, err
	}
	return acpi.DecodeMADT(t)
}

// ReadAPICConfiguration decodes the MADT exported by the kernel into an
// acpi.APICConfiguration. Unlike the physical memory path, this doesn't
// require access to /dev/mem.
func ReadAPICConfiguration(opts *acpi.Options) (*acpi.APICConfiguration, error) {
	madt, err := ReadMADT(opts)
	if err != nil {
		return nil, err
	}
	return madt.Configuration(opts)
}
