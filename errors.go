// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package acpi

import (
	"errors"

	"golang.org/x/xerrors"
)

var (
	// ErrRootPointerNotFound is returned when no root system description
	// pointer exists in any of the scanned memory ranges.
	ErrRootPointerNotFound = errors.New("cannot locate the root system description pointer")

	// ErrTableNotFound is returned when the root system description table
	// doesn't reference a table with the requested signature.
	ErrTableNotFound = errors.New("no table with the requested signature")

	// ErrMalformedLength is returned when a length field embedded in a
	// table or MADT entry is inconsistent with the data that contains it.
	ErrMalformedLength = errors.New("malformed length")

	// ErrUnknownEntryType is returned when a MADT entry has a type that
	// isn't recognized.
	ErrUnknownEntryType = errors.New("unknown MADT entry type")

	// ErrCapacityExceeded is returned when the MADT describes more than
	// MaxProcessors processors.
	ErrCapacityExceeded = errors.New("too many processors")

	// ErrNoIOAPIC is returned when the MADT doesn't contain an I/O APIC
	// entry.
	ErrNoIOAPIC = errors.New("no I/O APIC entry")

	// ErrChecksumMismatch is returned when checksum verification is
	// enabled and a structure doesn't sum to zero.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// IsNotFound indicates whether err was caused by a required structure not
// being found. Callers that probe for optional tables can use this to
// distinguish absence from corruption.
func IsNotFound(err error) bool {
	return xerrors.Is(err, ErrRootPointerNotFound) || xerrors.Is(err, ErrTableNotFound)
}
