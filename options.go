// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package acpi

import (
	"fmt"
	"io"
)

// Options controls how tables are read and decoded. A nil *Options is
// equivalent to the zero value.
type Options struct {
	// CheckChecksums enables verification of the checksums of the root
	// system description pointer and every table that is read. Firmware
	// is not always consistent about these, so this is off by default.
	CheckChecksums bool

	// UseXSDT selects the extended system description table, which
	// contains 64-bit table addresses, when the root pointer revision
	// provides one. Otherwise the 32-bit RSDT is walked.
	UseXSDT bool

	// SkipUnknownEntries causes MADT entries with an unrecognized type to
	// be skipped rather than failing the decode.
	SkipUnknownEntries bool

	// Locator overrides DefaultRootPointerLocator for ReadAPICConfiguration.
	Locator *RootPointerLocator

	// Trace receives a human readable line for each structure that is
	// located or decoded. Write errors are ignored.
	Trace io.Writer
}

var defaultOptions Options

func (o *Options) orDefault() *Options {
	if o == nil {
		return &defaultOptions
	}
	return o
}

func tracef(w io.Writer, format string, args ...interface{}) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, format+"\n", args...)
}
