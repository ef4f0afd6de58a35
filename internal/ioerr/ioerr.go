// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// Package ioerr contains helpers for wrapping errors returned from reads
// of firmware structures.
package ioerr

import (
	"io"

	"golang.org/x/xerrors"
)

// EOFIsUnexpected is a wrapper around xerrors.Errorf that converts raw
// io.EOF arguments into io.ErrUnexpectedEOF. Use it when reading a field
// that isn't at the start of a structure, where running out of data means
// the structure is truncated.
func EOFIsUnexpected(format string, args ...interface{}) error {
	args2 := make([]interface{}, len(args))
	copy(args2, args)
	for i, a := range args2 {
		if e, isErr := a.(error); isErr && e == io.EOF {
			args2[i] = io.ErrUnexpectedEOF
		}
	}

	return xerrors.Errorf(format, args2...)
}

// PassRawEOF is a wrapper around xerrors.Errorf that returns a raw io.EOF
// if the wrapped error is io.EOF, so that callers iterating over a
// sequence of structures can detect the end of the data.
func PassRawEOF(format string, args ...interface{}) error {
	err := xerrors.Errorf(format, args...)
	if xerrors.Is(err, io.EOF) {
		return io.EOF
	}
	return err
}
