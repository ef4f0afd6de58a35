// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package acpi_test

import (
	"bytes"
	"errors"
	"io"

	"golang.org/x/xerrors"

	. "gopkg.in/check.v1"

	. "github.com/canonical/go-acpilib"
)

type memorySuite struct{}

var _ = Suite(&memorySuite{})

// eofReaderAt returns io.EOF along with the final bytes of its data.
type eofReaderAt []byte

func (r eofReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r)) {
		return 0, io.EOF
	}
	n := copy(p, r[off:])
	if off+int64(n) == int64(len(r)) {
		return n, io.EOF
	}
	return n, nil
}

type errorReaderAt struct{ err error }

func (r errorReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return 0, r.err
}

func (s *memorySuite) TestReadAt(c *C) {
	mem := NewPhysicalMemory(bytes.NewReader([]byte("abcdefgh")), 0)
	c.Check(mem.Offset(), Equals, uint64(0))

	p := make([]byte, 3)
	c.Check(mem.ReadAt(p, 2), IsNil)
	c.Check(p, DeepEquals, []byte("cde"))
}

func (s *memorySuite) TestReadAtWithOffset(c *C) {
	mem := NewPhysicalMemory(bytes.NewReader([]byte("abcdefgh")), 4)
	c.Check(mem.Offset(), Equals, uint64(4))
	c.Check(mem.String(), Equals, "PhysicalMemory(offset=0x4)")

	p := make([]byte, 3)
	c.Check(mem.ReadAt(p, 1), IsNil)
	c.Check(p, DeepEquals, []byte("fgh"))
}

func (s *memorySuite) TestReadAtEndWithEOF(c *C) {
	mem := NewPhysicalMemory(eofReaderAt("abcdefgh"), 0)

	p := make([]byte, 4)
	c.Check(mem.ReadAt(p, 4), IsNil)
	c.Check(p, DeepEquals, []byte("efgh"))
}

func (s *memorySuite) TestReadAtShort(c *C) {
	mem := NewPhysicalMemory(eofReaderAt("abcdefgh"), 0)

	err := mem.ReadAt(make([]byte, 4), 6)
	c.Check(err, ErrorMatches, "cannot read 4 bytes at 0x00000006: unexpected EOF")
	c.Check(xerrors.Is(err, io.ErrUnexpectedEOF), Equals, true)
}

func (s *memorySuite) TestReadAtPastEnd(c *C) {
	mem := NewPhysicalMemory(bytes.NewReader([]byte("abcdefgh")), 0)

	err := mem.ReadAt(make([]byte, 4), 0x1000)
	c.Check(err, ErrorMatches, "cannot read 4 bytes at 0x00001000: unexpected EOF")
}

func (s *memorySuite) TestReadAtError(c *C) {
	mem := NewPhysicalMemory(errorReaderAt{errors.New("bad address")}, 0)

	err := mem.ReadAt(make([]byte, 4), 0x1000)
	c.Check(err, ErrorMatches, "cannot read 4 bytes at 0x00001000: bad address")
}

func (s *memorySuite) TestReadAtOffsetOverflow(c *C) {
	mem := NewPhysicalMemory(bytes.NewReader(nil), 0xffffffffffffff00)

	err := mem.ReadAt(make([]byte, 4), 0x1000)
	c.Check(err, ErrorMatches, "cannot read 4 bytes at 0x00001000: address overflows the linear mapping")
}

func (s *memorySuite) TestReadAtOutOfRange(c *C) {
	mem := NewPhysicalMemory(bytes.NewReader(nil), 0)

	err := mem.ReadAt(make([]byte, 4), 0x7ffffffffffffffe)
	c.Check(err, ErrorMatches, "cannot read 4 bytes at 0x7ffffffffffffffe: range is outside of the addressable space")
}
