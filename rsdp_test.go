// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package acpi_test

import (
	"bytes"

	"golang.org/x/xerrors"

	. "gopkg.in/check.v1"

	. "github.com/canonical/go-acpilib"
)

type rsdpSuite struct{}

var _ = Suite(&rsdpSuite{})

var rsdpSignature = []byte("RSD PTR ")

func (s *rsdpSuite) TestWriteRootPointerRev1(c *C) {
	rp := RootPointer{OEMID: "BOCHS ", RSDTAddress: 0x07fe14d5}

	w := new(bytes.Buffer)
	c.Check(rp.Write(w), IsNil)
	c.Check(w.Bytes(), DeepEquals, DecodeHexString(c, "525344205054522064424f4348532000d514fe07"))
}

func (s *rsdpSuite) TestWriteRootPointerRev2(c *C) {
	rp := RootPointer{OEMID: "ALASKA", Revision: 2, RSDTAddress: 0x7ffe0028, XSDTAddress: 0x7ffe0728}

	w := new(bytes.Buffer)
	c.Check(rp.Write(w), IsNil)
	c.Check(w.Bytes(), DeepEquals, DecodeHexString(c, "52534420505452208d414c41534b41022800fe7f240000002807fe7f0000000030000000"))
}

func (s *rsdpSuite) TestWriteRootPointerOEMIDTooLong(c *C) {
	rp := RootPointer{OEMID: "CANONICAL"}
	c.Check(rp.Write(new(bytes.Buffer)), ErrorMatches, "OEMID is too long")
}

func (s *rsdpSuite) TestLocateInBIOSArea(c *C) {
	m := newPlatformImage(c, 0)

	rp, err := LocateRootPointer(m.memory())
	c.Assert(err, IsNil)
	c.Check(rp, DeepEquals, &RootPointer{
		Address:     testRootPointerAddr,
		Checksum:    rp.Checksum,
		OEMID:       "BOCHS ",
		RSDTAddress: testRSDTAddr})

	locator := DefaultRootPointerLocator
	locator.CheckChecksum = true
	rp2, err := locator.Locate(m.memory(), nil)
	c.Assert(err, IsNil)
	c.Check(rp2, DeepEquals, rp)
}

func (s *rsdpSuite) TestLocateReturnsFirstAlignedMatch(c *C) {
	m := newMemoryImage(0)
	m.put(c, 0xe0020, &RootPointer{OEMID: "FIRST ", RSDTAddress: 0x1000})
	m.put(c, 0xe0040, &RootPointer{OEMID: "SECOND", RSDTAddress: 0x2000})

	rp, err := LocateRootPointer(m.memory())
	c.Assert(err, IsNil)
	c.Check(rp.Address, Equals, PhysicalAddress(0xe0020))
	c.Check(rp.OEMID, Equals, "FIRST ")
}

func (s *rsdpSuite) TestLocateAtStartOfBIOSArea(c *C) {
	m := newMemoryImage(0)
	m.put(c, 0xe0000, &RootPointer{OEMID: "BOCHS ", RSDTAddress: 0x1000})

	rp, err := LocateRootPointer(m.memory())
	c.Assert(err, IsNil)
	c.Check(rp.Address, Equals, PhysicalAddress(0xe0000))
}

func (s *rsdpSuite) TestLocateIgnoresUnalignedSignature(c *C) {
	m := newMemoryImage(0)
	m.putBytes(0xe0008, rsdpSignature)
	m.putBytes(0xf0001, rsdpSignature)

	_, err := LocateRootPointer(m.memory())
	c.Check(err, Equals, ErrRootPointerNotFound)
}

func (s *rsdpSuite) TestLocateDoesNotReadEBDAWhenBIOSAreaMatches(c *C) {
	m := newPlatformImage(c, 0)
	m.putUint16(0x40e, 0x9fc0)
	m.put(c, 0x9fc00, &RootPointer{OEMID: "EBDA  ", RSDTAddress: 0x1000})

	mem, r := m.recordingMemory()
	rp, err := LocateRootPointer(mem)
	c.Assert(err, IsNil)
	c.Check(rp.Address, Equals, testRootPointerAddr)
	c.Check(r.readAt(0x40e), Equals, false)
	c.Check(r.readAt(0x9fc00), Equals, false)
}

func (s *rsdpSuite) TestLocateInEBDA(c *C) {
	m := newMemoryImage(0)
	m.putUint16(0x40e, 0x9fc0)
	m.put(c, 0x9fc30, &RootPointer{OEMID: "EBDA  ", RSDTAddress: 0x1000})

	rp, err := LocateRootPointer(m.memory())
	c.Assert(err, IsNil)
	c.Check(rp.Address, Equals, PhysicalAddress(0x9fc30))
	c.Check(rp.OEMID, Equals, "EBDA  ")
}

func (s *rsdpSuite) TestLocateOnlyScansFirstKiBOfEBDA(c *C) {
	m := newMemoryImage(0)
	m.putUint16(0x40e, 0x9fc0)
	m.put(c, 0x9fc00+1024, &RootPointer{OEMID: "EBDA  ", RSDTAddress: 0x1000})

	_, err := LocateRootPointer(m.memory())
	c.Check(err, Equals, ErrRootPointerNotFound)
	c.Check(IsNotFound(err), Equals, true)
}

func (s *rsdpSuite) TestLocateNotFound(c *C) {
	m := newMemoryImage(0)
	m.putBytes(0x1000, rsdpSignature)

	_, err := LocateRootPointer(m.memory())
	c.Check(err, Equals, ErrRootPointerNotFound)
}

func (s *rsdpSuite) TestLocateWithOffset(c *C) {
	m := newPlatformImage(c, 0x4000)

	rp, err := LocateRootPointer(m.memory())
	c.Assert(err, IsNil)
	c.Check(rp.Address, Equals, testRootPointerAddr)
	c.Check(rp.RSDTAddress, Equals, testRSDTAddr)
}

func (s *rsdpSuite) TestLocateSkipsChecksumMismatch(c *C) {
	m := newMemoryImage(0)
	m.put(c, 0xe0020, &RootPointer{OEMID: "BAD   ", RSDTAddress: 0x1000})
	m.putBytes(0xe0020+8, []byte{0xff})
	m.put(c, 0xe0040, &RootPointer{OEMID: "GOOD  ", RSDTAddress: 0x2000})

	rp, err := LocateRootPointer(m.memory())
	c.Assert(err, IsNil)
	c.Check(rp.OEMID, Equals, "BAD   ")

	locator := DefaultRootPointerLocator
	locator.CheckChecksum = true
	trace := new(bytes.Buffer)
	rp, err = locator.Locate(m.memory(), trace)
	c.Assert(err, IsNil)
	c.Check(rp.OEMID, Equals, "GOOD  ")
	c.Check(trace.String(), Equals, "RSD PTR  at 0x000e0020 [checksum mismatch; skipping]\n"+
		"RSD PTR  at 0x000e0040 rev 0 (GOOD  ) RSDT 0x00002000\n")
}

func (s *rsdpSuite) TestLocateRevision2(c *C) {
	m := newMemoryImage(0)
	m.put(c, 0xfe020, &RootPointer{OEMID: "ALASKA", Revision: 2, RSDTAddress: 0x7ffe0028, XSDTAddress: 0x7ffe0728})

	locator := DefaultRootPointerLocator
	locator.CheckChecksum = true
	rp, err := locator.Locate(m.memory(), nil)
	c.Assert(err, IsNil)
	c.Check(rp, DeepEquals, &RootPointer{
		Address:          0xfe020,
		Checksum:         0x8d,
		OEMID:            "ALASKA",
		Revision:         2,
		RSDTAddress:      0x7ffe0028,
		Length:           36,
		XSDTAddress:      0x7ffe0728,
		ExtendedChecksum: 0x30})
}

func (s *rsdpSuite) TestLocateRevision2ExtendedChecksumMismatch(c *C) {
	m := newMemoryImage(0)
	m.put(c, 0xfe020, &RootPointer{OEMID: "ALASKA", Revision: 2, RSDTAddress: 0x7ffe0028, XSDTAddress: 0x7ffe0728})
	m.putBytes(0xfe020+32, []byte{0})

	locator := DefaultRootPointerLocator
	locator.CheckChecksum = true
	_, err := locator.Locate(m.memory(), nil)
	c.Check(err, Equals, ErrRootPointerNotFound)
}

func (s *rsdpSuite) TestLocateCustomRanges(c *C) {
	m := newMemoryImage(0)
	m.put(c, 0x2004, &RootPointer{OEMID: "CUSTOM", RSDTAddress: 0x1000})

	locator := RootPointerLocator{
		BIOSAreaStart:    0x2000,
		BIOSAreaEnd:      0x2100,
		EBDAPointer:      0x40e,
		EBDASearchLength: 1024,
		Alignment:        4}
	rp, err := locator.Locate(m.memory(), nil)
	c.Assert(err, IsNil)
	c.Check(rp.Address, Equals, PhysicalAddress(0x2004))
}

func (s *rsdpSuite) TestLocateInvalidAlignment(c *C) {
	m := newMemoryImage(0)

	locator := DefaultRootPointerLocator
	locator.Alignment = 0
	_, err := locator.Locate(m.memory(), nil)
	c.Check(err, ErrorMatches, "invalid alignment")
}

func (s *rsdpSuite) TestLocateShortMemory(c *C) {
	mem := NewPhysicalMemory(bytes.NewReader(make([]byte, 0xf0000)), 0)

	_, err := LocateRootPointer(mem)
	c.Check(err, ErrorMatches, "cannot scan BIOS area: cannot read 131072 bytes at 0x000e0000: unexpected EOF")
	c.Check(IsNotFound(err), Equals, false)
}

func (s *rsdpSuite) TestReadRootPointerAtAddress(c *C) {
	m := newMemoryImage(0)
	m.put(c, 0x3000, &RootPointer{OEMID: "ALASKA", Revision: 2, RSDTAddress: 0x7ffe0028, XSDTAddress: 0x7ffe0728})

	rp, err := ReadRootPointer(m.memory(), 0x3000, true)
	c.Assert(err, IsNil)
	c.Check(rp.Address, Equals, PhysicalAddress(0x3000))
	c.Check(rp.XSDTAddress, Equals, PhysicalAddress(0x7ffe0728))
}

func (s *rsdpSuite) TestReadRootPointerInvalidSignature(c *C) {
	m := newMemoryImage(0)

	_, err := ReadRootPointer(m.memory(), 0x3000, false)
	c.Check(err, ErrorMatches, "cannot read root pointer at 0x00003000: invalid signature")
}

func (s *rsdpSuite) TestReadRootPointerChecksumMismatch(c *C) {
	m := newMemoryImage(0)
	m.put(c, 0x3000, &RootPointer{OEMID: "BOCHS ", RSDTAddress: 0x1000})
	m.putBytes(0x3000+8, []byte{0})

	_, err := ReadRootPointer(m.memory(), 0x3000, true)
	c.Check(xerrors.Is(err, ErrChecksumMismatch), Equals, true)

	_, err = ReadRootPointer(m.memory(), 0x3000, false)
	c.Check(err, IsNil)
}
