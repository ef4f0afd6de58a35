// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package linux

import (
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/canonical/go-acpilib"
)

type devMemReader struct {
	fd int
}

func (r *devMemReader) ReadAt(p []byte, off int64) (n int, err error) {
	for n < len(p) {
		m, err := unixPread(r.fd, p[n:], off+int64(n))
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			return n, &os.PathError{Op: "pread", Path: devMemPath, Err: err}
		case m == 0:
			return n, io.EOF
		}
		n += m
	}
	return n, nil
}

// PhysicalMemory provides read-only access to host physical memory via
// /dev/mem. Reading the firmware areas normally requires CAP_SYS_RAWIO and
// a kernel that permits access to them.
type PhysicalMemory struct {
	*acpi.PhysicalMemory
	fd int
}

// OpenPhysicalMemory opens /dev/mem for reading. Physical addresses map
// directly to file offsets, so the linear mapping offset is zero. The
// caller should call Close when finished.
func OpenPhysicalMemory() (*PhysicalMemory, error) {
	fd, err := unixOpen(devMemPath, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: devMemPath, Err: err}
	}
	return &PhysicalMemory{
		PhysicalMemory: acpi.NewPhysicalMemory(&devMemReader{fd: fd}, 0),
		fd:             fd}, nil
}

// Close releases the underlying file descriptor.
func (m *PhysicalMemory) Close() error {
	if err := unixClose(m.fd); err != nil {
		return &os.PathError{Op: "close", Path: devMemPath, Err: err}
	}
	return nil
}
