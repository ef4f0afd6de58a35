// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package linux

import (
	"os"

	"golang.org/x/sys/unix"
)

var (
	devMemPath = "/dev/mem"
	sysfsPath  = "/sys"

	osOpen     = os.Open
	unixOpen   = unix.Open
	unixPread  = unix.Pread
	unixClose  = unix.Close
	unixStatfs = unix.Statfs
)
