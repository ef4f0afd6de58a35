// Copyright 2026 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package linux

import (
	"os"

	"golang.org/x/sys/unix"
)

func MockDevMemPath(path string) (restore func()) {
	orig := devMemPath
	devMemPath = path
	return func() {
		devMemPath = orig
	}
}

func MockOsOpen(fn func(string) (*os.File, error)) (restore func()) {
	orig := osOpen
	osOpen = fn
	return func() {
		osOpen = orig
	}
}

func MockSysfsPath(path string) (restore func()) {
	orig := sysfsPath
	sysfsPath = path
	return func() {
		sysfsPath = orig
	}
}

func MockUnixPread(fn func(int, []byte, int64) (int, error)) (restore func()) {
	orig := unixPread
	unixPread = fn
	return func() {
		unixPread = orig
	}
}

func MockUnixStatfs(fn func(string, *unix.Statfs_t) error) (restore func()) {
	orig := unixStatfs
	unixStatfs = fn
	return func() {
		unixStatfs = orig
	}
}
