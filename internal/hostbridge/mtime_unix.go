//go:build unix

// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package hostbridge

import (
	"time"

	"golang.org/x/sys/unix"
)

func setMtime(path string, t time.Time) error {
	ts := unix.NsecToTimespec(t.UnixNano())
	times := [2]unix.Timespec{ts, ts}
	return unix.UtimesNanoAt(unix.AT_FDCWD, path, times[:], 0)
}
