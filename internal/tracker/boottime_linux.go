//go:build linux

package tracker

import (
	"time"

	"golang.org/x/sys/unix"
)

func bootTime(now time.Time) (time.Time, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return time.Time{}, err
	}
	return now.Add(-time.Duration(info.Uptime) * time.Second), nil
}
