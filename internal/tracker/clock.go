package tracker

import (
	"log"
	"time"
)

// Clock supplies wall time and the wall time the device booted.
type Clock interface {
	Now() time.Time
	BootTime() time.Time
}

// SystemClock reads the host clock. Boot time is derived from kernel uptime where the
// platform exposes it.
type SystemClock struct{}

// Now returns the current wall time.
func (SystemClock) Now() time.Time { return time.Now() }

// BootTime returns the wall time of the last boot.
func (SystemClock) BootTime() time.Time {
	now := time.Now()
	boot, err := bootTime(now)
	if err != nil {
		log.Printf("boot time unavailable, using process start: %v", err)
		return processStart
	}
	return boot
}

var processStart = time.Now()
