//go:build !linux

package tracker

import (
	"errors"
	"time"
)

func bootTime(time.Time) (time.Time, error) {
	return time.Time{}, errors.New("uptime not supported on this platform")
}
