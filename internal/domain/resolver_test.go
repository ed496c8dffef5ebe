package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("UTC+2", 2*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, testLoc)
}

func TestResolveNoRecordBootedToday(t *testing.T) {
	boot := at(10, 6, 0)
	require.Equal(t, int64(500), Resolve(nil, 500, boot, boot.Add(time.Hour), testLoc))
}

func TestResolveNoRecordBootedYesterday(t *testing.T) {
	require.Equal(t, int64(0), Resolve(nil, 500, at(9, 22, 0), at(10, 9, 0), testLoc))
}

func TestResolveStaleRecordIsIgnored(t *testing.T) {
	stale := &StepRecord{CountSinceReboot: 9000, Timestamp: at(9, 23, 50), StepCount: 12000}

	require.Equal(t, int64(40), Resolve(stale, 40, at(10, 7, 0), at(10, 8, 0), testLoc))
	require.Equal(t, int64(0), Resolve(stale, 9100, at(8, 7, 0), at(10, 8, 0), testLoc))
}

func TestResolveSameDayNoReboot(t *testing.T) {
	t0 := at(10, 12, 0)
	record := &StepRecord{CountSinceReboot: 300, Timestamp: t0, StepCount: 300}

	got := Resolve(record, 450, t0.Add(-2*time.Hour), t0.Add(5*time.Minute), testLoc)
	require.Equal(t, int64(450), got)
}

func TestResolveSameDayAfterReboot(t *testing.T) {
	t0 := at(10, 12, 0)
	record := &StepRecord{CountSinceReboot: 300, Timestamp: t0, StepCount: 300}

	got := Resolve(record, 20, t0.Add(time.Minute), t0.Add(5*time.Minute), testLoc)
	require.Equal(t, int64(320), got)
}

func TestResolveNeverNegative(t *testing.T) {
	t0 := at(10, 12, 0)
	record := &StepRecord{CountSinceReboot: 5000, Timestamp: t0, StepCount: 100}

	require.Equal(t, int64(0), Resolve(record, 10, t0.Add(-time.Hour), t0.Add(time.Minute), testLoc))
}

func TestResolveIsDeterministic(t *testing.T) {
	t0 := at(10, 12, 0)
	record := &StepRecord{CountSinceReboot: 120, Timestamp: t0, StepCount: 800}
	inputs := []struct {
		raw  int64
		boot time.Time
		now  time.Time
	}{
		{raw: 150, boot: t0.Add(-time.Hour), now: t0.Add(time.Minute)},
		{raw: 3, boot: t0.Add(time.Minute), now: t0.Add(2 * time.Minute)},
		{raw: 77, boot: at(9, 1, 0), now: at(11, 1, 0)},
	}

	for _, in := range inputs {
		first := Resolve(record, in.raw, in.boot, in.now, testLoc)
		second := Resolve(record, in.raw, in.boot, in.now, testLoc)
		require.Equal(t, first, second)
		require.GreaterOrEqual(t, first, int64(0))
	}
}

func TestSameDayUsesLocalCalendarDate(t *testing.T) {
	// 23:30 and 00:30 local are one hour apart but on different days.
	require.False(t, SameDay(at(10, 23, 30), at(11, 0, 30), testLoc))
	// 00:10 and 23:50 are almost a day apart but on the same date.
	require.True(t, SameDay(at(10, 0, 10), at(10, 23, 50), testLoc))
	// The same instants can straddle midnight in a different zone.
	require.False(t, SameDay(at(10, 0, 10), at(10, 23, 50), time.UTC))
}

func TestStepRecordValidate(t *testing.T) {
	require.NoError(t, StepRecord{StepCount: 0}.Validate())
	require.ErrorIs(t, StepRecord{StepCount: -1}.Validate(), ErrNegativeStepCount)
}
