package schedulertick

import (
	"log/slog"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/emergent/domain/scheduledtasks"
)

func mustParseStandard(t *testing.T, expr string) cron.Schedule {
	t.Helper()
	s, err := cron.ParseStandard(expr)
	require.NoError(t, err)
	return s
}

func TestEnumerateDue_NoneYet(t *testing.T) {
	schedule := mustParseStandard(t, "0 * * * *") // hourly on the hour
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	nowUTC := base // nothing has elapsed past base

	due := enumerateDue(schedule, base, nowUTC, nil, 1000, 100, slog.Default())
	require.Empty(t, due)
}

func TestEnumerateDue_SingleInstance(t *testing.T) {
	schedule := mustParseStandard(t, "0 * * * *")
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	nowUTC := base.Add(90 * time.Minute) // one hourly fire has elapsed (01:00)

	due := enumerateDue(schedule, base, nowUTC, nil, 1000, 100, slog.Default())
	require.Equal(t, []time.Time{base.Add(1 * time.Hour)}, due)
}

func TestEnumerateDue_FiltersByLastCheckedAt(t *testing.T) {
	schedule := mustParseStandard(t, "0 * * * *")
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	nowUTC := base.Add(3*time.Hour + 30*time.Minute) // 01:00, 02:00, 03:00 all due
	lastChecked := base.Add(1 * time.Hour)            // 01:00 already handled

	due := enumerateDue(schedule, base, nowUTC, &lastChecked, 1000, 100, slog.Default())
	require.Equal(t, []time.Time{base.Add(2 * time.Hour), base.Add(3 * time.Hour)}, due)
}

func TestEnumerateDue_BacklogCapTrims(t *testing.T) {
	schedule := mustParseStandard(t, "* * * * *") // every minute
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	nowUTC := base.Add(2000 * time.Minute) // far more than the cap

	due := enumerateDue(schedule, base, nowUTC, nil, 10, 3, slog.Default())
	require.Len(t, due, 3, "backlog beyond the cap should be trimmed to backlogKeep")
	require.True(t, due[len(due)-1].Before(nowUTC) || due[len(due)-1].Equal(nowUTC))
}

func TestWithinDateRange_UnsetIsAlwaysWithin(t *testing.T) {
	dr := scheduledtasks.DateRange{}
	require.True(t, withinDateRange(dr, time.Now().UTC(), time.UTC))
}

func TestWithinDateRange_DateOnlyBounds(t *testing.T) {
	start := "2026-08-01"
	end := "2026-08-31"
	dr := scheduledtasks.DateRange{StartDate: &start, EndDate: &end}

	before := time.Date(2026, 7, 31, 23, 0, 0, 0, time.UTC)
	require.False(t, withinDateRange(dr, before, time.UTC))

	inside := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	require.True(t, withinDateRange(dr, inside, time.UTC))

	// end-of-day inclusive: any instant on the end date itself is in range.
	lastMoment := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	require.True(t, withinDateRange(dr, lastMoment, time.UTC))

	after := time.Date(2026, 9, 1, 0, 0, 1, 0, time.UTC)
	require.False(t, withinDateRange(dr, after, time.UTC))
}

func TestWithinDateRange_FullDatetimeBounds(t *testing.T) {
	start := "2026-08-01T12:00:00Z"
	dr := scheduledtasks.DateRange{StartDate: &start}

	require.False(t, withinDateRange(dr, time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC), time.UTC))
	require.True(t, withinDateRange(dr, time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC), time.UTC))
}

func TestParseBound_DateOnly(t *testing.T) {
	ts, ok := parseBound("2026-08-01", time.UTC, false)
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), ts)

	endOfDay, ok := parseBound("2026-08-01", time.UTC, true)
	require.True(t, ok)
	require.True(t, endOfDay.After(ts))
	require.True(t, endOfDay.Before(ts.Add(24*time.Hour)))
}

func TestParseBound_RFC3339(t *testing.T) {
	ts, ok := parseBound("2026-08-01T15:04:05Z", time.UTC, false)
	require.True(t, ok)
	require.Equal(t, 15, ts.Hour())
}

func TestParseBound_Invalid(t *testing.T) {
	_, ok := parseBound("not-a-date", time.UTC, false)
	require.False(t, ok)
}
