package analytics

import (
	"testing"
	"time"
)

func TestWindow(t *testing.T) {
	// Wednesday, 2025-06-18 15:30 UTC.
	now := time.Date(2025, time.June, 18, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period    TimePeriod
		wantStart time.Time
	}{
		{PeriodToday, time.Date(2025, time.June, 18, 0, 0, 0, 0, time.UTC)},
		// Back to Sunday 2025-06-15.
		{PeriodThisWeek, time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)},
		{PeriodThisMonth, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodThisYear, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodAllTime, time.Unix(0, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			start, end := Window(now, tt.period)
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			if !end.Equal(now) {
				t.Errorf("end = %v, want now", end)
			}
		})
	}
}

func TestWindow_WeekStartsOnSundayEvenOnSunday(t *testing.T) {
	sunday := time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)
	start, _ := Window(sunday, PeriodThisWeek)
	want := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("start = %v, want %v", start, want)
	}
}

func TestWindow_UnknownPeriodFallsBackToAllTime(t *testing.T) {
	now := time.Date(2025, time.June, 18, 15, 30, 0, 0, time.UTC)
	start, _ := Window(now, TimePeriod("quarter"))
	if !start.Equal(time.Unix(0, 0).UTC()) {
		t.Errorf("start = %v, want epoch", start)
	}
}
