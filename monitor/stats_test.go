package monitor

import (
	"testing"
	"time"
)

func TestComputeViewerStats(t *testing.T) {
	if got := computeViewerStats(nil); got.Max != 0 || got.Avg != 0 {
		t.Errorf("empty stats = %+v", got)
	}
	samples := []Sample{
		{Viewers: 10},
		{Viewers: 30},
		{Viewers: 21},
	}
	got := computeViewerStats(samples)
	if got.Max != 30 {
		t.Errorf("Max = %d, want 30", got.Max)
	}
	if got.Avg != 20 {
		t.Errorf("Avg = %d, want 20", got.Avg)
	}
}

func TestAggregateSecondarySumsPerMinute(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	series := map[string][]Sample{
		"chanA": {
			{Timestamp: base.Add(5 * time.Second), Viewers: 100},
			{Timestamp: base.Add(70 * time.Second), Viewers: 110},
		},
		"chanB": {
			{Timestamp: base.Add(20 * time.Second), Viewers: 50},
		},
	}
	got := aggregateSecondary(series)
	if len(got) != 2 {
		t.Fatalf("buckets = %d, want 2", len(got))
	}
	if got[0].Viewers != 150 {
		t.Errorf("first bucket = %d, want 150", got[0].Viewers)
	}
	if got[1].Viewers != 110 {
		t.Errorf("second bucket = %d, want 110", got[1].Viewers)
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("buckets not sorted by time")
	}
}

func TestAggregateSecondaryLastSampleWinsWithinBucket(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	series := map[string][]Sample{
		"chanA": {
			{Timestamp: base.Add(5 * time.Second), Viewers: 100},
			{Timestamp: base.Add(40 * time.Second), Viewers: 200},
		},
	}
	got := aggregateSecondary(series)
	if len(got) != 1 || got[0].Viewers != 200 {
		t.Errorf("got %+v, want one bucket of 200", got)
	}
}

func TestCalcMonthlyStatsOverlap(t *testing.T) {
	history := []HistoryRecord{{StreamID: "s1", StartedAt: 1000, EndedAt: 5000}}
	days, seconds := calcMonthlyStats(history, time.Unix(2000, 0), time.Unix(4000, 0))
	if seconds != 2000 {
		t.Errorf("seconds = %v, want 2000", seconds)
	}
	// Overlap [2000, 4000) all falls on one epoch day.
	if days != 1 {
		t.Errorf("days = %d, want 1", days)
	}
}

func TestCalcMonthlyStatsExcludesOutsideWindow(t *testing.T) {
	history := []HistoryRecord{
		{StreamID: "before", StartedAt: 100, EndedAt: 500},
		{StreamID: "after", StartedAt: 9000, EndedAt: 9500},
	}
	days, seconds := calcMonthlyStats(history, time.Unix(2000, 0), time.Unix(4000, 0))
	if days != 0 || seconds != 0 {
		t.Errorf("got days=%d seconds=%v, want zero", days, seconds)
	}
}

func TestCalcMonthlyStatsActiveDaysSpanMidnight(t *testing.T) {
	// A broadcast from 23:00 to 01:00 local time touches two calendar days.
	start := time.Date(2025, 3, 10, 23, 0, 0, 0, time.Local)
	end := time.Date(2025, 3, 11, 1, 0, 0, 0, time.Local)
	history := []HistoryRecord{{
		StreamID:  "s1",
		StartedAt: float64(start.Unix()),
		EndedAt:   float64(end.Unix()),
	}}
	ws := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	we := time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local)
	days, seconds := calcMonthlyStats(history, ws, we)
	if days != 2 {
		t.Errorf("days = %d, want 2", days)
	}
	if seconds != 7200 {
		t.Errorf("seconds = %v, want 7200", seconds)
	}

	// Ending exactly at midnight must not count the next day.
	history[0].EndedAt = float64(time.Date(2025, 3, 11, 0, 0, 0, 0, time.Local).Unix())
	days, _ = calcMonthlyStats(history, ws, we)
	if days != 1 {
		t.Errorf("midnight end days = %d, want 1", days)
	}
}
