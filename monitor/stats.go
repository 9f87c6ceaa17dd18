package monitor

import (
	"math"
	"sort"
	"time"
)

// viewerStats summarizes one sample series.
type viewerStats struct {
	Max int
	Avg int
}

func computeViewerStats(samples []Sample) viewerStats {
	if len(samples) == 0 {
		return viewerStats{}
	}
	var max, sum int
	for _, s := range samples {
		if s.Viewers > max {
			max = s.Viewers
		}
		sum += s.Viewers
	}
	return viewerStats{
		Max: max,
		Avg: int(math.Round(float64(sum) / float64(len(samples)))),
	}
}

// aggregateSecondary sums the per-channel series into one combined series,
// bucketed to the minute. Within a bucket each channel contributes its most
// recent sample.
func aggregateSecondary(series map[string][]Sample) []Sample {
	type bucketKey int64
	buckets := make(map[bucketKey]map[string]int)
	for channelID, samples := range series {
		for _, s := range samples {
			key := bucketKey(s.Timestamp.Truncate(time.Minute).Unix())
			if buckets[key] == nil {
				buckets[key] = make(map[string]int)
			}
			buckets[key][channelID] = s.Viewers
		}
	}
	out := make([]Sample, 0, len(buckets))
	for key, perChannel := range buckets {
		total := 0
		for _, v := range perChannel {
			total += v
		}
		out = append(out, Sample{Timestamp: time.Unix(int64(key), 0), Viewers: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// calcMonthlyStats totals broadcast activity inside the half-open window
// [windowStart, windowEnd). For each record only the overlapping span
// counts, and a calendar day is active if any overlap second falls on it;
// the day of the instant one second before overlap end is the last day a
// record can contribute.
func calcMonthlyStats(history []HistoryRecord, windowStart, windowEnd time.Time) (activeDays int, totalSeconds float64) {
	ws := float64(windowStart.Unix())
	we := float64(windowEnd.Unix())
	days := make(map[string]struct{})
	for _, rec := range history {
		start := math.Max(rec.StartedAt, ws)
		end := math.Min(rec.EndedAt, we)
		if end <= start {
			continue
		}
		totalSeconds += end - start
		first := localDate(start)
		last := localDate(end - 1)
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			days[d.Format("2006-01-02")] = struct{}{}
		}
	}
	return len(days), totalSeconds
}

func localDate(unixSec float64) time.Time {
	t := time.Unix(int64(unixSec), 0).Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
