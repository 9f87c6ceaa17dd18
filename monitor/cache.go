package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

const (
	upcomingCacheFile = "youtube_upcoming_cache.json"
	historyFile       = "twitch_stream_history.json"
	monthlyCacheFile  = "monthly_stats_cache.json"
)

// HistoryRecord is one finished broadcast, persisted as unix-second
// timestamps so the on-disk format stays plain JSON numbers.
type HistoryRecord struct {
	StreamID  string  `json:"stream_id"`
	StartedAt float64 `json:"started_at"`
	EndedAt   float64 `json:"ended_at"`
}

// Store persists the monitor's state as JSON snapshot files in Dir. Each
// save rewrites the file wholesale; a missing or unreadable file loads as
// empty rather than failing startup.
type Store struct {
	Dir string
}

func (s *Store) path(name string) string { return filepath.Join(s.Dir, name) }

func (s *Store) loadJSON(name string, v any) bool {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read cache file", slog.String("file", name), slog.Any("err", err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("corrupt cache file; starting empty", slog.String("file", name), slog.Any("err", err))
		return false
	}
	return true
}

func (s *Store) saveJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(s.path(name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// LoadUpcoming returns the set of video IDs already announced.
func (s *Store) LoadUpcoming() map[string]bool {
	var ids []string
	s.loadJSON(upcomingCacheFile, &ids)
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// SaveUpcoming rewrites the announced-video set.
func (s *Store) SaveUpcoming(set map[string]bool) error {
	return s.saveJSON(upcomingCacheFile, sortedKeys(set))
}

// LoadHistory returns past broadcasts, dropping entries that are missing an
// ID or whose end does not follow their start.
func (s *Store) LoadHistory() []HistoryRecord {
	var raw []HistoryRecord
	s.loadJSON(historyFile, &raw)
	records := raw[:0]
	for _, rec := range raw {
		if rec.StreamID == "" || rec.EndedAt <= rec.StartedAt {
			slog.Warn("dropping malformed history record", slog.String("stream_id", rec.StreamID))
			continue
		}
		records = append(records, rec)
	}
	return records
}

// SaveHistory rewrites the broadcast history.
func (s *Store) SaveHistory(records []HistoryRecord) error {
	if records == nil {
		records = []HistoryRecord{}
	}
	return s.saveJSON(historyFile, records)
}

// LoadMonthly returns the set of months ("2006-01") whose stats were posted.
func (s *Store) LoadMonthly() map[string]bool {
	var months []string
	s.loadJSON(monthlyCacheFile, &months)
	set := make(map[string]bool, len(months))
	for _, m := range months {
		set[m] = true
	}
	return set
}

// SaveMonthly rewrites the posted-months set.
func (s *Store) SaveMonthly(set map[string]bool) error {
	return s.saveJSON(monthlyCacheFile, sortedKeys(set))
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
