// Package monitor polls the watched Twitch channel, tracks live sessions,
// announces scheduled YouTube streams, and posts summaries and monthly
// statistics when sessions and months end.
package monitor

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkobayashi/stream-herald/post"
	"github.com/mkobayashi/stream-herald/telemetry"
	"github.com/mkobayashi/stream-herald/twitchapi"
)

const historyRetention = 400 * 24 * time.Hour

// ChannelStream is a live broadcast observed on a secondary platform.
type ChannelStream struct {
	ChannelID string
	VideoID   string
	Title     string
	Viewers   int
	StartedAt time.Time
}

// Upcoming is a scheduled broadcast on a secondary platform.
type Upcoming struct {
	VideoID        string
	Title          string
	ChannelTitle   string
	URL            string
	ScheduledStart time.Time
}

// PrimaryFetcher reports the watched channel's live state. A nil stream with
// a nil error means the channel is offline.
type PrimaryFetcher interface {
	GetStream(ctx context.Context, login string) (*twitchapi.StreamInfo, error)
}

// SecondaryFetcher reports live and scheduled broadcasts per channel.
type SecondaryFetcher interface {
	FetchLive(ctx context.Context, channelID string) (*ChannelStream, error)
	FetchUpcoming(ctx context.Context, channelID string) (*Upcoming, error)
}

// Renderer draws a session's viewer trend chart to a PNG file, one labeled
// line per series.
type Renderer interface {
	RenderSessionChart(path string, series []Series) error
}

// Sink receives composed posts for publishing.
type Sink interface {
	EnqueueText(text string)
	EnqueueMedia(text, mediaPath, cleanupPath string)
}

// Monitor is the poll-driven session tracker. Construct with New and drive
// it with Run.
type Monitor struct {
	login        string
	primary      PrimaryFetcher
	secondary    SecondaryFetcher // nil disables the secondary platform
	channelIDs   []string
	renderer     Renderer
	sink         Sink
	store        *Store
	pollInterval time.Duration
	sampleCap    int

	secondaryInterval time.Duration
	secondaryCap      int
	upcomingInterval  time.Duration
	chartDir          string

	now func() time.Time

	mu             sync.Mutex
	session        *session
	lastSecondary  time.Time
	lastUpcoming   time.Time
	upcomingPosted map[string]bool
	monthlyPosted  map[string]bool
	history        []HistoryRecord
}

// Options configures a Monitor.
type Options struct {
	Login             string
	Primary           PrimaryFetcher
	Secondary         SecondaryFetcher
	ChannelIDs        []string
	Renderer          Renderer
	Sink              Sink
	Store             *Store
	PollInterval      time.Duration
	SampleCap         int
	SecondaryInterval time.Duration
	SecondaryCap      int
	UpcomingInterval  time.Duration
	ChartDir          string
}

// New builds a Monitor and loads its persisted state.
func New(opts Options) *Monitor {
	m := &Monitor{
		login:             opts.Login,
		primary:           opts.Primary,
		secondary:         opts.Secondary,
		channelIDs:        opts.ChannelIDs,
		renderer:          opts.Renderer,
		sink:              opts.Sink,
		store:             opts.Store,
		pollInterval:      opts.PollInterval,
		sampleCap:         opts.SampleCap,
		secondaryInterval: opts.SecondaryInterval,
		secondaryCap:      opts.SecondaryCap,
		upcomingInterval:  opts.UpcomingInterval,
		chartDir:          opts.ChartDir,
		now:               time.Now,
	}
	m.upcomingPosted = m.store.LoadUpcoming()
	m.monthlyPosted = m.store.LoadMonthly()
	m.history = m.store.LoadHistory()
	return m
}

// tickInterval is the poll loop's sleep: the primary interval, shortened to
// the secondary live and upcoming intervals when those platforms are on.
func (m *Monitor) tickInterval() time.Duration {
	tick := m.pollInterval
	if m.secondary != nil {
		if m.secondaryInterval > 0 && m.secondaryInterval < tick {
			tick = m.secondaryInterval
		}
		if m.upcomingInterval > 0 && m.upcomingInterval < tick {
			tick = m.upcomingInterval
		}
	}
	return tick
}

// Run polls until ctx is cancelled. A session still live at shutdown is
// summarized before Run returns so its samples are not lost.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tickInterval())
	defer ticker.Stop()
	for {
		m.pollOnce(ctx)
		select {
		case <-ctx.Done():
			m.flush(context.WithoutCancel(ctx))
			slog.Info("stream monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) pollOnce(ctx context.Context) {
	if telemetry.PollCycles != nil {
		telemetry.PollCycles.Inc()
	}

	stream, err := m.primary.GetStream(ctx, m.login)

	if m.secondary != nil {
		m.announceUpcoming(ctx)
	}
	m.maybePostMonthlyStats()

	if err != nil {
		slog.Error("stream lookup failed", slog.Any("err", err))
	} else if stream != nil {
		m.handleLive(ctx, stream)
	} else {
		m.handleOffline(ctx)
	}
	if m.secondary != nil {
		m.sampleSecondary(ctx)
	}
}

// handleLive appends a sample to the current session, creating one first if
// the channel just went live. A changed stream ID means the previous
// broadcast ended unseen; its summary is published before the new session
// accepts its first sample.
func (m *Monitor) handleLive(ctx context.Context, stream *twitchapi.StreamInfo) {
	m.mu.Lock()
	old := m.session
	if old != nil && old.id == stream.ID {
		m.mu.Unlock()
		old.appendPrimary(Sample{Timestamp: m.now(), Viewers: stream.ViewerCount})
		return
	}
	m.session = nil
	m.mu.Unlock()

	if old != nil {
		slog.Info("stream restarted; closing previous session", slog.String("old_id", old.id), slog.String("new_id", stream.ID))
		m.finishSession(ctx, old)
	} else {
		slog.Info("stream went live", slog.String("stream_id", stream.ID), slog.String("title", stream.Title))
	}

	s := newSession(stream.ID, stream.StartedAt, stream.Title, m.sampleCap, m.secondaryCap)
	s.appendPrimary(Sample{Timestamp: m.now(), Viewers: stream.ViewerCount})
	m.mu.Lock()
	m.session = s
	m.mu.Unlock()
	telemetry.SetSessionActive(true)
}

func (m *Monitor) handleOffline(ctx context.Context) {
	m.mu.Lock()
	old := m.session
	m.session = nil
	m.mu.Unlock()
	if old == nil {
		return
	}
	slog.Info("stream went offline", slog.String("stream_id", old.id))
	telemetry.SetSessionActive(false)
	m.finishSession(ctx, old)
}

// flush closes a session that is still open at shutdown.
func (m *Monitor) flush(ctx context.Context) {
	m.mu.Lock()
	old := m.session
	m.session = nil
	m.mu.Unlock()
	if old == nil {
		return
	}
	telemetry.SetSessionActive(false)
	m.finishSession(ctx, old)
}

// finishSession records the broadcast in history and enqueues the summary
// post, with a trend chart attached when one can be rendered.
func (m *Monitor) finishSession(ctx context.Context, s *session) {
	ended := m.now()
	m.recordHistory(s, ended)

	primary := s.primarySamples()
	if len(primary) == 0 {
		m.sink.EnqueueText(post.BuildEmptySummaryPost())
		return
	}

	combined := aggregateSecondary(s.secondarySamples())
	pStats := computeViewerStats(primary)
	sStats := computeViewerStats(combined)
	text := post.BuildSummaryPost(ended, post.SummaryStats{
		PrimaryMax:   pStats.Max,
		PrimaryAvg:   pStats.Avg,
		SecondaryMax: sStats.Max,
		SecondaryAvg: sStats.Avg,
		HasSecondary: len(combined) > 0,
	})

	series := append([]Series{{Label: "[Twitch]" + m.login, Samples: primary}}, s.secondarySeries()...)
	chartPath := filepath.Join(m.chartDir, "chart-"+uuid.NewString()+".png")
	if m.renderer != nil {
		if err := m.renderer.RenderSessionChart(chartPath, series); err != nil {
			slog.Error("chart render failed; posting text only", slog.Any("err", err))
			m.sink.EnqueueText(text)
		} else {
			m.sink.EnqueueMedia(text, chartPath, chartPath)
		}
	} else {
		m.sink.EnqueueText(text)
	}
	if telemetry.SummariesPosted != nil {
		telemetry.SummariesPosted.Inc()
	}
}

// recordHistory upserts the session by stream ID, prunes records older than
// the retention window, and rewrites the history snapshot.
func (m *Monitor) recordHistory(s *session, ended time.Time) {
	if !ended.After(s.startedAt) {
		slog.Warn("skipping history record with non-positive duration",
			slog.String("stream_id", s.id), slog.Time("started_at", s.startedAt), slog.Time("ended_at", ended))
		return
	}
	rec := HistoryRecord{
		StreamID:  s.id,
		StartedAt: float64(s.startedAt.Unix()),
		EndedAt:   float64(ended.Unix()),
	}
	m.mu.Lock()
	replaced := false
	for i := range m.history {
		if m.history[i].StreamID == rec.StreamID {
			m.history[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		m.history = append(m.history, rec)
	}
	cutoff := float64(m.now().Add(-historyRetention).Unix())
	kept := m.history[:0]
	for _, r := range m.history {
		if r.EndedAt >= cutoff {
			kept = append(kept, r)
		}
	}
	m.history = kept
	snapshot := append([]HistoryRecord(nil), m.history...)
	m.mu.Unlock()

	if err := m.store.SaveHistory(snapshot); err != nil {
		slog.Error("failed to save stream history", slog.Any("err", err))
	}
}

// sampleSecondary fetches every secondary channel concurrently and appends
// live viewer samples to the current session.
func (m *Monitor) sampleSecondary(ctx context.Context) {
	m.mu.Lock()
	s := m.session
	due := m.now().Sub(m.lastSecondary) >= m.secondaryInterval
	if s != nil && due {
		m.lastSecondary = m.now()
	}
	m.mu.Unlock()
	if s == nil || !due {
		return
	}

	var wg sync.WaitGroup
	for _, channelID := range m.channelIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			stream, err := m.secondary.FetchLive(ctx, id)
			if err != nil {
				slog.Warn("secondary live lookup failed", slog.String("channel_id", id), slog.Any("err", err))
				return
			}
			if stream == nil {
				return
			}
			s.observeSecondary(id, stream, m.now())
		}(channelID)
	}
	wg.Wait()
}

// announceUpcoming posts one announcement per scheduled video, remembered
// across restarts via the upcoming cache.
func (m *Monitor) announceUpcoming(ctx context.Context) {
	m.mu.Lock()
	due := m.now().Sub(m.lastUpcoming) >= m.upcomingInterval
	if due {
		m.lastUpcoming = m.now()
	}
	m.mu.Unlock()
	if !due {
		return
	}

	results := make([]*Upcoming, len(m.channelIDs))
	var wg sync.WaitGroup
	for i, channelID := range m.channelIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			up, err := m.secondary.FetchUpcoming(ctx, id)
			if err != nil {
				slog.Warn("upcoming lookup failed", slog.String("channel_id", id), slog.Any("err", err))
				return
			}
			results[i] = up
		}(i, channelID)
	}
	wg.Wait()

	fired := false
	for _, up := range results {
		now := m.now()
		if up == nil || !up.ScheduledStart.After(now) {
			continue
		}
		m.mu.Lock()
		seen := m.upcomingPosted[up.VideoID]
		if !seen {
			m.upcomingPosted[up.VideoID] = true
		}
		m.mu.Unlock()
		if seen {
			continue
		}
		slog.Info("announcing upcoming stream", slog.String("video_id", up.VideoID))
		m.sink.EnqueueText(post.BuildUpcomingPost(up.ScheduledStart, now, up.ChannelTitle, up.Title, up.URL))
		fired = true
	}
	if fired {
		m.mu.Lock()
		snapshot := make(map[string]bool, len(m.upcomingPosted))
		for k, v := range m.upcomingPosted {
			snapshot[k] = v
		}
		m.mu.Unlock()
		if err := m.store.SaveUpcoming(snapshot); err != nil {
			slog.Error("failed to save upcoming cache", slog.Any("err", err))
		}
	}
}

// maybePostMonthlyStats posts the previous month's totals on the first day
// of each month, once per month.
func (m *Monitor) maybePostMonthlyStats() {
	now := m.now().Local()
	if now.Day() != 1 {
		return
	}
	windowEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	windowStart := windowEnd.AddDate(0, -1, 0)
	key := windowStart.Format("2006-01")

	m.mu.Lock()
	if m.monthlyPosted[key] {
		m.mu.Unlock()
		return
	}
	m.monthlyPosted[key] = true
	history := append([]HistoryRecord(nil), m.history...)
	snapshot := make(map[string]bool, len(m.monthlyPosted))
	for k, v := range m.monthlyPosted {
		snapshot[k] = v
	}
	m.mu.Unlock()

	days, seconds := calcMonthlyStats(history, windowStart, windowEnd)
	prevStart := windowStart.AddDate(0, -1, 0)
	prevDays, prevSeconds := calcMonthlyStats(history, prevStart, windowStart)

	slog.Info("posting monthly stats", slog.String("month", key))
	m.sink.EnqueueText(post.BuildMonthlyStatsPost(windowStart, windowEnd, days, seconds, days-prevDays, seconds-prevSeconds))
	if err := m.store.SaveMonthly(snapshot); err != nil {
		slog.Error("failed to save monthly cache", slog.Any("err", err))
	}
}

// Status reports a live snapshot for the status endpoint.
func (m *Monitor) Status() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := map[string]any{
		"live":          m.session != nil,
		"history_count": len(m.history),
	}
	if m.session != nil {
		st["stream_id"] = m.session.id
		st["started_at"] = m.session.startedAt
		st["samples"] = len(m.session.primarySamples())
	}
	return st
}
