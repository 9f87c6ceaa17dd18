package monitor

import (
	"sync"
	"time"
)

// Sample is one viewer-count observation.
type Sample struct {
	Timestamp time.Time
	Viewers   int
}

// Series is a labeled sample sequence handed to the chart renderer.
type Series struct {
	Label   string
	Samples []Sample
}

// Ring is a bounded sample buffer that evicts the oldest entry when full.
type Ring struct {
	buf []Sample
	cap int
}

// NewRing builds a ring holding at most capacity samples.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{cap: capacity}
}

// Append records a sample, evicting the oldest if the ring is full.
func (r *Ring) Append(s Sample) {
	if len(r.buf) == r.cap {
		copy(r.buf, r.buf[1:])
		r.buf[len(r.buf)-1] = s
		return
	}
	r.buf = append(r.buf, s)
}

// Len reports the number of buffered samples.
func (r *Ring) Len() int { return len(r.buf) }

// Samples returns a copy of the buffered samples, oldest first.
func (r *Ring) Samples() []Sample {
	return append([]Sample(nil), r.buf...)
}

// channelSession tracks one secondary-platform broadcast. A changed video ID
// on the same channel starts a fresh one; the stale samples belong to the
// previous video and are discarded with it.
type channelSession struct {
	videoID   string
	title     string
	startedAt time.Time
	samples   *Ring
}

// session tracks one live broadcast from the first poll that sees it until
// the poll that sees it gone or replaced.
type session struct {
	id        string
	startedAt time.Time
	title     string

	mu             sync.Mutex
	primary        *Ring
	secondary      map[string]*channelSession // keyed by channel ID
	secondaryOrder []string                   // insertion order, for stable chart series
	secondaryCap   int
}

func newSession(id string, startedAt time.Time, title string, sampleCap, secondaryCap int) *session {
	return &session{
		id:           id,
		startedAt:    startedAt,
		title:        title,
		primary:      NewRing(sampleCap),
		secondary:    make(map[string]*channelSession),
		secondaryCap: secondaryCap,
	}
}

func (s *session) appendPrimary(sm Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary.Append(sm)
}

// observeSecondary appends a sample to the channel's current broadcast,
// starting or replacing the per-channel session when the video ID is new.
func (s *session) observeSecondary(channelID string, stream *ChannelStream, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.secondary[channelID]
	if !ok || cs.videoID != stream.VideoID {
		cs = &channelSession{
			videoID:   stream.VideoID,
			title:     stream.Title,
			startedAt: stream.StartedAt,
			samples:   NewRing(s.secondaryCap),
		}
		if !ok {
			s.secondaryOrder = append(s.secondaryOrder, channelID)
		}
		s.secondary[channelID] = cs
	} else {
		// Broadcasts can be retitled mid-stream; keep the latest metadata.
		cs.title = stream.Title
		cs.startedAt = stream.StartedAt
	}
	cs.samples.Append(Sample{Timestamp: at, Viewers: stream.Viewers})
}

func (s *session) primarySamples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primary.Samples()
}

func (s *session) secondarySamples() map[string][]Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]Sample, len(s.secondary))
	for id, cs := range s.secondary {
		out[id] = cs.samples.Samples()
	}
	return out
}

// secondarySeries returns one labeled series per non-empty channel session,
// in the order the channels were first observed.
func (s *session) secondarySeries() []Series {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Series
	for _, id := range s.secondaryOrder {
		cs := s.secondary[id]
		if cs == nil || cs.samples.Len() == 0 {
			continue
		}
		label := cs.title
		if label == "" {
			label = id
		}
		out = append(out, Series{Label: "[YouTube]" + label, Samples: cs.samples.Samples()})
	}
	return out
}
