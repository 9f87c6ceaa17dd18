package monitor

import (
	"testing"
	"time"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 1; i <= 5; i++ {
		r.Append(Sample{Viewers: i})
	}
	got := r.Samples()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []int{3, 4, 5} {
		if got[i].Viewers != want {
			t.Errorf("got[%d] = %d, want %d", i, got[i].Viewers, want)
		}
	}
}

func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing(0)
	r.Append(Sample{Viewers: 1})
	r.Append(Sample{Viewers: 2})
	if got := r.Samples(); len(got) != 1 || got[0].Viewers != 2 {
		t.Errorf("Samples = %v, want just the newest", got)
	}
}

func TestRingSamplesIsACopy(t *testing.T) {
	r := NewRing(3)
	r.Append(Sample{Viewers: 1})
	got := r.Samples()
	got[0].Viewers = 99
	if r.Samples()[0].Viewers != 1 {
		t.Error("Samples aliases the internal buffer")
	}
}

func TestSessionSecondaryRingsPerChannel(t *testing.T) {
	s := newSession("id", time.Now(), "title", 10, 2)
	now := time.Now()
	for i := 1; i <= 3; i++ {
		s.observeSecondary("a", &ChannelStream{ChannelID: "a", VideoID: "v1", Title: "Chan A", Viewers: i}, now)
	}
	s.observeSecondary("b", &ChannelStream{ChannelID: "b", VideoID: "v9", Viewers: 9}, now)

	got := s.secondarySamples()
	if len(got["a"]) != 2 || got["a"][0].Viewers != 2 {
		t.Errorf("channel a = %v, want capped at 2 oldest-evicted", got["a"])
	}
	if len(got["b"]) != 1 {
		t.Errorf("channel b = %v", got["b"])
	}
}

func TestSessionSecondaryReplacedOnNewVideo(t *testing.T) {
	s := newSession("id", time.Now(), "title", 10, 10)
	now := time.Now()
	s.observeSecondary("a", &ChannelStream{ChannelID: "a", VideoID: "v1", Title: "First", Viewers: 5}, now)
	s.observeSecondary("a", &ChannelStream{ChannelID: "a", VideoID: "v2", Title: "Second", Viewers: 7}, now)

	got := s.secondarySamples()
	if len(got["a"]) != 1 || got["a"][0].Viewers != 7 {
		t.Errorf("channel a = %v, want only the new video's sample", got["a"])
	}
	series := s.secondarySeries()
	if len(series) != 1 || series[0].Label != "[YouTube]Second" {
		t.Errorf("series = %v", series)
	}
}

func TestSessionSecondaryTitleRefreshedOnSameVideo(t *testing.T) {
	s := newSession("id", time.Now(), "title", 10, 10)
	now := time.Now()
	s.observeSecondary("a", &ChannelStream{ChannelID: "a", VideoID: "v1", Title: "Before", Viewers: 5}, now)
	s.observeSecondary("a", &ChannelStream{ChannelID: "a", VideoID: "v1", Title: "After", Viewers: 6}, now)

	series := s.secondarySeries()
	if len(series) != 1 || series[0].Label != "[YouTube]After" {
		t.Errorf("series = %v, want retitled label", series)
	}
	if len(series[0].Samples) != 2 {
		t.Errorf("samples = %v, want both kept", series[0].Samples)
	}
}

func TestSessionSecondarySeriesOrderAndLabels(t *testing.T) {
	s := newSession("id", time.Now(), "title", 10, 10)
	now := time.Now()
	s.observeSecondary("b", &ChannelStream{ChannelID: "b", VideoID: "v1", Title: "Bee"}, now)
	s.observeSecondary("a", &ChannelStream{ChannelID: "a", VideoID: "v2"}, now)

	series := s.secondarySeries()
	if len(series) != 2 {
		t.Fatalf("series = %v", series)
	}
	if series[0].Label != "[YouTube]Bee" {
		t.Errorf("series[0] = %q, want first-observed channel first", series[0].Label)
	}
	// Untitled channels fall back to the channel ID.
	if series[1].Label != "[YouTube]a" {
		t.Errorf("series[1] = %q", series[1].Label)
	}
}
