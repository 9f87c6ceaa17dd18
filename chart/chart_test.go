package chart

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkobayashi/stream-herald/monitor"
)

func samplesAt(base time.Time, viewers ...int) []monitor.Sample {
	out := make([]monitor.Sample, len(viewers))
	for i, v := range viewers {
		out[i] = monitor.Sample{Timestamp: base.Add(time.Duration(i) * time.Minute), Viewers: v}
	}
	return out
}

func TestRenderSessionChart(t *testing.T) {
	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "chart.png")

	err := Renderer{}.RenderSessionChart(path, []monitor.Series{
		{Label: "[Twitch]somechan", Samples: samplesAt(base, 100, 150, 120, 180)},
		{Label: "[YouTube]Main Channel", Samples: samplesAt(base, 30, 40, 35, 50)},
	})
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("chart file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("chart file is empty")
	}
}

func TestRenderSessionChartSkipsEmptySeries(t *testing.T) {
	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "chart.png")
	err := Renderer{}.RenderSessionChart(path, []monitor.Series{
		{Label: "[Twitch]somechan", Samples: samplesAt(base, 10, 20)},
		{Label: "[YouTube]quiet", Samples: nil},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRenderSessionChartPlaceholderWithoutData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.png")
	if err := (Renderer{}).RenderSessionChart(path, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("placeholder chart missing: %v", err)
	}
}
