// Package chart renders viewer-trend line charts for finished sessions.
package chart

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mkobayashi/stream-herald/monitor"
)

// palette cycles across series lines.
var palette = []color.RGBA{
	{R: 0x91, G: 0x46, B: 0xff, A: 0xff}, // twitch purple
	{R: 0xff, G: 0x00, B: 0x00, A: 0xff}, // youtube red
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
}

// Renderer draws session charts as PNG files.
type Renderer struct{}

// RenderSessionChart writes one line per labeled series to path. With no
// data at all it still writes a placeholder chart rather than failing the
// summary. Labels pass through as given, but axis text is English; the
// bundled plot fonts have no CJK glyphs.
func (Renderer) RenderSessionChart(path string, series []monitor.Series) error {
	p := plot.New()
	p.Title.Text = "Concurrent Viewers"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Viewers"
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04"}
	p.Y.Min = 0

	drawn := 0
	for _, s := range series {
		if len(s.Samples) == 0 {
			continue
		}
		line, err := plotter.NewLine(toXYs(s.Samples))
		if err != nil {
			return fmt.Errorf("build series %q: %w", s.Label, err)
		}
		line.Color = palette[drawn%len(palette)]
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Label, line)
		drawn++
	}
	if drawn == 0 {
		p.Title.Text = "Concurrent Viewers (no data)"
	}
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

func toXYs(samples []monitor.Sample) plotter.XYs {
	xys := make(plotter.XYs, len(samples))
	for i, s := range samples {
		xys[i].X = float64(s.Timestamp.Unix())
		xys[i].Y = float64(s.Viewers)
	}
	return xys
}
