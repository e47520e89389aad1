package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/user/netmon/internal/model"
)

// ErrNotEnoughData is returned when no series has two points to draw.
var ErrNotEnoughData = errors.New("not enough data to chart")

var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
}

func lineStyle(i int) chart.Style {
	return chart.Style{
		StrokeColor: palette[i%len(palette)],
		StrokeWidth: 2,
		DotColor:    palette[i%len(palette)],
		DotWidth:    3,
	}
}

// RenderChart writes a PNG time chart of entries of the given kind. Ping
// charts draw one line per target and skip failed probes.
func RenderChart(w io.Writer, kind model.Kind, entries []model.LogEntry) error {
	var (
		series []chart.Series
		unit   string
	)

	switch kind {
	case model.KindPing:
		series, unit = pingSeries(entries), "ms"
	case model.KindBandwidth:
		series, unit = bandwidthSeries(entries), "Mbps"
	default:
		return fmt.Errorf("%w: no chart for %q", model.ErrUnknownKind, kind)
	}
	if len(series) == 0 {
		return ErrNotEnoughData
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("%s (%s)", kind, unit),
		Width:      900,
		Height:     400,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeMinuteValueFormatter},
		YAxis:      chart.YAxis{Name: unit},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render %s chart: %w", kind, err)
	}
	return nil
}

func pingSeries(entries []model.LogEntry) []chart.Series {
	byTarget := make(map[string]*chart.TimeSeries)
	for i := len(entries) - 1; i >= 0; i-- {
		p := entries[i].Ping
		if p == nil || p.IsFailure() {
			continue
		}
		ts, ok := byTarget[p.Target]
		if !ok {
			ts = &chart.TimeSeries{Name: p.Target}
			byTarget[p.Target] = ts
		}
		ts.XValues = append(ts.XValues, entries[i].Timestamp)
		ts.YValues = append(ts.YValues, p.AvgLatencyMs)
	}

	targets := make([]string, 0, len(byTarget))
	for t, ts := range byTarget {
		if len(ts.XValues) >= 2 {
			targets = append(targets, t)
		}
	}
	sort.Strings(targets)

	series := make([]chart.Series, 0, len(targets))
	for i, t := range targets {
		ts := byTarget[t]
		ts.Style = lineStyle(i)
		series = append(series, *ts)
	}
	return series
}

func bandwidthSeries(entries []model.LogEntry) []chart.Series {
	var (
		times    []time.Time
		down, up []float64
	)
	for i := len(entries) - 1; i >= 0; i-- {
		b := entries[i].Bandwidth
		if b == nil {
			continue
		}
		times = append(times, entries[i].Timestamp)
		down = append(down, b.DownloadMbps)
		up = append(up, b.UploadMbps)
	}
	if len(times) < 2 {
		return nil
	}

	return []chart.Series{
		chart.TimeSeries{Name: "Download", XValues: times, YValues: down, Style: lineStyle(0)},
		chart.TimeSeries{Name: "Upload", XValues: times, YValues: up, Style: lineStyle(1)},
	}
}
