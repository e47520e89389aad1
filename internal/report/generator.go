// Package report summarizes a user's measurement log.
package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/storage"
)

// Generator creates measurement reports from the log store.
type Generator struct {
	store storage.Store
}

// NewGenerator creates a new report generator.
func NewGenerator(store storage.Store) *Generator {
	return &Generator{store: store}
}

// ReportData holds all data for a report.
type ReportData struct {
	GeneratedAt time.Time
	UserID      int64

	Ping      PingSummary
	Uptime    UptimeSummary
	Bandwidth BandwidthSummary

	// Newest first, as returned by the store.
	Pings      []model.LogEntry
	Uptimes    []model.LogEntry
	Bandwidths []model.LogEntry
}

// PingSummary aggregates latency probes. Latency figures ignore failures.
type PingSummary struct {
	Count         int
	Failures      int
	AvgLatencyMs  float64
	P95LatencyMs  float64
	AvgPacketLoss float64
	ByReason      map[model.FailureReason]int
}

// UptimeSummary aggregates uptime checks.
type UptimeSummary struct {
	Count  int
	Online int
}

// Ratio returns the fraction of checks that were online.
func (u UptimeSummary) Ratio() float64 {
	if u.Count == 0 {
		return 0
	}
	return float64(u.Online) / float64(u.Count)
}

// BandwidthSummary aggregates bandwidth samples.
type BandwidthSummary struct {
	Count           int
	AvgDownloadMbps float64
	AvgUploadMbps   float64
	MinDownloadMbps float64
	MaxDownloadMbps float64
}

// Generate builds a report over the user's recent entries of every kind.
// opts.Limit is capped at each kind's display window; zero uses the whole window.
func (g *Generator) Generate(ctx context.Context, opts model.ReportOptions) (*ReportData, error) {
	if opts.UserID <= 0 {
		return nil, fmt.Errorf("%w: user id %d", model.ErrInvalidEntry, opts.UserID)
	}

	data := &ReportData{
		GeneratedAt: time.Now(),
		UserID:      opts.UserID,
	}

	var err error
	if data.Pings, err = g.store.Recent(ctx, model.KindPing, opts.UserID, opts.Limit); err != nil {
		return nil, fmt.Errorf("failed to get ping logs: %w", err)
	}
	if data.Uptimes, err = g.store.Recent(ctx, model.KindUptime, opts.UserID, opts.Limit); err != nil {
		return nil, fmt.Errorf("failed to get uptime logs: %w", err)
	}
	if data.Bandwidths, err = g.store.Recent(ctx, model.KindBandwidth, opts.UserID, opts.Limit); err != nil {
		return nil, fmt.Errorf("failed to get bandwidth logs: %w", err)
	}

	data.Ping = summarizePings(data.Pings)
	data.Uptime = summarizeUptime(data.Uptimes)
	data.Bandwidth = summarizeBandwidth(data.Bandwidths)

	return data, nil
}

func summarizePings(entries []model.LogEntry) PingSummary {
	s := PingSummary{ByReason: make(map[model.FailureReason]int)}
	var latencies []float64
	var loss float64

	for _, e := range entries {
		if e.Ping == nil {
			continue
		}
		s.Count++
		if e.Ping.IsFailure() {
			s.Failures++
			s.ByReason[e.Ping.Failure]++
			continue
		}
		latencies = append(latencies, e.Ping.AvgLatencyMs)
		loss += e.Ping.PacketLossPct
	}

	if len(latencies) > 0 {
		s.AvgLatencyMs = round2(mean(latencies))
		s.P95LatencyMs = round2(percentile(latencies, 95))
		s.AvgPacketLoss = round2(loss / float64(len(latencies)))
	}
	return s
}

func summarizeUptime(entries []model.LogEntry) UptimeSummary {
	var s UptimeSummary
	for _, e := range entries {
		if e.Uptime == nil {
			continue
		}
		s.Count++
		if e.Uptime.Status == model.StatusOnline {
			s.Online++
		}
	}
	return s
}

func summarizeBandwidth(entries []model.LogEntry) BandwidthSummary {
	var s BandwidthSummary
	var down, up []float64
	for _, e := range entries {
		if e.Bandwidth == nil {
			continue
		}
		down = append(down, e.Bandwidth.DownloadMbps)
		up = append(up, e.Bandwidth.UploadMbps)
	}
	s.Count = len(down)
	if s.Count == 0 {
		return s
	}

	s.AvgDownloadMbps = round2(mean(down))
	s.AvgUploadMbps = round2(mean(up))
	s.MinDownloadMbps, s.MaxDownloadMbps = down[0], down[0]
	for _, d := range down[1:] {
		s.MinDownloadMbps = math.Min(s.MinDownloadMbps, d)
		s.MaxDownloadMbps = math.Max(s.MaxDownloadMbps, d)
	}
	return s
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// percentile uses the nearest-rank method.
func percentile(xs []float64, p float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatMarkdown renders a report as markdown.
func FormatMarkdown(data *ReportData) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# netmon report for user %d\n\n", data.UserID)
	fmt.Fprintf(&sb, "Generated: %s\n\n", data.GeneratedAt.Format("2006-01-02 15:04:05"))

	sb.WriteString("## Latency\n\n")
	if data.Ping.Count == 0 {
		sb.WriteString("No ping logs.\n\n")
	} else {
		sb.WriteString("| Probes | Failures | Avg latency | p95 latency | Avg loss |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		fmt.Fprintf(&sb, "| %d | %d | %.2f ms | %.2f ms | %.1f%% |\n\n",
			data.Ping.Count, data.Ping.Failures,
			data.Ping.AvgLatencyMs, data.Ping.P95LatencyMs, data.Ping.AvgPacketLoss)
		sb.WriteString(LatencyChart(data.Pings))
		sb.WriteString(FailurePie(data.Ping))
		sb.WriteString(pingTable(data.Pings))
	}

	sb.WriteString("## Uptime\n\n")
	if data.Uptime.Count == 0 {
		sb.WriteString("No uptime logs.\n\n")
	} else {
		fmt.Fprintf(&sb, "%d of %d checks online (%.0f%%).\n\n",
			data.Uptime.Online, data.Uptime.Count, data.Uptime.Ratio()*100)
		sb.WriteString(UptimePie(data.Uptime))
		sb.WriteString("| Time | URL | Status |\n|---|---|---|\n")
		for _, e := range data.Uptimes {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", e.Timestamp.Format(time.DateTime), e.Uptime.URL, e.Uptime.Status)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Bandwidth\n\n")
	if data.Bandwidth.Count == 0 {
		sb.WriteString("No bandwidth logs.\n\n")
	} else {
		fmt.Fprintf(&sb, "Average %.2f Mbps down / %.2f Mbps up over %d samples (download range %.2f to %.2f Mbps).\n\n",
			data.Bandwidth.AvgDownloadMbps, data.Bandwidth.AvgUploadMbps, data.Bandwidth.Count,
			data.Bandwidth.MinDownloadMbps, data.Bandwidth.MaxDownloadMbps)
		sb.WriteString(BandwidthChart(data.Bandwidths))
	}

	return sb.String()
}

func pingTable(entries []model.LogEntry) string {
	var sb strings.Builder
	sb.WriteString("| Time | Target | Latency | Loss | Failure |\n|---|---|---|---|---|\n")
	for _, e := range entries {
		p := e.Ping
		fmt.Fprintf(&sb, "| %s | %s | %.2f ms | %.1f%% | %s |\n",
			e.Timestamp.Format(time.DateTime), p.Target, p.AvgLatencyMs, p.PacketLossPct, p.Failure)
	}
	sb.WriteString("\n")
	return sb.String()
}
