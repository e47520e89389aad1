package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/user/netmon/internal/model"
)

// LatencyChart creates a Mermaid xychart of successful probe latencies,
// oldest first. It returns "" when there is nothing to plot.
func LatencyChart(entries []model.LogEntry) string {
	var values []string
	for i := len(entries) - 1; i >= 0; i-- {
		p := entries[i].Ping
		if p == nil || p.IsFailure() {
			continue
		}
		values = append(values, fmt.Sprintf("%.2f", p.AvgLatencyMs))
	}
	if len(values) == 0 {
		return ""
	}
	return xyChart("Latency", "ms", map[string][]string{"line": values})
}

// BandwidthChart creates a Mermaid xychart with download bars and an upload
// line, oldest first.
func BandwidthChart(entries []model.LogEntry) string {
	var down, up []string
	for i := len(entries) - 1; i >= 0; i-- {
		b := entries[i].Bandwidth
		if b == nil {
			continue
		}
		down = append(down, fmt.Sprintf("%.2f", b.DownloadMbps))
		up = append(up, fmt.Sprintf("%.2f", b.UploadMbps))
	}
	if len(down) == 0 {
		return ""
	}
	return xyChart("Bandwidth", "Mbps", map[string][]string{"bar": down, "line": up})
}

func xyChart(title, unit string, series map[string][]string) string {
	var sb strings.Builder

	n := 0
	for _, v := range series {
		n = max(n, len(v))
	}
	ticks := make([]string, n)
	for i := range ticks {
		ticks[i] = fmt.Sprint(i + 1)
	}

	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	fmt.Fprintf(&sb, "    title %q\n", title)
	fmt.Fprintf(&sb, "    x-axis [%s]\n", strings.Join(ticks, ", "))
	fmt.Fprintf(&sb, "    y-axis %q\n", unit)
	for _, kind := range []string{"bar", "line"} {
		if v, ok := series[kind]; ok {
			fmt.Fprintf(&sb, "    %s [%s]\n", kind, strings.Join(v, ", "))
		}
	}
	sb.WriteString("```\n\n")

	return sb.String()
}

// UptimePie creates a Mermaid pie of online versus offline checks.
func UptimePie(s UptimeSummary) string {
	if s.Count == 0 {
		return ""
	}
	return pie("Uptime", [][2]string{
		{string(model.StatusOnline), fmt.Sprint(s.Online)},
		{string(model.StatusOffline), fmt.Sprint(s.Count - s.Online)},
	})
}

// FailurePie creates a Mermaid pie of probe failures by reason.
func FailurePie(s PingSummary) string {
	if s.Failures == 0 {
		return ""
	}

	reasons := make([]string, 0, len(s.ByReason))
	for r := range s.ByReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)

	slices := make([][2]string, 0, len(reasons)+1)
	if ok := s.Count - s.Failures; ok > 0 {
		slices = append(slices, [2]string{"ok", fmt.Sprint(ok)})
	}
	for _, r := range reasons {
		slices = append(slices, [2]string{r, fmt.Sprint(s.ByReason[model.FailureReason(r)])})
	}
	return pie("Probe outcomes", slices)
}

func pie(title string, slices [][2]string) string {
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	fmt.Fprintf(&sb, "pie title %s\n", title)
	for _, s := range slices {
		fmt.Fprintf(&sb, "    %q : %s\n", s[0], s[1])
	}
	sb.WriteString("```\n\n")
	return sb.String()
}
