package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/netmon/internal/model"
)

const maxRows = 10

// DashboardData holds data for the dashboard view.
type DashboardData struct {
	UserID    int64
	Identity  model.Identity
	Logs      map[model.Kind][]model.LogEntry
	Devices   []model.Device
	Scanned   bool
	UpdatedAt time.Time
}

// Dashboard is the main dashboard view.
type Dashboard struct {
	data   *DashboardData
	kind   model.Kind
	note   string
	width  int
	height int
}

// NewDashboard creates a new dashboard showing ping logs first.
func NewDashboard(data *DashboardData, width, height int) *Dashboard {
	return &Dashboard{
		data:   data,
		kind:   model.KindPing,
		width:  width,
		height: height,
	}
}

// SetSize updates the dashboard size.
func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// SetData replaces the displayed data, keeping the last device scan.
func (d *Dashboard) SetData(data *DashboardData) {
	if d.data != nil && !data.Scanned {
		data.Devices, data.Scanned = d.data.Devices, d.data.Scanned
	}
	d.data = data
}

// SetDevices records a finished device scan.
func (d *Dashboard) SetDevices(devices []model.Device) {
	d.data.Devices = devices
	d.data.Scanned = true
}

// SetNote sets the one-line status shown above the help text.
func (d *Dashboard) SetNote(note string) {
	d.note = note
}

// NextKind cycles the log tab.
func (d *Dashboard) NextKind() {
	for i, k := range model.Kinds {
		if k == d.kind {
			d.kind = model.Kinds[(i+1)%len(model.Kinds)]
			return
		}
	}
}

// Kind returns the log tab being shown.
func (d *Dashboard) Kind() model.Kind {
	return d.kind
}

// View renders the dashboard.
func (d *Dashboard) View() string {
	var sb strings.Builder

	sb.WriteString(HeaderStyle.Width(max(d.width, 40)).Render(fmt.Sprintf("netmon · user %d", d.data.UserID)))
	sb.WriteString("\n")
	sb.WriteString(d.renderIdentity())
	sb.WriteString("\n")
	sb.WriteString(d.renderLogs())
	sb.WriteString("\n")
	sb.WriteString(d.renderDevices())
	sb.WriteString("\n")

	if d.note != "" {
		sb.WriteString(d.note)
		sb.WriteString("\n")
	}
	sb.WriteString(HelpStyle.Render("tab: switch log · p: ping · u: uptime · b: bandwidth · s: scan · r: refresh · q: quit"))

	return sb.String()
}

func (d *Dashboard) sectionWidth() int {
	return max(d.width-4, 40)
}

func (d *Dashboard) renderIdentity() string {
	id := d.data.Identity
	lines := []string{
		LabelStyle.Render("Public IP:") + " " + RenderStatus(id.PublicIP != model.PublicIPUnavailable, id.PublicIP, id.PublicIP),
		LabelStyle.Render("Local IP:") + " " + ValueStyle.Render(id.LocalIP),
	}
	if id.Country != "" {
		lines = append(lines, LabelStyle.Render("Country:")+" "+ValueStyle.Render(id.Country))
	}
	if id.ASN != 0 {
		lines = append(lines, LabelStyle.Render("ASN:")+" "+ValueStyle.Render(fmt.Sprintf("AS%d %s", id.ASN, id.ASNOrg)))
	}
	lines = append(lines, LabelStyle.Render("Updated:")+" "+DimStyle.Render(d.data.UpdatedAt.Format("15:04:05")))

	return SectionStyle.Width(d.sectionWidth()).Render(
		SectionTitleStyle.Render("Identity") + "\n" + strings.Join(lines, "\n"))
}

func (d *Dashboard) renderTabs() string {
	tabs := make([]string, 0, len(model.Kinds))
	for _, k := range model.Kinds {
		label := fmt.Sprintf("%s (%d)", k, len(d.data.Logs[k]))
		if k == d.kind {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	return strings.Join(tabs, " ")
}

func (d *Dashboard) renderLogs() string {
	entries := d.data.Logs[d.kind]

	var rows []string
	if len(entries) == 0 {
		rows = append(rows, DimStyle.Render(fmt.Sprintf("No %s logs yet", d.kind)))
	} else {
		rows = append(rows, d.logRows(entries)...)
	}

	return SectionStyle.Width(d.sectionWidth()).Render(
		d.renderTabs() + "\n" + strings.Join(rows, "\n"))
}

func (d *Dashboard) logRows(entries []model.LogEntry) []string {
	var rows []string
	shown := entries[:min(len(entries), maxRows)]

	switch d.kind {
	case model.KindPing:
		rows = append(rows, fmt.Sprintf("%-9s %-24s %10s %7s", "Time", "Target", "Latency", "Loss"))
		for _, e := range shown {
			line := fmt.Sprintf("%-9s %-24s %7.2f ms %6.1f%%", clock(e), truncate(e.Ping.Target, 24), e.Ping.AvgLatencyMs, e.Ping.PacketLossPct)
			if e.Ping.IsFailure() {
				line = ErrorStyle.Render(line + " " + string(e.Ping.Failure))
			}
			rows = append(rows, line)
		}

	case model.KindUptime:
		online := 0
		for _, e := range entries {
			if e.Uptime.Status == model.StatusOnline {
				online++
			}
		}
		rows = append(rows, fmt.Sprintf("%s %d/%d online", RenderBar(online, len(entries), 20), online, len(entries)))
		for _, e := range shown {
			ok := e.Uptime.Status == model.StatusOnline
			rows = append(rows, fmt.Sprintf("%-9s %-30s %s", clock(e), truncate(e.Uptime.URL, 30),
				RenderStatus(ok, string(e.Uptime.Status), string(e.Uptime.Status))))
		}

	case model.KindBandwidth:
		rows = append(rows, fmt.Sprintf("%-9s %12s %12s", "Time", "Download", "Upload"))
		for _, e := range shown {
			rows = append(rows, fmt.Sprintf("%-9s %7.2f Mbps %7.2f Mbps", clock(e), e.Bandwidth.DownloadMbps, e.Bandwidth.UploadMbps))
		}
	}

	if len(entries) > len(shown) {
		rows = append(rows, DimStyle.Render(fmt.Sprintf("... and %d more", len(entries)-len(shown))))
	}
	return rows
}

func (d *Dashboard) renderDevices() string {
	title := SectionTitleStyle.Render("Devices")

	if !d.data.Scanned {
		return SectionStyle.Width(d.sectionWidth()).Render(title + "\n" + DimStyle.Render("Scanning..."))
	}
	if len(d.data.Devices) == 0 {
		return SectionStyle.Width(d.sectionWidth()).Render(title + "\n" + DimStyle.Render("No devices answered"))
	}

	rows := []string{fmt.Sprintf("%-16s %s", "IP", "MAC")}
	for _, dev := range d.data.Devices[:min(len(d.data.Devices), maxRows)] {
		rows = append(rows, fmt.Sprintf("%-16s %s", dev.Address, dev.HardwareAddress))
	}
	if n := len(d.data.Devices) - maxRows; n > 0 {
		rows = append(rows, DimStyle.Render(fmt.Sprintf("... and %d more", n)))
	}

	return SectionStyle.Width(d.sectionWidth()).Render(title + "\n" + strings.Join(rows, "\n"))
}

func clock(e model.LogEntry) string {
	return e.Timestamp.Local().Format("15:04:05")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
