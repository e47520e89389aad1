// Package tui provides a terminal dashboard over the measurement log.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/monitor"
	"github.com/user/netmon/internal/util"
)

const actionTimeout = 30 * time.Second

// App is the main TUI application.
type App struct {
	svc    *monitor.Service
	config *util.Config
	userID int64
}

// NewApp creates a new TUI application for userID.
func NewApp(svc *monitor.Service, cfg *util.Config, userID int64) *App {
	return &App{
		svc:    svc,
		config: cfg,
		userID: userID,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(newAppModel(a.svc, a.config, a.userID), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type appModel struct {
	svc       *monitor.Service
	config    *util.Config
	userID    int64
	dashboard *Dashboard
	spinner   spinner.Model
	busy      bool
	width     int
	height    int
	err       error
}

func newAppModel(svc *monitor.Service, cfg *util.Config, userID int64) appModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Primary)

	return appModel{
		svc:     svc,
		config:  cfg,
		userID:  userID,
		spinner: s,
	}
}

// Init initializes the model.
func (m appModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		loadData(m.svc, m.userID),
		scanDevices(m.svc),
	)
}

// Update handles messages.
func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.dashboard == nil || m.busy {
			return m, nil
		}
		switch msg.String() {
		case "r":
			return m, loadData(m.svc, m.userID)
		case "tab":
			m.dashboard.NextKind()
		case "s":
			m.dashboard.data.Scanned = false
			return m, scanDevices(m.svc)
		case "p", "u", "b":
			m.busy = true
			m.dashboard.SetNote(m.spinner.View() + " measuring...")
			return m, measure(m.svc, m.config, m.userID, msg.String())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.dashboard != nil {
			m.dashboard.SetSize(msg.Width, msg.Height)
		}

	case dataMsg:
		if m.dashboard == nil {
			m.dashboard = NewDashboard(msg.Data, m.width, m.height)
		} else {
			m.dashboard.SetData(msg.Data)
		}

	case devicesMsg:
		if m.dashboard != nil {
			m.dashboard.SetDevices(msg.Devices)
		}

	case actionMsg:
		m.busy = false
		if m.dashboard != nil {
			if msg.err != nil {
				m.dashboard.SetNote(ErrorStyle.Render(msg.err.Error()))
			} else {
				m.dashboard.SetNote(SuccessStyle.Render(msg.note))
			}
		}
		return m, loadData(m.svc, m.userID)

	case errMsg:
		m.err = msg.err

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the UI.
func (m appModel) View() string {
	if m.err != nil {
		return ErrorStyle.Render("Error: " + m.err.Error())
	}

	if m.dashboard == nil {
		return LoadingStyle.Render(m.spinner.View() + " Loading...")
	}

	return m.dashboard.View()
}

type dataMsg struct {
	Data *DashboardData
}

type devicesMsg struct {
	Devices []model.Device
}

type actionMsg struct {
	note string
	err  error
}

type errMsg struct {
	err error
}

func loadData(svc *monitor.Service, userID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		data, err := fetchDashboardData(ctx, svc, userID)
		if err != nil {
			return errMsg{err}
		}
		return dataMsg{Data: data}
	}
}

func scanDevices(svc *monitor.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return devicesMsg{Devices: svc.ScanDevices(ctx)}
	}
}

// measure runs one logged measurement for the key pressed.
func measure(svc *monitor.Service, cfg *util.Config, userID int64, key string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		switch key {
		case "p":
			target := firstOr(cfg.WatchPingTargets, "google.com")
			r, err := svc.ProbeLatency(ctx, target, userID)
			if r.IsFailure() {
				return actionMsg{note: fmt.Sprintf("ping %s failed: %s", target, r.Failure), err: err}
			}
			return actionMsg{note: fmt.Sprintf("ping %s: %.2f ms, %.1f%% loss", target, r.AvgLatencyMs, r.PacketLossPct), err: err}
		case "u":
			url := firstOr(cfg.WatchUptimeURLs, "google.com")
			r, err := svc.CheckUptime(ctx, url, userID)
			return actionMsg{note: fmt.Sprintf("%s is %s", r.URL, r.Status), err: err}
		default:
			s, err := svc.SampleBandwidth(ctx, userID)
			return actionMsg{note: fmt.Sprintf("%.2f Mbps down / %.2f Mbps up", s.DownloadMbps, s.UploadMbps), err: err}
		}
	}
}

func firstOr(values []string, def string) string {
	if len(values) > 0 {
		return values[0]
	}
	return def
}

func fetchDashboardData(ctx context.Context, svc *monitor.Service, userID int64) (*DashboardData, error) {
	data := &DashboardData{
		UserID:    userID,
		Identity:  svc.Identity(ctx),
		Logs:      make(map[model.Kind][]model.LogEntry, len(model.Kinds)),
		UpdatedAt: time.Now(),
	}

	for _, kind := range model.Kinds {
		entries, err := svc.RecentLogs(ctx, kind, userID)
		if err != nil {
			return nil, err
		}
		data.Logs[kind] = entries
	}

	return data, nil
}
