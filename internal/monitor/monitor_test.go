package monitor

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/probes"
	"github.com/user/netmon/internal/storage"
)

type fakeProber struct {
	result model.ProbeResult
	calls  int
}

func (f *fakeProber) Probe(ctx context.Context, target string) model.ProbeResult {
	f.calls++
	return f.result
}

func (f *fakeProber) ProbeMany(ctx context.Context, targets []string) []model.ProbeResult {
	out := make([]model.ProbeResult, len(targets))
	for i := range targets {
		out[i] = f.Probe(ctx, targets[i])
	}
	return out
}

type fakeUptime struct{ status model.UptimeStatus }

func (f fakeUptime) Check(ctx context.Context, url string) model.UptimeResult {
	return model.UptimeResult{URL: url, Status: f.status}
}

type fakeScanner struct{ devices []model.Device }

func (f fakeScanner) Scan(ctx context.Context) []model.Device { return f.devices }

type fakeIdentity struct{ id model.Identity }

func (f fakeIdentity) Resolve(ctx context.Context) model.Identity { return f.id }

// brokenStore fails every operation, like a full disk.
type brokenStore struct{}

var errDiskFull = errors.New("database or disk is full")

func (brokenStore) Append(ctx context.Context, e *model.LogEntry) error { return errDiskFull }
func (brokenStore) Recent(ctx context.Context, kind model.Kind, userID int64, limit int) ([]model.LogEntry, error) {
	return nil, errDiskFull
}
func (brokenStore) Close() error { return nil }

func newTestService(t *testing.T, store storage.Store) (*Service, *fakeProber) {
	t.Helper()
	if store == nil {
		db, err := storage.Open(filepath.Join(t.TempDir(), "netmon.db"))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		store = storage.NewSQLiteStore(db)
		t.Cleanup(func() { store.Close() })
	}
	prober := &fakeProber{result: model.ProbeResult{AvgLatencyMs: 12.5}}
	svc := New(Components{
		Store:     store,
		Prober:    prober,
		Uptime:    fakeUptime{status: model.StatusOnline},
		Bandwidth: probes.NewSyntheticSampler(1),
		Scanner:   fakeScanner{devices: []model.Device{{Address: "192.168.1.5", HardwareAddress: "aa:bb:cc:dd:ee:ff"}}},
		Identity:  fakeIdentity{id: model.Identity{PublicIP: model.PublicIPUnavailable, LocalIP: "192.168.1.2"}},
	})
	return svc, prober
}

func TestProbeLatency_Logs(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	got, err := svc.ProbeLatency(ctx, "example.com", 1)
	if err != nil {
		t.Fatalf("ProbeLatency: %v", err)
	}
	if got.AvgLatencyMs != 12.5 {
		t.Fatalf("got=%+v", got)
	}

	logs, err := svc.RecentLogs(ctx, model.KindPing, 1)
	if err != nil {
		t.Fatalf("RecentLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Ping.Target != "example.com" || logs[0].Ping.AvgLatencyMs != 12.5 {
		t.Fatalf("logs=%+v", logs)
	}
}

func TestProbeLatency_SentinelIsNotAnError(t *testing.T) {
	t.Parallel()
	svc, prober := newTestService(t, nil)
	prober.result = model.FailedProbe(model.FailureTimeout)

	got, err := svc.ProbeLatency(context.Background(), "10.255.255.1", 1)
	if err != nil {
		t.Fatalf("ProbeLatency: %v", err)
	}
	if got.AvgLatencyMs != model.FailedLatencyMs || got.PacketLossPct != model.FailedPacketLoss {
		t.Fatalf("got=%+v", got)
	}
}

func TestPersistenceErrorsPropagate(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, brokenStore{})
	ctx := context.Background()

	res, err := svc.ProbeLatency(ctx, "example.com", 1)
	if !errors.Is(err, errDiskFull) || !strings.HasPrefix(err.Error(), "failed to log ping") {
		t.Fatalf("ping err=%v", err)
	}
	if res.AvgLatencyMs != 12.5 {
		t.Fatalf("measurement lost: %+v", res)
	}

	if _, err := svc.CheckUptime(ctx, "example.com", 1); !errors.Is(err, errDiskFull) {
		t.Fatalf("uptime err=%v", err)
	}
	if _, err := svc.SampleBandwidth(ctx, 1); !errors.Is(err, errDiskFull) {
		t.Fatalf("bandwidth err=%v", err)
	}
	if _, err := svc.RecentLogs(ctx, model.KindPing, 1); !errors.Is(err, errDiskFull) {
		t.Fatalf("recent err=%v", err)
	}
}

func TestInvalidUserSkipsProbe(t *testing.T) {
	t.Parallel()
	svc, prober := newTestService(t, nil)

	if _, err := svc.ProbeLatency(context.Background(), "example.com", 0); !errors.Is(err, model.ErrInvalidEntry) {
		t.Fatalf("err=%v", err)
	}
	if prober.calls != 0 {
		t.Fatalf("prober called %d times", prober.calls)
	}
}

func TestBlankTargetRejectedBeforePing(t *testing.T) {
	t.Parallel()
	svc, prober := newTestService(t, nil)
	ctx := context.Background()

	for _, target := range []string{"", "   "} {
		_, err := svc.ProbeLatency(ctx, target, 1)
		if !errors.Is(err, model.ErrEmptyTarget) || errors.Is(err, model.ErrInvalidEntry) {
			t.Fatalf("target %q: err=%v", target, err)
		}
		if strings.HasPrefix(err.Error(), "failed to log") {
			t.Fatalf("target %q reported as a storage failure: %v", target, err)
		}
	}
	if _, err := svc.ProbeTargets(ctx, []string{"8.8.8.8", ""}, 1); !errors.Is(err, model.ErrEmptyTarget) {
		t.Fatalf("batch err=%v", err)
	}
	if prober.calls != 0 {
		t.Fatalf("prober called %d times", prober.calls)
	}
	if logs, _ := svc.RecentLogs(ctx, model.KindPing, 1); len(logs) != 0 {
		t.Fatalf("logs=%+v", logs)
	}
}

func TestCheckUptimeAndBandwidth(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	up, err := svc.CheckUptime(ctx, "google.com", 2)
	if err != nil || up.Status != model.StatusOnline || up.URL != "google.com" {
		t.Fatalf("up=%+v err=%v", up, err)
	}
	bw, err := svc.SampleBandwidth(ctx, 2)
	if err != nil || bw.DownloadMbps < 50 || bw.UploadMbps < 10 {
		t.Fatalf("bw=%+v err=%v", bw, err)
	}

	for _, kind := range []model.Kind{model.KindUptime, model.KindBandwidth} {
		logs, err := svc.RecentLogs(ctx, kind, 2)
		if err != nil || len(logs) != 1 {
			t.Fatalf("%s logs=%v err=%v", kind, logs, err)
		}
	}
}

func TestProbeTargets(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	results, err := svc.ProbeTargets(ctx, []string{"8.8.8.8", "1.1.1.1"}, 3)
	if err != nil || len(results) != 2 {
		t.Fatalf("results=%v err=%v", results, err)
	}
	logs, err := svc.RecentLogs(ctx, model.KindPing, 3)
	if err != nil || len(logs) != 2 || logs[0].Ping.Target != "1.1.1.1" {
		t.Fatalf("logs=%+v err=%v", logs, err)
	}
}

func TestScanDevicesAndIdentity(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	if d := svc.ScanDevices(ctx); len(d) != 1 || d[0].Address != "192.168.1.5" {
		t.Fatalf("devices=%v", d)
	}
	if id := svc.Identity(ctx); id.PublicIP != model.PublicIPUnavailable || id.LocalIP != "192.168.1.2" {
		t.Fatalf("identity=%+v", id)
	}
}

func TestRecentLogs_EmptyAndUnknownKind(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	logs, err := svc.RecentLogs(ctx, model.KindBandwidth, 42)
	if err != nil || logs == nil || len(logs) != 0 {
		t.Fatalf("logs=%#v err=%v", logs, err)
	}
	if _, err := svc.RecentLogs(ctx, model.Kind("dns"), 42); !errors.Is(err, model.ErrUnknownKind) {
		t.Fatalf("err=%v", err)
	}
}

func TestRecentLogsN_CappedAtWindow(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if _, err := svc.SampleBandwidth(ctx, 9); err != nil {
			t.Fatalf("SampleBandwidth: %v", err)
		}
	}
	for _, limit := range []int{0, -1, 11, 1_000_000, math.MaxInt} {
		logs, err := svc.RecentLogsN(ctx, model.KindBandwidth, 9, limit)
		if err != nil || len(logs) != model.KindBandwidth.Window() {
			t.Fatalf("limit %d: len=%d err=%v", limit, len(logs), err)
		}
	}
	if logs, err := svc.RecentLogsN(ctx, model.KindBandwidth, 9, 3); err != nil || len(logs) != 3 {
		t.Fatalf("limit 3: len=%d err=%v", len(logs), err)
	}
}
