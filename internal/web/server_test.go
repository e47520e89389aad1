package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/monitor"
	"github.com/user/netmon/internal/probes"
	"github.com/user/netmon/internal/storage"
	"github.com/user/netmon/internal/util"
)

type fakeProber struct {
	mu      sync.Mutex
	targets []string
}

func (p *fakeProber) Probe(ctx context.Context, target string) model.ProbeResult {
	p.mu.Lock()
	p.targets = append(p.targets, target)
	p.mu.Unlock()
	if target == "down.invalid" {
		return model.FailedProbe(model.FailureTimeout)
	}
	return model.ProbeResult{AvgLatencyMs: 21.5}
}

func (p *fakeProber) ProbeMany(ctx context.Context, targets []string) []model.ProbeResult {
	out := make([]model.ProbeResult, len(targets))
	for i, t := range targets {
		out[i] = p.Probe(ctx, t)
	}
	return out
}

func (p *fakeProber) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.targets[len(p.targets)-1]
}

type fakeUptime struct{}

func (fakeUptime) Check(ctx context.Context, url string) model.UptimeResult {
	return model.UptimeResult{URL: url, Status: model.StatusOffline}
}

type fakeScanner struct{}

func (fakeScanner) Scan(ctx context.Context) []model.Device {
	return []model.Device{{Address: "10.0.0.7", HardwareAddress: "02:00:00:00:00:07"}}
}

type fakeIdentity struct{}

func (fakeIdentity) Resolve(ctx context.Context) model.Identity {
	return model.Identity{PublicIP: "198.51.100.4", LocalIP: "10.0.0.2"}
}

type brokenStore struct{}

func (brokenStore) Append(ctx context.Context, e *model.LogEntry) error {
	return errors.New("database or disk is full")
}
func (brokenStore) Recent(ctx context.Context, kind model.Kind, userID int64, limit int) ([]model.LogEntry, error) {
	return nil, errors.New("database or disk is full")
}
func (brokenStore) Close() error { return nil }

func newTestServer(t *testing.T, store storage.Store) (*httptest.Server, *fakeProber) {
	t.Helper()
	if store == nil {
		db, err := storage.Open(filepath.Join(t.TempDir(), "netmon.db"))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		store = storage.NewSQLiteStore(db)
	}
	prober := &fakeProber{}
	svc := monitor.New(monitor.Components{
		Store:     store,
		Prober:    prober,
		Uptime:    fakeUptime{},
		Bandwidth: probes.NewSyntheticSampler(5),
		Scanner:   fakeScanner{},
		Identity:  fakeIdentity{},
	})
	t.Cleanup(func() { svc.Close() })

	ts := httptest.NewServer(NewServer(svc, util.DefaultConfig(), 0).Handler())
	t.Cleanup(ts.Close)
	return ts, prober
}

func do(t *testing.T, ts *httptest.Server, method, path, user, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestPing_LogsForCaller(t *testing.T) {
	t.Parallel()
	ts, prober := newTestServer(t, nil)

	resp, body := do(t, ts, http.MethodPost, "/api/ping", "4", `{"target":"example.org"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var got model.ProbeResult
	if err := json.Unmarshal(body, &got); err != nil || got.AvgLatencyMs != 21.5 {
		t.Fatalf("result=%+v err=%v", got, err)
	}
	if prober.last() != "example.org" {
		t.Fatalf("probed %q", prober.last())
	}

	resp, body = do(t, ts, http.MethodGet, "/api/logs/ping", "4", "")
	var logs []model.LogEntry
	if err := json.Unmarshal(body, &logs); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d err=%v", resp.StatusCode, err)
	}
	if len(logs) != 1 || logs[0].Ping.Target != "example.org" || logs[0].UserID != 4 {
		t.Fatalf("logs=%+v", logs)
	}

	_, body = do(t, ts, http.MethodGet, "/api/logs/ping", "5", "")
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("other user logs=%s", body)
	}
}

func TestPing_DefaultsAndFailureSentinel(t *testing.T) {
	t.Parallel()
	ts, prober := newTestServer(t, nil)

	for _, body := range []string{"", "{}", `{"target":"  "}`} {
		if resp, data := do(t, ts, http.MethodPost, "/api/ping", "1", body); resp.StatusCode != http.StatusOK {
			t.Fatalf("body %q: status=%d %s", body, resp.StatusCode, data)
		}
		if prober.last() != defaultTarget {
			t.Fatalf("body %q probed %q", body, prober.last())
		}
	}

	resp, body := do(t, ts, http.MethodPost, "/api/ping", "1", `{"target":"down.invalid"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var got model.ProbeResult
	json.Unmarshal(body, &got)
	if got.AvgLatencyMs != model.FailedLatencyMs || got.PacketLossPct != model.FailedPacketLoss {
		t.Fatalf("result=%+v", got)
	}
}

func TestUptimeAndBandwidth(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, nil)

	resp, body := do(t, ts, http.MethodPost, "/api/uptime", "2", `{"url":"status.example"}`)
	var up model.UptimeResult
	if err := json.Unmarshal(body, &up); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d err=%v", resp.StatusCode, err)
	}
	if up.URL != "status.example" || up.Status != model.StatusOffline {
		t.Fatalf("uptime=%+v", up)
	}

	resp, body = do(t, ts, http.MethodPost, "/api/bandwidth", "2", "")
	var bw model.BandwidthSample
	if err := json.Unmarshal(body, &bw); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d err=%v", resp.StatusCode, err)
	}
	if bw.DownloadMbps < probes.MinDownloadMbps || bw.DownloadMbps >= probes.MaxDownloadMbps {
		t.Fatalf("bandwidth=%+v", bw)
	}
}

func TestAuthAndRouting(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, nil)

	tests := []struct {
		method, path, user, body string
		want                     int
	}{
		{http.MethodPost, "/api/ping", "", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/ping", "0", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/ping", "-3", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/ping", "abc", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/identity", "", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/ping", "1", "{not json", http.StatusBadRequest},
		{http.MethodPost, "/api/ping", "1", `"google.com"`, http.StatusBadRequest},
		{http.MethodGet, "/api/logs/dns", "1", "", http.StatusNotFound},
		{http.MethodGet, "/api/logs/ping?limit=x", "1", "", http.StatusBadRequest},
		{http.MethodGet, "/api/logs/ping?limit=21", "1", "", http.StatusBadRequest},
		{http.MethodGet, "/api/logs/bandwidth?limit=4294967297", "1", "", http.StatusBadRequest},
		{http.MethodGet, "/api/charts/uptime.png", "1", "", http.StatusNotFound},
		{http.MethodGet, "/api/charts/ping", "1", "", http.StatusNotFound},
		{http.MethodGet, "/api/charts/ping.png", "1", "", http.StatusNotFound},
		{http.MethodGet, "/api/ping", "1", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		resp, body := do(t, ts, tt.method, tt.path, tt.user, tt.body)
		if resp.StatusCode != tt.want {
			t.Errorf("%s %s user=%q: status=%d want %d (%s)", tt.method, tt.path, tt.user, resp.StatusCode, tt.want, body)
		}
	}
}

func TestLogs_LimitWithinWindow(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, nil)

	for i := 0; i < 12; i++ {
		do(t, ts, http.MethodPost, "/api/bandwidth", "6", "")
	}

	for path, want := range map[string]int{
		"/api/logs/bandwidth":          10,
		"/api/logs/bandwidth?limit=0":  10,
		"/api/logs/bandwidth?limit=10": 10,
		"/api/logs/bandwidth?limit=3":  3,
	} {
		resp, body := do(t, ts, http.MethodGet, path, "6", "")
		var logs []model.LogEntry
		if err := json.Unmarshal(body, &logs); err != nil || resp.StatusCode != http.StatusOK || len(logs) != want {
			t.Fatalf("%s: status=%d len=%d err=%v", path, resp.StatusCode, len(logs), err)
		}
	}
	if resp, _ := do(t, ts, http.MethodGet, "/api/logs/bandwidth?limit=1000000", "6", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized limit status=%d", resp.StatusCode)
	}
}

func TestPersistenceFailureIs500(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, brokenStore{})

	for _, path := range []string{"/api/ping", "/api/uptime", "/api/bandwidth"} {
		resp, body := do(t, ts, http.MethodPost, path, "1", "")
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
		var e map[string]string
		if err := json.Unmarshal(body, &e); err != nil || !strings.Contains(e["error"], "failed to log") {
			t.Fatalf("%s error body=%s", path, body)
		}
	}
	if resp, _ := do(t, ts, http.MethodGet, "/api/logs/uptime", "1", ""); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("logs status=%d", resp.StatusCode)
	}
}

func TestDevicesIdentityAndRequestID(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, nil)

	resp, body := do(t, ts, http.MethodGet, "/api/devices", "1", "")
	var devices []model.Device
	if err := json.Unmarshal(body, &devices); err != nil || len(devices) != 1 || devices[0].Address != "10.0.0.7" {
		t.Fatalf("devices=%s err=%v", body, err)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID")
	}

	_, body = do(t, ts, http.MethodGet, "/api/identity", "1", "")
	var id model.Identity
	if err := json.Unmarshal(body, &id); err != nil || id.PublicIP != "198.51.100.4" {
		t.Fatalf("identity=%s err=%v", body, err)
	}
}

func TestChartAndReport(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, nil)

	for i := 0; i < 3; i++ {
		do(t, ts, http.MethodPost, "/api/bandwidth", "8", "")
		time.Sleep(2 * time.Millisecond)
	}

	resp, body := do(t, ts, http.MethodGet, "/api/charts/bandwidth.png", "8", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("chart status=%d body=%.80s", resp.StatusCode, body)
	}
	if !strings.HasPrefix(string(body), "\x89PNG") {
		t.Fatal("chart is not a PNG")
	}

	resp, body = do(t, ts, http.MethodGet, "/report", "8", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "3 samples") {
		t.Fatalf("report status=%d body=%s", resp.StatusCode, body)
	}
}
