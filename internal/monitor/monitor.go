// Package monitor runs probes on behalf of a user and records their results
// in the measurement log.
package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/probes"
	"github.com/user/netmon/internal/storage"
	"github.com/user/netmon/internal/util"
)

// Prober measures latency and loss to a target.
type Prober interface {
	Probe(ctx context.Context, target string) model.ProbeResult
	ProbeMany(ctx context.Context, targets []string) []model.ProbeResult
}

// UptimeChecker reports whether a URL answers with 200.
type UptimeChecker interface {
	Check(ctx context.Context, url string) model.UptimeResult
}

// DeviceScanner lists hosts on the local subnet.
type DeviceScanner interface {
	Scan(ctx context.Context) []model.Device
}

// IdentityResolver reports this host's addresses.
type IdentityResolver interface {
	Resolve(ctx context.Context) model.Identity
}

// Components are the collaborators a Service drives.
type Components struct {
	Store     storage.Store
	Prober    Prober
	Uptime    UptimeChecker
	Bandwidth probes.BandwidthSampler
	Scanner   DeviceScanner
	Identity  IdentityResolver
}

// Service is the entry point for every measurement. Probe outcomes are
// values, never errors; the only error a method returns is a failure to
// persist the outcome.
type Service struct {
	store     storage.Store
	prober    Prober
	uptime    UptimeChecker
	bandwidth probes.BandwidthSampler
	scanner   DeviceScanner
	identity  IdentityResolver
}

// New creates a service from explicit components.
func New(c Components) *Service {
	return &Service{
		store:     c.Store,
		prober:    c.Prober,
		uptime:    c.Uptime,
		bandwidth: c.Bandwidth,
		scanner:   c.Scanner,
		identity:  c.Identity,
	}
}

// NewFromConfig opens the configured store and builds the host probes.
func NewFromConfig(ctx context.Context, cfg *util.Config) (*Service, error) {
	store, err := storage.OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open log store: %w", err)
	}

	identity := probes.NewIdentityResolver(cfg.PublicIPURL, cfg.IdentityTimeout)
	identity.SetSTUNServers(cfg.STUNServers)
	identity.SetGeoIP(probes.NewGeoIPLookup(cfg.GeoIPCountryDB, cfg.GeoIPASNDB))

	return New(Components{
		Store:     store,
		Prober:    probes.NewProber(cfg.ProbeCount, cfg.ProbeTimeout, cfg.ProbeConcurrency),
		Uptime:    probes.NewUptimeChecker(cfg.UptimeTimeout),
		Bandwidth: probes.NewSyntheticSampler(0),
		Scanner:   probes.NewDeviceScanner(identity.LocalIP, probes.NewARPResolver(cfg.ScanInterface), cfg.ScanWait),
		Identity:  identity,
	}), nil
}

// Store exposes the underlying log store.
func (s *Service) Store() storage.Store {
	return s.store
}

// Close releases the log store.
func (s *Service) Close() error {
	return s.store.Close()
}

// ProbeLatency probes target and logs the result for userID.
func (s *Service) ProbeLatency(ctx context.Context, target string, userID int64) (model.ProbeResult, error) {
	if err := checkUser(model.KindPing, userID); err != nil {
		return model.ProbeResult{}, err
	}
	if err := checkTargets(target); err != nil {
		return model.ProbeResult{}, err
	}

	result := s.prober.Probe(ctx, target)
	if err := s.store.Append(ctx, model.NewPingEntry(userID, target, result)); err != nil {
		return result, fmt.Errorf("failed to log ping: %w", err)
	}
	return result, nil
}

// ProbeTargets probes every target concurrently and logs each result. All
// results are returned even when some fail to persist; the first persistence
// error is reported. A blank target rejects the whole batch.
func (s *Service) ProbeTargets(ctx context.Context, targets []string, userID int64) ([]model.ProbeResult, error) {
	if err := checkUser(model.KindPing, userID); err != nil {
		return nil, err
	}
	if err := checkTargets(targets...); err != nil {
		return nil, err
	}

	results := s.prober.ProbeMany(ctx, targets)

	var firstErr error
	for i, r := range results {
		if err := s.store.Append(ctx, model.NewPingEntry(userID, targets[i], r)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to log ping: %w", err)
		}
	}
	return results, firstErr
}

// CheckUptime checks url and logs the verdict for userID.
func (s *Service) CheckUptime(ctx context.Context, url string, userID int64) (model.UptimeResult, error) {
	if err := checkUser(model.KindUptime, userID); err != nil {
		return model.UptimeResult{}, err
	}

	result := s.uptime.Check(ctx, url)
	if err := s.store.Append(ctx, model.NewUptimeEntry(userID, result)); err != nil {
		return result, fmt.Errorf("failed to log uptime: %w", err)
	}
	return result, nil
}

// SampleBandwidth takes a throughput reading and logs it for userID.
func (s *Service) SampleBandwidth(ctx context.Context, userID int64) (model.BandwidthSample, error) {
	if err := checkUser(model.KindBandwidth, userID); err != nil {
		return model.BandwidthSample{}, err
	}

	sample := s.bandwidth.Sample(ctx)
	if err := s.store.Append(ctx, model.NewBandwidthEntry(userID, sample)); err != nil {
		return sample, fmt.Errorf("failed to log bandwidth: %w", err)
	}
	return sample, nil
}

// ScanDevices lists devices on the local subnet. Results are live only and
// are not written to the log.
func (s *Service) ScanDevices(ctx context.Context) []model.Device {
	return s.scanner.Scan(ctx)
}

// RecentLogs returns the kind's recency window of entries for userID.
func (s *Service) RecentLogs(ctx context.Context, kind model.Kind, userID int64) ([]model.LogEntry, error) {
	return s.RecentLogsN(ctx, kind, userID, kind.Window())
}

// RecentLogsN returns up to limit entries of kind for userID, newest first.
// The limit never exceeds the kind's window.
func (s *Service) RecentLogsN(ctx context.Context, kind model.Kind, userID int64, limit int) ([]model.LogEntry, error) {
	if _, err := model.ParseKind(string(kind)); err != nil {
		return nil, err
	}
	entries, err := s.store.Recent(ctx, kind, userID, kind.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s logs: %w", kind, err)
	}
	if entries == nil {
		entries = []model.LogEntry{}
	}
	return entries, nil
}

// Identity returns the public and local addresses of this host.
func (s *Service) Identity(ctx context.Context) model.Identity {
	return s.identity.Resolve(ctx)
}

func checkUser(kind model.Kind, userID int64) error {
	if userID <= 0 {
		util.Debug("rejected %s for user %d", kind, userID)
		return fmt.Errorf("failed to log %s: %w: user id %d", kind, model.ErrInvalidEntry, userID)
	}
	return nil
}

// checkTargets rejects blank targets before anything is probed.
func checkTargets(targets ...string) error {
	for i, t := range targets {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w at position %d", model.ErrEmptyTarget, i)
		}
	}
	return nil
}
