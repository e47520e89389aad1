// Package model defines core data structures for netmon.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel values reported by probes that could not complete.
const (
	FailedLatencyMs     = 999.0
	FailedPacketLoss    = 100.0
	PublicIPUnavailable = "N/A"
	LoopbackIP          = "127.0.0.1"
)

// FailureReason explains why a probe result is the sentinel failure value.
type FailureReason string

const (
	FailureTimeout       FailureReason = "timeout"
	FailureLaunch        FailureReason = "launch"
	FailureUnparsable    FailureReason = "unparsable"
	FailurePacketLoss    FailureReason = "packet_loss"
	FailureInvalidTarget FailureReason = "invalid_target"
)

// ProbeResult is the reduced outcome of a latency/loss probe burst.
type ProbeResult struct {
	AvgLatencyMs  float64       `json:"avg_latency"`
	PacketLossPct float64       `json:"packet_loss"`
	Failure       FailureReason `json:"failure,omitempty"`
}

// FailedProbe returns the sentinel failure result.
func FailedProbe(reason FailureReason) ProbeResult {
	return ProbeResult{
		AvgLatencyMs:  FailedLatencyMs,
		PacketLossPct: FailedPacketLoss,
		Failure:       reason,
	}
}

// IsFailure reports whether r is the sentinel failure variant.
func (r ProbeResult) IsFailure() bool {
	return r.Failure != ""
}

// UptimeStatus is the binary verdict of an uptime check.
type UptimeStatus string

const (
	StatusOnline  UptimeStatus = "Online"
	StatusOffline UptimeStatus = "Offline"
)

// UptimeResult is the outcome of a single HTTP liveness check.
type UptimeResult struct {
	URL    string       `json:"url"`
	Status UptimeStatus `json:"status"`
}

// Device is a host that answered an ARP request on the local subnet.
type Device struct {
	Address         string `json:"ip"`
	HardwareAddress string `json:"mac"`
}

// BandwidthSample is a download/upload throughput reading in Mbps.
type BandwidthSample struct {
	DownloadMbps float64 `json:"download"`
	UploadMbps   float64 `json:"upload"`
}

// Identity describes the addresses this host is reachable at.
type Identity struct {
	PublicIP string `json:"public_ip"`
	LocalIP  string `json:"local_ip"`
	Country  string `json:"country,omitempty"`
	ASN      uint   `json:"asn,omitempty"`
	ASNOrg   string `json:"asn_org,omitempty"`
}

// Kind identifies a measurement log table.
type Kind string

const (
	KindPing      Kind = "ping"
	KindUptime    Kind = "uptime"
	KindBandwidth Kind = "bandwidth"
)

// Kinds lists every log kind in display order.
var Kinds = []Kind{KindPing, KindUptime, KindBandwidth}

// ErrUnknownKind is returned for a log kind outside Kinds.
var ErrUnknownKind = errors.New("unknown log kind")

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Window returns the number of most-recent entries shown for the kind.
func (k Kind) Window() int {
	if k == KindBandwidth {
		return 10
	}
	return 20
}

// ClampLimit bounds limit to the kind's window. A limit <= 0 means the
// whole window.
func (k Kind) ClampLimit(limit int) int {
	if w := k.Window(); limit <= 0 || limit > w {
		return w
	}
	return limit
}

// Table returns the name of the table holding entries of this kind.
func (k Kind) Table() string {
	return string(k) + "_logs"
}

// PingPayload is the kind-specific part of a ping log entry.
type PingPayload struct {
	Target string `json:"target"`
	ProbeResult
}

// LogEntry is one persisted measurement. Exactly one payload is set and it
// matches Kind. ID and Timestamp are assigned by the store.
type LogEntry struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Kind      Kind             `json:"kind"`
	Timestamp time.Time        `json:"timestamp"`
	Ping      *PingPayload     `json:"ping,omitempty"`
	Uptime    *UptimeResult    `json:"uptime,omitempty"`
	Bandwidth *BandwidthSample `json:"bandwidth,omitempty"`
}

// ErrInvalidEntry is returned when a log entry fails validation.
var ErrInvalidEntry = errors.New("invalid log entry")

// ErrEmptyTarget is returned when a ping is requested without a target.
var ErrEmptyTarget = errors.New("empty ping target")

// NewPingEntry builds a ping log entry for userID.
func NewPingEntry(userID int64, target string, r ProbeResult) *LogEntry {
	return &LogEntry{
		UserID: userID,
		Kind:   KindPing,
		Ping:   &PingPayload{Target: target, ProbeResult: r},
	}
}

// NewUptimeEntry builds an uptime log entry for userID.
func NewUptimeEntry(userID int64, r UptimeResult) *LogEntry {
	return &LogEntry{UserID: userID, Kind: KindUptime, Uptime: &r}
}

// NewBandwidthEntry builds a bandwidth log entry for userID.
func NewBandwidthEntry(userID int64, s BandwidthSample) *LogEntry {
	return &LogEntry{UserID: userID, Kind: KindBandwidth, Bandwidth: &s}
}

// Validate checks the entry is attributed to a user and carries exactly the
// payload its kind requires.
func (e *LogEntry) Validate() error {
	if e.UserID <= 0 {
		return fmt.Errorf("%w: user id %d", ErrInvalidEntry, e.UserID)
	}

	set := 0
	for _, p := range []bool{e.Ping != nil, e.Uptime != nil, e.Bandwidth != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: %d payloads", ErrInvalidEntry, set)
	}

	var ok bool
	switch e.Kind {
	case KindPing:
		ok = e.Ping != nil && e.Ping.Target != ""
	case KindUptime:
		ok = e.Uptime != nil && e.Uptime.URL != ""
	case KindBandwidth:
		ok = e.Bandwidth != nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: payload does not match kind %s", ErrInvalidEntry, e.Kind)
	}
	return nil
}

// ReportOptions defines options for report generation.
type ReportOptions struct {
	UserID     int64  `json:"user_id"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	Limit      int    `json:"limit"`
}
