package probes

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/netmon/internal/model"
)

// Dialect builds the ping command line for one OS family and reduces that
// family's summary output to a ProbeResult.
type Dialect interface {
	Name() string
	Args(target string, count int) []string
	Parse(output string, count int) model.ProbeResult
}

// DialectFor selects the dialect matching a runtime.GOOS value.
func DialectFor(goos string) Dialect {
	if goos == "windows" {
		return WindowsDialect{}
	}
	return UnixDialect{}
}

// WindowsDialect parses "Packets: Sent = 4, Received = 4, Lost = 0" style summaries.
type WindowsDialect struct{}

var windowsNoLoss = regexp.MustCompile(`Lost = 0\b`)

func (WindowsDialect) Name() string { return "windows" }

func (WindowsDialect) Args(target string, count int) []string {
	return []string{"-n", strconv.Itoa(count), target}
}

// Parse only extracts an average when nothing was lost. The loss branch
// reports the lost share with the failure latency, tagged packet_loss.
func (WindowsDialect) Parse(output string, count int) model.ProbeResult {
	lines := splitLines(output)

	if windowsNoLoss.MatchString(output) {
		for _, line := range lines {
			if !strings.Contains(line, "Average") {
				continue
			}
			idx := strings.LastIndex(line, "Average =")
			if idx < 0 {
				continue
			}
			value := strings.TrimSpace(strings.ReplaceAll(line[idx+len("Average ="):], "ms", ""))
			if avg, err := strconv.ParseFloat(value, 64); err == nil {
				return model.ProbeResult{AvgLatencyMs: avg, PacketLossPct: 0}
			}
		}
		return model.ProbeResult{AvgLatencyMs: 0, PacketLossPct: 0}
	}

	for _, line := range lines {
		if !strings.Contains(line, "Packets:") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			return model.FailedProbe(model.FailureUnparsable)
		}
		lost, ok := parseLostCount(parts[2])
		if !ok || count <= 0 {
			return model.FailedProbe(model.FailureUnparsable)
		}
		if lost > count {
			lost = count
		}
		return model.ProbeResult{
			AvgLatencyMs:  model.FailedLatencyMs,
			PacketLossPct: float64(lost) / float64(count) * 100,
			Failure:       model.FailurePacketLoss,
		}
	}

	return model.FailedProbe(model.FailureUnparsable)
}

// parseLostCount reads the number from a " Lost = 2 (50% loss)" field.
func parseLostCount(field string) (int, bool) {
	field = strings.TrimSpace(field)
	if idx := strings.Index(field, "="); idx >= 0 {
		field = field[idx+1:]
	}
	tokens := strings.Fields(field)
	if len(tokens) == 0 {
		return 0, false
	}
	lost, err := strconv.Atoi(tokens[0])
	if err != nil || lost < 0 {
		return 0, false
	}
	return lost, true
}

// UnixDialect parses iputils, BSD and busybox "N% packet loss" summaries.
type UnixDialect struct{}

var (
	unixNoLoss  = regexp.MustCompile(`(^|[\s,])0(\.0+)?% packet loss`)
	unixAnyLoss = regexp.MustCompile(`\d+(\.\d+)?% packet loss`)
)

func (UnixDialect) Name() string { return "unix" }

func (UnixDialect) Args(target string, count int) []string {
	return []string{"-c", strconv.Itoa(count), target}
}

// Parse extracts the average only for a loss-free burst. Any loss at all is
// reported as the failure sentinel, not as the measured percentage.
func (UnixDialect) Parse(output string, count int) model.ProbeResult {
	if !unixNoLoss.MatchString(output) {
		if unixAnyLoss.MatchString(output) {
			return model.FailedProbe(model.FailurePacketLoss)
		}
		return model.FailedProbe(model.FailureUnparsable)
	}

	for _, line := range splitLines(output) {
		if !strings.Contains(line, "avg") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) < 2 {
			continue
		}
		stats := strings.Split(strings.TrimSpace(parts[1]), "/")
		if len(stats) < 2 {
			continue
		}
		avg, err := strconv.ParseFloat(strings.TrimSpace(stats[1]), 64)
		if err != nil {
			return model.FailedProbe(model.FailureUnparsable)
		}
		return model.ProbeResult{AvgLatencyMs: avg, PacketLossPct: 0}
	}

	return model.FailedProbe(model.FailureUnparsable)
}

func splitLines(output string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines
}
