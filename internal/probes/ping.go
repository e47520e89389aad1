package probes

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/util"
)

// Prober measures round-trip latency and packet loss with the system ping tool.
type Prober struct {
	runner      CommandRunner
	dialect     Dialect
	count       int
	timeout     time.Duration
	concurrency int
}

// NewProber creates a prober for the host OS.
func NewProber(count int, timeout time.Duration, concurrency int) *Prober {
	if count <= 0 {
		count = 4
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Prober{
		runner:      ExecRunner{},
		dialect:     DialectFor(runtime.GOOS),
		count:       count,
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// SetRunner replaces the command runner.
func (p *Prober) SetRunner(r CommandRunner) {
	p.runner = r
}

// SetDialect overrides the OS dialect.
func (p *Prober) SetDialect(d Dialect) {
	p.dialect = d
}

// Probe sends one burst of echo requests to target. It never returns an
// error: every failure collapses to the sentinel result with a reason.
func (p *Prober) Probe(ctx context.Context, target string) model.ProbeResult {
	target = strings.TrimSpace(target)
	if !validTarget(target) {
		return model.FailedProbe(model.FailureInvalidTarget)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.runner.Output(ctx, "ping", p.dialect.Args(target, p.count)...)
	if ctx.Err() != nil {
		util.Debug("ping %s timed out after %v", target, p.timeout)
		return model.FailedProbe(model.FailureTimeout)
	}
	if err != nil && !isExitError(err) {
		util.Warn("ping %s could not start: %v", target, err)
		return model.FailedProbe(model.FailureLaunch)
	}

	// ping exits non-zero on loss; the summary is still worth parsing
	result := p.dialect.Parse(string(out), p.count)
	if result.IsFailure() {
		util.Debug("ping %s: %s", target, result.Failure)
	}
	return result
}

// ProbeMany probes targets concurrently. Results keep the order of targets.
func (p *Prober) ProbeMany(ctx context.Context, targets []string) []model.ProbeResult {
	results := make([]model.ProbeResult, len(targets))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)

	for i, target := range targets {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = p.Probe(ctx, t)
		}(i, target)
	}

	wg.Wait()
	return results
}

// validTarget rejects values the ping tool would read as flags or split.
func validTarget(target string) bool {
	if target == "" || strings.HasPrefix(target, "-") {
		return false
	}
	return !strings.ContainsAny(target, " \t\r\n")
}
