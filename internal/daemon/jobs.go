package daemon

import (
	"context"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/util"
)

// registerJobs registers all probe jobs with the scheduler.
func (d *Daemon) registerJobs() {
	// Identity Job
	d.scheduler.AddJob(&Job{
		Name:     "identity",
		Interval: d.config.PingInterval,
		Run:      d.runIdentity,
	})

	// Ping Job
	if len(d.config.WatchPingTargets) > 0 {
		d.scheduler.AddJob(&Job{
			Name:     "ping",
			Interval: d.config.PingInterval,
			Run:      d.runPing,
		})
	}

	// Uptime Job
	if len(d.config.WatchUptimeURLs) > 0 {
		d.scheduler.AddJob(&Job{
			Name:     "uptime",
			Interval: d.config.UptimeInterval,
			Run:      d.runUptime,
		})
	}

	// Bandwidth Job
	d.scheduler.AddJob(&Job{
		Name:     "bandwidth",
		Interval: d.config.BandwidthInterval,
		Run:      d.runBandwidth,
	})
}

func (d *Daemon) runIdentity(ctx context.Context) error {
	id := d.svc.Identity(ctx)

	d.mu.Lock()
	changed := d.identity.PublicIP != "" && d.identity.PublicIP != id.PublicIP
	d.identity = id
	d.mu.Unlock()

	if changed {
		util.Info("Public IP changed to: %s", id.PublicIP)
	} else {
		util.Debug("Public IP: %s, local IP: %s", id.PublicIP, id.LocalIP)
	}

	d.writeStatus()
	return nil
}

func (d *Daemon) runPing(ctx context.Context) error {
	targets := d.config.WatchPingTargets
	results, err := d.svc.ProbeTargets(ctx, targets, d.config.WatchUserID)

	failed := 0
	for i, r := range results {
		if r.IsFailure() {
			failed++
			util.Debug("Ping %s failed: %s", targets[i], r.Failure)
		}
	}
	util.Info("Ping round: %d/%d targets reachable", len(results)-failed, len(results))

	return err
}

func (d *Daemon) runUptime(ctx context.Context) error {
	var firstErr error
	online := 0

	for _, url := range d.config.WatchUptimeURLs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := d.svc.CheckUptime(ctx, url, d.config.WatchUserID)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if result.Status == model.StatusOnline {
			online++
		} else {
			util.Warn("%s is %s", url, result.Status)
		}
	}

	util.Info("Uptime round: %d/%d online", online, len(d.config.WatchUptimeURLs))
	return firstErr
}

func (d *Daemon) runBandwidth(ctx context.Context) error {
	sample, err := d.svc.SampleBandwidth(ctx, d.config.WatchUserID)
	if err != nil {
		return err
	}
	util.Info("Bandwidth: %.2f Mbps down / %.2f Mbps up", sample.DownloadMbps, sample.UploadMbps)
	return nil
}
