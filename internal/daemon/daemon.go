// Package daemon provides the background watcher that measures on a schedule.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/monitor"
	"github.com/user/netmon/internal/util"
)

// Daemon manages the background service.
type Daemon struct {
	config    *util.Config
	scheduler *Scheduler
	svc       *monitor.Service
	pidFile   string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	startTime time.Time
	identity  model.Identity
	mu        sync.RWMutex
}

// New creates a daemon that measures on behalf of cfg.WatchUserID.
func New(cfg *util.Config, svc *monitor.Service) (*Daemon, error) {
	if cfg.WatchUserID <= 0 {
		return nil, fmt.Errorf("watch_user_id must be set to run the watcher")
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:  cfg,
		svc:     svc,
		pidFile: filepath.Join(cfg.DataDir, "netmon.pid"),
		ctx:     ctx,
		cancel:  cancel,
	}

	d.scheduler = NewScheduler(ctx)

	return d, nil
}

// Start starts the daemon.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	// Write PID file
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	util.Info("Daemon starting for user %d...", d.config.WatchUserID)

	// Register jobs
	d.registerJobs()

	// Start scheduler
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.scheduler.Run()
	}()

	// Handle signals
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.handleSignals()
	}()

	d.writeStatus()
	util.Info("Daemon started with PID %d", os.Getpid())

	return nil
}

// Wait waits for the daemon to finish.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// Stop stops the daemon gracefully.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	util.Info("Daemon stopping...")

	d.cancel() // Signal all goroutines to stop

	// Wait for graceful shutdown with timeout
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		util.Info("Daemon stopped gracefully")
	case <-time.After(30 * time.Second):
		util.Warn("Daemon stop timed out")
	}

	// Clean up
	d.writeStatus()
	d.removePIDFile()
	if err := d.svc.Close(); err != nil {
		util.Warn("Failed to close log store: %v", err)
	}

	return nil
}

func (d *Daemon) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		util.Info("Received signal: %v", sig)
		go d.Stop()
	case <-d.ctx.Done():
		return
	}
}

func (d *Daemon) writePIDFile() error {
	pid := os.Getpid()
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(pid)), 0644)
}

func (d *Daemon) removePIDFile() {
	os.Remove(d.pidFile)
}

func (d *Daemon) writeStatus() {
	status := d.GetStatus()
	if err := WriteStatusFile(d.config.DataDir, status); err != nil {
		util.Warn("Failed to write status file: %v", err)
	}
}

// IsRunning returns whether the daemon is running.
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// GetStatus returns the daemon status.
func (d *Daemon) GetStatus() *DaemonStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return &DaemonStatus{
		Running:   d.running,
		PID:       os.Getpid(),
		UserID:    d.config.WatchUserID,
		StartTime: d.startTime,
		Uptime:    time.Since(d.startTime),
		Identity:  d.identity,
		Jobs:      d.scheduler.GetJobStatuses(),
	}
}

// DaemonStatus holds the current daemon status.
type DaemonStatus struct {
	Running   bool
	PID       int
	UserID    int64
	StartTime time.Time
	Uptime    time.Duration
	Identity  model.Identity
	Jobs      []JobStatus
}

// Scheduler returns the job scheduler.
func (d *Daemon) Scheduler() *Scheduler {
	return d.scheduler
}

// GetService returns the monitor service the jobs drive.
func (d *Daemon) GetService() *monitor.Service {
	return d.svc
}

// GetContext returns the daemon context.
func (d *Daemon) GetContext() context.Context {
	return d.ctx
}
