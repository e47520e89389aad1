package main

import (
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/netmon/internal/daemon"
	"github.com/user/netmon/internal/util"
	"github.com/user/netmon/internal/web"
)

var (
	foreground   bool
	withWeb      bool
	startWebPort int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the netmon watcher",
	Long: `Start the watcher in the background. It pings watch_ping_targets,
checks watch_uptime_urls and samples bandwidth at their configured intervals,
logging every result under watch_user_id (or --user).`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false,
		"Run in foreground instead of daemonizing")
	startCmd.Flags().BoolVar(&withWeb, "with-web", false,
		"Also start the HTTP API")
	startCmd.Flags().IntVar(&startWebPort, "web-port", 0,
		"Port for the HTTP API (default: web_port)")
}

func runStart(cmd *cobra.Command, args []string) error {
	uid, err := resolveUser()
	if err != nil {
		return err
	}
	cfg.WatchUserID = uid
	if startWebPort == 0 {
		startWebPort = cfg.WebPort
	}

	running, pid := daemon.CheckRunning(cfg.DataDir)
	if running {
		fmt.Printf("Daemon is already running (PID %d)\n", pid)
		return nil
	}

	if foreground {
		return runForeground(cmd)
	}

	return runDaemon()
}

func runForeground(cmd *cobra.Command) error {
	fmt.Println("Starting netmon in foreground mode...")

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg, svc)
	if err != nil {
		svc.Close()
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	if withWeb {
		go func() {
			srv := web.NewServer(svc, cfg, startWebPort)
			fmt.Printf("HTTP API: http://localhost:%d\n", startWebPort)
			if err := srv.Start(); err != nil {
				util.Error("Web server error: %v", err)
			}
		}()
	}

	fmt.Printf("netmon watcher started for user %d. Press Ctrl+C to stop.\n", cfg.WatchUserID)

	d.Wait()

	return nil
}

func runDaemon() error {
	// Re-execute self in background
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{"start", "--foreground", "--user", strconv.FormatInt(cfg.WatchUserID, 10)}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	if withWeb {
		args = append(args, "--with-web", "--web-port", strconv.Itoa(startWebPort))
	}

	if err := util.EnsureDir(cfg.DataDir); err != nil {
		return err
	}
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	procAttr := &os.ProcAttr{
		Dir:   "/",
		Env:   os.Environ(),
		Files: []*os.File{nil, logFile, logFile},
		Sys: &syscall.SysProcAttr{
			Setsid: true,
		},
	}

	proc, err := os.StartProcess(executable, append([]string{executable}, args...), procAttr)
	if err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}

	if err := proc.Release(); err != nil {
		util.Warn("Failed to release process: %v", err)
	}

	fmt.Printf("netmon watcher started (PID %d)\n", proc.Pid)
	fmt.Printf("Logs: %s\n", cfg.LogFile)
	if withWeb {
		fmt.Printf("HTTP API: http://localhost:%d\n", startWebPort)
	}

	return nil
}
