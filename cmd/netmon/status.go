package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/netmon/internal/daemon"
	"github.com/user/netmon/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watcher status",
	Long:  "Show the current status of the netmon watcher and the latest logged results.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	running, pid := daemon.CheckRunning(cfg.DataDir)

	fmt.Println(titleStyle.Render("netmon status"))
	fmt.Println()

	fmt.Print(labelStyle.Render("  Daemon: "))
	if running {
		fmt.Println(okStyle.Render(fmt.Sprintf("Running (PID %d)", pid)))
	} else {
		fmt.Println(failStyle.Render("Stopped"))
	}

	uid := userID
	if sf, err := daemon.ReadStatusFile(cfg.DataDir); err == nil {
		if uid == 0 {
			uid = sf.UserID
		}
		printField("User:", fmt.Sprint(sf.UserID))
		printField("Started:", sf.StartTime)
		printField("Uptime:", sf.Uptime)
		printField("Updated:", sf.UpdatedAt)
		if sf.Identity.PublicIP != "" {
			printField("Public IP:", sf.Identity.PublicIP)
			printField("Local IP:", sf.Identity.LocalIP)
		}

		if len(sf.Jobs) > 0 {
			fmt.Println()
			fmt.Println(titleStyle.Render("Jobs"))

			for _, job := range sf.Jobs {
				state := "idle"
				if job.Running {
					state = "running"
				}
				line := fmt.Sprintf("  %s: %s (every %s, last %s, runs %d, errors %d)",
					labelStyle.Render(job.Name), valueStyle.Render(state),
					job.Interval, job.LastRun.Format("15:04:05"), job.RunCount, job.ErrorCount)
				if job.LastError != "" {
					line += " " + failStyle.Render(job.LastError)
				}
				fmt.Println(line)
			}
		}
	}

	if uid == 0 {
		uid = cfg.WatchUserID
	}
	if uid <= 0 {
		return nil
	}

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Println()
	fmt.Println(titleStyle.Render(fmt.Sprintf("Latest results for user %d", uid)))
	for _, kind := range model.Kinds {
		entries, err := svc.RecentLogsN(cmd.Context(), kind, uid, 1)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			printField(string(kind)+":", "none")
			continue
		}
		printField(string(kind)+":", describe(entries[0]))
	}

	return nil
}

func describe(e model.LogEntry) string {
	at := e.Timestamp.Local().Format("15:04:05")
	switch e.Kind {
	case model.KindPing:
		if e.Ping.IsFailure() {
			return fmt.Sprintf("%s unreachable (%s) at %s", e.Ping.Target, e.Ping.Failure, at)
		}
		return fmt.Sprintf("%s %.2f ms, %.1f%% loss at %s", e.Ping.Target, e.Ping.AvgLatencyMs, e.Ping.PacketLossPct, at)
	case model.KindUptime:
		return fmt.Sprintf("%s %s at %s", e.Uptime.URL, e.Uptime.Status, at)
	case model.KindBandwidth:
		return fmt.Sprintf("%.2f / %.2f Mbps at %s", e.Bandwidth.DownloadMbps, e.Bandwidth.UploadMbps, at)
	}
	return ""
}
