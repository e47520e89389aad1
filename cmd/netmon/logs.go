package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/storage"
)

var (
	logsLimit  int
	logsExport string
	logsRead   string
)

var logsCmd = &cobra.Command{
	Use:   "logs [ping|uptime|bandwidth|all]",
	Short: "Show recent measurement logs",
	Long: `Show the user's most recent measurements, newest first. Each kind shows
at most its window (20 ping, 20 uptime, 10 bandwidth); --limit can only
shorten it.

Examples:
  netmon logs ping --user 1
  netmon logs all --user 1 --export ./logs.jsonl.zst
  netmon logs --read ./logs.jsonl.zst`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 0, "Number of entries per kind, capped at the window")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "Write the entries to a zstd-compressed JSON lines file")
	logsCmd.Flags().StringVar(&logsRead, "read", "", "Print entries from an export file instead of the store")
}

func runLogs(cmd *cobra.Command, args []string) error {
	if logsRead != "" {
		return printExport(logsRead)
	}

	uid, err := resolveUser()
	if err != nil {
		return err
	}

	kinds := model.Kinds
	if len(args) == 1 && args[0] != "all" {
		kind, err := model.ParseKind(args[0])
		if err != nil {
			return err
		}
		kinds = []model.Kind{kind}
	}

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	var all []model.LogEntry
	for _, kind := range kinds {
		entries, err := svc.RecentLogsN(cmd.Context(), kind, uid, logsLimit)
		if err != nil {
			return err
		}
		all = append(all, entries...)
		if logsExport == "" {
			printEntries(kind, entries)
		}
	}

	if logsExport != "" {
		return writeExport(logsExport, all)
	}
	return nil
}

func writeExport(path string, entries []model.LogEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}
	if err := storage.WriteExport(f, entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Exported %d entries to %s\n", len(entries), path)
	return nil
}

func printExport(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := storage.ReadExport(f)
	if err != nil {
		return err
	}

	byKind := make(map[model.Kind][]model.LogEntry)
	for _, e := range entries {
		byKind[e.Kind] = append(byKind[e.Kind], e)
	}
	for _, kind := range model.Kinds {
		if len(byKind[kind]) > 0 {
			printEntries(kind, byKind[kind])
		}
	}
	return nil
}

func printEntries(kind model.Kind, entries []model.LogEntry) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s logs (%d)", kind, len(entries))))
	if len(entries) == 0 {
		fmt.Println(labelStyle.Render("  none"))
		fmt.Println()
		return
	}

	for _, e := range entries {
		ts := labelStyle.Render(e.Timestamp.Local().Format(time.DateTime))
		switch kind {
		case model.KindPing:
			line := fmt.Sprintf("%-28s %8.2f ms %6.1f%%", e.Ping.Target, e.Ping.AvgLatencyMs, e.Ping.PacketLossPct)
			if e.Ping.IsFailure() {
				line = failStyle.Render(line + " " + string(e.Ping.Failure))
			}
			fmt.Printf("  %s  %s\n", ts, line)
		case model.KindUptime:
			status := okStyle.Render(string(e.Uptime.Status))
			if e.Uptime.Status != model.StatusOnline {
				status = failStyle.Render(string(e.Uptime.Status))
			}
			fmt.Printf("  %s  %-36s %s\n", ts, e.Uptime.URL, status)
		case model.KindBandwidth:
			fmt.Printf("  %s  %7.2f Mbps down %7.2f Mbps up\n", ts, e.Bandwidth.DownloadMbps, e.Bandwidth.UploadMbps)
		}
	}
	fmt.Println()
}
