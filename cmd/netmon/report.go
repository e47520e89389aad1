package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/report"
	"github.com/user/netmon/internal/util"
)

var (
	reportLimit  int
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a markdown report",
	Long: `Generate a markdown report of the user's recent measurements with
latency, uptime and bandwidth summaries and Mermaid charts.

Examples:
  netmon report --user 1
  netmon report --user 1 --limit 5 --output ./report.md
  netmon report --user 1 --output -`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 0,
		"Entries per kind, capped at each kind's recent window (default: the window)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "",
		"Output file path, - for stdout (default: auto-generated)")
}

func runReport(cmd *cobra.Command, args []string) error {
	uid, err := resolveUser()
	if err != nil {
		return err
	}

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	gen := report.NewGenerator(svc.Store())
	opts := model.ReportOptions{
		UserID:     uid,
		Format:     "markdown",
		OutputPath: reportOutput,
		Limit:      reportLimit,
	}

	data, err := gen.Generate(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	content := report.FormatMarkdown(data)

	switch opts.OutputPath {
	case "-":
		fmt.Println(content)
		return nil
	case "":
		if err := util.EnsureDir(cfg.ReportOutputDir); err != nil {
			return fmt.Errorf("failed to create report dir: %w", err)
		}
		opts.OutputPath = filepath.Join(cfg.ReportOutputDir,
			fmt.Sprintf("netmon_report_%d_%s.md", uid, data.GeneratedAt.Format("20060102_150405")))
	}

	if err := os.WriteFile(opts.OutputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("Report saved to: %s\n", opts.OutputPath)

	fmt.Println()
	fmt.Println(titleStyle.Render("Report Summary"))
	printField("Probes:", fmt.Sprintf("%d (%d failed)", data.Ping.Count, data.Ping.Failures))
	printField("Avg latency:", fmt.Sprintf("%.2f ms (p95 %.2f ms)", data.Ping.AvgLatencyMs, data.Ping.P95LatencyMs))
	printField("Uptime:", fmt.Sprintf("%d/%d online", data.Uptime.Online, data.Uptime.Count))
	printField("Bandwidth:", fmt.Sprintf("%.2f / %.2f Mbps", data.Bandwidth.AvgDownloadMbps, data.Bandwidth.AvgUploadMbps))

	return nil
}
