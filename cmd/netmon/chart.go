package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/report"
)

var chartOutput string

var chartCmd = &cobra.Command{
	Use:   "chart ping|bandwidth",
	Short: "Render a PNG chart of recent logs",
	Long: `Render the user's recent ping latencies (one line per target) or
bandwidth samples as a PNG time chart.

Examples:
  netmon chart ping --user 1
  netmon chart bandwidth --user 1 -o bandwidth.png`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"ping", "bandwidth"},
	RunE:      runChart,
}

func init() {
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "", "Output file (default: <kind>.png)")
}

func runChart(cmd *cobra.Command, args []string) error {
	uid, err := resolveUser()
	if err != nil {
		return err
	}
	kind, err := model.ParseKind(args[0])
	if err != nil {
		return err
	}

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	entries, err := svc.RecentLogs(cmd.Context(), kind, uid)
	if err != nil {
		return err
	}

	path := chartOutput
	if path == "" {
		path = string(kind) + ".png"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.RenderChart(f, kind, entries); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("Chart saved to: %s\n", path)
	return nil
}
