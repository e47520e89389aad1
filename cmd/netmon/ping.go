package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/netmon/internal/model"
)

var pingCmd = &cobra.Command{
	Use:   "ping [target...]",
	Short: "Measure latency and packet loss",
	Long: `Run the system ping tool against one or more targets and log the
average latency and packet loss for the user. Unreachable targets are
logged as 999 ms / 100% loss.

Examples:
  netmon ping --user 1
  netmon ping --user 1 8.8.8.8 1.1.1.1 example.com`,
	RunE: runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	uid, err := resolveUser()
	if err != nil {
		return err
	}
	targets := args
	if len(targets) == 0 {
		targets = []string{"google.com"}
	}

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	results, logErr := svc.ProbeTargets(cmd.Context(), targets, uid)
	for i, r := range results {
		printProbe(targets[i], r)
	}
	return logErr
}

func printProbe(target string, r model.ProbeResult) {
	if r.IsFailure() {
		fmt.Printf("%s %s %s\n", failStyle.Render("✗"), target,
			labelStyle.Render(fmt.Sprintf("unreachable (%s)", r.Failure)))
		return
	}
	fmt.Printf("%s %s %s\n", okStyle.Render("✓"), target,
		valueStyle.Render(fmt.Sprintf("%.2f ms, %.1f%% loss", r.AvgLatencyMs, r.PacketLossPct)))
}
