package main

import (
	"github.com/spf13/cobra"

	"github.com/user/netmon/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the terminal dashboard",
	Long: `Launch an interactive terminal dashboard for a user.

The dashboard shows:
- Public and local IP
- Recent ping, uptime and bandwidth logs
- Devices on the local subnet

Keys: tab switches log, p/u/b measure, s rescans, r refreshes, q quits.`,
	Args: cobra.NoArgs,
	RunE: runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	uid, err := resolveUser()
	if err != nil {
		return err
	}

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	return tui.NewApp(svc, cfg, uid).Run()
}
