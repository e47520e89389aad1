package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/netmon/internal/model"
)

var uptimeCmd = &cobra.Command{
	Use:   "uptime [url...]",
	Short: "Check whether URLs are online",
	Long: `Fetch each URL once and log Online when it answers 200, Offline
otherwise. URLs without a scheme get http://.

Examples:
  netmon uptime --user 1
  netmon uptime --user 1 example.com https://status.example.org/health`,
	RunE: runUptime,
}

func runUptime(cmd *cobra.Command, args []string) error {
	uid, err := resolveUser()
	if err != nil {
		return err
	}
	urls := args
	if len(urls) == 0 {
		urls = []string{"google.com"}
	}

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	var firstErr error
	for _, url := range urls {
		r, err := svc.CheckUptime(cmd.Context(), url, uid)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if r.Status == model.StatusOnline {
			fmt.Printf("%s %s %s\n", okStyle.Render("✓"), r.URL, valueStyle.Render(string(r.Status)))
		} else {
			fmt.Printf("%s %s %s\n", failStyle.Render("✗"), r.URL, failStyle.Render(string(r.Status)))
		}
	}
	return firstErr
}
