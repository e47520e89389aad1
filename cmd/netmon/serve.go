package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/netmon/internal/web"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the measurement HTTP API. Callers identify themselves with the
X-User-ID header; authentication is expected to happen in front of netmon.

Endpoints:
  POST /api/ping            {"target": "..."}
  POST /api/uptime          {"url": "..."}
  POST /api/bandwidth
  GET  /api/devices
  GET  /api/identity
  GET  /api/logs/{kind}
  GET  /api/charts/{kind}.png
  GET  /report`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default: web_port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	port := servePort
	if port == 0 {
		port = cfg.WebPort
	}

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Printf("Starting API server on http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop")

	srv := web.NewServer(svc, cfg, port)
	return srv.Start()
}
