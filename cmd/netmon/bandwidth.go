package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var bandwidthCmd = &cobra.Command{
	Use:   "bandwidth",
	Short: "Take a bandwidth sample",
	Long:  "Take one download/upload throughput sample in Mbps and log it for the user.",
	Args:  cobra.NoArgs,
	RunE:  runBandwidth,
}

func runBandwidth(cmd *cobra.Command, args []string) error {
	uid, err := resolveUser()
	if err != nil {
		return err
	}

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	s, err := svc.SampleBandwidth(cmd.Context(), uid)
	printField("Download:", fmt.Sprintf("%.2f Mbps", s.DownloadMbps))
	printField("Upload:", fmt.Sprintf("%.2f Mbps", s.UploadMbps))
	return err
}
