package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/netmon/internal/model"
)

var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Show public and local IP addresses",
	Args:  cobra.NoArgs,
	RunE:  runIP,
}

func runIP(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	id := svc.Identity(cmd.Context())

	if id.PublicIP == model.PublicIPUnavailable {
		fmt.Printf("  %s %s\n", labelStyle.Render("Public IP:"), failStyle.Render(id.PublicIP))
	} else {
		printField("Public IP:", id.PublicIP)
	}
	printField("Local IP:", id.LocalIP)
	if id.Country != "" {
		printField("Country:", id.Country)
	}
	if id.ASN != 0 {
		printField("ASN:", fmt.Sprintf("AS%d %s", id.ASN, id.ASNOrg))
	}
	return nil
}
