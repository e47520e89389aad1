package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List devices on the local subnet",
	Long: `Broadcast ARP requests across the local /24 and list every host that
answers. Requires raw socket privileges (root or CAP_NET_RAW) on Linux.
Scan results are not logged.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	devices := svc.ScanDevices(cmd.Context())
	if len(devices) == 0 {
		fmt.Println(labelStyle.Render("No devices answered"))
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%-16s %s", "IP", "MAC")))
	for _, d := range devices {
		fmt.Printf("%-16s %s\n", d.Address, valueStyle.Render(d.HardwareAddress))
	}
	fmt.Printf("\n%d device(s)\n", len(devices))
	return nil
}
