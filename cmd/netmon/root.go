package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/netmon/internal/monitor"
	"github.com/user/netmon/internal/util"
)

var version = "1.0.0"

var (
	cfgFile string
	userID  int64
	cfg     *util.Config
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "netmon",
	Short: "Per-user network health monitor",
	Long: `netmon measures network health on behalf of a user:
- Latency and packet loss via the system ping tool
- HTTP uptime of URLs
- Bandwidth samples
- Devices on the local subnet via ARP
- Public and local IP identity

Every measurement except device scans is logged under the user's id and can
be reviewed with logs, report, chart, the web API or the terminal dashboard.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.netmon/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int64VarP(&userID, "user", "u", 0,
		"user id to log measurements under (default is watch_user_id)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(uptimeCmd)
	rootCmd.AddCommand(bandwidthCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(ipCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	// Add shell completion
	rootCmd.AddCommand(completionCmd)
}

func initConfig() {
	var err error
	cfg, err = util.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	util.InitLogger(cfg.LogLevel, cfg.LogFile)
}

// resolveUser returns the --user flag, falling back to watch_user_id.
func resolveUser() (int64, error) {
	id := userID
	if id == 0 {
		id = cfg.WatchUserID
	}
	if id <= 0 {
		return 0, fmt.Errorf("a user id is required: pass --user or set watch_user_id")
	}
	return id, nil
}

func openService(ctx context.Context) (*monitor.Service, error) {
	svc, err := monitor.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return svc, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("netmon version %s\n", version)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for netmon.

To load completions:

Bash:
  $ source <(netmon completion bash)

Zsh:
  $ source <(netmon completion zsh)

Fish:
  $ netmon completion fish | source

PowerShell:
  PS> netmon completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}
