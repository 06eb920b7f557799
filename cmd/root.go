package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/clawdash/internal/gateway"
	"github.com/joescharf/clawdash/internal/output"
	"github.com/joescharf/clawdash/internal/snapshot"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui *output.UI

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "clawdash",
	Short: "Mission control dashboard for OpenClaw agents",
	Long: `clawdash watches an OpenClaw gateway and presents every session,
cron job, and sub-agent as a process on a kanban-style board.
It serves a REST and SSE API for dashboards and offers terminal views
of the same data.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		// Bare `clawdash` shows the board when a gateway responds,
		// help otherwise.
		if err := boardRun(); err != nil {
			return cmd.Help()
		}
		return nil
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/clawdash/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "clawdash")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CLAWDASH")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "clawdash")

	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "clawdash.db"))
	viper.SetDefault("port", 8787)
	viper.SetDefault("openclaw.bin", "openclaw")
	viper.SetDefault("openclaw.timeout", "10s")
	viper.SetDefault("stream.data_interval", "3s")
	viper.SetDefault("stream.heartbeat_interval", "30s")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
}

// getGateway builds the CLI-backed gateway client from config.
func getGateway() gateway.Client {
	return gateway.NewCLIClient(gateway.Config{
		Bin:     viper.GetString("openclaw.bin"),
		Timeout: viper.GetDuration("openclaw.timeout"),
	})
}

// getCollector builds a snapshot collector over the configured gateway.
func getCollector() *snapshot.Collector {
	return snapshot.NewCollector(getGateway(), nil, nil)
}

// timeAgo returns a human-readable duration from a time.
func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
