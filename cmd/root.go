package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"adreport-forensics/config"
	"adreport-forensics/utils"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "adscan",
	Short: "Ad report traffic anomaly forensics",
	Long: `Flags suspicious rows in an ad performance export:
ghost clicks (high CTR, poor landing page follow-through) and
impression flooding (outsized impressions with very low CTR).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"YAML config file (default: none, env vars and .env only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

// loadRuntime loads config and builds the logger every command uses.
func loadRuntime(cmd *cobra.Command) (*config.Config, *utils.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, utils.NewLoggerWithLevel(cmd.ErrOrStderr(), cfg.LogLevel), nil
}
