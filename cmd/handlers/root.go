package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"advisorbrief/internal/config"
	"advisorbrief/internal/logger"
	"advisorbrief/internal/metrics"
)

var (
	cfgFile     string
	metricsAddr string
	logLevel    string
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "advisorbrief",
		Short: "Prepare client meeting briefings for financial advisors.",
		Long: `advisorbrief assembles a pre-meeting briefing for an advisor: client profile and
holdings from the CRM, a digest of past correspondence, date-filtered market news
for the client's industry and holdings, and cited narrative sections shaped by the
advisor's detail preferences.

Examples:
  # Full briefing from a request file
  advisorbrief brief --request meeting.yaml

  # Offline run against a CRM fixture
  advisorbrief brief --request meeting.yaml --fixture crm.yaml --offline

  # Inspect what retrieval keeps for one holding
  advisorbrief news holdings --holding "Apple Inc"`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.advisorbrief.yaml)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while the command runs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override app.log_level (debug, info, warn, error)")

	rootCmd.AddCommand(NewBriefCmd())
	rootCmd.AddCommand(NewNewsCmd())
	rootCmd.AddCommand(NewCiteCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	level := cfg.App.LogLevel
	if cfg.App.Debug {
		level = "debug"
	}
	if logLevel != "" {
		level = logLevel
	}
	logger.SetLevel(level)
	return nil
}

// startMetrics serves the metrics endpoint in the background when an address is set,
// from the flag or from metrics.addr. The returned func stops it.
func startMetrics(cfg *config.Config) func() {
	addr := metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr == "" {
		return func() {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := metrics.Serve(ctx, addr); err != nil {
			logger.Error("metrics endpoint stopped", err, "addr", addr)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return cancel
}
