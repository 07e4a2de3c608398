package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"timemachine/internal/config"
	"timemachine/internal/logging"
)

var (
	cfg      *config.Config
	log      zerolog.Logger
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "timemachine",
	Short: "Replay recorded I/Q captures as a live sample stream",
	Long: `Time Machine replays recorded radio captures from the catalog.

A loaded recording can be played, paused, sought and stopped over the
HTTP API while its samples are streamed to DSP clients on a Unix socket
at the pace they were captured.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		log = logging.New(os.Stderr, level, cfg.Log.Format)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recordingsCmd)
	rootCmd.AddCommand(tapCmd)
}
