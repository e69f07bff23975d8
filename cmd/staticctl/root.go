package main

import (
	"github.com/bilgisen/staticd/internal/logger"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "staticctl",
	Short: "Operational tooling for staticd",
	Long:  "staticctl checks the bundle output layout, publishes the static root to object storage and probes a running server.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logger.Config{
			Level:  logLevel,
			Output: "stderr",
			Pretty: true,
		})
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(probeCmd)
}
