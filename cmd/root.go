package cmd

import (
	"fmt"
	"os"

	"tmsops/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flag overrides applied on top of the loaded configuration.
	apiToken string
	baseURL  string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "tmsops",
	Short: "TMS Operator Toolkit",
	Long: `tmsops automates bulk operations against a translation management
system: entity imports, cross-project key linking, and user quota
enforcement. All commands share a rate-limit-aware API client and end
with a success/skipped/errors report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format to match user expectations for a CLI tool.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&apiToken, "api-token", "", "API token (overrides configuration)")
	RootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL (overrides configuration)")
}
