// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and a console encoding for interactive CLI use.
//
// # Run Correlation
//
// Every invocation of the CLI is stamped with a run ID. The WithRun helper
// attaches that ID to the logger so all lines of one run can be correlated,
// including the summary row written to the history table.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (interactive)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "console"})
//	log = logger.WithRun(log, runID)
//	log.Info("starting import")
package logger
