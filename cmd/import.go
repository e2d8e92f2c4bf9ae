package cmd

import (
	"context"
	"errors"
	"fmt"

	"tmsops/core/storage"
	"tmsops/feature/importer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importDelimiter   string
	importDryRun      bool
	importConcurrency int
)

// importCmd performs a create-if-absent bulk entity import.
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Bulk import entities from delimited text",
	Long: `Import domains, subdomains, clients, and business units from a
delimited text file. The header row names the fields; a reserved "type"
column selects the entity schema per row.

Entities that already exist (HTTP 409) count as skipped. Invalid rows
are logged and counted without aborting the run.

Examples:
  # Import from a local CSV
  tmsops import entities.csv

  # Semicolon-delimited input, validate only
  tmsops import entities.csv --delimiter ';' --dry-run

  # Import straight from object storage
  tmsops import s3://imports/entities.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", ",", "Input field delimiter")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate rows without creating entities")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency-limit", 4, "Maximum simultaneous creation calls")

	RootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	inputPath := args[0]
	delim := []rune(importDelimiter)
	if len(delim) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", importDelimiter)
	}

	// An s3:// input needs the storage client; local paths do not.
	var store storage.Client
	if storage.IsObjectPath(inputPath) {
		store, err = storage.NewClient(rt.cfg.Storage)
		if err != nil {
			return err
		}
	}

	input, err := storage.Open(ctx, store, inputPath)
	if err != nil {
		return err
	}
	defer input.Close()

	rows, err := importer.NewReader(input, delim[0])
	if err != nil {
		return fmt.Errorf("failed to read input %q: %w", inputPath, err)
	}

	rt.log.Info("starting import",
		zap.String("input", inputPath),
		zap.Bool("dry_run", importDryRun))

	service := importer.NewService(rt.client, rt.log)
	service.DryRun = importDryRun
	service.Concurrency = importConcurrency

	sp, advance := newProgress("importing")
	service.Progress = advance
	sp.Start()

	summary, runErr := service.Run(ctx, rows)
	sp.Stop()

	rt.report("import", summary, runErr != nil)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		// The input became unreadable mid-stream.
		return runErr
	}
	return nil
}
