package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tmsops/feature/pruner"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	pruneLimit       int
	pruneCutoff      string
	pruneDryRun      bool
	pruneConcurrency int
)

// pruneCmd removes over-quota users per project.
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove over-quota users from every project",
	Long: `Enforce the seat quota in every project: users provisioned after the
cutoff are counted, and when they exceed the limit the excess is
removed, newest first. Users created before the cutoff are never
touched.

Examples:
  # Keep at most 150 post-cutoff users per project
  tmsops prune --cutoff 2025-03-01T00:00:00Z

  # Preview without deleting
  tmsops prune --cutoff 2025-03-01T00:00:00Z --limit 100 --dry-run`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().IntVar(&pruneLimit, "limit", 150, "Maximum post-cutoff users kept per project")
	pruneCmd.Flags().StringVar(&pruneCutoff, "cutoff", "", "Provisioning cutoff timestamp, RFC 3339 (required)")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Plan deletions without executing them")
	pruneCmd.Flags().IntVar(&pruneConcurrency, "concurrency-limit", 10, "Maximum simultaneous deletion calls")
	_ = pruneCmd.MarkFlagRequired("cutoff")

	RootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	cutoff, err := time.Parse(time.RFC3339, pruneCutoff)
	if err != nil {
		return fmt.Errorf("invalid --cutoff %q: %w", pruneCutoff, err)
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt.log.Info("starting user pruning",
		zap.Int("limit", pruneLimit),
		zap.Time("cutoff", cutoff),
		zap.Bool("dry_run", pruneDryRun))

	service := pruner.NewService(rt.client, rt.log)
	service.Limit = pruneLimit
	service.Cutoff = cutoff
	service.DryRun = pruneDryRun
	service.Concurrency = pruneConcurrency

	sp, advance := newProgress("pruning users")
	service.Progress = advance
	sp.Start()

	summary, runErr := service.Run(ctx)
	sp.Stop()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		// Setup failure: the project listing itself failed.
		return runErr
	}

	rt.report("prune", summary, runErr != nil)
	return nil
}
