package cmd

import (
	"context"
	"errors"

	"tmsops/feature/linker"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	linkParentProject string
	linkDryRun        bool
	linkConcurrency   int
)

// linkCmd links parent project keys to same-named keys elsewhere.
var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link parent project keys to matching keys in other projects",
	Long: `Link every key of the parent project to keys with the same name in
all other projects, so translations propagate from the parent.

Existing links are fetched first; a child key already linked anywhere is
never linked again within the run.

Examples:
  # Link from the parent project
  tmsops link --parent-project b030ce2bb69df7f099af17804e846f7a

  # Preview without creating links
  tmsops link --parent-project b030ce2bb69df7f099af17804e846f7a --dry-run`,
	RunE: runLink,
}

func init() {
	linkCmd.Flags().StringVar(&linkParentProject, "parent-project", "", "Parent project ID (required)")
	linkCmd.Flags().BoolVar(&linkDryRun, "dry-run", false, "Plan links without creating them")
	linkCmd.Flags().IntVar(&linkConcurrency, "concurrency-limit", 10, "Maximum simultaneous link-creation calls")
	_ = linkCmd.MarkFlagRequired("parent-project")

	RootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rt.log.Info("starting key linking",
		zap.String("parent_project", linkParentProject),
		zap.Bool("dry_run", linkDryRun))

	service := linker.NewService(rt.client, rt.log)
	service.DryRun = linkDryRun
	service.Concurrency = linkConcurrency

	sp, advance := newProgress("linking keys")
	service.Progress = advance
	sp.Start()

	summary, runErr := service.Run(ctx, linkParentProject)
	sp.Stop()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		// Setup failure: nothing meaningful ran, report via exit code.
		return runErr
	}

	rt.report("link", summary, runErr != nil)
	return nil
}
