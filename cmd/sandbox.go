package cmd

import (
	"fmt"

	"tmsops/core/config"
	"tmsops/core/logger"
	"tmsops/core/sandbox"

	"github.com/spf13/cobra"
)

var (
	sandboxAddr           string
	sandboxSeed           bool
	sandboxRateLimitEvery int
)

// sandboxCmd runs the local rehearsal API server.
var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run a local in-memory TMS API for rehearsing operator runs",
	Long: `Start a local API server that mimics the TMS endpoints the other
commands consume. Point a command at it with --base-url to rehearse a
run with real HTTP traffic and no production side effects.

Examples:
  # Seeded sandbox with an occasional injected 429
  tmsops sandbox --seed --rate-limit-every 20

  # Rehearse a prune against it
  tmsops prune --base-url http://localhost:8090 --cutoff 2025-03-01T00:00:00Z --dry-run`,
	RunE: runSandbox,
}

func init() {
	sandboxCmd.Flags().StringVar(&sandboxAddr, "addr", "", "Listen address (overrides configuration)")
	sandboxCmd.Flags().BoolVar(&sandboxSeed, "seed", false, "Seed a small rehearsal account")
	sandboxCmd.Flags().IntVar(&sandboxRateLimitEvery, "rate-limit-every", 0, "Inject a 429 on every Nth request")

	RootCmd.AddCommand(sandboxCmd)
}

func runSandbox(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	addr := cfg.Sandbox.Addr
	if sandboxAddr != "" {
		addr = sandboxAddr
	}

	server := sandbox.NewServer(sandbox.NewStore(), l)
	server.Token = cfg.Sandbox.Token
	server.RateLimitEvery = sandboxRateLimitEvery
	if sandboxSeed {
		server.Seed()
	}

	return server.Listen(addr)
}
