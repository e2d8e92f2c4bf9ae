package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"tmsops/core/config"
	"tmsops/core/database"
	"tmsops/core/history"
	"tmsops/core/logger"
	"tmsops/core/stats"
	"tmsops/core/tms"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// runtime bundles what every API-facing command needs: configuration,
// logger, client, and the optional history recorder.
type runtime struct {
	cfg       *config.Config
	log       *zap.Logger
	client    *tms.Client
	runID     string
	startedAt time.Time
	recorder  *history.Recorder
}

// newRuntime loads configuration, applies global flag overrides, and
// wires the shared pieces. Configuration or authentication problems here
// are fatal-setup failures: the command exits non-zero without running.
func newRuntime() (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiToken != "" {
		cfg.API.Token = apiToken
	}
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	runID := uuid.NewString()
	l = logger.WithRun(l, runID)

	rt := &runtime{
		cfg:       cfg,
		log:       l,
		client:    tms.NewClient(cfg.API, l),
		runID:     runID,
		startedAt: time.Now(),
	}

	// History recording is optional; a failed connection degrades to an
	// auditless run instead of aborting.
	if cfg.Database.Enabled {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			l.Warn("run history disabled, database unreachable", zap.Error(err))
		} else if recorder, err := history.NewRecorder(db); err != nil {
			l.Warn("run history disabled", zap.Error(err))
		} else {
			rt.recorder = recorder
		}
	}

	return rt, nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM. Mutating
// calls already issued are left as-is; the accumulated statistics are
// still reported on the way out.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// report prints the end-of-run summary and records it in the history
// table when enabled. Item-level failures never change the exit code.
func (rt *runtime) report(command string, summary stats.Summary, interrupted bool) {
	if interrupted {
		rt.log.Warn("run interrupted, reporting partial statistics")
	}
	rt.log.Info("run finished",
		zap.Int64("success", summary.Success),
		zap.Int64("skipped", summary.Skipped),
		zap.Int64("errors", summary.Errors))
	fmt.Println(summary.Render())

	if rt.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := rt.recorder.Record(ctx, rt.runID, command, rt.startedAt, summary); err != nil {
			rt.log.Warn("failed to record run history", zap.Error(err))
		}
	}

	_ = rt.log.Sync()
}

// newProgress builds a spinner whose suffix tracks completions. The
// returned function advances it once per terminal outcome. Only the
// render goroutine touches Suffix: the PreUpdate hook reads the counter
// on each repaint, so concurrent work items never race on the spinner.
func newProgress(verb string) (*spinner.Spinner, func()) {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = fmt.Sprintf(" %s...", verb)

	done := &atomic.Int64{}
	sp.PreUpdate = func(s *spinner.Spinner) {
		if n := done.Load(); n > 0 {
			s.Suffix = fmt.Sprintf(" %s... %d done", verb, n)
		}
	}
	advance := func() { done.Add(1) }
	return sp, advance
}
