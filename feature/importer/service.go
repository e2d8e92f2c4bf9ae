package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tmsops/core/schedule"
	"tmsops/core/stats"
	"tmsops/core/tms"

	"go.uber.org/zap"
)

// Service performs create-if-absent bulk imports: each valid row becomes
// one creation call, and a 409 response counts as skipped, never as an
// error. Invalid rows are logged and counted without aborting the run.
type Service struct {
	client   *tms.Client
	log      *zap.Logger
	counters *stats.Counters

	// DryRun skips mutating calls; rows that would have been sent count
	// as success.
	DryRun bool
	// Concurrency bounds simultaneous creation calls.
	Concurrency int
	// Progress, when set, is called once per terminally classified row.
	Progress func()
}

// NewService creates the import service.
func NewService(client *tms.Client, log *zap.Logger) *Service {
	return &Service{
		client:      client,
		log:         log,
		counters:    &stats.Counters{},
		Concurrency: 4,
	}
}

// Run streams rows from the reader, dispatches creation calls through
// the bounded scheduler, and returns the aggregated statistics. Only a
// reader-level failure (unreadable input) aborts the run; row-level
// problems are counted and reported.
func (s *Service) Run(ctx context.Context, rows *Reader) (stats.Summary, error) {
	sched := schedule.New(s.Concurrency, s.log)
	if s.Progress != nil {
		sched.OnProgress(func(int64) { s.Progress() })
	}

	for {
		record, err := rows.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			sched.Wait()
			return s.counters.Snapshot(), fmt.Errorf("failed to read input row: %w", err)
		}
		if ctx.Err() != nil {
			break
		}
		s.dispatch(ctx, sched, record)
	}

	sched.Wait()
	return s.counters.Snapshot(), ctx.Err()
}

// dispatch classifies one row and, when valid, schedules its creation.
func (s *Service) dispatch(ctx context.Context, sched *schedule.Scheduler, record Record) {
	kind := record.Kind()
	schema, ok := Schemas[kind]
	if !ok {
		s.log.Error("invalid entity type, skipping row",
			zap.String("type", record["type"]),
			zap.String("name", record["name"]))
		s.counters.AddError()
		if s.Progress != nil {
			s.Progress()
		}
		return
	}

	if err := schema.Validate(record); err != nil {
		s.log.Warn("invalid row, skipping",
			zap.String("type", kind),
			zap.String("name", record["name"]),
			zap.Error(err))
		s.counters.AddError()
		if s.Progress != nil {
			s.Progress()
		}
		return
	}

	if s.DryRun {
		s.counters.AddSuccess()
		if s.Progress != nil {
			s.Progress()
		}
		return
	}

	name := record["name"]
	sched.Go(ctx, kind+"/"+name, func(ctx context.Context) error {
		return s.create(ctx, schema, record)
	})
}

// create issues the creation call and classifies the outcome.
func (s *Service) create(ctx context.Context, schema Schema, record Record) error {
	res, err := s.client.Do(ctx, schema.Endpoint, schema.Params(record), nil, schema.Payload(record))
	if err != nil {
		s.counters.AddError()
		return err
	}

	switch {
	case res.OK():
		s.counters.AddSuccess()
		return nil
	case res.Status == 409:
		// Already exists: the desired state holds.
		s.log.Debug("entity already exists",
			zap.String("type", schema.Kind),
			zap.String("name", record["name"]))
		s.counters.AddSkipped()
		return nil
	default:
		s.counters.AddError()
		return fmt.Errorf("create %s %q: %w", schema.Kind, record["name"], res.Err())
	}
}
