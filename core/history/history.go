package history

import (
	"context"
	"fmt"
	"time"

	"tmsops/core/stats"

	"gorm.io/gorm"
)

// Run is one row of the run-history audit table.
type Run struct {
	RunID      string    `gorm:"column:run_id;primaryKey;size:36"`
	Command    string    `gorm:"column:command;size:32"`
	Success    int64     `gorm:"column:success"`
	Skipped    int64     `gorm:"column:skipped"`
	Errors     int64     `gorm:"column:errors"`
	StartedAt  time.Time `gorm:"column:started_at"`
	FinishedAt time.Time `gorm:"column:finished_at"`
}

// TableName fixes the table name independent of GORM pluralization.
func (Run) TableName() string {
	return "tmsops_runs"
}

// Recorder persists one summary row per invocation.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder migrates the runs table and returns a recorder.
func NewRecorder(db *gorm.DB) (*Recorder, error) {
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate runs table: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Record writes the run summary. History rows are write-once; they are
// never read back into reconciliation decisions.
func (r *Recorder) Record(ctx context.Context, runID, command string, startedAt time.Time, s stats.Summary) error {
	run := Run{
		RunID:      runID,
		Command:    command,
		Success:    s.Success,
		Skipped:    s.Skipped,
		Errors:     s.Errors,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}
