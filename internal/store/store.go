// Package store persists run history for the analysis pipeline.
package store

import (
	"context"
	"time"

	"github.com/opencivic/opendata-cli/internal/analysis"
)

// Run is one orchestrator invocation.
type Run struct {
	ID         string            `json:"id"`
	Query      string            `json:"query"`
	Mode       string            `json:"mode"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Results    []analysis.Result `json:"results,omitempty"`
}

// Run status values.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Store defines the persistence interface. It satisfies analysis.Recorder.
type Store interface {
	CreateRun(ctx context.Context, query, mode string) (string, error)
	SaveResult(ctx context.Context, runID string, res analysis.Result) error
	FinishRun(ctx context.Context, runID string, succeeded bool) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

func statusFor(succeeded bool) string {
	if succeeded {
		return StatusSucceeded
	}
	return StatusFailed
}
