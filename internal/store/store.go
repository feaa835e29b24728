// Package store persists cleaning run history: what was cleaned, with which
// options, and the resulting report or failure.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/datacleaner/internal/model"
)

// ErrNotFound is returned (wrapped) when a run does not exist.
var ErrNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	FileName string          `json:"file_name,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

// Store defines the persistence interface for cleaning runs.
type Store interface {
	// CreateRun records a run in the running state.
	CreateRun(ctx context.Context, source model.RunSource) (*model.Run, error)
	// CompleteRun stores the report and the cleaned snapshot's name.
	CompleteRun(ctx context.Context, runID string, report *model.CleaningReport, cleanedFile string) error
	// FailRun stores the failed step and the audit log up to the failure.
	FailRun(ctx context.Context, runID string, failure *model.FailureRecord) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
