package store

import (
	"context"

	"github.com/c-hydro/shybox/pkg/model"
)

// Store defines the provenance persistence layer: runs and the
// per-timestamp configuration records they emitted.
type Store interface {
	CreateRun(ctx context.Context, run *model.Run) error
	UpdateRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*model.Run, error)

	CreateStepResult(ctx context.Context, runID string, res *model.StepResult) error
	ListStepResults(ctx context.Context, runID string) ([]*model.StepResult, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
