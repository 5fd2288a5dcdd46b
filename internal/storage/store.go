package storage

import (
	"context"
	"errors"

	"dfaevo/internal/model"
)

var (
	ErrNotInitialized = errors.New("store is not initialized")
	ErrMissingRunID   = errors.New("run id is required")
)

// Store persists search runs, their best-so-far snapshots, final populations
// and per-snapshot diagnostics. Implementations are safe for concurrent use.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first. limit <= 0 means no limit.
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	AppendSnapshot(ctx context.Context, snapshot model.SnapshotRecord) error
	// GetSnapshots returns a run's snapshots ordered by sequence.
	GetSnapshots(ctx context.Context, runID string) ([]model.SnapshotRecord, bool, error)
	SavePopulation(ctx context.Context, population model.PopulationRecord) error
	GetPopulation(ctx context.Context, runID string) (model.PopulationRecord, bool, error)
	SaveDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
}
