package ports

import (
	"context"

	"brandtrack/domain/core"
	"brandtrack/domain/research"
	"brandtrack/models"
)

// RunRepository defines the interface for research run storage
type RunRepository interface {
	// CreateRun persists a new run in running state
	CreateRun(ctx context.Context, run *models.ResearchRun) error

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, id core.RunID) (*models.ResearchRun, error)

	// ListRunsBySession returns a session's runs newest first
	ListRunsBySession(ctx context.Context, sessionID core.SessionID) ([]*models.ResearchRun, error)

	// PreviousCompletedRun returns the chronologically nearest completed
	// run of the same session started before the given run, or nil
	PreviousCompletedRun(ctx context.Context, run *models.ResearchRun) (*models.ResearchRun, error)

	// UpdateRun persists run status transitions
	UpdateRun(ctx context.Context, run *models.ResearchRun) error
}

// ResponseRepository defines the interface for structured response storage
type ResponseRepository interface {
	// SaveResponse persists one structured response record
	SaveResponse(ctx context.Context, record *research.ResponseRecord) error

	// ListResponsesByRun returns a run's records in insertion order,
	// the ordered collection every statistic is computed from
	ListResponsesByRun(ctx context.Context, runID core.RunID) ([]research.ResponseRecord, error)

	// CountResponsesByRun returns the stored record count for progress reporting
	CountResponsesByRun(ctx context.Context, runID core.RunID) (int, error)
}

// SnapshotRepository caches computed statistics per (run, model, brand).
// Snapshots are derived data; the engine recomputes them from responses
// whenever the cache is cold.
type SnapshotRepository interface {
	// SaveSnapshots replaces the snapshots for one (run, model) scope
	SaveSnapshots(ctx context.Context, snapshots []*models.AnalysisSnapshot) error

	// ListSnapshots returns the cached snapshots for a (run, model) scope
	ListSnapshots(ctx context.Context, runID core.RunID, modelName string) ([]*models.AnalysisSnapshot, error)
}
