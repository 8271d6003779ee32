package postgres

import (
	"context"
	"database/sql"

	"brandtrack/domain/core"
	"brandtrack/domain/research"
	"brandtrack/internal/errors"
	"brandtrack/models"
	"brandtrack/ports"

	"github.com/jmoiron/sqlx"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// CreateRun persists a new run in running state
func (r *RunRepositoryImpl) CreateRun(ctx context.Context, run *models.ResearchRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO research_runs (id, session_id, status, models_used, iterations, started_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, run.ID, run.SessionID, run.Status, run.ModelsUsed, run.Iterations, run.StartedAt, run.ErrorMessage)
	if err != nil {
		return errors.Wrap(err, "insert research run")
	}
	return nil
}

// GetRun retrieves a run by ID
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*models.ResearchRun, error) {
	var run models.ResearchRun
	err := r.db.GetContext(ctx, &run, `
		SELECT id, session_id, status, models_used, iterations, started_at, completed_at, error_message
		FROM research_runs
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("run")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get research run")
	}
	return &run, nil
}

// ListRunsBySession returns a session's runs newest first
func (r *RunRepositoryImpl) ListRunsBySession(ctx context.Context, sessionID core.SessionID) ([]*models.ResearchRun, error) {
	var runs []*models.ResearchRun
	err := r.db.SelectContext(ctx, &runs, `
		SELECT id, session_id, status, models_used, iterations, started_at, completed_at, error_message
		FROM research_runs
		WHERE session_id = $1
		ORDER BY started_at DESC
	`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "list runs by session")
	}
	return runs, nil
}

// PreviousCompletedRun returns the chronologically nearest completed run
// of the same session started before the given run, or nil
func (r *RunRepositoryImpl) PreviousCompletedRun(ctx context.Context, run *models.ResearchRun) (*models.ResearchRun, error) {
	var prev models.ResearchRun
	err := r.db.GetContext(ctx, &prev, `
		SELECT id, session_id, status, models_used, iterations, started_at, completed_at, error_message
		FROM research_runs
		WHERE session_id = $1 AND status = $2 AND started_at < $3
		ORDER BY started_at DESC
		LIMIT 1
	`, run.SessionID, models.RunStatusComplete, run.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get previous completed run")
	}
	return &prev, nil
}

// UpdateRun persists run status transitions
func (r *RunRepositoryImpl) UpdateRun(ctx context.Context, run *models.ResearchRun) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE research_runs
		SET status = $2, completed_at = $3, error_message = $4
		WHERE id = $1
	`, run.ID, run.Status, run.CompletedAt, run.ErrorMessage)
	if err != nil {
		return errors.Wrap(err, "update research run")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFound("run")
	}
	return nil
}

// ResponseRepositoryImpl implements ResponseRepository for PostgreSQL
type ResponseRepositoryImpl struct {
	db *sqlx.DB
}

// NewResponseRepository creates a new PostgreSQL response repository
func NewResponseRepository(db *sqlx.DB) ports.ResponseRepository {
	return &ResponseRepositoryImpl{db: db}
}

// SaveResponse persists one structured response record
func (r *ResponseRepositoryImpl) SaveResponse(ctx context.Context, record *research.ResponseRecord) error {
	// Payload implements driver.Valuer and persists as JSONB
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO responses (id, run_id, question_id, persona_id, model_name, iteration,
			research_area, payload, reasoning, raw_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, record.ID, record.RunID, record.QuestionID, record.PersonaID, record.ModelName,
		record.Iteration, record.ResearchArea, record.Payload, record.Reasoning, record.RawText,
		record.CreatedAt.Time())
	if err != nil {
		return errors.Wrap(err, "insert response record")
	}
	return nil
}

// ListResponsesByRun returns a run's records in insertion order
func (r *ResponseRepositoryImpl) ListResponsesByRun(ctx context.Context, runID core.RunID) ([]research.ResponseRecord, error) {
	var records []research.ResponseRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT id, run_id, question_id, persona_id, model_name, iteration, research_area,
			payload, reasoning, raw_text, created_at
		FROM responses
		WHERE run_id = $1
		ORDER BY created_at, id
	`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "list responses by run")
	}
	return records, nil
}

// CountResponsesByRun returns the stored record count for progress reporting
func (r *ResponseRepositoryImpl) CountResponsesByRun(ctx context.Context, runID core.RunID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM responses WHERE run_id = $1`, runID)
	if err != nil {
		return 0, errors.Wrap(err, "count responses by run")
	}
	return count, nil
}

// SnapshotRepositoryImpl implements SnapshotRepository for PostgreSQL
type SnapshotRepositoryImpl struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new PostgreSQL snapshot repository
func NewSnapshotRepository(db *sqlx.DB) ports.SnapshotRepository {
	return &SnapshotRepositoryImpl{db: db}
}

// SaveSnapshots replaces the snapshots for one (run, model) scope
func (r *SnapshotRepositoryImpl) SaveSnapshots(ctx context.Context, snapshots []*models.AnalysisSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin snapshot transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM analysis_snapshots WHERE run_id = $1 AND model_name = $2
	`, snapshots[0].RunID, snapshots[0].ModelName)
	if err != nil {
		return errors.Wrap(err, "clear stale snapshots")
	}

	for _, s := range snapshots {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO analysis_snapshots (id, run_id, model_name, brand, stats, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, s.ID, s.RunID, s.ModelName, s.Brand, s.Stats, s.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "insert analysis snapshot")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit snapshot transaction")
	}
	return nil
}

// ListSnapshots returns the cached snapshots for a (run, model) scope
func (r *SnapshotRepositoryImpl) ListSnapshots(ctx context.Context, runID core.RunID, modelName string) ([]*models.AnalysisSnapshot, error) {
	var snapshots []*models.AnalysisSnapshot
	err := r.db.SelectContext(ctx, &snapshots, `
		SELECT id, run_id, model_name, brand, stats, created_at
		FROM analysis_snapshots
		WHERE run_id = $1 AND model_name = $2
		ORDER BY brand
	`, runID, modelName)
	if err != nil {
		return nil, errors.Wrap(err, "list analysis snapshots")
	}
	return snapshots, nil
}
