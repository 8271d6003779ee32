package migration

import (
	"context"

	"brandtrack/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSessionsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create research_sessions table")
	}

	if err := r.createPersonasTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create personas table")
	}

	if err := r.createQuestionsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create questions table")
	}

	if err := r.createAssociationTables(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create session association tables")
	}

	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create research_runs table")
	}

	if err := r.createResponsesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create responses table")
	}

	if err := r.createSnapshotsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create analysis_snapshots table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createSessionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS research_sessions (
			id VARCHAR(64) PRIMARY KEY,
			category VARCHAR(255) NOT NULL,
			brands JSONB NOT NULL,
			market_context TEXT NOT NULL DEFAULT '',
			questions_per_persona INTEGER NOT NULL DEFAULT 5,
			research_areas JSONB NOT NULL DEFAULT '[]',
			primary_brand VARCHAR(255) NOT NULL DEFAULT '',
			language VARCHAR(50) NOT NULL DEFAULT 'English',
			status VARCHAR(50) NOT NULL DEFAULT 'setup',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createPersonasTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS personas (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			archetype VARCHAR(50) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			age_range VARCHAR(50) NOT NULL DEFAULT '',
			occupation VARCHAR(255) NOT NULL DEFAULT '',
			tech_savviness INTEGER NOT NULL,
			price_sensitivity INTEGER NOT NULL,
			brand_loyalty INTEGER NOT NULL,
			key_priorities JSONB NOT NULL DEFAULT '[]',
			origin VARCHAR(50) NOT NULL DEFAULT 'ai_generated',
			category VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createQuestionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS questions (
			id VARCHAR(64) PRIMARY KEY,
			persona_id VARCHAR(64) NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
			question_text TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			origin VARCHAR(50) NOT NULL DEFAULT 'ai_generated',
			category VARCHAR(255) NOT NULL DEFAULT '',
			research_area VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createAssociationTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_personas (
			session_id VARCHAR(64) NOT NULL REFERENCES research_sessions(id) ON DELETE CASCADE,
			persona_id VARCHAR(64) NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
			PRIMARY KEY (session_id, persona_id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_questions (
			session_id VARCHAR(64) NOT NULL REFERENCES research_sessions(id) ON DELETE CASCADE,
			question_id VARCHAR(64) NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
			PRIMARY KEY (session_id, question_id)
		)
	`)
	return err
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS research_runs (
			id VARCHAR(64) PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL REFERENCES research_sessions(id) ON DELETE CASCADE,
			status VARCHAR(50) NOT NULL DEFAULT 'running',
			models_used JSONB NOT NULL DEFAULT '[]',
			iterations INTEGER NOT NULL DEFAULT 1,
			started_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			completed_at TIMESTAMP WITH TIME ZONE,
			error_message TEXT NOT NULL DEFAULT ''
		)
	`)
	return err
}

func (r *MigrationRunner) createResponsesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS responses (
			id VARCHAR(64) PRIMARY KEY,
			run_id VARCHAR(64) NOT NULL REFERENCES research_runs(id) ON DELETE CASCADE,
			question_id VARCHAR(64) NOT NULL,
			persona_id VARCHAR(64) NOT NULL,
			model_name VARCHAR(100) NOT NULL,
			iteration INTEGER NOT NULL DEFAULT 0,
			research_area VARCHAR(255) NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			reasoning TEXT NOT NULL DEFAULT '',
			raw_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createSnapshotsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_snapshots (
			id VARCHAR(64) PRIMARY KEY,
			run_id VARCHAR(64) NOT NULL REFERENCES research_runs(id) ON DELETE CASCADE,
			model_name VARCHAR(100) NOT NULL,
			brand VARCHAR(255) NOT NULL,
			stats JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (run_id, model_name, brand)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_questions_persona ON questions(persona_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_session ON research_runs(session_id, started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_run ON responses(run_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_run_model ON responses(run_id, model_name)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_scope ON analysis_snapshots(run_id, model_name)`,
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}
