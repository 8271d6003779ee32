package postgres

import (
	"context"
	"database/sql"

	"brandtrack/domain/core"
	"brandtrack/internal/errors"
	"brandtrack/models"
	"brandtrack/ports"

	"github.com/jmoiron/sqlx"
)

// SessionRepositoryImpl implements SessionRepository for PostgreSQL
type SessionRepositoryImpl struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) ports.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

// CreateSession persists a new session
func (r *SessionRepositoryImpl) CreateSession(ctx context.Context, session *models.ResearchSession) error {
	// StringList implements driver.Valuer, so brand lists convert automatically
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO research_sessions (id, category, brands, market_context, questions_per_persona,
			research_areas, primary_brand, language, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, session.ID, session.Category, session.Brands, session.MarketContext, session.QuestionsPerPersona,
		session.ResearchAreas, session.PrimaryBrand, session.Language, session.Status,
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert research session")
	}
	return nil
}

// GetSession retrieves a session by ID
func (r *SessionRepositoryImpl) GetSession(ctx context.Context, id core.SessionID) (*models.ResearchSession, error) {
	var session models.ResearchSession
	err := r.db.GetContext(ctx, &session, `
		SELECT id, category, brands, market_context, questions_per_persona, research_areas,
			primary_brand, language, status, created_at, updated_at
		FROM research_sessions
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("session")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get research session")
	}
	return &session, nil
}

// ListSessions returns sessions newest first, optionally limited
func (r *SessionRepositoryImpl) ListSessions(ctx context.Context, limit int) ([]*models.ResearchSession, error) {
	query := `
		SELECT id, category, brands, market_context, questions_per_persona, research_areas,
			primary_brand, language, status, created_at, updated_at
		FROM research_sessions
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var sessions []*models.ResearchSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, errors.Wrap(err, "list research sessions")
	}
	return sessions, nil
}

// UpdateSession persists changed setup fields and status
func (r *SessionRepositoryImpl) UpdateSession(ctx context.Context, session *models.ResearchSession) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE research_sessions
		SET category = $2, brands = $3, market_context = $4, questions_per_persona = $5,
			research_areas = $6, primary_brand = $7, language = $8, status = $9, updated_at = NOW()
		WHERE id = $1
	`, session.ID, session.Category, session.Brands, session.MarketContext, session.QuestionsPerPersona,
		session.ResearchAreas, session.PrimaryBrand, session.Language, session.Status)
	if err != nil {
		return errors.Wrap(err, "update research session")
	}
	return nil
}

// DeleteSession removes a session and its attached material
func (r *SessionRepositoryImpl) DeleteSession(ctx context.Context, id core.SessionID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM research_sessions WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete research session")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFound("session")
	}
	return nil
}

// AttachPersona links an existing persona to a session
func (r *SessionRepositoryImpl) AttachPersona(ctx context.Context, sessionID core.SessionID, personaID core.PersonaID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_personas (session_id, persona_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, sessionID, personaID)
	if err != nil {
		return errors.Wrap(err, "attach persona to session")
	}
	return nil
}

// AttachQuestion links an existing question to a session
func (r *SessionRepositoryImpl) AttachQuestion(ctx context.Context, sessionID core.SessionID, questionID core.QuestionID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_questions (session_id, question_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, sessionID, questionID)
	if err != nil {
		return errors.Wrap(err, "attach question to session")
	}
	return nil
}

// SessionPersonas lists the personas attached to a session
func (r *SessionRepositoryImpl) SessionPersonas(ctx context.Context, sessionID core.SessionID) ([]*models.Persona, error) {
	var personas []*models.Persona
	err := r.db.SelectContext(ctx, &personas, `
		SELECT p.id, p.name, p.archetype, p.description, p.age_range, p.occupation,
			p.tech_savviness, p.price_sensitivity, p.brand_loyalty, p.key_priorities,
			p.origin, p.category, p.created_at, p.updated_at
		FROM personas p
		JOIN session_personas sp ON sp.persona_id = p.id
		WHERE sp.session_id = $1
		ORDER BY p.created_at
	`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "list session personas")
	}
	return personas, nil
}

// SessionQuestions lists the questions attached to a session
func (r *SessionRepositoryImpl) SessionQuestions(ctx context.Context, sessionID core.SessionID) ([]*models.Question, error) {
	var questions []*models.Question
	err := r.db.SelectContext(ctx, &questions, `
		SELECT q.id, q.persona_id, q.question_text, q.context, q.origin, q.category,
			q.research_area, q.created_at, q.updated_at
		FROM questions q
		JOIN session_questions sq ON sq.question_id = q.id
		WHERE sq.session_id = $1
		ORDER BY q.created_at
	`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "list session questions")
	}
	return questions, nil
}
