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

// PersonaRepositoryImpl implements PersonaRepository for PostgreSQL
type PersonaRepositoryImpl struct {
	db *sqlx.DB
}

// NewPersonaRepository creates a new PostgreSQL persona repository
func NewPersonaRepository(db *sqlx.DB) ports.PersonaRepository {
	return &PersonaRepositoryImpl{db: db}
}

// CreatePersona persists a new persona
func (r *PersonaRepositoryImpl) CreatePersona(ctx context.Context, persona *models.Persona) error {
	if err := persona.Validate(); err != nil {
		return errors.Wrap(err, "invalid persona")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO personas (id, name, archetype, description, age_range, occupation,
			tech_savviness, price_sensitivity, brand_loyalty, key_priorities, origin, category,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, persona.ID, persona.Name, persona.Archetype, persona.Description, persona.AgeRange,
		persona.Occupation, persona.TechSavviness, persona.PriceSensitivity, persona.BrandLoyalty,
		persona.KeyPriorities, persona.Origin, persona.Category, persona.CreatedAt, persona.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert persona")
	}
	return nil
}

// GetPersona retrieves a persona by ID
func (r *PersonaRepositoryImpl) GetPersona(ctx context.Context, id core.PersonaID) (*models.Persona, error) {
	var persona models.Persona
	err := r.db.GetContext(ctx, &persona, `
		SELECT id, name, archetype, description, age_range, occupation, tech_savviness,
			price_sensitivity, brand_loyalty, key_priorities, origin, category, created_at, updated_at
		FROM personas
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("persona")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get persona")
	}
	return &persona, nil
}

// ListPersonas returns all personas, optionally filtered by category
func (r *PersonaRepositoryImpl) ListPersonas(ctx context.Context, category string) ([]*models.Persona, error) {
	query := `
		SELECT id, name, archetype, description, age_range, occupation, tech_savviness,
			price_sensitivity, brand_loyalty, key_priorities, origin, category, created_at, updated_at
		FROM personas
	`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at`

	var personas []*models.Persona
	if err := r.db.SelectContext(ctx, &personas, query, args...); err != nil {
		return nil, errors.Wrap(err, "list personas")
	}
	return personas, nil
}

// UpdatePersona persists edited persona fields
func (r *PersonaRepositoryImpl) UpdatePersona(ctx context.Context, persona *models.Persona) error {
	if err := persona.Validate(); err != nil {
		return errors.Wrap(err, "invalid persona")
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE personas
		SET name = $2, archetype = $3, description = $4, age_range = $5, occupation = $6,
			tech_savviness = $7, price_sensitivity = $8, brand_loyalty = $9, key_priorities = $10,
			updated_at = NOW()
		WHERE id = $1
	`, persona.ID, persona.Name, persona.Archetype, persona.Description, persona.AgeRange,
		persona.Occupation, persona.TechSavviness, persona.PriceSensitivity, persona.BrandLoyalty,
		persona.KeyPriorities)
	if err != nil {
		return errors.Wrap(err, "update persona")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFound("persona")
	}
	return nil
}

// DeletePersona removes a persona
func (r *PersonaRepositoryImpl) DeletePersona(ctx context.Context, id core.PersonaID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM personas WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete persona")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFound("persona")
	}
	return nil
}

// QuestionRepositoryImpl implements QuestionRepository for PostgreSQL
type QuestionRepositoryImpl struct {
	db *sqlx.DB
}

// NewQuestionRepository creates a new PostgreSQL question repository
func NewQuestionRepository(db *sqlx.DB) ports.QuestionRepository {
	return &QuestionRepositoryImpl{db: db}
}

// CreateQuestion persists a new question
func (r *QuestionRepositoryImpl) CreateQuestion(ctx context.Context, question *models.Question) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO questions (id, persona_id, question_text, context, origin, category,
			research_area, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, question.ID, question.PersonaID, question.Text, question.Context, question.Origin,
		question.Category, question.ResearchArea, question.CreatedAt, question.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "insert question")
	}
	return nil
}

// GetQuestion retrieves a question by ID
func (r *QuestionRepositoryImpl) GetQuestion(ctx context.Context, id core.QuestionID) (*models.Question, error) {
	var question models.Question
	err := r.db.GetContext(ctx, &question, `
		SELECT id, persona_id, question_text, context, origin, category, research_area,
			created_at, updated_at
		FROM questions
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("question")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get question")
	}
	return &question, nil
}

// ListQuestionsByPersona returns a persona's questions
func (r *QuestionRepositoryImpl) ListQuestionsByPersona(ctx context.Context, personaID core.PersonaID) ([]*models.Question, error) {
	var questions []*models.Question
	err := r.db.SelectContext(ctx, &questions, `
		SELECT id, persona_id, question_text, context, origin, category, research_area,
			created_at, updated_at
		FROM questions
		WHERE persona_id = $1
		ORDER BY created_at
	`, personaID)
	if err != nil {
		return nil, errors.Wrap(err, "list questions by persona")
	}
	return questions, nil
}

// UpdateQuestion persists edited question text or context
func (r *QuestionRepositoryImpl) UpdateQuestion(ctx context.Context, question *models.Question) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE questions
		SET question_text = $2, context = $3, research_area = $4, updated_at = NOW()
		WHERE id = $1
	`, question.ID, question.Text, question.Context, question.ResearchArea)
	if err != nil {
		return errors.Wrap(err, "update question")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFound("question")
	}
	return nil
}

// DeleteQuestion removes a question
func (r *QuestionRepositoryImpl) DeleteQuestion(ctx context.Context, id core.QuestionID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete question")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFound("question")
	}
	return nil
}
