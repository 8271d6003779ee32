package ports

import (
	"context"

	"brandtrack/domain/core"
	"brandtrack/models"
)

// PersonaRepository defines the interface for persona storage
type PersonaRepository interface {
	// CreatePersona persists a new persona
	CreatePersona(ctx context.Context, persona *models.Persona) error

	// GetPersona retrieves a persona by ID
	GetPersona(ctx context.Context, id core.PersonaID) (*models.Persona, error)

	// ListPersonas returns all personas, optionally filtered by category
	ListPersonas(ctx context.Context, category string) ([]*models.Persona, error)

	// UpdatePersona persists edited persona fields
	UpdatePersona(ctx context.Context, persona *models.Persona) error

	// DeletePersona removes a persona
	DeletePersona(ctx context.Context, id core.PersonaID) error
}

// QuestionRepository defines the interface for question storage
type QuestionRepository interface {
	// CreateQuestion persists a new question
	CreateQuestion(ctx context.Context, question *models.Question) error

	// GetQuestion retrieves a question by ID
	GetQuestion(ctx context.Context, id core.QuestionID) (*models.Question, error)

	// ListQuestionsByPersona returns a persona's questions
	ListQuestionsByPersona(ctx context.Context, personaID core.PersonaID) ([]*models.Question, error)

	// UpdateQuestion persists edited question text or context
	UpdateQuestion(ctx context.Context, question *models.Question) error

	// DeleteQuestion removes a question
	DeleteQuestion(ctx context.Context, id core.QuestionID) error
}
