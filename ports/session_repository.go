package ports

import (
	"context"

	"brandtrack/domain/core"
	"brandtrack/models"
)

// SessionRepository defines the interface for research session storage
type SessionRepository interface {
	// CreateSession persists a new session
	CreateSession(ctx context.Context, session *models.ResearchSession) error

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, id core.SessionID) (*models.ResearchSession, error)

	// ListSessions returns sessions newest first, optionally limited
	ListSessions(ctx context.Context, limit int) ([]*models.ResearchSession, error)

	// UpdateSession persists changed setup fields and status
	UpdateSession(ctx context.Context, session *models.ResearchSession) error

	// DeleteSession removes a session and its attached material
	DeleteSession(ctx context.Context, id core.SessionID) error

	// AttachPersona links an existing persona to a session
	AttachPersona(ctx context.Context, sessionID core.SessionID, personaID core.PersonaID) error

	// AttachQuestion links an existing question to a session
	AttachQuestion(ctx context.Context, sessionID core.SessionID, questionID core.QuestionID) error

	// SessionPersonas lists the personas attached to a session
	SessionPersonas(ctx context.Context, sessionID core.SessionID) ([]*models.Persona, error)

	// SessionQuestions lists the questions attached to a session
	SessionQuestions(ctx context.Context, sessionID core.SessionID) ([]*models.Question, error)
}
