package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	SessionID  ID
	PersonaID  ID
	QuestionID ID
	RunID      ID
	ResponseID ID
)

// String conversions for domain IDs
func (id SessionID) String() string  { return ID(id).String() }
func (id PersonaID) String() string  { return ID(id).String() }
func (id QuestionID) String() string { return ID(id).String() }
func (id RunID) String() string      { return ID(id).String() }
func (id ResponseID) String() string { return ID(id).String() }

// ParseSessionID parses a string into SessionID
func ParseSessionID(s string) (SessionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	return SessionID(s), nil
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParsePersonaID parses a string into PersonaID
func ParsePersonaID(s string) (PersonaID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("persona ID cannot be empty")
	}
	return PersonaID(s), nil
}

// ParseQuestionID parses a string into QuestionID
func ParseQuestionID(s string) (QuestionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("question ID cannot be empty")
	}
	return QuestionID(s), nil
}
