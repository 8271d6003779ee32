package models

import (
	"fmt"
	"time"

	"brandtrack/domain/core"
)

// PersonaArchetype buckets generated personas into research segments.
type PersonaArchetype string

const (
	ArchetypeInnovator       PersonaArchetype = "innovator"
	ArchetypePragmatist      PersonaArchetype = "pragmatist"
	ArchetypeConservative    PersonaArchetype = "conservative"
	ArchetypeBudgetConscious PersonaArchetype = "budget_conscious"
	ArchetypeQualitySeeker   PersonaArchetype = "quality_seeker"
)

// Valid reports whether a is a known archetype.
func (a PersonaArchetype) Valid() bool {
	switch a {
	case ArchetypeInnovator, ArchetypePragmatist, ArchetypeConservative,
		ArchetypeBudgetConscious, ArchetypeQualitySeeker:
		return true
	}
	return false
}

// Origin of a persona or question: generated by a model or entered by hand.
const (
	OriginAIGenerated = "ai_generated"
	OriginManual      = "manual"
)

// Persona is a synthetic consumer profile questions are asked on behalf of.
// The 1-5 trait scores steer question generation and end up as affinity
// dimensions in analysis.
type Persona struct {
	ID               core.PersonaID   `json:"id" db:"id"`
	Name             string           `json:"name" db:"name"`
	Archetype        PersonaArchetype `json:"archetype" db:"archetype"`
	Description      string           `json:"description" db:"description"`
	AgeRange         string           `json:"age_range" db:"age_range"`
	Occupation       string           `json:"occupation" db:"occupation"`
	TechSavviness    int              `json:"tech_savviness" db:"tech_savviness"`
	PriceSensitivity int              `json:"price_sensitivity" db:"price_sensitivity"`
	BrandLoyalty     int              `json:"brand_loyalty" db:"brand_loyalty"`
	KeyPriorities    StringList       `json:"key_priorities" db:"key_priorities"`
	Origin           string           `json:"origin" db:"origin"`
	Category         string           `json:"category,omitempty" db:"category"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// Validate checks trait scores and required fields.
func (p *Persona) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("persona name is required")
	}
	if !p.Archetype.Valid() {
		return fmt.Errorf("unknown persona archetype %q", p.Archetype)
	}
	for label, v := range map[string]int{
		"tech_savviness":    p.TechSavviness,
		"price_sensitivity": p.PriceSensitivity,
		"brand_loyalty":     p.BrandLoyalty,
	} {
		if v < 1 || v > 5 {
			return fmt.Errorf("%s must be between 1 and 5, got %d", label, v)
		}
	}
	return nil
}

// Question is one research question asked on behalf of a persona.
// ResearchArea tags the question for per-topic breakdowns.
type Question struct {
	ID           core.QuestionID `json:"id" db:"id"`
	PersonaID    core.PersonaID  `json:"persona_id" db:"persona_id"`
	Text         string          `json:"question_text" db:"question_text"`
	Context      string          `json:"context,omitempty" db:"context"`
	Origin       string          `json:"origin" db:"origin"`
	Category     string          `json:"category,omitempty" db:"category"`
	ResearchArea string          `json:"research_area,omitempty" db:"research_area"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// SessionStatus is the lifecycle state of a research session.
type SessionStatus string

const (
	SessionStatusSetup    SessionStatus = "setup"
	SessionStatusReady    SessionStatus = "ready"
	SessionStatusRunning  SessionStatus = "running"
	SessionStatusComplete SessionStatus = "complete"
)

// ResearchSession is the root configuration of a brand study: the product
// category, the tracked brand list, and how much material to generate.
type ResearchSession struct {
	ID                  core.SessionID `json:"id" db:"id"`
	Category            string         `json:"category" db:"category"`
	Brands              StringList     `json:"brands" db:"brands"`
	MarketContext       string         `json:"market_context" db:"market_context"`
	QuestionsPerPersona int            `json:"questions_per_persona" db:"questions_per_persona"`
	ResearchAreas       StringList     `json:"research_areas" db:"research_areas"`
	PrimaryBrand        string         `json:"primary_brand,omitempty" db:"primary_brand"`
	Language            string         `json:"language" db:"language"`
	Status              SessionStatus  `json:"status" db:"status"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks the session setup fields.
func (s *ResearchSession) Validate() error {
	if s.Category == "" {
		return fmt.Errorf("session category is required")
	}
	if len(s.Brands) == 0 {
		return fmt.Errorf("session needs at least one tracked brand")
	}
	if s.QuestionsPerPersona < 1 || s.QuestionsPerPersona > 10 {
		return fmt.Errorf("questions_per_persona must be between 1 and 10, got %d", s.QuestionsPerPersona)
	}
	return nil
}

// RunStatus is the lifecycle state of a research run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ResearchRun is one execution of a session's question set against one or
// more models, with a fixed iteration count per question.
type ResearchRun struct {
	ID           core.RunID     `json:"id" db:"id"`
	SessionID    core.SessionID `json:"session_id" db:"session_id"`
	Status       RunStatus      `json:"status" db:"status"`
	ModelsUsed   StringList     `json:"models_used" db:"models_used"`
	Iterations   int            `json:"iterations" db:"iterations"`
	StartedAt    time.Time      `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage string         `json:"error_message,omitempty" db:"error_message"`
}

// Complete marks the run finished at the given time.
func (r *ResearchRun) Complete(at time.Time) {
	r.Status = RunStatusComplete
	r.CompletedAt = &at
}

// Fail marks the run failed with a terminal error.
func (r *ResearchRun) Fail(at time.Time, msg string) {
	r.Status = RunStatusFailed
	r.CompletedAt = &at
	r.ErrorMessage = msg
}

// AnalysisSnapshot caches one brand's computed statistics for a
// (run, model) scope. Snapshots are a convenience cache; the engine can
// always recompute them from the stored responses.
type AnalysisSnapshot struct {
	ID        string     `json:"id" db:"id"`
	RunID     core.RunID `json:"run_id" db:"run_id"`
	ModelName string     `json:"model_name" db:"model_name"`
	Brand     string     `json:"brand" db:"brand"`
	Stats     JSONBMap   `json:"stats" db:"stats"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
