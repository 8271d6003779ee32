package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"brandtrack/ai"
	"brandtrack/domain/core"
	"brandtrack/internal/errors"
	"brandtrack/internal/logx"
	"brandtrack/models"
	"brandtrack/ports"
)

// GenerationService produces personas and questions for a session using an
// LLM, persisting and attaching everything it generates.
type GenerationService struct {
	sessions  ports.SessionRepository
	personas  ports.PersonaRepository
	questions ports.QuestionRepository
	client    ports.LLMClient
	maxTokens int
	log       *logx.Logger
}

// NewGenerationService creates a generation service on a single client; the
// generation side does not need the multi-model fan-out research runs do.
func NewGenerationService(
	sessions ports.SessionRepository,
	personas ports.PersonaRepository,
	questions ports.QuestionRepository,
	client ports.LLMClient,
	maxTokens int,
) *GenerationService {
	return &GenerationService{
		sessions:  sessions,
		personas:  personas,
		questions: questions,
		client:    client,
		maxTokens: maxTokens,
		log:       logx.Default.With("GenerationService"),
	}
}

// GeneratePersonas generates count personas for a session's category and
// attaches them to the session.
func (s *GenerationService) GeneratePersonas(ctx context.Context, sessionID core.SessionID, count int) ([]*models.Persona, error) {
	if count < 1 || count > 20 {
		return nil, errors.InvalidInput("persona count must be between 1 and 20")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	prompt := ai.BuildPersonaGenerationPrompt(session.Category, session.MarketContext, count, session.Language)
	raw, err := s.client.ChatCompletion(ctx, prompt, s.maxTokens)
	if err != nil {
		return nil, err
	}

	personas, err := ai.ParsePersonas(raw, session.Category)
	if err != nil {
		return nil, err
	}

	for _, persona := range personas {
		if err := s.personas.CreatePersona(ctx, persona); err != nil {
			return nil, err
		}
		if err := s.sessions.AttachPersona(ctx, sessionID, persona.ID); err != nil {
			return nil, err
		}
	}

	s.log.Info("Generated personas - session=%s, count=%d", sessionID, len(personas))
	return personas, nil
}

// GenerateQuestions generates each attached persona's questions in parallel
// and marks the session ready once material exists for every persona.
func (s *GenerationService) GenerateQuestions(ctx context.Context, sessionID core.SessionID) ([]*models.Question, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	personas, err := s.sessions.SessionPersonas(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(personas) == 0 {
		return nil, errors.InsufficientData("session has no personas to generate questions for")
	}

	perPersona := make([][]*models.Question, len(personas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, persona := range personas {
		g.Go(func() error {
			questions, err := s.generateForPersona(gctx, session, persona)
			if err != nil {
				return errors.Wrapf(err, "question generation failed for persona %s", persona.Name)
			}
			perPersona[i] = questions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*models.Question
	for _, questions := range perPersona {
		for _, question := range questions {
			if err := s.questions.CreateQuestion(ctx, question); err != nil {
				return nil, err
			}
			if err := s.sessions.AttachQuestion(ctx, sessionID, question.ID); err != nil {
				return nil, err
			}
			all = append(all, question)
		}
	}

	if session.Status == models.SessionStatusSetup {
		session.Status = models.SessionStatusReady
		if err := s.sessions.UpdateSession(ctx, session); err != nil {
			return nil, err
		}
	}

	s.log.Info("Generated questions - session=%s, personas=%d, questions=%d", sessionID, len(personas), len(all))
	return all, nil
}

func (s *GenerationService) generateForPersona(ctx context.Context, session *models.ResearchSession, persona *models.Persona) ([]*models.Question, error) {
	prompt := ai.BuildQuestionGenerationPrompt(
		persona,
		session.Category,
		session.MarketContext,
		session.QuestionsPerPersona,
		session.ResearchAreas,
		session.Language,
	)
	raw, err := s.client.ChatCompletion(ctx, prompt, s.maxTokens)
	if err != nil {
		return nil, err
	}
	return ai.ParseQuestions(raw, persona.ID, session.Category)
}
