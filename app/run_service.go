package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"brandtrack/ai"
	"brandtrack/domain/core"
	"brandtrack/domain/research"
	"brandtrack/internal/errors"
	"brandtrack/internal/logx"
	"brandtrack/models"
	"brandtrack/ports"
)

// questionKinds is the fixed framing cycle every question goes through.
var questionKinds = []research.ResponseKind{
	research.KindRecall,
	research.KindPreference,
	research.KindForcedChoice,
}

// RunProgress is a point-in-time view of a running research run.
type RunProgress struct {
	RunID          core.RunID       `json:"run_id"`
	Status         models.RunStatus `json:"status"`
	TotalCalls     int              `json:"total_calls"`
	CompletedCalls int              `json:"completed_calls"`
	FailedCalls    int              `json:"failed_calls"`
	CurrentModel   string           `json:"current_model,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
}

// Percent returns completion as 0-100.
func (p RunProgress) Percent() float64 {
	if p.TotalCalls == 0 {
		return 0
	}
	return float64(p.CompletedCalls+p.FailedCalls) / float64(p.TotalCalls) * 100
}

// RunService executes research runs: it walks every persona's questions
// through all three framings, N iterations each, against every configured
// model, and stores one structured response record per call.
type RunService struct {
	sessions  ports.SessionRepository
	runs      ports.RunRepository
	responses ports.ResponseRepository
	clients   map[string]ports.LLMClient
	maxTokens int
	log       *logx.Logger

	mu       sync.RWMutex
	progress map[core.RunID]*RunProgress
}

// NewRunService creates a run service over the given model clients, keyed by
// their Provider() label.
func NewRunService(
	sessions ports.SessionRepository,
	runs ports.RunRepository,
	responses ports.ResponseRepository,
	clients []ports.LLMClient,
	maxTokens int,
) *RunService {
	byName := make(map[string]ports.LLMClient, len(clients))
	for _, c := range clients {
		byName[c.Provider()] = c
	}
	return &RunService{
		sessions:  sessions,
		runs:      runs,
		responses: responses,
		clients:   byName,
		maxTokens: maxTokens,
		log:       logx.Default.With("RunService"),
		progress:  make(map[core.RunID]*RunProgress),
	}
}

// AvailableModels lists the model names this service can run against.
func (s *RunService) AvailableModels() []string {
	names := make([]string, 0, len(s.clients))
	for name := range s.clients {
		names = append(names, name)
	}
	return names
}

// StartRun validates the session, creates a run in running state, and
// executes it in the background. Callers poll Progress for completion.
func (s *RunService) StartRun(ctx context.Context, sessionID core.SessionID, modelNames []string, iterations int) (*models.ResearchRun, error) {
	if iterations < 1 || iterations > 20 {
		return nil, errors.InvalidInput(fmt.Sprintf("iterations must be between 1 and 20, got %d", iterations))
	}
	if len(modelNames) == 0 {
		return nil, errors.InvalidInput("at least one model is required")
	}
	for _, name := range modelNames {
		if _, ok := s.clients[name]; !ok {
			return nil, errors.InvalidInput(fmt.Sprintf("unknown model %q", name))
		}
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, errors.ValidationError(err.Error())
	}

	personas, err := s.sessions.SessionPersonas(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(personas) == 0 {
		return nil, errors.InsufficientData("session has no personas attached")
	}
	questions, err := s.sessions.SessionQuestions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, errors.InsufficientData("session has no questions attached")
	}

	run := &models.ResearchRun{
		ID:         core.RunID(core.NewID()),
		SessionID:  sessionID,
		Status:     models.RunStatusRunning,
		ModelsUsed: models.StringList(modelNames),
		Iterations: iterations,
		StartedAt:  time.Now(),
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	totalCalls := len(questions) * len(questionKinds) * iterations * len(modelNames)
	s.mu.Lock()
	s.progress[run.ID] = &RunProgress{
		RunID:      run.ID,
		Status:     models.RunStatusRunning,
		TotalCalls: totalCalls,
		StartedAt:  run.StartedAt,
	}
	s.mu.Unlock()

	s.log.Info("Run started - run=%s, session=%s, models=%v, iterations=%d, totalCalls=%d",
		run.ID, sessionID, modelNames, iterations, totalCalls)

	go s.execute(run, session, personas, questions, modelNames, iterations)

	return run, nil
}

// Progress returns the in-memory progress for a run, falling back to the
// stored run state after a restart.
func (s *RunService) Progress(ctx context.Context, runID core.RunID) (*RunProgress, error) {
	s.mu.RLock()
	p, ok := s.progress[runID]
	if ok {
		snapshot := *p
		s.mu.RUnlock()
		return &snapshot, nil
	}
	s.mu.RUnlock()

	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	count, err := s.responses.CountResponsesByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &RunProgress{
		RunID:          runID,
		Status:         run.Status,
		TotalCalls:     count,
		CompletedCalls: count,
		StartedAt:      run.StartedAt,
	}, nil
}

// execute runs the full question matrix. It owns its own context: the run
// keeps going after the HTTP request that started it returns.
func (s *RunService) execute(
	run *models.ResearchRun,
	session *models.ResearchSession,
	personas []*models.Persona,
	questions []*models.Question,
	modelNames []string,
	iterations int,
) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Hour)
	defer cancel()

	personaByID := make(map[core.PersonaID]*models.Persona, len(personas))
	for _, p := range personas {
		personaByID[p.ID] = p
	}

	var failed int
	for _, question := range questions {
		persona := personaByID[question.PersonaID]
		for _, kind := range questionKinds {
			for iteration := 1; iteration <= iterations; iteration++ {
				failed += s.runIterationAcrossModels(ctx, run, session, persona, question, kind, iteration, modelNames)
			}
		}
	}

	now := time.Now()
	s.mu.Lock()
	p := s.progress[run.ID]
	if failed == p.TotalCalls {
		run.Fail(now, "every model call failed")
		p.Status = models.RunStatusFailed
	} else {
		run.Complete(now)
		p.Status = models.RunStatusComplete
	}
	p.CurrentModel = ""
	s.mu.Unlock()

	if err := s.runs.UpdateRun(ctx, run); err != nil {
		s.log.Error("Failed to persist run completion - run=%s: %v", run.ID, err)
	}

	if run.Status == models.RunStatusComplete && session.Status != models.SessionStatusComplete {
		session.Status = models.SessionStatusComplete
		if err := s.sessions.UpdateSession(ctx, session); err != nil {
			s.log.Warn("Failed to update session status - session=%s: %v", session.ID, err)
		}
	}

	s.log.Info("Run finished - run=%s, status=%s, failedCalls=%d", run.ID, run.Status, failed)
}

// runIterationAcrossModels asks every model the same question iteration in
// parallel and returns how many calls failed.
func (s *RunService) runIterationAcrossModels(
	ctx context.Context,
	run *models.ResearchRun,
	session *models.ResearchSession,
	persona *models.Persona,
	question *models.Question,
	kind research.ResponseKind,
	iteration int,
	modelNames []string,
) int {
	personaContext := ""
	if persona != nil {
		personaContext = ai.PersonaContext(persona)
	}

	prompt, _ := ai.BuildResearchPrompt(ai.ResearchPromptParams{
		Kind:           kind,
		Category:       session.Category,
		QuestionText:   question.Text,
		PersonaContext: personaContext,
		Brands:         session.Brands,
		Language:       session.Language,
		Iteration:      iteration,
	})

	var failures int
	var failMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range modelNames {
		client := s.clients[name]
		g.Go(func() error {
			err := s.callAndStore(gctx, run, question, kind, iteration, client, prompt)
			if err != nil {
				failMu.Lock()
				failures++
				failMu.Unlock()
				s.log.Warn("Model call failed - run=%s, model=%s, question=%s, kind=%s, iteration=%d: %v",
					run.ID, name, question.ID, kind, iteration, err)
			}
			s.bumpProgress(run.ID, name, err == nil)
			// Individual call failures never abort the run.
			return nil
		})
	}
	// Workers always return nil; failures are tallied, not propagated.
	_ = g.Wait()
	return failures
}

func (s *RunService) callAndStore(
	ctx context.Context,
	run *models.ResearchRun,
	question *models.Question,
	kind research.ResponseKind,
	iteration int,
	client ports.LLMClient,
	prompt string,
) error {
	raw, err := client.ChatCompletion(ctx, prompt, s.maxTokens)
	if err != nil {
		return err
	}

	record := &research.ResponseRecord{
		ID:           core.ResponseID(core.NewID()),
		RunID:        run.ID,
		QuestionID:   question.ID,
		PersonaID:    question.PersonaID,
		ModelName:    client.Provider(),
		Iteration:    iteration,
		ResearchArea: question.ResearchArea,
		RawText:      raw,
		CreatedAt:    core.Now(),
	}

	payload, reasoning, parseErr := ai.ParseResearchResponse(raw, kind)
	if parseErr != nil {
		// Store the raw text anyway; the empty payload fails validation
		// downstream and the aggregator counts the record as skipped.
		s.log.Warn("Malformed payload stored as skip - run=%s, model=%s: %v", run.ID, client.Provider(), parseErr)
		record.Payload = research.Payload{Kind: kind}
	} else {
		record.Payload = payload
		record.Reasoning = reasoning
	}

	return s.responses.SaveResponse(ctx, record)
}

func (s *RunService) bumpProgress(runID core.RunID, modelName string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, exists := s.progress[runID]
	if !exists {
		return
	}
	if ok {
		p.CompletedCalls++
	} else {
		p.FailedCalls++
	}
	p.CurrentModel = modelName
}
