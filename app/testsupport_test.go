package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"brandtrack/domain/core"
	"brandtrack/domain/research"
	"brandtrack/internal/errors"
	"brandtrack/models"
	"brandtrack/ports"
)

// In-memory repositories backing the service tests.

type memStore struct {
	mu        sync.Mutex
	sessions  map[core.SessionID]*models.ResearchSession
	personas  map[core.PersonaID]*models.Persona
	questions map[core.QuestionID]*models.Question
	runs      map[core.RunID]*models.ResearchRun
	records   []research.ResponseRecord
	snapshots map[string][]*models.AnalysisSnapshot

	sessionPersonas  map[core.SessionID][]core.PersonaID
	sessionQuestions map[core.SessionID][]core.QuestionID
}

func newMemStore() *memStore {
	return &memStore{
		sessions:         make(map[core.SessionID]*models.ResearchSession),
		personas:         make(map[core.PersonaID]*models.Persona),
		questions:        make(map[core.QuestionID]*models.Question),
		runs:             make(map[core.RunID]*models.ResearchRun),
		snapshots:        make(map[string][]*models.AnalysisSnapshot),
		sessionPersonas:  make(map[core.SessionID][]core.PersonaID),
		sessionQuestions: make(map[core.SessionID][]core.QuestionID),
	}
}

func snapshotKey(runID core.RunID, modelName string) string {
	return string(runID) + "|" + modelName
}

// SessionRepository

func (m *memStore) CreateSession(_ context.Context, s *models.ResearchSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) GetSession(_ context.Context, id core.SessionID) (*models.ResearchSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.NotFound("session")
	}
	return s, nil
}

func (m *memStore) ListSessions(_ context.Context, limit int) ([]*models.ResearchSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ResearchSession
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpdateSession(_ context.Context, s *models.ResearchSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return errors.NotFound("session")
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memStore) DeleteSession(_ context.Context, id core.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memStore) AttachPersona(_ context.Context, sessionID core.SessionID, personaID core.PersonaID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionPersonas[sessionID] = append(m.sessionPersonas[sessionID], personaID)
	return nil
}

func (m *memStore) AttachQuestion(_ context.Context, sessionID core.SessionID, questionID core.QuestionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionQuestions[sessionID] = append(m.sessionQuestions[sessionID], questionID)
	return nil
}

func (m *memStore) SessionPersonas(_ context.Context, sessionID core.SessionID) ([]*models.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Persona
	for _, id := range m.sessionPersonas[sessionID] {
		if p, ok := m.personas[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) SessionQuestions(_ context.Context, sessionID core.SessionID) ([]*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Question
	for _, id := range m.sessionQuestions[sessionID] {
		if q, ok := m.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// PersonaRepository

func (m *memStore) CreatePersona(_ context.Context, p *models.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.personas[p.ID] = p
	return nil
}

func (m *memStore) GetPersona(_ context.Context, id core.PersonaID) (*models.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.personas[id]
	if !ok {
		return nil, errors.NotFound("persona")
	}
	return p, nil
}

func (m *memStore) ListPersonas(_ context.Context, category string) ([]*models.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Persona
	for _, p := range m.personas {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePersona(_ context.Context, p *models.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.personas[p.ID] = p
	return nil
}

func (m *memStore) DeletePersona(_ context.Context, id core.PersonaID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.personas, id)
	return nil
}

// QuestionRepository

func (m *memStore) CreateQuestion(_ context.Context, q *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *memStore) GetQuestion(_ context.Context, id core.QuestionID) (*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, errors.NotFound("question")
	}
	return q, nil
}

func (m *memStore) ListQuestionsByPersona(_ context.Context, personaID core.PersonaID) ([]*models.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Question
	for _, q := range m.questions {
		if q.PersonaID == personaID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memStore) UpdateQuestion(_ context.Context, q *models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *memStore) DeleteQuestion(_ context.Context, id core.QuestionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.questions, id)
	return nil
}

// RunRepository

func (m *memStore) CreateRun(_ context.Context, r *models.ResearchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r
	return nil
}

func (m *memStore) GetRun(_ context.Context, id core.RunID) (*models.ResearchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, errors.NotFound("run")
	}
	return r, nil
}

func (m *memStore) ListRunsBySession(_ context.Context, sessionID core.SessionID) ([]*models.ResearchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ResearchRun
	for _, r := range m.runs {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *memStore) PreviousCompletedRun(_ context.Context, run *models.ResearchRun) (*models.ResearchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.ResearchRun
	for _, r := range m.runs {
		if r.SessionID != run.SessionID || r.ID == run.ID {
			continue
		}
		if r.Status != models.RunStatusComplete || !r.StartedAt.Before(run.StartedAt) {
			continue
		}
		if best == nil || r.StartedAt.After(best.StartedAt) {
			best = r
		}
	}
	return best, nil
}

func (m *memStore) UpdateRun(_ context.Context, r *models.ResearchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r
	return nil
}

// ResponseRepository

func (m *memStore) SaveResponse(_ context.Context, rec *research.ResponseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memStore) ListResponsesByRun(_ context.Context, runID core.RunID) ([]research.ResponseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []research.ResponseRecord
	for _, rec := range m.records {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memStore) CountResponsesByRun(_ context.Context, runID core.RunID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, rec := range m.records {
		if rec.RunID == runID {
			count++
		}
	}
	return count, nil
}

// SnapshotRepository

func (m *memStore) SaveSnapshots(_ context.Context, snapshots []*models.AnalysisSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := snapshotKey(snapshots[0].RunID, snapshots[0].ModelName)
	m.snapshots[key] = snapshots
	return nil
}

func (m *memStore) ListSnapshots(_ context.Context, runID core.RunID, modelName string) ([]*models.AnalysisSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[snapshotKey(runID, modelName)], nil
}

// fakeLLM returns canned completions keyed by a substring of the prompt, or
// a scripted function when set.
type fakeLLM struct {
	name    string
	respond func(prompt string) (string, error)

	mu    sync.Mutex
	calls int
}

func (f *fakeLLM) Provider() string { return f.name }

func (f *fakeLLM) ChatCompletion(_ context.Context, prompt string, _ int) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.respond == nil {
		return "", fmt.Errorf("no scripted response")
	}
	return f.respond(prompt)
}

func (f *fakeLLM) ChatCompletionWithUsage(ctx context.Context, prompt string, maxTokens int) (*ports.LLMResponse, error) {
	content, err := f.ChatCompletion(ctx, prompt, maxTokens)
	if err != nil {
		return nil, err
	}
	return &ports.LLMResponse{Content: content}, nil
}

func clientsOf(clients ...ports.LLMClient) []ports.LLMClient {
	return clients
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
