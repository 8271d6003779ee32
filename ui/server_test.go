package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"brandtrack/domain/core"
	"brandtrack/internal/errors"
	"brandtrack/models"
)

// fakeSessionStore implements the session and run repositories over maps.
type fakeSessionStore struct {
	sessions map[core.SessionID]*models.ResearchSession
	runs     map[core.RunID]*models.ResearchRun
}

func newFakeStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[core.SessionID]*models.ResearchSession),
		runs:     make(map[core.RunID]*models.ResearchRun),
	}
}

func (f *fakeSessionStore) CreateSession(_ context.Context, s *models.ResearchSession) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) GetSession(_ context.Context, id core.SessionID) (*models.ResearchSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, errors.NotFound("session")
	}
	return s, nil
}

func (f *fakeSessionStore) ListSessions(_ context.Context, _ int) ([]*models.ResearchSession, error) {
	var out []*models.ResearchSession
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSessionStore) UpdateSession(_ context.Context, s *models.ResearchSession) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) DeleteSession(_ context.Context, id core.SessionID) error {
	if _, ok := f.sessions[id]; !ok {
		return errors.NotFound("session")
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) AttachPersona(context.Context, core.SessionID, core.PersonaID) error {
	return nil
}

func (f *fakeSessionStore) AttachQuestion(context.Context, core.SessionID, core.QuestionID) error {
	return nil
}

func (f *fakeSessionStore) SessionPersonas(context.Context, core.SessionID) ([]*models.Persona, error) {
	return nil, nil
}

func (f *fakeSessionStore) SessionQuestions(context.Context, core.SessionID) ([]*models.Question, error) {
	return nil, nil
}

func (f *fakeSessionStore) CreateRun(_ context.Context, r *models.ResearchRun) error {
	f.runs[r.ID] = r
	return nil
}

func (f *fakeSessionStore) GetRun(_ context.Context, id core.RunID) (*models.ResearchRun, error) {
	r, ok := f.runs[id]
	if !ok {
		return nil, errors.NotFound("run")
	}
	return r, nil
}

func (f *fakeSessionStore) ListRunsBySession(_ context.Context, sessionID core.SessionID) ([]*models.ResearchRun, error) {
	var out []*models.ResearchRun
	for _, r := range f.runs {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) PreviousCompletedRun(context.Context, *models.ResearchRun) (*models.ResearchRun, error) {
	return nil, nil
}

func (f *fakeSessionStore) UpdateRun(_ context.Context, r *models.ResearchRun) error {
	f.runs[r.ID] = r
	return nil
}

func newTestServer(store *fakeSessionStore) *Server {
	return NewServer(gin.TestMode, store, nil, nil, store, nil, nil, nil, nil)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	create := map[string]interface{}{
		"category": "wireless headphones",
		"brands":   []string{"Acme", "Zenith"},
	}
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/sessions", create)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created models.ResearchSession
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created session: %v", err)
	}
	if created.Status != models.SessionStatusSetup {
		t.Errorf("expected setup status, got %s", created.Status)
	}
	if created.QuestionsPerPersona != 5 || created.Language != "English" {
		t.Errorf("defaults not applied: %+v", created)
	}

	rec = doJSON(t, srv.Router(), http.MethodGet, "/api/sessions/"+created.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, srv.Router(), http.MethodDelete, "/api/sessions/"+created.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, srv.Router(), http.MethodGet, "/api/sessions/"+created.ID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestCreateSession_Validation(t *testing.T) {
	srv := newTestServer(newFakeStore())

	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/sessions", map[string]interface{}{
		"category": "headphones",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing brands: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, srv.Router(), http.MethodPost, "/api/sessions", map[string]interface{}{
		"category":              "headphones",
		"brands":                []string{"Acme"},
		"questions_per_persona": 99,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range questions: expected 400, got %d", rec.Code)
	}
}

func TestErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.NotFound("run"), http.StatusNotFound},
		{errors.InvalidInput("bad"), http.StatusBadRequest},
		{errors.ValidationError("bad"), http.StatusBadRequest},
		{errors.InsufficientData("empty"), http.StatusUnprocessableEntity},
		{errors.ProviderError("gpt-4o", nil), http.StatusBadGateway},
		{errors.DatabaseError("down"), http.StatusInternalServerError},
	}

	gin.SetMode(gin.TestMode)
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		respondError(c, tc.err)
		if rec.Code != tc.want {
			t.Errorf("code %s: expected %d, got %d", errors.GetCode(tc.err), tc.want, rec.Code)
		}
	}
}
