package ui

import (
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"brandtrack/domain/core"
	domstats "brandtrack/domain/stats"
	"brandtrack/internal/errors"
	"brandtrack/models"
)

func (s *Server) handleListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": s.runner.AvailableModels()})
}

// createSessionRequest is the session setup payload.
type createSessionRequest struct {
	Category            string   `json:"category" binding:"required"`
	Brands              []string `json:"brands" binding:"required"`
	MarketContext       string   `json:"market_context"`
	QuestionsPerPersona int      `json:"questions_per_persona"`
	ResearchAreas       []string `json:"research_areas"`
	PrimaryBrand        string   `json:"primary_brand"`
	Language            string   `json:"language"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}

	if req.QuestionsPerPersona == 0 {
		req.QuestionsPerPersona = 5
	}
	if req.Language == "" {
		req.Language = "English"
	}

	now := time.Now()
	session := &models.ResearchSession{
		ID:                  core.SessionID(core.NewID()),
		Category:            req.Category,
		Brands:              models.StringList(req.Brands),
		MarketContext:       req.MarketContext,
		QuestionsPerPersona: req.QuestionsPerPersona,
		ResearchAreas:       models.StringList(req.ResearchAreas),
		PrimaryBrand:        req.PrimaryBrand,
		Language:            req.Language,
		Status:              models.SessionStatusSetup,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := session.Validate(); err != nil {
		respondError(c, errors.ValidationError(err.Error()))
		return
	}
	if err := s.sessions.CreateSession(c.Request.Context(), session); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	sessions, err := s.sessions.ListSessions(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleGetSession(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	session, err := s.sessions.GetSession(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleUpdateSession(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	session, err := s.sessions.GetSession(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}

	session.Category = req.Category
	session.Brands = models.StringList(req.Brands)
	session.MarketContext = req.MarketContext
	if req.QuestionsPerPersona > 0 {
		session.QuestionsPerPersona = req.QuestionsPerPersona
	}
	session.ResearchAreas = models.StringList(req.ResearchAreas)
	session.PrimaryBrand = req.PrimaryBrand
	if req.Language != "" {
		session.Language = req.Language
	}
	session.UpdatedAt = time.Now()

	if err := session.Validate(); err != nil {
		respondError(c, errors.ValidationError(err.Error()))
		return
	}
	if err := s.sessions.UpdateSession(c.Request.Context(), session); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	if err := s.sessions.DeleteSession(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSessionPersonas(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	personas, err := s.sessions.SessionPersonas(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"personas": personas})
}

func (s *Server) handleGeneratePersonas(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	var req struct {
		Count int `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	if req.Count == 0 {
		req.Count = 5
	}
	personas, err := s.generation.GeneratePersonas(c.Request.Context(), id, req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"personas": personas})
}

func (s *Server) handleAttachPersona(c *gin.Context) {
	sessionID, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	personaID, err := core.ParsePersonaID(c.Param("personaID"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	if _, err := s.personas.GetPersona(c.Request.Context(), personaID); err != nil {
		respondError(c, err)
		return
	}
	if err := s.sessions.AttachPersona(c.Request.Context(), sessionID, personaID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSessionQuestions(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	questions, err := s.sessions.SessionQuestions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

func (s *Server) handleGenerateQuestions(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	questions, err := s.generation.GenerateQuestions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"questions": questions})
}

func (s *Server) handleStartRun(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	var req struct {
		Models     []string `json:"models" binding:"required"`
		Iterations int      `json:"iterations"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	if req.Iterations == 0 {
		req.Iterations = 5
	}
	run, err := s.runner.StartRun(c.Request.Context(), id, req.Models, req.Iterations)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, run)
}

func (s *Server) handleListRuns(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	runs, err := s.runs.ListRunsBySession(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	run, err := s.runs.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleRunProgress(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	progress, err := s.runner.Progress(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":          progress.RunID,
		"status":          progress.Status,
		"total_calls":     progress.TotalCalls,
		"completed_calls": progress.CompletedCalls,
		"failed_calls":    progress.FailedCalls,
		"percent":         progress.Percent(),
	})
}

func (s *Server) handleAnalysis(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	modelName := c.DefaultQuery("model", domstats.ModelAll)
	stats, err := s.analysis.Analyze(c.Request.Context(), id, modelName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id": id,
		"model":  modelName,
		"brands": stats,
	})
}

func (s *Server) handleChanges(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	modelName := c.DefaultQuery("model", domstats.ModelAll)

	var report *domstats.ChangeReport
	if beforeParam := c.Query("before"); beforeParam != "" {
		beforeID, err := core.ParseRunID(beforeParam)
		if err != nil {
			respondError(c, errors.InvalidInput(err.Error()))
			return
		}
		report, err = s.analysis.Compare(c.Request.Context(), beforeID, id, modelName)
		if err != nil {
			respondError(c, err)
			return
		}
	} else {
		report, err = s.analysis.CompareWithPrevious(c.Request.Context(), id, modelName)
		if err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleCoMentions(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	matrix, err := s.analysis.CoMentions(c.Request.Context(), id, c.Query("model"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matrix)
}

func (s *Server) handleContextual(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	matrix, err := s.analysis.Contextual(c.Request.Context(), id, c.Query("model"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, matrix)
}

func (s *Server) handleExport(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	modelName := c.DefaultQuery("model", domstats.ModelAll)
	path, err := s.export.ExportRun(c.Request.Context(), id, modelName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"path": path,
		"file": filepath.Base(path),
	})
}
