package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"brandtrack/app"
	"brandtrack/internal/errors"
	"brandtrack/internal/logx"
	"brandtrack/ports"
)

// Server is the JSON API for sessions, generation, runs and analysis.
type Server struct {
	router     *gin.Engine
	sessions   ports.SessionRepository
	personas   ports.PersonaRepository
	questions  ports.QuestionRepository
	runs       ports.RunRepository
	generation *app.GenerationService
	runner     *app.RunService
	analysis   *app.AnalysisService
	export     *app.ExportService
	log        *logx.Logger
}

// NewServer wires the API server. ginMode is one of gin's mode strings.
func NewServer(
	ginMode string,
	sessions ports.SessionRepository,
	personas ports.PersonaRepository,
	questions ports.QuestionRepository,
	runs ports.RunRepository,
	generation *app.GenerationService,
	runner *app.RunService,
	analysis *app.AnalysisService,
	export *app.ExportService,
) *Server {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}
	s := &Server{
		router:     gin.Default(),
		sessions:   sessions,
		personas:   personas,
		questions:  questions,
		runs:       runs,
		generation: generation,
		runner:     runner,
		analysis:   analysis,
		export:     export,
		log:        logx.Default.With("APIServer"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	{
		api.GET("/models", s.handleListModels)

		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id", s.handleGetSession)
		api.PUT("/sessions/:id", s.handleUpdateSession)
		api.DELETE("/sessions/:id", s.handleDeleteSession)

		api.GET("/sessions/:id/personas", s.handleSessionPersonas)
		api.POST("/sessions/:id/personas/generate", s.handleGeneratePersonas)
		api.POST("/sessions/:id/personas/:personaID", s.handleAttachPersona)

		api.GET("/sessions/:id/questions", s.handleSessionQuestions)
		api.POST("/sessions/:id/questions/generate", s.handleGenerateQuestions)

		api.POST("/sessions/:id/runs", s.handleStartRun)
		api.GET("/sessions/:id/runs", s.handleListRuns)

		api.GET("/runs/:id", s.handleGetRun)
		api.GET("/runs/:id/progress", s.handleRunProgress)
		api.GET("/runs/:id/analysis", s.handleAnalysis)
		api.GET("/runs/:id/changes", s.handleChanges)
		api.GET("/runs/:id/comentions", s.handleCoMentions)
		api.GET("/runs/:id/contextual", s.handleContextual)
		api.POST("/runs/:id/export", s.handleExport)
	}
}

// Start runs the HTTP server on addr, blocking until it exits.
func (s *Server) Start(addr string) error {
	s.log.Info("API server listening on %s", addr)
	return s.router.Run(addr)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// respondError maps application error codes onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeValidationError:
		status = http.StatusBadRequest
	case errors.CodeInsufficientData:
		status = http.StatusUnprocessableEntity
	case errors.CodeProviderError:
		status = http.StatusBadGateway
	case errors.CodeRunInProgress:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}
