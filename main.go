package main

import (
	"context"
	"os"
	"time"

	"brandtrack/adapters/postgres"
	"brandtrack/ai"
	"brandtrack/app"
	"brandtrack/domain/brand"
	"brandtrack/internal/config"
	"brandtrack/internal/logx"
	"brandtrack/internal/migration"
	"brandtrack/ports"
	"brandtrack/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := logx.Default.With("Main")

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration error: %v", err)
		os.Exit(1)
	}

	db, err := initDatabase(cfg)
	if err != nil {
		log.Error("database init failed: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	clients := buildClients(cfg)
	log.Info("LLM providers configured: %d", len(clients))

	sessions := postgres.NewSessionRepository(db)
	personas := postgres.NewPersonaRepository(db)
	questions := postgres.NewQuestionRepository(db)
	runs := postgres.NewRunRepository(db)
	responses := postgres.NewResponseRepository(db)
	snapshots := postgres.NewSnapshotRepository(db)

	generation := app.NewGenerationService(sessions, personas, questions, clients[0], cfg.AI.MaxTokens)
	runner := app.NewRunService(sessions, runs, responses, clients, cfg.AI.MaxTokens)
	analysis := app.NewAnalysisService(sessions, runs, responses, snapshots, brand.DefaultStrategy())
	export := app.NewExportService(analysis, cfg.Export.Dir)

	reportApp := ui.NewReportApp(sessions, runs, analysis)
	go func() {
		log.Info("report app listening on :%s", cfg.Server.ReportPort)
		if err := reportApp.Start(":" + cfg.Server.ReportPort); err != nil {
			log.Error("report app stopped: %v", err)
		}
	}()

	server := ui.NewServer(cfg.Server.GinMode, sessions, personas, questions, runs, generation, runner, analysis, export)
	log.Info("API server listening on :%s", cfg.Server.APIPort)
	if err := server.Start(":" + cfg.Server.APIPort); err != nil {
		log.Error("API server stopped: %v", err)
		os.Exit(1)
	}
}

func initDatabase(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// buildClients constructs one client per configured provider. config.Load
// already guarantees at least one key is present.
func buildClients(cfg *config.Config) []ports.LLMClient {
	var clients []ports.LLMClient
	if cfg.AI.OpenAIKey != "" {
		clients = append(clients, ai.NewOpenAIClient(cfg.AI.OpenAIKey, cfg.AI.OpenAIModel, cfg.AI.Temperature))
	}
	if cfg.AI.AnthropicKey != "" {
		clients = append(clients, ai.NewAnthropicClient(cfg.AI.AnthropicKey, cfg.AI.AnthropicModel, cfg.AI.Temperature))
	}
	return clients
}
