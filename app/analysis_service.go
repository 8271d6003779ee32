package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"brandtrack/adapters/stats/engine"
	"brandtrack/domain/brand"
	"brandtrack/domain/core"
	"brandtrack/domain/research"
	domstats "brandtrack/domain/stats"
	"brandtrack/internal/errors"
	"brandtrack/internal/logx"
	"brandtrack/models"
	"brandtrack/ports"
)

// AnalysisService computes brand statistics over a run's stored responses.
// Results are cached as snapshots per (run, model) scope; the cache is
// derived data and recomputation always starts from the responses.
type AnalysisService struct {
	sessions   ports.SessionRepository
	runs       ports.RunRepository
	responses  ports.ResponseRepository
	snapshots  ports.SnapshotRepository
	aggregator *engine.Aggregator
	log        *logx.Logger
}

// NewAnalysisService creates an analysis service. A nil strategy selects the
// default brand matcher.
func NewAnalysisService(
	sessions ports.SessionRepository,
	runs ports.RunRepository,
	responses ports.ResponseRepository,
	snapshots ports.SnapshotRepository,
	strategy brand.MatchStrategy,
) *AnalysisService {
	return &AnalysisService{
		sessions:   sessions,
		runs:       runs,
		responses:  responses,
		snapshots:  snapshots,
		aggregator: engine.NewAggregator(strategy),
		log:        logx.Default.With("AnalysisService"),
	}
}

// Analyze returns per-brand statistics for one run, scoped to a single model
// or merged across all of the run's models when modelName is "all" or empty.
func (s *AnalysisService) Analyze(ctx context.Context, runID core.RunID, modelName string) ([]*domstats.BrandStatistics, error) {
	if modelName == "" {
		modelName = domstats.ModelAll
	}

	if cached, err := s.loadSnapshots(ctx, runID, modelName); err == nil && len(cached) > 0 {
		s.log.Debug("Snapshot cache hit - run=%s, model=%s, brands=%d", runID, modelName, len(cached))
		return cached, nil
	}

	run, session, err := s.loadRunScope(ctx, runID)
	if err != nil {
		return nil, err
	}

	set, err := brand.NewSet(session.Brands)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("session has no valid brand set: %v", err))
	}

	// An empty record set is a valid state (a brand-new run); it yields
	// all-zero rows with degenerate intervals rather than an error.
	records, err := s.responses.ListResponsesByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	personaNames, err := s.personaNames(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	var stats []*domstats.BrandStatistics
	if modelName == domstats.ModelAll {
		stats, err = s.analyzeAllModels(ctx, run, records, set, personaNames)
	} else {
		stats, err = s.aggregator.Aggregate(records, set, engine.Scope{
			ModelName:    modelName,
			PersonaNames: personaNames,
		})
	}
	if err != nil {
		return nil, err
	}

	if err := s.storeSnapshots(ctx, runID, modelName, stats); err != nil {
		// A cold cache next time is acceptable; the result itself is fine.
		s.log.Warn("Failed to cache snapshots - run=%s, model=%s: %v", runID, modelName, err)
	}
	return stats, nil
}

// analyzeAllModels aggregates each model's slice of the run in parallel and
// merges the per-model statistics with equal model weight.
func (s *AnalysisService) analyzeAllModels(
	ctx context.Context,
	run *models.ResearchRun,
	records []research.ResponseRecord,
	set *brand.Set,
	personaNames map[core.PersonaID]string,
) ([]*domstats.BrandStatistics, error) {
	modelNames := run.ModelsUsed
	if len(modelNames) == 0 {
		modelNames = distinctModels(records)
	}
	if len(modelNames) == 0 {
		// No models recorded and no responses yet: one all-zero pass.
		return s.aggregator.Aggregate(records, set, engine.Scope{
			ModelName:    domstats.ModelAll,
			PersonaNames: personaNames,
		})
	}
	if len(modelNames) == 1 {
		return s.aggregator.Aggregate(records, set, engine.Scope{
			ModelName:    modelNames[0],
			PersonaNames: personaNames,
		})
	}

	perModel := make([][]*domstats.BrandStatistics, len(modelNames))
	g, _ := errgroup.WithContext(ctx)
	for i, name := range modelNames {
		g.Go(func() error {
			stats, err := s.aggregator.Aggregate(records, set, engine.Scope{
				ModelName:    name,
				PersonaNames: personaNames,
			})
			if err != nil {
				return err
			}
			perModel[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return engine.MergeAcrossModels(perModel), nil
}

// Compare computes a change report between two runs of the same session.
// The before run must have started earlier than the after run.
func (s *AnalysisService) Compare(ctx context.Context, beforeRunID, afterRunID core.RunID, modelName string) (*domstats.ChangeReport, error) {
	if modelName == "" {
		modelName = domstats.ModelAll
	}

	beforeRun, err := s.runs.GetRun(ctx, beforeRunID)
	if err != nil {
		return nil, err
	}
	afterRun, err := s.runs.GetRun(ctx, afterRunID)
	if err != nil {
		return nil, err
	}
	if beforeRun.SessionID != afterRun.SessionID {
		return nil, errors.InvalidInput("runs belong to different sessions")
	}
	if !beforeRun.StartedAt.Before(afterRun.StartedAt) {
		return nil, errors.InvalidInput("before run must predate after run")
	}

	before, err := s.Analyze(ctx, beforeRunID, modelName)
	if err != nil {
		return nil, err
	}
	after, err := s.Analyze(ctx, afterRunID, modelName)
	if err != nil {
		return nil, err
	}

	return engine.DetectChanges(before, after, beforeRunID, afterRunID, modelName), nil
}

// CompareWithPrevious compares a run against the session's chronologically
// nearest completed run before it.
func (s *AnalysisService) CompareWithPrevious(ctx context.Context, runID core.RunID, modelName string) (*domstats.ChangeReport, error) {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	previous, err := s.runs.PreviousCompletedRun(ctx, run)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, errors.InsufficientData("no earlier completed run to compare against")
	}
	return s.Compare(ctx, previous.ID, runID, modelName)
}

// CoMentions returns the symmetric co-mention matrix for a run.
func (s *AnalysisService) CoMentions(ctx context.Context, runID core.RunID, modelName string) (*domstats.CoMentionMatrix, error) {
	records, set, personaNames, err := s.analysisInputs(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.aggregator.CoMentions(records, set, engine.Scope{
		ModelName:    modelName,
		PersonaNames: personaNames,
	})
}

// Contextual returns per-persona and per-research-area mention rates.
func (s *AnalysisService) Contextual(ctx context.Context, runID core.RunID, modelName string) (*domstats.ContextualMatrix, error) {
	records, set, personaNames, err := s.analysisInputs(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.aggregator.ContextualRelevance(records, set, engine.Scope{
		ModelName:    modelName,
		PersonaNames: personaNames,
	})
}

func (s *AnalysisService) analysisInputs(ctx context.Context, runID core.RunID) ([]research.ResponseRecord, *brand.Set, map[core.PersonaID]string, error) {
	_, session, err := s.loadRunScope(ctx, runID)
	if err != nil {
		return nil, nil, nil, err
	}
	set, err := brand.NewSet(session.Brands)
	if err != nil {
		return nil, nil, nil, errors.ValidationError(fmt.Sprintf("session has no valid brand set: %v", err))
	}
	records, err := s.responses.ListResponsesByRun(ctx, runID)
	if err != nil {
		return nil, nil, nil, err
	}
	personaNames, err := s.personaNames(ctx, session.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return records, set, personaNames, nil
}

func (s *AnalysisService) loadRunScope(ctx context.Context, runID core.RunID) (*models.ResearchRun, *models.ResearchSession, error) {
	run, err := s.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.sessions.GetSession(ctx, run.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return run, session, nil
}

func (s *AnalysisService) personaNames(ctx context.Context, sessionID core.SessionID) (map[core.PersonaID]string, error) {
	personas, err := s.sessions.SessionPersonas(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	names := make(map[core.PersonaID]string, len(personas))
	for _, p := range personas {
		names[p.ID] = p.Name
	}
	return names, nil
}

func (s *AnalysisService) loadSnapshots(ctx context.Context, runID core.RunID, modelName string) ([]*domstats.BrandStatistics, error) {
	snapshots, err := s.snapshots.ListSnapshots(ctx, runID, modelName)
	if err != nil || len(snapshots) == 0 {
		return nil, err
	}
	stats := make([]*domstats.BrandStatistics, 0, len(snapshots))
	for _, snap := range snapshots {
		raw, err := json.Marshal(snap.Stats)
		if err != nil {
			return nil, err
		}
		var bs domstats.BrandStatistics
		if err := json.Unmarshal(raw, &bs); err != nil {
			return nil, err
		}
		stats = append(stats, &bs)
	}
	return stats, nil
}

func (s *AnalysisService) storeSnapshots(ctx context.Context, runID core.RunID, modelName string, stats []*domstats.BrandStatistics) error {
	snapshots := make([]*models.AnalysisSnapshot, 0, len(stats))
	now := time.Now()
	for _, bs := range stats {
		raw, err := json.Marshal(bs)
		if err != nil {
			return err
		}
		var asMap models.JSONBMap
		if err := json.Unmarshal(raw, &asMap); err != nil {
			return err
		}
		snapshots = append(snapshots, &models.AnalysisSnapshot{
			ID:        core.NewID().String(),
			RunID:     runID,
			ModelName: modelName,
			Brand:     bs.Brand,
			Stats:     asMap,
			CreatedAt: now,
		})
	}
	return s.snapshots.SaveSnapshots(ctx, snapshots)
}

func distinctModels(records []research.ResponseRecord) []string {
	seen := make(map[string]bool)
	var names []string
	for _, rec := range records {
		if !seen[rec.ModelName] {
			seen[rec.ModelName] = true
			names = append(names, rec.ModelName)
		}
	}
	return names
}
