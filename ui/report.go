package ui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"brandtrack/app"
	"brandtrack/domain/core"
	domstats "brandtrack/domain/stats"
	"brandtrack/internal/errors"
	"brandtrack/internal/logx"
	"brandtrack/models"
	"brandtrack/ports"
)

// ReportApp serves human-readable run reports. Reports are composed as
// markdown and rendered to HTML, so the same text can be read in a browser
// or fetched raw for pasting elsewhere.
type ReportApp struct {
	router   *chi.Mux
	sessions ports.SessionRepository
	runs     ports.RunRepository
	analysis *app.AnalysisService
	log      *logx.Logger
}

// NewReportApp wires the report server.
func NewReportApp(sessions ports.SessionRepository, runs ports.RunRepository, analysis *app.AnalysisService) *ReportApp {
	a := &ReportApp{
		router:   chi.NewRouter(),
		sessions: sessions,
		runs:     runs,
		analysis: analysis,
		log:      logx.Default.With("ReportApp"),
	}
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Get("/", a.handleIndex)
	a.router.Get("/runs/{runID}/report", a.handleRunReport)
	a.router.Get("/runs/{runID}/report.md", a.handleRunReportMarkdown)
	return a
}

// Start runs the report server on addr, blocking until it exits.
func (a *ReportApp) Start(addr string) error {
	a.log.Info("Report server listening on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

// Router exposes the handler for tests.
func (a *ReportApp) Router() http.Handler {
	return a.router
}

func (a *ReportApp) handleIndex(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.sessions.ListSessions(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var md strings.Builder
	md.WriteString("# Brand Research Reports\n\n")
	if len(sessions) == 0 {
		md.WriteString("No sessions yet.\n")
	}
	for _, session := range sessions {
		fmt.Fprintf(&md, "## %s\n\n", session.Category)
		fmt.Fprintf(&md, "Brands: %s\n\n", strings.Join(session.Brands, ", "))
		runs, err := a.runs.ListRunsBySession(r.Context(), session.ID)
		if err != nil {
			continue
		}
		for _, run := range runs {
			fmt.Fprintf(&md, "- [%s run %s](/runs/%s/report) (%s, %d iterations)\n",
				run.StartedAt.Format("2006-01-02"), run.ID, run.ID, run.Status, run.Iterations)
		}
		md.WriteString("\n")
	}

	a.renderMarkdown(w, md.String())
}

func (a *ReportApp) handleRunReport(w http.ResponseWriter, r *http.Request) {
	md, err := a.buildRunReport(r, chi.URLParam(r, "runID"))
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.renderMarkdown(w, md)
}

func (a *ReportApp) handleRunReportMarkdown(w http.ResponseWriter, r *http.Request) {
	md, err := a.buildRunReport(r, chi.URLParam(r, "runID"))
	if err != nil {
		a.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(md))
}

func (a *ReportApp) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeInvalidInput:
		status = http.StatusBadRequest
	case errors.CodeInsufficientData:
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

func (a *ReportApp) buildRunReport(r *http.Request, rawRunID string) (string, error) {
	runID, err := core.ParseRunID(rawRunID)
	if err != nil {
		return "", errors.InvalidInput(err.Error())
	}
	run, err := a.runs.GetRun(r.Context(), runID)
	if err != nil {
		return "", err
	}
	session, err := a.sessions.GetSession(r.Context(), run.SessionID)
	if err != nil {
		return "", err
	}

	modelName := r.URL.Query().Get("model")
	if modelName == "" {
		modelName = domstats.ModelAll
	}

	stats, err := a.analysis.Analyze(r.Context(), runID, modelName)
	if err != nil {
		return "", err
	}

	// The change section is best-effort: first runs have nothing to
	// compare against.
	report, err := a.analysis.CompareWithPrevious(r.Context(), runID, modelName)
	if err != nil && errors.GetCode(err) != errors.CodeInsufficientData {
		return "", err
	}

	return composeRunReport(session, run, modelName, stats, report), nil
}

func composeRunReport(
	session *models.ResearchSession,
	run *models.ResearchRun,
	modelName string,
	stats []*domstats.BrandStatistics,
	changes *domstats.ChangeReport,
) string {
	var md strings.Builder

	fmt.Fprintf(&md, "# Brand Report: %s\n\n", session.Category)
	fmt.Fprintf(&md, "Run `%s` started %s, %d iterations per question, models: %s.\n\n",
		run.ID, run.StartedAt.Format("2006-01-02 15:04"), run.Iterations, strings.Join(run.ModelsUsed, ", "))
	fmt.Fprintf(&md, "Scope: **%s**\n\n", modelName)

	md.WriteString("## Brand Statistics\n\n")
	md.WriteString("| Brand | Mention Freq | 95% CI | First Mention | Top-3 | Rec. Rate | Avg Rank | Sentiment | SoV | Strength |\n")
	md.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, bs := range stats {
		fmt.Fprintf(&md, "| %s | %.1f%% | %.1f-%.1f%% | %.1f%% | %.1f%% | %.1f%% | %s | %+.2f | %.1f%% | %.2f |\n",
			bs.Brand,
			bs.MentionFrequency*100,
			bs.MentionFrequencyCI.Lower*100, bs.MentionFrequencyCI.Upper*100,
			bs.FirstMentionRate*100,
			bs.Top3Rate*100,
			bs.RecommendationRate*100,
			formatRank(bs),
			bs.AvgSentiment,
			bs.ShareOfVoice*100,
			bs.RecommendationStrength,
		)
	}
	md.WriteString("\n")

	if len(stats) > 0 && stats[0].SkippedRecords > 0 {
		fmt.Fprintf(&md, "%d malformed responses were skipped and excluded from every denominator.\n\n", stats[0].SkippedRecords)
	}

	if changes != nil {
		md.WriteString("## Changes Since Previous Run\n\n")
		for _, bc := range changes.Brands {
			wroteHeader := false
			for _, mc := range bc.Metrics {
				if mc.Interpretation == domstats.InterpretationNoise {
					continue
				}
				if !wroteHeader {
					fmt.Fprintf(&md, "### %s\n\n", bc.Brand)
					wroteHeader = true
				}
				fmt.Fprintf(&md, "- **%s**: %.1f%% to %.1f%% (%+.1fpp, p=%.3f, %s)\n",
					mc.Metric, mc.Before*100, mc.After*100, mc.DeltaPP, mc.PValue, mc.Interpretation)
			}
			if wroteHeader {
				md.WriteString("\n")
			}
		}
		if !reportHasMovement(changes) {
			md.WriteString("No movement beyond sampling noise.\n\n")
		}
	}

	return md.String()
}

func reportHasMovement(changes *domstats.ChangeReport) bool {
	for _, bc := range changes.Brands {
		for _, mc := range bc.Metrics {
			if mc.Interpretation != domstats.InterpretationNoise {
				return true
			}
		}
	}
	return false
}

func formatRank(bs *domstats.BrandStatistics) string {
	if bs.TotalMentions == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", bs.AvgRank)
}

const reportPageShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Brand Research</title>
<style>
body { font-family: -apple-system, sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; color: #1a202c; }
table { border-collapse: collapse; width: 100%%; }
th, td { border: 1px solid #cbd5e0; padding: 0.4rem 0.6rem; text-align: left; }
th { background: #edf2f7; }
code { background: #edf2f7; padding: 0.1rem 0.3rem; border-radius: 3px; }
</style>
</head>
<body>
%s
</body>
</html>`

func (a *ReportApp) renderMarkdown(w http.ResponseWriter, md string) {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	body := markdown.ToHTML([]byte(md), p, renderer)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, reportPageShell, body)
}
