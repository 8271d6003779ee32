package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"brandtrack/domain/core"
	domstats "brandtrack/domain/stats"
	"brandtrack/internal/errors"
	"brandtrack/internal/logx"
)

// ExportService writes analysis results to xlsx workbooks.
type ExportService struct {
	analysis *AnalysisService
	dir      string
	log      *logx.Logger
}

// NewExportService creates an export service writing into dir.
func NewExportService(analysis *AnalysisService, dir string) *ExportService {
	return &ExportService{
		analysis: analysis,
		dir:      dir,
		log:      logx.Default.With("ExportService"),
	}
}

// ExportRun writes one run's brand statistics to a workbook and returns the
// file path. When the session has an earlier completed run, a change sheet
// against it is included.
func (s *ExportService) ExportRun(ctx context.Context, runID core.RunID, modelName string) (string, error) {
	stats, err := s.analysis.Analyze(ctx, runID, modelName)
	if err != nil {
		return "", err
	}

	// A missing prior run only drops the changes sheet.
	report, err := s.analysis.CompareWithPrevious(ctx, runID, modelName)
	if err != nil && errors.GetCode(err) != errors.CodeInsufficientData {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeStatisticsSheet(f, "Brand Statistics", stats); err != nil {
		return "", err
	}
	if report != nil {
		if err := s.writeChangesSheet(f, "Changes", report); err != nil {
			return "", err
		}
	}

	// The default Sheet1 is replaced by the named sheets.
	if idx, err := f.GetSheetIndex("Sheet1"); err == nil && idx != -1 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return "", err
		}
	}

	path := filepath.Join(s.dir, fmt.Sprintf("run_%s_%s.xlsx", runID, time.Now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	s.log.Info("Exported workbook - run=%s, model=%s, path=%s", runID, modelName, path)
	return path, nil
}

var statisticsHeaders = []string{
	"Brand", "Model", "Iterations", "Skipped",
	"Mention Frequency", "Mention CI Low", "Mention CI High",
	"Avg Rank", "Top-3 Rate", "First Mention Rate",
	"Recommendation Rate", "Avg Sentiment", "Share of Voice",
	"Recommendation Strength",
}

func (s *ExportService) writeStatisticsSheet(f *excelize.File, sheet string, stats []*domstats.BrandStatistics) error {
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	for i, h := range statisticsHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for r, bs := range stats {
		row := []interface{}{
			bs.Brand, bs.ModelName, bs.TotalIterations, bs.SkippedRecords,
			bs.MentionFrequency, bs.MentionFrequencyCI.Lower, bs.MentionFrequencyCI.Upper,
			bs.AvgRank, bs.Top3Rate, bs.FirstMentionRate,
			bs.RecommendationRate, bs.AvgSentiment, bs.ShareOfVoice,
			bs.RecommendationStrength,
		}
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

var changesHeaders = []string{
	"Brand", "Metric", "Before", "After", "Delta (pp)",
	"Z-Score", "P-Value", "Significant", "Interpretation",
}

func (s *ExportService) writeChangesSheet(f *excelize.File, sheet string, report *domstats.ChangeReport) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	for i, h := range changesHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	rowIdx := 2
	for _, bc := range report.Brands {
		for _, mc := range bc.Metrics {
			row := []interface{}{
				bc.Brand, mc.Metric, mc.Before, mc.After, mc.DeltaPP,
				mc.ZScore, mc.PValue, mc.Significant, string(mc.Interpretation),
			}
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, rowIdx)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
			rowIdx++
		}
	}
	return nil
}
