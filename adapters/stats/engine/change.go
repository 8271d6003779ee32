package engine

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"brandtrack/domain/core"
	domstats "brandtrack/domain/stats"
)

// Change classification thresholds in percentage points, combined with
// significance at p < 0.05.
const (
	significanceAlpha = 0.05
	noiseFloorPP      = 3.0
	majorFloorPP      = 10.0
)

// proportionMetrics are the metrics the detector runs a z-test on, in
// report order. Share of voice is excluded: it is a ratio of mention
// totals, not a per-response binomial, so the two-proportion test does
// not apply to it.
var proportionMetrics = []struct {
	key        string
	proportion func(*domstats.BrandStatistics) float64
}{
	{domstats.MetricMentionFrequency,
		func(s *domstats.BrandStatistics) float64 { return s.MentionFrequency }},
	{domstats.MetricTop3Rate,
		func(s *domstats.BrandStatistics) float64 { return s.Top3Rate }},
	{domstats.MetricFirstMentionRate,
		func(s *domstats.BrandStatistics) float64 { return s.FirstMentionRate }},
	{domstats.MetricRecommendationRate,
		func(s *domstats.BrandStatistics) float64 { return s.RecommendationRate }},
}

// DetectChanges compares two statistics snapshots of the same brand set,
// ordered (before, after) by run start time. Brands present in only one
// snapshot are skipped. When either side has zero iterations the detector
// declines to classify and reports every metric as noise instead of
// computing a misleading z-score.
func DetectChanges(before, after []*domstats.BrandStatistics, beforeRun, afterRun core.RunID, modelName string) *domstats.ChangeReport {
	beforeByBrand := indexByBrand(before)
	afterByBrand := indexByBrand(after)

	var brands []string
	for name := range beforeByBrand {
		if _, ok := afterByBrand[name]; ok {
			brands = append(brands, name)
		}
	}
	sort.Strings(brands)

	report := &domstats.ChangeReport{
		BeforeRunID: beforeRun,
		AfterRunID:  afterRun,
		ModelName:   modelName,
		ComputedAt:  core.Now(),
	}

	for _, name := range brands {
		report.Brands = append(report.Brands, compareBrand(beforeByBrand[name], afterByBrand[name]))
	}
	return report
}

func indexByBrand(entries []*domstats.BrandStatistics) map[string]*domstats.BrandStatistics {
	out := make(map[string]*domstats.BrandStatistics, len(entries))
	for _, e := range entries {
		out[e.Brand] = e
	}
	return out
}

func compareBrand(before, after *domstats.BrandStatistics) domstats.BrandChange {
	change := domstats.BrandChange{
		Brand:            before.Brand,
		IterationsBefore: before.TotalIterations,
		IterationsAfter:  after.TotalIterations,
		StrengthBefore:   before.RecommendationStrength,
		StrengthAfter:    after.RecommendationStrength,
		StrengthDelta:    after.RecommendationStrength - before.RecommendationStrength,
	}

	testable := before.TotalIterations > 0 && after.TotalIterations > 0

	for _, metric := range proportionMetrics {
		pBefore := metric.proportion(before)
		pAfter := metric.proportion(after)

		mc := domstats.MetricChange{
			Metric:         metric.key,
			Before:         pBefore,
			After:          pAfter,
			DeltaPP:        (pAfter - pBefore) * 100,
			PValue:         1,
			Interpretation: domstats.InterpretationNoise,
		}

		if testable {
			// The successes entering the test are reconstructed from the
			// reported proportion so the delta and its p-value always
			// describe the same quantity. For a single-model snapshot the
			// rounding is exact; for a merged snapshot the equal-weight
			// mean, not the pooled raw counts, is the reported estimate.
			z, p := twoProportionZTest(
				successesFor(pBefore, before.TotalIterations), before.TotalIterations,
				successesFor(pAfter, after.TotalIterations), after.TotalIterations,
			)
			mc.ZScore = z
			mc.PValue = p
			mc.Significant = p < significanceAlpha
			mc.Interpretation = classify(mc.DeltaPP, mc.Significant)
		}

		change.Metrics = append(change.Metrics, mc)
	}
	return change
}

func successesFor(proportion float64, n int) int {
	return int(math.Round(proportion * float64(n)))
}

// twoProportionZTest runs a pooled two-proportion z-test and returns the
// z statistic with its two-sided p-value. Degenerate inputs (an empty
// side, a pooled proportion of exactly 0 or 1) yield (0, 1).
func twoProportionZTest(x1, n1, x2, n2 int) (zScore, pValue float64) {
	if n1 == 0 || n2 == 0 {
		return 0, 1
	}

	p1 := float64(x1) / float64(n1)
	p2 := float64(x2) / float64(n2)
	pooled := float64(x1+x2) / float64(n1+n2)
	if pooled == 0 || pooled == 1 {
		return 0, 1
	}

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(n1) + 1/float64(n2)))
	if se == 0 {
		return 0, 1
	}

	z := (p2 - p1) / se
	p := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
	return z, p
}

// classify maps a movement to its practical interpretation. Anything
// under 3pp is noise regardless of significance, and a non-significant
// movement is downgraded to noise even when the raw magnitude is large.
func classify(deltaPP float64, significant bool) domstats.Interpretation {
	abs := math.Abs(deltaPP)
	switch {
	case abs < noiseFloorPP:
		return domstats.InterpretationNoise
	case !significant:
		return domstats.InterpretationNoise
	case abs > majorFloorPP:
		return domstats.InterpretationMajor
	default:
		return domstats.InterpretationNotable
	}
}
