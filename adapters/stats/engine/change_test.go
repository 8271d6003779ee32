package engine

import (
	"testing"

	"brandtrack/domain/core"
	domstats "brandtrack/domain/stats"
)

func snapshot(mentions, n int) []*domstats.BrandStatistics {
	return []*domstats.BrandStatistics{{
		Brand:            "Acme",
		ModelName:        "gpt-4o",
		TotalIterations:  n,
		TotalMentions:    mentions,
		MentionFrequency: float64(mentions) / float64(n),
	}}
}

func metricByKey(t *testing.T, c domstats.BrandChange, key string) domstats.MetricChange {
	t.Helper()
	for _, m := range c.Metrics {
		if m.Metric == key {
			return m
		}
	}
	t.Fatalf("metric %q missing from change set", key)
	return domstats.MetricChange{}
}

func TestDetectChanges_SelfComparisonIsNoise(t *testing.T) {
	snap := snapshot(14, 40)
	report := DetectChanges(snap, snap, core.RunID("run-a"), core.RunID("run-a"), "gpt-4o")

	if len(report.Brands) != 1 {
		t.Fatalf("got %d brand changes, want 1", len(report.Brands))
	}
	for _, m := range report.Brands[0].Metrics {
		if m.DeltaPP != 0 {
			t.Errorf("%s delta = %vpp, want 0", m.Metric, m.DeltaPP)
		}
		if m.Interpretation != domstats.InterpretationNoise {
			t.Errorf("%s = %s, want noise", m.Metric, m.Interpretation)
		}
	}
}

func TestDetectChanges_LargeSignificantShiftIsMajor(t *testing.T) {
	before := snapshot(35, 100)
	after := snapshot(55, 100)

	report := DetectChanges(before, after, core.RunID("run-a"), core.RunID("run-b"), "gpt-4o")
	mf := metricByKey(t, report.Brands[0], domstats.MetricMentionFrequency)

	approx(t, mf.DeltaPP, 20.0, 1e-9, "delta")
	if !mf.Significant {
		t.Errorf("p = %v, want < 0.05", mf.PValue)
	}
	if mf.Interpretation != domstats.InterpretationMajor {
		t.Errorf("interpretation = %s, want major", mf.Interpretation)
	}
}

func TestDetectChanges_MergedSnapshotTestsReportedProportion(t *testing.T) {
	// Merged "all" snapshots carry pooled raw counts next to an
	// equal-weight-per-model mean. With unequal per-model n the two
	// disagree, and the z-test must follow the reported proportion: here
	// both sides report 0.5 even though the pooled mentions swing from
	// 10/100 to 90/100, so the comparison is a null result.
	before := []*domstats.BrandStatistics{{
		Brand:            "Acme",
		ModelName:        domstats.ModelAll,
		TotalIterations:  100,
		TotalMentions:    10,
		MentionFrequency: 0.5,
	}}
	after := []*domstats.BrandStatistics{{
		Brand:            "Acme",
		ModelName:        domstats.ModelAll,
		TotalIterations:  100,
		TotalMentions:    90,
		MentionFrequency: 0.5,
	}}

	report := DetectChanges(before, after, core.RunID("run-a"), core.RunID("run-b"), domstats.ModelAll)
	mf := metricByKey(t, report.Brands[0], domstats.MetricMentionFrequency)

	if mf.DeltaPP != 0 {
		t.Errorf("delta = %vpp, want 0", mf.DeltaPP)
	}
	if mf.ZScore != 0 || mf.PValue != 1 {
		t.Errorf("z = %v, p = %v, want the null result 0, 1", mf.ZScore, mf.PValue)
	}
	if mf.Interpretation != domstats.InterpretationNoise {
		t.Errorf("interpretation = %s, want noise", mf.Interpretation)
	}
}

func TestDetectChanges_NonSignificantShiftDowngradedToNoise(t *testing.T) {
	// The same 20pp movement on n=40 per side does not reach p < 0.05
	// under the pooled two-sided test (p ~ 0.07).
	before := snapshot(14, 40)
	after := snapshot(22, 40)

	report := DetectChanges(before, after, core.RunID("run-a"), core.RunID("run-b"), "gpt-4o")
	mf := metricByKey(t, report.Brands[0], domstats.MetricMentionFrequency)

	if mf.Significant {
		t.Errorf("p = %v, expected non-significant at these sample sizes", mf.PValue)
	}
	if mf.Interpretation != domstats.InterpretationNoise {
		t.Errorf("interpretation = %s, want noise", mf.Interpretation)
	}
}

func TestDetectChanges_SmallDeltaIsNoiseEvenWhenSignificant(t *testing.T) {
	before := snapshot(5000, 10000)
	after := snapshot(5200, 10000)

	report := DetectChanges(before, after, core.RunID("run-a"), core.RunID("run-b"), "gpt-4o")
	mf := metricByKey(t, report.Brands[0], domstats.MetricMentionFrequency)

	if !mf.Significant {
		t.Fatalf("p = %v, expected significance at n=10000", mf.PValue)
	}
	if mf.Interpretation != domstats.InterpretationNoise {
		t.Errorf("2pp shift = %s, want noise below the 3pp floor", mf.Interpretation)
	}
}

func TestDetectChanges_ModerateShiftIsNotable(t *testing.T) {
	before := snapshot(400, 1000)
	after := snapshot(480, 1000)

	report := DetectChanges(before, after, core.RunID("run-a"), core.RunID("run-b"), "gpt-4o")
	mf := metricByKey(t, report.Brands[0], domstats.MetricMentionFrequency)

	approx(t, mf.DeltaPP, 8.0, 1e-9, "delta")
	if !mf.Significant {
		t.Fatalf("p = %v, expected significance", mf.PValue)
	}
	if mf.Interpretation != domstats.InterpretationNotable {
		t.Errorf("8pp significant shift = %s, want notable", mf.Interpretation)
	}
}

func TestDetectChanges_ZeroIterationsDeclinesToClassify(t *testing.T) {
	before := []*domstats.BrandStatistics{{Brand: "Acme", TotalIterations: 0}}
	after := snapshot(30, 40)

	report := DetectChanges(before, after, core.RunID("run-a"), core.RunID("run-b"), "gpt-4o")
	for _, m := range report.Brands[0].Metrics {
		if m.ZScore != 0 || m.PValue != 1 {
			t.Errorf("%s test ran on empty side: z=%v p=%v", m.Metric, m.ZScore, m.PValue)
		}
		if m.Interpretation != domstats.InterpretationNoise {
			t.Errorf("%s = %s, want noise when a side has no iterations", m.Metric, m.Interpretation)
		}
	}
}

func TestDetectChanges_SkipsBrandsMissingOnEitherSide(t *testing.T) {
	before := snapshot(10, 20)
	after := []*domstats.BrandStatistics{{Brand: "Zenith", TotalIterations: 20}}

	report := DetectChanges(before, after, core.RunID("run-a"), core.RunID("run-b"), "gpt-4o")
	if len(report.Brands) != 0 {
		t.Errorf("got %d brand changes across disjoint brand sets, want 0", len(report.Brands))
	}
}

func TestDetectChanges_StrengthDeltaIsInformational(t *testing.T) {
	before := snapshot(10, 20)
	before[0].RecommendationStrength = 2.1
	after := snapshot(10, 20)
	after[0].RecommendationStrength = 3.4

	report := DetectChanges(before, after, core.RunID("run-a"), core.RunID("run-b"), "gpt-4o")
	change := report.Brands[0]
	approx(t, change.StrengthDelta, 1.3, 1e-9, "strength delta")
}
