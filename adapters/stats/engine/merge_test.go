package engine

import (
	"testing"

	domstats "brandtrack/domain/stats"
)

func modelStats(model string, mentions, n int) *domstats.BrandStatistics {
	return &domstats.BrandStatistics{
		Brand:              "Acme",
		ModelName:          model,
		TotalIterations:    n,
		TotalMentions:      mentions,
		MentionFrequency:   float64(mentions) / float64(n),
		MentionFrequencyCI: WilsonInterval(mentions, n),
	}
}

func TestMergeAcrossModels_SingleModelIsNoOp(t *testing.T) {
	in := modelStats("gpt-4o", 14, 20)
	in.PersonaAffinity = map[string]float64{"Developers": 0.5}

	merged := MergeAcrossModels([][]*domstats.BrandStatistics{{in}})
	if len(merged) != 1 {
		t.Fatalf("got %d merged entries, want 1", len(merged))
	}

	out := merged[0]
	if out.ModelName != domstats.ModelAll {
		t.Errorf("model name = %q, want %q", out.ModelName, domstats.ModelAll)
	}
	approx(t, out.MentionFrequency, in.MentionFrequency, 1e-9, "mention frequency")
	if out.MentionFrequencyCI != in.MentionFrequencyCI {
		t.Errorf("interval changed under single-model merge: %+v vs %+v", out.MentionFrequencyCI, in.MentionFrequencyCI)
	}
	if out.TotalIterations != in.TotalIterations {
		t.Errorf("iterations = %d, want %d", out.TotalIterations, in.TotalIterations)
	}
	approx(t, out.PersonaAffinity["Developers"], 0.5, 1e-9, "persona affinity")
}

func TestMergeAcrossModels_EqualWeightMeanAndHull(t *testing.T) {
	a := modelStats("gpt-4o", 10, 20)       // 0.50
	b := modelStats("claude-sonnet", 8, 40) // 0.20

	merged := MergeAcrossModels([][]*domstats.BrandStatistics{{a}, {b}})
	out := merged[0]

	// Equal weight per model, not per iteration: (0.50 + 0.20) / 2.
	approx(t, out.MentionFrequency, 0.35, 1e-9, "merged mention frequency")
	if out.TotalIterations != 60 || out.TotalMentions != 18 {
		t.Errorf("counts = n %d mentions %d, want 60 and 18", out.TotalIterations, out.TotalMentions)
	}

	wantLower := b.MentionFrequencyCI.Lower // 0.20 on n=40 has the lower bound
	wantUpper := a.MentionFrequencyCI.Upper // 0.50 on n=20 has the upper bound
	approx(t, out.MentionFrequencyCI.Lower, wantLower, 1e-9, "hull lower")
	approx(t, out.MentionFrequencyCI.Upper, wantUpper, 1e-9, "hull upper")
}

func TestMergeAcrossModels_PooledIntervals(t *testing.T) {
	a := modelStats("gpt-4o", 10, 20)
	b := modelStats("claude-sonnet", 8, 40)

	merged := MergeAcrossModels([][]*domstats.BrandStatistics{{a}, {b}}, WithPooledIntervals())
	out := merged[0]

	want := WilsonInterval(18, 60)
	if out.MentionFrequencyCI != want {
		t.Errorf("pooled interval = %+v, want %+v", out.MentionFrequencyCI, want)
	}
}

func TestMergeAcrossModels_TopicMapsMergeKeyWise(t *testing.T) {
	a := modelStats("gpt-4o", 5, 10)
	a.TopicScores = map[string]domstats.TopicScore{
		"reliability": {Rate: 0.8, Mentions: 8, Total: 10},
	}
	b := modelStats("claude-sonnet", 5, 10)
	b.TopicScores = map[string]domstats.TopicScore{
		"reliability": {Rate: 0.4, Mentions: 4, Total: 10},
		"pricing":     {Rate: 0.2, Mentions: 2, Total: 10},
	}

	out := MergeAcrossModels([][]*domstats.BrandStatistics{{a}, {b}})[0]

	rel := out.TopicScores["reliability"]
	approx(t, rel.Rate, 0.6, 1e-9, "averaged topic rate")
	if rel.Mentions != 12 || rel.Total != 20 {
		t.Errorf("reliability counts = %+v, want mentions 12 total 20", rel)
	}
	// Key present in one model only keeps that model's rate.
	approx(t, out.TopicScores["pricing"].Rate, 0.2, 1e-9, "single-model topic rate")
}

func TestMergeAcrossModels_Empty(t *testing.T) {
	if got := MergeAcrossModels(nil); got != nil {
		t.Errorf("merge of no models = %v, want nil", got)
	}
}
