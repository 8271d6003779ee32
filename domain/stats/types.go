package stats

import (
	"fmt"

	"brandtrack/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// ModelAll is the model name used for statistics merged across providers.
const ModelAll = "all"

// Interval is a two-sided confidence interval, clamped to the metric's
// natural range by the code that produces it.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns the interval span.
func (i Interval) Width() float64 {
	return i.Upper - i.Lower
}

// Contains reports whether v falls inside the interval (inclusive).
func (i Interval) Contains(v float64) bool {
	return v >= i.Lower && v <= i.Upper
}

// TopicScore is a brand's mention performance within one research area.
type TopicScore struct {
	Rate     float64 `json:"rate"`     // mention rate among responses in the area
	Mentions int     `json:"mentions"` // raw mention count in the area
	Total    int     `json:"total"`    // responses evaluated in the area
}

// BrandStatistics holds every aggregated metric for one brand within one
// (run, model) scope. Proportion metrics carry Wilson score intervals,
// mean metrics carry z-based intervals over per-response values.
// INVARIANTS:
// - TotalIterations counts valid records only; malformed records land in SkippedRecords
// - rates are in [0,1], AvgRank is 0 when the brand was never ranked
// - interval bounds never escape the metric's natural range
type BrandStatistics struct {
	Brand     string `json:"brand"`
	ModelName string `json:"model_name"` // provider model, or ModelAll after merging

	TotalIterations int `json:"total_iterations"` // valid responses in scope
	SkippedRecords  int `json:"skipped_records"`  // malformed responses excluded from N
	TotalMentions   int `json:"total_mentions"`
	FirstMentions   int `json:"first_mentions"`
	Recommendations int `json:"recommendations"` // top-3 or chosen outright

	MentionFrequency   float64  `json:"mention_frequency"`
	MentionFrequencyCI Interval `json:"mention_frequency_ci"`

	AvgRank   float64  `json:"avg_rank"` // conditional on being mentioned; 0 when never mentioned
	AvgRankCI Interval `json:"avg_rank_ci"`

	Top3Rate   float64  `json:"top3_rate"`
	Top3RateCI Interval `json:"top3_rate_ci"`

	FirstMentionRate   float64  `json:"first_mention_rate"`
	FirstMentionRateCI Interval `json:"first_mention_rate_ci"`

	RecommendationRate   float64  `json:"recommendation_rate"`
	RecommendationRateCI Interval `json:"recommendation_rate_ci"`

	AvgSentiment   float64  `json:"avg_sentiment"` // [-1,1], conditional on being mentioned
	AvgSentimentCI Interval `json:"avg_sentiment_ci"`

	RecommendationStrength   float64  `json:"recommendation_strength"` // [0,5] composite
	RecommendationStrengthCI Interval `json:"recommendation_strength_ci"`

	ShareOfVoice float64 `json:"share_of_voice"` // brand mentions / all tracked-brand mentions

	PersonaAffinity map[string]float64    `json:"persona_affinity,omitempty"` // persona name -> mention rate
	TopicScores     map[string]TopicScore `json:"topic_scores,omitempty"`     // research area -> performance
}

// Mentioned reports whether the brand appeared at least once in scope.
func (b *BrandStatistics) Mentioned() bool {
	return b.TotalMentions > 0
}

// ============================================================================
// CHANGE DETECTION
// ============================================================================

// Interpretation classifies a metric movement between two runs.
type Interpretation string

const (
	InterpretationNoise   Interpretation = "noise"   // within sampling error or below 3pp
	InterpretationNotable Interpretation = "notable" // significant, 3 to 10 percentage points
	InterpretationMajor   Interpretation = "major"   // significant, above 10 percentage points
)

// Proportion metric keys compared by the change detector.
const (
	MetricMentionFrequency   = "mention_frequency"
	MetricTop3Rate           = "top3_rate"
	MetricFirstMentionRate   = "first_mention_rate"
	MetricRecommendationRate = "recommendation_rate"
)

// MetricChange is the two-proportion z-test result for one metric of one brand.
type MetricChange struct {
	Metric         string         `json:"metric"`
	Before         float64        `json:"before"`
	After          float64        `json:"after"`
	DeltaPP        float64        `json:"delta_pp"` // (after - before) in percentage points
	ZScore         float64        `json:"z_score"`
	PValue         float64        `json:"p_value"` // two-sided
	Significant    bool           `json:"significant"`
	Interpretation Interpretation `json:"interpretation"`
}

// BrandChange collects all metric movements for one brand between two runs.
type BrandChange struct {
	Brand            string         `json:"brand"`
	IterationsBefore int            `json:"iterations_before"`
	IterationsAfter  int            `json:"iterations_after"`
	Metrics          []MetricChange `json:"metrics"`
	StrengthBefore   float64        `json:"strength_before"`
	StrengthAfter    float64        `json:"strength_after"`
	StrengthDelta    float64        `json:"strength_delta"`
}

// Largest returns the metric with the biggest absolute movement, or nil
// when no metrics were compared.
func (c *BrandChange) Largest() *MetricChange {
	var best *MetricChange
	for i := range c.Metrics {
		m := &c.Metrics[i]
		if best == nil || abs(m.DeltaPP) > abs(best.DeltaPP) {
			best = m
		}
	}
	return best
}

// ChangeReport compares a later run against an earlier baseline.
type ChangeReport struct {
	BeforeRunID core.RunID     `json:"before_run_id"`
	AfterRunID  core.RunID     `json:"after_run_id"`
	ModelName   string         `json:"model_name"`
	Brands      []BrandChange  `json:"brands"`
	ComputedAt  core.Timestamp `json:"computed_at"`
}

// ============================================================================
// CO-MENTION AND CONTEXTUAL RELEVANCE
// ============================================================================

// CoMentionMatrix counts how often brand pairs share a response.
// Counts are kept per direction so Counts[a][b] == Counts[b][a] holds
// by construction and can be asserted cheaply.
type CoMentionMatrix struct {
	Brands         []string                  `json:"brands"`
	Counts         map[string]map[string]int `json:"counts"`
	TotalResponses int                       `json:"total_responses"`
}

// NewCoMentionMatrix allocates a zeroed matrix over the given brand order.
func NewCoMentionMatrix(brands []string) *CoMentionMatrix {
	m := &CoMentionMatrix{
		Brands: append([]string(nil), brands...),
		Counts: make(map[string]map[string]int, len(brands)),
	}
	for _, b := range brands {
		row := make(map[string]int, len(brands))
		for _, other := range brands {
			if other != b {
				row[other] = 0
			}
		}
		m.Counts[b] = row
	}
	return m
}

// Record increments both directions for one co-occurring pair.
func (m *CoMentionMatrix) Record(a, b string) error {
	if a == b {
		return fmt.Errorf("co-mention pair must be distinct brands, got %q twice", a)
	}
	rowA, okA := m.Counts[a]
	rowB, okB := m.Counts[b]
	if !okA || !okB {
		return fmt.Errorf("co-mention pair (%q, %q) outside tracked brand set", a, b)
	}
	rowA[b]++
	rowB[a]++
	return nil
}

// With returns the co-mention counts for one brand against all others.
func (m *CoMentionMatrix) With(brand string) map[string]int {
	row := m.Counts[brand]
	out := make(map[string]int, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// ContextualMatrix holds mention rates broken down by persona and by
// research area. Axis slices preserve first-seen order for stable output.
type ContextualMatrix struct {
	Brands   []string `json:"brands"`
	Personas []string `json:"personas"`
	Areas    []string `json:"areas"`

	// PersonaRelevance[persona][brand] = mention rate among that persona's responses.
	PersonaRelevance map[string]map[string]float64 `json:"persona_relevance"`
	// AreaRelevance[area][brand] = mention rate among that area's responses.
	AreaRelevance map[string]map[string]float64 `json:"area_relevance"`
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
