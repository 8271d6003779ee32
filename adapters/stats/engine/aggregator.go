package engine

import (
	"fmt"

	"brandtrack/domain/brand"
	"brandtrack/domain/core"
	"brandtrack/domain/research"
	domstats "brandtrack/domain/stats"
)

// Position strength scores on the 0-5 scale. Language strength, when a
// response self-reports one, is blended in at 60% weight.
const (
	strengthRankFirst  = 5.0
	strengthRankSecond = 4.0
	strengthRankThird  = 3.0
	strengthMentioned  = 2.0
	strengthAbsent     = 0.0

	positionWeight = 0.4
	languageWeight = 0.6
)

// Scope narrows aggregation to one model's records and supplies optional
// persona display names for the affinity map. An empty or ModelAll model
// name aggregates every record regardless of provider.
type Scope struct {
	ModelName    string
	PersonaNames map[core.PersonaID]string
}

// Aggregator computes per-brand statistics from response records. It is
// stateless and safe for concurrent use across independent scopes.
type Aggregator struct {
	extractor *research.Extractor
}

// NewAggregator builds an aggregator around the given match strategy.
// Pass nil for the default substring-fallback strategy.
func NewAggregator(strategy brand.MatchStrategy) *Aggregator {
	return &Aggregator{extractor: research.NewExtractor(strategy)}
}

// brandAccum collects raw counts for one brand during a scan.
type brandAccum struct {
	mentions        int
	firstMentions   int
	recommendations int
	ranks           []float64
	sentiments      []float64
	strengths       []float64
	personaMentions map[string]int
	areaMentions    map[string]int
}

// Aggregate scans the records in scope and produces one statistics entry
// per tracked brand, in brand set order. Malformed payloads are skipped
// and counted; unmatched brand strings are silently excluded. Zero records
// in scope is a valid state and yields all-zero metrics with (0, 0)
// intervals. The computation is a pure function of its inputs.
func (a *Aggregator) Aggregate(records []research.ResponseRecord, set *brand.Set, scope Scope) ([]*domstats.BrandStatistics, error) {
	if set == nil {
		return nil, fmt.Errorf("tracked brand set is required")
	}

	accums := make(map[string]*brandAccum, set.Len())
	for _, name := range set.Names() {
		accums[name] = &brandAccum{
			personaMentions: make(map[string]int),
			areaMentions:    make(map[string]int),
		}
	}

	valid := 0
	skipped := 0
	personaTotals := make(map[string]int)
	areaTotals := make(map[string]int)

	for _, rec := range records {
		if !scope.includes(rec.ModelName) {
			continue
		}

		mentions, err := a.extractor.Extract(rec, set)
		if err != nil {
			skipped++
			continue
		}
		valid++

		persona := scope.personaLabel(rec.PersonaID)
		if persona != "" {
			personaTotals[persona]++
		}
		if rec.ResearchArea != "" {
			areaTotals[rec.ResearchArea]++
		}

		for _, m := range mentions {
			acc := accums[m.Brand]
			acc.mentions++
			acc.ranks = append(acc.ranks, float64(m.Rank))
			acc.sentiments = append(acc.sentiments, m.SentimentScore)
			acc.strengths = append(acc.strengths, compositeStrength(m))
			if m.Rank == 1 {
				acc.firstMentions++
			}
			if m.Rank <= 3 {
				acc.recommendations++
			}
			if persona != "" {
				acc.personaMentions[persona]++
			}
			if rec.ResearchArea != "" {
				acc.areaMentions[rec.ResearchArea]++
			}
		}
	}

	totalMentions := 0
	for _, acc := range accums {
		totalMentions += acc.mentions
	}

	modelName := scope.ModelName
	if modelName == "" {
		modelName = domstats.ModelAll
	}

	results := make([]*domstats.BrandStatistics, 0, set.Len())
	for _, name := range set.Names() {
		results = append(results, buildStatistics(name, modelName, accums[name], valid, skipped, totalMentions, personaTotals, areaTotals))
	}
	return results, nil
}

func (s Scope) includes(modelName string) bool {
	return s.ModelName == "" || s.ModelName == domstats.ModelAll || s.ModelName == modelName
}

func (s Scope) personaLabel(id core.PersonaID) string {
	if id.String() == "" {
		return ""
	}
	if name, ok := s.PersonaNames[id]; ok {
		return name
	}
	return id.String()
}

// compositeStrength blends the position score with the self-reported
// language strength when one exists, position alone otherwise.
func compositeStrength(m research.Mention) float64 {
	pos := positionStrength(m.Rank)
	if !m.HasLanguageStrength {
		return pos
	}
	return positionWeight*pos + languageWeight*m.LanguageStrength
}

func positionStrength(rank int) float64 {
	switch rank {
	case 1:
		return strengthRankFirst
	case 2:
		return strengthRankSecond
	case 3:
		return strengthRankThird
	default:
		return strengthMentioned
	}
}

func buildStatistics(
	name, modelName string,
	acc *brandAccum,
	n, skipped, totalMentions int,
	personaTotals, areaTotals map[string]int,
) *domstats.BrandStatistics {
	b := &domstats.BrandStatistics{
		Brand:           name,
		ModelName:       modelName,
		TotalIterations: n,
		SkippedRecords:  skipped,
		TotalMentions:   acc.mentions,
		FirstMentions:   acc.firstMentions,
		Recommendations: acc.recommendations,
	}

	if n > 0 {
		b.MentionFrequency = float64(acc.mentions) / float64(n)
		b.Top3Rate = float64(acc.recommendations) / float64(n)
		b.FirstMentionRate = float64(acc.firstMentions) / float64(n)
		b.RecommendationRate = float64(acc.recommendations) / float64(n)
	}
	b.MentionFrequencyCI = WilsonInterval(acc.mentions, n)
	b.Top3RateCI = WilsonInterval(acc.recommendations, n)
	b.FirstMentionRateCI = WilsonInterval(acc.firstMentions, n)
	b.RecommendationRateCI = WilsonInterval(acc.recommendations, n)

	// Conditional means over mentioned iterations. Never-mentioned brands
	// keep the (0, (0,0)) sentinel instead of an undefined value.
	b.AvgRank, b.AvgRankCI = MeanInterval(acc.ranks)
	b.AvgSentiment, b.AvgSentimentCI = MeanInterval(acc.sentiments)

	// Strength averages over every iteration in scope, scoring absence as 0.
	strengths := acc.strengths
	for i := len(strengths); i < n; i++ {
		strengths = append(strengths, strengthAbsent)
	}
	b.RecommendationStrength, b.RecommendationStrengthCI = MeanInterval(strengths)

	if totalMentions > 0 {
		b.ShareOfVoice = float64(acc.mentions) / float64(totalMentions)
	}

	if len(personaTotals) > 0 {
		b.PersonaAffinity = make(map[string]float64, len(personaTotals))
		for persona, total := range personaTotals {
			b.PersonaAffinity[persona] = rate(acc.personaMentions[persona], total)
		}
	}
	if len(areaTotals) > 0 {
		b.TopicScores = make(map[string]domstats.TopicScore, len(areaTotals))
		for area, total := range areaTotals {
			b.TopicScores[area] = domstats.TopicScore{
				Rate:     rate(acc.areaMentions[area], total),
				Mentions: acc.areaMentions[area],
				Total:    total,
			}
		}
	}

	return b
}

func rate(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}
