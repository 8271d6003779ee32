package research

import (
	"brandtrack/domain/brand"
)

// Mention is one resolved brand occurrence extracted from a response record.
// SentimentScore is the categorical mapping (-1..+1) for recall responses,
// the explicit 0..1 preference score when one is supplied, or the
// forced-choice confidence. LanguageStrength is the self-reported strength
// on the 1..5 scale (derived from the explicit score or confidence); it is
// absent for recall mentions, which carry no self-report.
type Mention struct {
	Brand               string
	Rank                int
	SentimentScore      float64
	LanguageStrength    float64
	HasLanguageStrength bool
}

// Extractor turns a response record into the ordered list of resolved brand
// mentions it contains, applying a match strategy to each raw brand string
// and dropping unmatched ones. It is a pure function of its inputs.
type Extractor struct {
	strategy brand.MatchStrategy
}

// NewExtractor builds an extractor with the given match strategy.
// Pass nil to use the default substring-fallback strategy.
func NewExtractor(strategy brand.MatchStrategy) *Extractor {
	if strategy == nil {
		strategy = brand.DefaultStrategy()
	}
	return &Extractor{strategy: strategy}
}

// Extract resolves the mentions of one record against the tracked brand set.
// Duplicate brands within one payload are deduplicated keeping the best
// (lowest) rank; rank ties are preserved as given, the engine never
// re-ranks. A malformed payload yields an error and no mentions; the caller
// counts the skip.
func (e *Extractor) Extract(rec ResponseRecord, set *brand.Set) ([]Mention, error) {
	if err := rec.Payload.Validate(); err != nil {
		return nil, err
	}

	switch rec.Payload.Kind {
	case KindRecall:
		return e.fromRanked(rec.Payload.Recommendations, set), nil
	case KindPreference:
		return e.fromRanked(rec.Payload.Rankings, set), nil
	case KindForcedChoice:
		choice := rec.Payload.Choice
		canonical, ok := e.strategy.Match(choice.ChosenBrand, set)
		if !ok {
			// Unmatched chosen brand: not an error, the mention is discarded.
			return nil, nil
		}
		conf := clamp01(choice.Confidence)
		return []Mention{{
			Brand:               canonical,
			Rank:                1,
			SentimentScore:      conf,
			LanguageStrength:    strengthFromScore(conf),
			HasLanguageStrength: true,
		}}, nil
	}
	// Unreachable: Validate rejects unknown kinds.
	return nil, nil
}

// fromRanked resolves a ranked item list, dropping unmatched brands and
// items with non-positive ranks, and deduplicating per canonical brand by
// best rank while preserving first-appearance order.
func (e *Extractor) fromRanked(items []RankedMention, set *brand.Set) []Mention {
	var out []Mention
	index := make(map[string]int) // canonical brand -> position in out

	for _, item := range items {
		if item.Rank < 1 {
			continue
		}
		canonical, ok := e.strategy.Match(item.Brand, set)
		if !ok {
			continue
		}

		m := Mention{Brand: canonical, Rank: item.Rank}
		if item.Score != nil {
			score := clamp01(*item.Score)
			m.SentimentScore = score
			m.LanguageStrength = strengthFromScore(score)
			m.HasLanguageStrength = true
		} else {
			m.SentimentScore = item.Sentiment.Score()
		}

		if pos, seen := index[canonical]; seen {
			if m.Rank < out[pos].Rank {
				out[pos] = m
			}
			continue
		}
		index[canonical] = len(out)
		out = append(out, m)
	}
	return out
}

// strengthFromScore maps a 0..1 self-reported score onto the 1..5
// language-strength scale.
func strengthFromScore(score float64) float64 {
	return 1 + 4*score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
