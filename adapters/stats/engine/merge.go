package engine

import (
	domstats "brandtrack/domain/stats"
)

// MergeOption configures cross-model merging.
type MergeOption func(*mergeConfig)

type mergeConfig struct {
	pooledIntervals bool
}

// WithPooledIntervals re-derives proportion intervals from summed
// successes and trials instead of taking the hull of per-model intervals.
// The hull is the compatible default but is not a principled meta-analytic
// combination; pooling is the statistically sounder alternative.
func WithPooledIntervals() MergeOption {
	return func(c *mergeConfig) {
		c.pooledIntervals = true
	}
}

// MergeAcrossModels combines per-model statistics for the same run into
// one "all models" entry per brand. Point estimates are averaged with
// equal weight per model, not per iteration. Intervals default to the
// convex hull of the per-model intervals; counts and iteration totals are
// summed. Merging a single model's results is a value-preserving no-op
// apart from the model name. Brand order follows the first model's list.
func MergeAcrossModels(perModel [][]*domstats.BrandStatistics, opts ...MergeOption) []*domstats.BrandStatistics {
	var cfg mergeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(perModel) == 0 {
		return nil
	}

	var brandOrder []string
	byBrand := make(map[string][]*domstats.BrandStatistics)
	for _, modelStats := range perModel {
		for _, s := range modelStats {
			if _, seen := byBrand[s.Brand]; !seen {
				brandOrder = append(brandOrder, s.Brand)
			}
			byBrand[s.Brand] = append(byBrand[s.Brand], s)
		}
	}

	merged := make([]*domstats.BrandStatistics, 0, len(brandOrder))
	for _, name := range brandOrder {
		merged = append(merged, mergeBrand(byBrand[name], cfg))
	}
	return merged
}

func mergeBrand(entries []*domstats.BrandStatistics, cfg mergeConfig) *domstats.BrandStatistics {
	out := &domstats.BrandStatistics{
		Brand:     entries[0].Brand,
		ModelName: domstats.ModelAll,
	}

	k := float64(len(entries))
	for _, e := range entries {
		out.TotalIterations += e.TotalIterations
		out.SkippedRecords += e.SkippedRecords
		out.TotalMentions += e.TotalMentions
		out.FirstMentions += e.FirstMentions
		out.Recommendations += e.Recommendations

		out.MentionFrequency += e.MentionFrequency / k
		out.Top3Rate += e.Top3Rate / k
		out.FirstMentionRate += e.FirstMentionRate / k
		out.RecommendationRate += e.RecommendationRate / k
		out.AvgRank += e.AvgRank / k
		out.AvgSentiment += e.AvgSentiment / k
		out.RecommendationStrength += e.RecommendationStrength / k
		out.ShareOfVoice += e.ShareOfVoice / k
	}

	if cfg.pooledIntervals {
		out.MentionFrequencyCI = WilsonInterval(out.TotalMentions, out.TotalIterations)
		out.Top3RateCI = WilsonInterval(out.Recommendations, out.TotalIterations)
		out.FirstMentionRateCI = WilsonInterval(out.FirstMentions, out.TotalIterations)
		out.RecommendationRateCI = WilsonInterval(out.Recommendations, out.TotalIterations)
	} else {
		out.MentionFrequencyCI = hull(entries, func(e *domstats.BrandStatistics) domstats.Interval { return e.MentionFrequencyCI })
		out.Top3RateCI = hull(entries, func(e *domstats.BrandStatistics) domstats.Interval { return e.Top3RateCI })
		out.FirstMentionRateCI = hull(entries, func(e *domstats.BrandStatistics) domstats.Interval { return e.FirstMentionRateCI })
		out.RecommendationRateCI = hull(entries, func(e *domstats.BrandStatistics) domstats.Interval { return e.RecommendationRateCI })
	}

	// Mean-metric intervals always use the hull; there are no pooled raw
	// observations to re-derive them from at this layer.
	out.AvgRankCI = hull(entries, func(e *domstats.BrandStatistics) domstats.Interval { return e.AvgRankCI })
	out.AvgSentimentCI = hull(entries, func(e *domstats.BrandStatistics) domstats.Interval { return e.AvgSentimentCI })
	out.RecommendationStrengthCI = hull(entries, func(e *domstats.BrandStatistics) domstats.Interval { return e.RecommendationStrengthCI })

	out.PersonaAffinity = mergeRateMaps(entries, func(e *domstats.BrandStatistics) map[string]float64 { return e.PersonaAffinity })
	out.TopicScores = mergeTopicMaps(entries)

	return out
}

func hull(entries []*domstats.BrandStatistics, pick func(*domstats.BrandStatistics) domstats.Interval) domstats.Interval {
	out := pick(entries[0])
	for _, e := range entries[1:] {
		iv := pick(e)
		if iv.Lower < out.Lower {
			out.Lower = iv.Lower
		}
		if iv.Upper > out.Upper {
			out.Upper = iv.Upper
		}
	}
	return out
}

// mergeRateMaps averages map values key-wise over the models that carry
// the key.
func mergeRateMaps(entries []*domstats.BrandStatistics, pick func(*domstats.BrandStatistics) map[string]float64) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, e := range entries {
		for key, v := range pick(e) {
			sums[key] += v
			counts[key]++
		}
	}
	if len(sums) == 0 {
		return nil
	}
	out := make(map[string]float64, len(sums))
	for key, sum := range sums {
		out[key] = sum / float64(counts[key])
	}
	return out
}

func mergeTopicMaps(entries []*domstats.BrandStatistics) map[string]domstats.TopicScore {
	sums := make(map[string]domstats.TopicScore)
	counts := make(map[string]int)
	for _, e := range entries {
		for area, ts := range e.TopicScores {
			agg := sums[area]
			agg.Rate += ts.Rate
			agg.Mentions += ts.Mentions
			agg.Total += ts.Total
			sums[area] = agg
			counts[area]++
		}
	}
	if len(sums) == 0 {
		return nil
	}
	out := make(map[string]domstats.TopicScore, len(sums))
	for area, agg := range sums {
		agg.Rate /= float64(counts[area])
		out[area] = agg
	}
	return out
}
