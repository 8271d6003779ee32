package engine

import (
	"fmt"

	"brandtrack/domain/brand"
	"brandtrack/domain/research"
	domstats "brandtrack/domain/stats"
)

// CoMentions counts how often each pair of tracked brands appears within
// the same response. Counts are symmetric and stored per direction for
// direct "co-mentioned with A" lookups. Malformed records are skipped,
// matching the aggregation rules.
func (a *Aggregator) CoMentions(records []research.ResponseRecord, set *brand.Set, scope Scope) (*domstats.CoMentionMatrix, error) {
	if set == nil {
		return nil, fmt.Errorf("tracked brand set is required")
	}

	matrix := domstats.NewCoMentionMatrix(set.Names())

	for _, rec := range records {
		if !scope.includes(rec.ModelName) {
			continue
		}
		mentions, err := a.extractor.Extract(rec, set)
		if err != nil {
			continue
		}
		matrix.TotalResponses++

		// Mentions are already deduplicated per record, so every pair
		// occurs at most once per response.
		for i := 0; i < len(mentions); i++ {
			for j := i + 1; j < len(mentions); j++ {
				if err := matrix.Record(mentions[i].Brand, mentions[j].Brand); err != nil {
					return nil, err
				}
			}
		}
	}
	return matrix, nil
}

// ContextualRelevance computes per-persona and per-research-area mention
// rates for every tracked brand. Axis labels keep first-seen record order
// so repeated runs over the same input produce identical matrices.
func (a *Aggregator) ContextualRelevance(records []research.ResponseRecord, set *brand.Set, scope Scope) (*domstats.ContextualMatrix, error) {
	if set == nil {
		return nil, fmt.Errorf("tracked brand set is required")
	}

	matrix := &domstats.ContextualMatrix{
		Brands:           set.Names(),
		PersonaRelevance: make(map[string]map[string]float64),
		AreaRelevance:    make(map[string]map[string]float64),
	}

	personaTotals := make(map[string]int)
	areaTotals := make(map[string]int)
	personaMentions := make(map[string]map[string]int)
	areaMentions := make(map[string]map[string]int)

	for _, rec := range records {
		if !scope.includes(rec.ModelName) {
			continue
		}
		mentions, err := a.extractor.Extract(rec, set)
		if err != nil {
			continue
		}

		persona := scope.personaLabel(rec.PersonaID)
		if persona != "" {
			if personaTotals[persona] == 0 {
				matrix.Personas = append(matrix.Personas, persona)
				personaMentions[persona] = make(map[string]int)
			}
			personaTotals[persona]++
		}
		if rec.ResearchArea != "" {
			if areaTotals[rec.ResearchArea] == 0 {
				matrix.Areas = append(matrix.Areas, rec.ResearchArea)
				areaMentions[rec.ResearchArea] = make(map[string]int)
			}
			areaTotals[rec.ResearchArea]++
		}

		for _, m := range mentions {
			if persona != "" {
				personaMentions[persona][m.Brand]++
			}
			if rec.ResearchArea != "" {
				areaMentions[rec.ResearchArea][m.Brand]++
			}
		}
	}

	for _, persona := range matrix.Personas {
		row := make(map[string]float64, set.Len())
		for _, name := range set.Names() {
			row[name] = rate(personaMentions[persona][name], personaTotals[persona])
		}
		matrix.PersonaRelevance[persona] = row
	}
	for _, area := range matrix.Areas {
		row := make(map[string]float64, set.Len())
		for _, name := range set.Names() {
			row[name] = rate(areaMentions[area][name], areaTotals[area])
		}
		matrix.AreaRelevance[area] = row
	}

	return matrix, nil
}
