package engine

import (
	"testing"

	"brandtrack/domain/brand"
	"brandtrack/domain/core"
	"brandtrack/domain/research"
)

func TestCoMentions_SymmetricCounts(t *testing.T) {
	set := brand.MustNewSet([]string{"Acme", "Zenith", "Nimbus"})

	var records []research.ResponseRecord
	for i := 0; i < 3; i++ {
		records = append(records, recallRecord("m", ranked("Acme", 1), ranked("Zenith", 2)))
	}
	for i := 0; i < 47; i++ {
		records = append(records, recallRecord("m", ranked("Acme", 1)))
	}

	matrix, err := NewAggregator(nil).CoMentions(records, set, Scope{ModelName: "m"})
	if err != nil {
		t.Fatalf("CoMentions: %v", err)
	}

	if matrix.TotalResponses != 50 {
		t.Errorf("TotalResponses = %d, want 50", matrix.TotalResponses)
	}
	if got := matrix.Counts["Acme"]["Zenith"]; got != 3 {
		t.Errorf("Acme with Zenith = %d, want 3", got)
	}
	if got := matrix.Counts["Zenith"]["Acme"]; got != 3 {
		t.Errorf("Zenith with Acme = %d, want 3", got)
	}
	if got := matrix.Counts["Acme"]["Nimbus"]; got != 0 {
		t.Errorf("Acme with Nimbus = %d, want 0", got)
	}

	for _, a := range matrix.Brands {
		for _, b := range matrix.Brands {
			if a == b {
				continue
			}
			if matrix.Counts[a][b] != matrix.Counts[b][a] {
				t.Errorf("asymmetric counts for (%s, %s): %d vs %d", a, b, matrix.Counts[a][b], matrix.Counts[b][a])
			}
		}
	}
}

func TestCoMentions_TriplesCountEveryPair(t *testing.T) {
	set := brand.MustNewSet([]string{"Acme", "Zenith", "Nimbus"})
	records := []research.ResponseRecord{
		recallRecord("m", ranked("Acme", 1), ranked("Zenith", 2), ranked("Nimbus", 3)),
	}

	matrix, err := NewAggregator(nil).CoMentions(records, set, Scope{ModelName: "m"})
	if err != nil {
		t.Fatalf("CoMentions: %v", err)
	}

	for _, pair := range [][2]string{{"Acme", "Zenith"}, {"Acme", "Nimbus"}, {"Zenith", "Nimbus"}} {
		if got := matrix.Counts[pair[0]][pair[1]]; got != 1 {
			t.Errorf("%s with %s = %d, want 1", pair[0], pair[1], got)
		}
	}
}

func TestCoMentions_DuplicateBrandInPayloadCountsOnce(t *testing.T) {
	set := brand.MustNewSet([]string{"Acme", "Zenith"})
	records := []research.ResponseRecord{
		recallRecord("m", ranked("Acme", 1), ranked("Zenith", 2), ranked("acme", 3)),
	}

	matrix, err := NewAggregator(nil).CoMentions(records, set, Scope{ModelName: "m"})
	if err != nil {
		t.Fatalf("CoMentions: %v", err)
	}
	if got := matrix.Counts["Acme"]["Zenith"]; got != 1 {
		t.Errorf("Acme with Zenith = %d, want 1 despite duplicate mention", got)
	}
}

func TestContextualRelevance(t *testing.T) {
	set := brand.MustNewSet([]string{"Acme", "Zenith"})
	devs := core.PersonaID("p-devs")
	ops := core.PersonaID("p-ops")

	rec := func(pid core.PersonaID, area string, mentions ...research.RankedMention) research.ResponseRecord {
		r := recallRecord("m", mentions...)
		r.PersonaID = pid
		r.ResearchArea = area
		return r
	}

	records := []research.ResponseRecord{
		rec(devs, "reliability", ranked("Acme", 1)),
		rec(devs, "reliability", ranked("Acme", 1), ranked("Zenith", 2)),
		rec(ops, "pricing", ranked("Zenith", 1)),
		rec(ops, "pricing"),
	}

	scope := Scope{
		ModelName:    "m",
		PersonaNames: map[core.PersonaID]string{devs: "Developers", ops: "Operators"},
	}
	matrix, err := NewAggregator(nil).ContextualRelevance(records, set, scope)
	if err != nil {
		t.Fatalf("ContextualRelevance: %v", err)
	}

	approx(t, matrix.PersonaRelevance["Developers"]["Acme"], 1.0, 1e-9, "developers x Acme")
	approx(t, matrix.PersonaRelevance["Developers"]["Zenith"], 0.5, 1e-9, "developers x Zenith")
	approx(t, matrix.PersonaRelevance["Operators"]["Acme"], 0.0, 1e-9, "operators x Acme")
	approx(t, matrix.AreaRelevance["pricing"]["Zenith"], 0.5, 1e-9, "pricing x Zenith")
	approx(t, matrix.AreaRelevance["reliability"]["Acme"], 1.0, 1e-9, "reliability x Acme")

	if len(matrix.Personas) != 2 || matrix.Personas[0] != "Developers" {
		t.Errorf("persona axis = %v, want first-seen order starting with Developers", matrix.Personas)
	}
	if len(matrix.Areas) != 2 || matrix.Areas[0] != "reliability" {
		t.Errorf("area axis = %v, want first-seen order starting with reliability", matrix.Areas)
	}
}
