package models

import (
	"testing"
	"time"
)

func TestPersonaValidate(t *testing.T) {
	p := Persona{
		Name:             "Budget Gamer",
		Archetype:        ArchetypeBudgetConscious,
		TechSavviness:    4,
		PriceSensitivity: 5,
		BrandLoyalty:     2,
	}
	if err := p.Validate(); err != nil {
		t.Errorf("valid persona rejected: %v", err)
	}

	p.PriceSensitivity = 6
	if err := p.Validate(); err == nil {
		t.Error("trait score above 5 accepted")
	}

	p.PriceSensitivity = 5
	p.Archetype = "visionary"
	if err := p.Validate(); err == nil {
		t.Error("unknown archetype accepted")
	}
}

func TestResearchSessionValidate(t *testing.T) {
	s := ResearchSession{
		Category:            "wireless headphones",
		Brands:              StringList{"Acme", "Zenith"},
		QuestionsPerPersona: 5,
	}
	if err := s.Validate(); err != nil {
		t.Errorf("valid session rejected: %v", err)
	}

	s.Brands = nil
	if err := s.Validate(); err == nil {
		t.Error("session without brands accepted")
	}
}

func TestResearchRunLifecycle(t *testing.T) {
	run := ResearchRun{Status: RunStatusRunning}
	at := time.Now()

	run.Complete(at)
	if run.Status != RunStatusComplete || run.CompletedAt == nil {
		t.Errorf("run not completed: %+v", run)
	}

	run = ResearchRun{Status: RunStatusRunning}
	run.Fail(at, "provider quota exceeded")
	if run.Status != RunStatusFailed || run.ErrorMessage == "" {
		t.Errorf("run not failed: %+v", run)
	}
}

func TestStringListScanHandlesTextAndNil(t *testing.T) {
	var l StringList
	if err := l.Scan(`["Acme","Zenith"]`); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(l) != 2 || l[0] != "Acme" {
		t.Errorf("scanned list = %v", l)
	}

	if err := l.Scan(nil); err != nil {
		t.Fatalf("Scan nil: %v", err)
	}
	if len(l) != 0 {
		t.Errorf("nil scan = %v, want empty", l)
	}
}
