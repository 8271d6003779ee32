package ai

import (
	"testing"

	"brandtrack/domain/core"
	"brandtrack/domain/research"
)

func TestParseResearchResponse_Recall(t *testing.T) {
	raw := `{
		"recommendations": [
			{"brand": "Acme", "rank": 1, "sentiment": "positive"},
			{"brand": "Zenith", "rank": 2, "sentiment": "neutral"}
		],
		"reasoning": "Acme fits the budget."
	}`

	payload, reasoning, err := ParseResearchResponse(raw, research.KindRecall)
	if err != nil {
		t.Fatalf("ParseResearchResponse returned error: %v", err)
	}
	if payload.Kind != research.KindRecall {
		t.Errorf("expected recall kind, got %q", payload.Kind)
	}
	if len(payload.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(payload.Recommendations))
	}
	if payload.Recommendations[0].Brand != "Acme" || payload.Recommendations[0].Rank != 1 {
		t.Errorf("unexpected first recommendation: %+v", payload.Recommendations[0])
	}
	if reasoning != "Acme fits the budget." {
		t.Errorf("unexpected reasoning: %q", reasoning)
	}
}

func TestParseResearchResponse_RecallWithMarkdownFence(t *testing.T) {
	raw := "```json\n{\"recommendations\": [{\"brand\": \"Acme\", \"rank\": 1, \"sentiment\": \"positive\"}], \"reasoning\": \"ok\"}\n```"

	payload, _, err := ParseResearchResponse(raw, research.KindRecall)
	if err != nil {
		t.Fatalf("ParseResearchResponse returned error: %v", err)
	}
	if len(payload.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(payload.Recommendations))
	}
}

func TestParseResearchResponse_PreferenceClampsScore(t *testing.T) {
	raw := `{
		"rankings": [
			{"brand": "Acme", "rank": 1, "score": 1.4, "sentiment": "positive"},
			{"brand": "Zenith", "score": 0.5, "sentiment": "negative"}
		],
		"reasoning": "r"
	}`

	payload, _, err := ParseResearchResponse(raw, research.KindPreference)
	if err != nil {
		t.Fatalf("ParseResearchResponse returned error: %v", err)
	}
	if got := *payload.Rankings[0].Score; got != 1.0 {
		t.Errorf("expected score clamped to 1.0, got %v", got)
	}
	// Second entry has no rank in the JSON, so it takes its list position.
	if payload.Rankings[1].Rank != 2 {
		t.Errorf("expected positional rank 2, got %d", payload.Rankings[1].Rank)
	}
}

func TestParseResearchResponse_ForcedChoice(t *testing.T) {
	raw := `{"chosen_brand": " Acme ", "confidence": 0.85, "reasoning": "best fit"}`

	payload, reasoning, err := ParseResearchResponse(raw, research.KindForcedChoice)
	if err != nil {
		t.Fatalf("ParseResearchResponse returned error: %v", err)
	}
	if payload.Choice == nil || payload.Choice.ChosenBrand != "Acme" {
		t.Fatalf("unexpected choice: %+v", payload.Choice)
	}
	if payload.Choice.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", payload.Choice.Confidence)
	}
	if reasoning != "best fit" {
		t.Errorf("unexpected reasoning: %q", reasoning)
	}
}

func TestParseResearchResponse_MalformedJSON(t *testing.T) {
	if _, _, err := ParseResearchResponse("I would recommend Acme because...", research.KindRecall); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
	if _, _, err := ParseResearchResponse(`{"chosen_brand": "", "confidence": 0.5}`, research.KindForcedChoice); err == nil {
		t.Fatal("expected error for empty chosen brand")
	}
}

func TestParseResearchResponse_SkipsBlankBrands(t *testing.T) {
	raw := `{"recommendations": [{"brand": "  ", "rank": 1}, {"brand": "Acme", "rank": 2, "sentiment": ""}]}`

	payload, _, err := ParseResearchResponse(raw, research.KindRecall)
	if err != nil {
		t.Fatalf("ParseResearchResponse returned error: %v", err)
	}
	if len(payload.Recommendations) != 1 {
		t.Fatalf("expected blank brand dropped, got %d entries", len(payload.Recommendations))
	}
	if payload.Recommendations[0].Sentiment != research.SentimentNeutral {
		t.Errorf("expected blank sentiment defaulted to neutral, got %q", payload.Recommendations[0].Sentiment)
	}
}

func TestParsePersonas(t *testing.T) {
	raw := `{
		"personas": [
			{
				"name": "Maya Chen",
				"archetype": "Innovator",
				"description": "Early adopter.",
				"age_range": "25-34",
				"occupation": "Designer",
				"tech_savviness": 5,
				"price_sensitivity": 2,
				"brand_loyalty": 3,
				"key_priorities": ["innovation", "design"]
			},
			{
				"name": "Bob",
				"archetype": "time_traveler",
				"tech_savviness": 9,
				"price_sensitivity": 0,
				"brand_loyalty": 3
			}
		]
	}`

	personas, err := ParsePersonas(raw, "laptops")
	if err != nil {
		t.Fatalf("ParsePersonas returned error: %v", err)
	}
	if len(personas) != 2 {
		t.Fatalf("expected 2 personas, got %d", len(personas))
	}

	first := personas[0]
	if first.Name != "Maya Chen" || first.Archetype != "innovator" {
		t.Errorf("unexpected first persona: %+v", first)
	}
	if first.Origin != "ai_generated" || first.Category != "laptops" {
		t.Errorf("expected origin/category set, got %q/%q", first.Origin, first.Category)
	}
	if first.ID.String() == "" {
		t.Error("expected generated persona ID")
	}
	if err := first.Validate(); err != nil {
		t.Errorf("parsed persona failed validation: %v", err)
	}

	second := personas[1]
	if second.Archetype != "pragmatist" {
		t.Errorf("expected unknown archetype to fall back to pragmatist, got %q", second.Archetype)
	}
	if second.TechSavviness != 5 || second.PriceSensitivity != 1 {
		t.Errorf("expected traits clamped to 1-5, got %d/%d", second.TechSavviness, second.PriceSensitivity)
	}
}

func TestParsePersonas_Empty(t *testing.T) {
	if _, err := ParsePersonas(`{"personas": []}`, "laptops"); err == nil {
		t.Fatal("expected error for empty persona list")
	}
}

func TestParseQuestions(t *testing.T) {
	personaID := core.PersonaID(core.NewID())
	raw := `{
		"questions": [
			{"question_text": "Which laptop brands are most reliable?", "context": "values reliability", "research_area": "reliability"},
			{"question_text": "   ", "context": "blank"},
			{"question_text": "What would you recommend under $1000?"}
		]
	}`

	questions, err := ParseQuestions(raw, personaID, "laptops")
	if err != nil {
		t.Fatalf("ParseQuestions returned error: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected blank question dropped, got %d", len(questions))
	}
	if questions[0].PersonaID != personaID {
		t.Errorf("expected persona ID %s, got %s", personaID, questions[0].PersonaID)
	}
	if questions[0].ResearchArea != "reliability" {
		t.Errorf("unexpected research area: %q", questions[0].ResearchArea)
	}
	if questions[1].ResearchArea != "" {
		t.Errorf("expected empty research area, got %q", questions[1].ResearchArea)
	}
}

func TestCleanJSONContent(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"leading chatter", "Here is the JSON you asked for:\n{\"a\": 1}", `{"a": 1}`},
		{"trailing chatter", "{\"a\": 1}\nLet me know if you need anything else.", `{"a": 1}`},
		{"array", "Sure:\n[1, 2]\nDone.", `[1, 2]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanJSONContent(tc.in); got != tc.want {
				t.Errorf("CleanJSONContent(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
