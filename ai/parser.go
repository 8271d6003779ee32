package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"brandtrack/domain/core"
	"brandtrack/domain/research"
	"brandtrack/internal/errors"
	"brandtrack/models"
)

// ParseResearchResponse turns a raw completion into a typed payload for the
// given question kind, plus the model's reasoning text. A parse failure here
// is what the pipeline records as a malformed response.
func ParseResearchResponse(raw string, kind research.ResponseKind) (research.Payload, string, error) {
	content := CleanJSONContent(raw)

	var payload research.Payload
	var reasoning string

	switch kind {
	case research.KindRecall:
		var parsed struct {
			Recommendations []research.RankedMention `json:"recommendations"`
			Reasoning       string                   `json:"reasoning"`
		}
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return research.Payload{}, "", errors.InvalidInput(fmt.Sprintf("recall response is not valid JSON: %v", err))
		}
		payload = research.Payload{
			Kind:            research.KindRecall,
			Recommendations: normalizeMentions(parsed.Recommendations),
		}
		reasoning = parsed.Reasoning

	case research.KindPreference:
		var parsed struct {
			Rankings  []research.RankedMention `json:"rankings"`
			Reasoning string                   `json:"reasoning"`
		}
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return research.Payload{}, "", errors.InvalidInput(fmt.Sprintf("preference response is not valid JSON: %v", err))
		}
		payload = research.Payload{
			Kind:     research.KindPreference,
			Rankings: normalizeMentions(parsed.Rankings),
		}
		reasoning = parsed.Reasoning

	case research.KindForcedChoice:
		var parsed struct {
			ChosenBrand string  `json:"chosen_brand"`
			Confidence  float64 `json:"confidence"`
			Reasoning   string  `json:"reasoning"`
		}
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return research.Payload{}, "", errors.InvalidInput(fmt.Sprintf("forced_choice response is not valid JSON: %v", err))
		}
		payload = research.Payload{
			Kind: research.KindForcedChoice,
			Choice: &research.ForcedChoice{
				ChosenBrand: strings.TrimSpace(parsed.ChosenBrand),
				Confidence:  clamp01(parsed.Confidence),
			},
		}
		reasoning = parsed.Reasoning

	default:
		return research.Payload{}, "", errors.InvalidInput(fmt.Sprintf("unknown response kind %q", kind))
	}

	if err := payload.Validate(); err != nil {
		return research.Payload{}, "", errors.InvalidInput(err.Error())
	}
	return payload, reasoning, nil
}

// normalizeMentions fills missing ranks from list position, defaults blank
// sentiment to neutral, and clamps scores into 0..1.
func normalizeMentions(mentions []research.RankedMention) []research.RankedMention {
	out := make([]research.RankedMention, 0, len(mentions))
	for i, m := range mentions {
		m.Brand = strings.TrimSpace(m.Brand)
		if m.Brand == "" {
			continue
		}
		if m.Rank <= 0 {
			m.Rank = i + 1
		}
		if m.Sentiment == "" {
			m.Sentiment = research.SentimentNeutral
		}
		if m.Score != nil {
			s := clamp01(*m.Score)
			m.Score = &s
		}
		out = append(out, m)
	}
	return out
}

// ParsePersonas turns a persona-generation completion into persisted-ready
// persona models. Trait scores are clamped into the 1-5 range and unknown
// archetypes fall back to pragmatist rather than failing the whole batch.
func ParsePersonas(raw, category string) ([]*models.Persona, error) {
	content := CleanJSONContent(raw)

	var parsed struct {
		Personas []struct {
			Name             string   `json:"name"`
			Archetype        string   `json:"archetype"`
			Description      string   `json:"description"`
			AgeRange         string   `json:"age_range"`
			Occupation       string   `json:"occupation"`
			TechSavviness    int      `json:"tech_savviness"`
			PriceSensitivity int      `json:"price_sensitivity"`
			BrandLoyalty     int      `json:"brand_loyalty"`
			KeyPriorities    []string `json:"key_priorities"`
		} `json:"personas"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("persona response is not valid JSON: %v", err))
	}
	if len(parsed.Personas) == 0 {
		return nil, errors.InvalidInput("persona response contains no personas")
	}

	now := time.Now()
	personas := make([]*models.Persona, 0, len(parsed.Personas))
	for _, p := range parsed.Personas {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		archetype := models.PersonaArchetype(strings.ToLower(strings.TrimSpace(p.Archetype)))
		if !archetype.Valid() {
			archetype = models.ArchetypePragmatist
		}
		personas = append(personas, &models.Persona{
			ID:               core.PersonaID(core.NewID()),
			Name:             strings.TrimSpace(p.Name),
			Archetype:        archetype,
			Description:      p.Description,
			AgeRange:         p.AgeRange,
			Occupation:       p.Occupation,
			TechSavviness:    clampTrait(p.TechSavviness),
			PriceSensitivity: clampTrait(p.PriceSensitivity),
			BrandLoyalty:     clampTrait(p.BrandLoyalty),
			KeyPriorities:    models.StringList(p.KeyPriorities),
			Origin:           models.OriginAIGenerated,
			Category:         category,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	if len(personas) == 0 {
		return nil, errors.InvalidInput("persona response contains no usable personas")
	}
	return personas, nil
}

// ParseQuestions turns a question-generation completion into persisted-ready
// question models for one persona.
func ParseQuestions(raw string, personaID core.PersonaID, category string) ([]*models.Question, error) {
	content := CleanJSONContent(raw)

	var parsed struct {
		Questions []struct {
			QuestionText string `json:"question_text"`
			Context      string `json:"context"`
			ResearchArea string `json:"research_area"`
		} `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("question response is not valid JSON: %v", err))
	}
	if len(parsed.Questions) == 0 {
		return nil, errors.InvalidInput("question response contains no questions")
	}

	now := time.Now()
	questions := make([]*models.Question, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		text := strings.TrimSpace(q.QuestionText)
		if text == "" {
			continue
		}
		questions = append(questions, &models.Question{
			ID:           core.QuestionID(core.NewID()),
			PersonaID:    personaID,
			Text:         text,
			Context:      q.Context,
			Origin:       models.OriginAIGenerated,
			Category:     category,
			ResearchArea: strings.TrimSpace(q.ResearchArea),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	if len(questions) == 0 {
		return nil, errors.InvalidInput("question response contains no usable questions")
	}
	return questions, nil
}

// CleanJSONContent strips markdown fences and conversational chatter that
// models wrap around JSON output despite instructions not to.
func CleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	// Drop leading chatter lines before the first JSON bracket.
	if !strings.HasPrefix(content, "{") && !strings.HasPrefix(content, "[") {
		if idx := strings.IndexAny(content, "{["); idx > 0 {
			prefix := content[:idx]
			if !strings.ContainsAny(prefix, "{}[]") {
				content = content[idx:]
			}
		}
	}

	// Drop trailing chatter after the JSON closes.
	if strings.HasPrefix(content, "{") {
		if end := strings.LastIndex(content, "}"); end >= 0 {
			content = content[:end+1]
		}
	} else if strings.HasPrefix(content, "[") {
		if end := strings.LastIndex(content, "]"); end >= 0 {
			content = content[:end+1]
		}
	}

	return strings.TrimSpace(content)
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

func clampTrait(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
