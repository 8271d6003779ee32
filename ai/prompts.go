package ai

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"

	"brandtrack/domain/research"
	"brandtrack/models"
)

// Prompt templates per question kind. Each demands bare JSON so the
// parser can stay strict; markdown fences still appear in practice and
// are stripped downstream.

const recallPromptTemplate = `A consumer is researching %[1]s.

%[2]s

Based on what you know about this person's profile, priorities, and preferences, answer the following question in a way that is most relevant to them.

Question: %[3]s

%[4]s

You MUST respond with ONLY valid JSON in this exact format (no other text):
{
  "recommendations": [
    {"brand": "BrandName", "rank": 1, "sentiment": "positive"},
    {"brand": "AnotherBrand", "rank": 2, "sentiment": "positive"}
  ],
  "reasoning": "Your explanation of why you recommend these brands in this order, given this person's profile."
}

Rules:
- List ALL brands you would genuinely recommend for this person, in order of preference (rank 1 = best).
- "sentiment" must be one of: "positive", "neutral", "negative".
- Tailor your recommendations to this person's priorities and characteristics. Include at least 2-3 brands.
- The "reasoning" field should explain your thought process, referencing the person's specific needs.
- Do NOT include any text outside the JSON object.`

const preferencePromptTemplate = `A consumer is researching %[1]s.

%[2]s

Based on what you know about this person, evaluate the following brands from their perspective: %[5]s

Question: %[3]s

%[4]s

You MUST respond with ONLY valid JSON in this exact format (no other text):
{
  "rankings": [
    {"brand": "BrandName", "rank": 1, "score": 0.95, "sentiment": "positive"},
    {"brand": "AnotherBrand", "rank": 2, "score": 0.80, "sentiment": "positive"}
  ],
  "reasoning": "Your explanation of this ranking, given this person's profile."
}

Rules:
- You MUST rank ALL provided brands, no exceptions.
- rank 1 = best. Score is 0.0 to 1.0 (how strongly this person would prefer this brand).
- "sentiment" must be one of: "positive", "neutral", "negative".
- Tailor the ranking to this person's priorities, price sensitivity, and preferences.
- Do NOT include any text outside the JSON object.`

const forcedChoicePromptTemplate = `A consumer is researching %[1]s.

%[2]s

Based on what you know about this person, choose exactly ONE brand from this list that would be the best fit for them: %[5]s

Question: %[3]s

%[4]s

You MUST respond with ONLY valid JSON in this exact format (no other text):
{
  "chosen_brand": "BrandName",
  "confidence": 0.85,
  "reasoning": "Why this brand is the best fit for this person, given their profile."
}

Rules:
- You MUST pick exactly one brand from the provided list.
- "confidence" is 0.0 to 1.0 (how confident you are this is the right choice for this person).
- Base your choice on this person's priorities, preferences, and characteristics.
- Do NOT include any text outside the JSON object.`

// thinkingStyles and scenarioContexts vary prompts across iterations so
// repeated sampling explores the model's answer distribution instead of
// replaying one deterministic completion.
var thinkingStyles = []string{
	"Think step by step about what matters most to you.",
	"Consider your recent experiences and what left the strongest impression.",
	"Think about what your friends or colleagues would say about these brands.",
	"Focus on long-term value and reliability over short-term appeal.",
	"Consider which brands you've seen the most positive buzz about recently.",
	"Think about which brands best align with your personal values and lifestyle.",
	"Focus on innovation and which brands are pushing boundaries.",
	"Consider practical everyday use, asking which brands deliver consistently.",
	"Think about which brands you'd recommend to someone you care about.",
	"Focus on the overall brand experience, not just the core product.",
}

var scenarioContexts = []string{
	"", // baseline, no extra context
	"You're making this decision after doing extensive online research.",
	"A close friend just asked you for a recommendation.",
	"You're comparing options for an important purchase decision.",
	"You recently had a conversation about this topic with colleagues.",
	"You're writing a review and want to be thorough and balanced.",
	"You need to make a quick decision, so go with your gut feeling.",
	"You're advising someone with a tight budget who wants the best value.",
	"You're thinking about which brands have improved the most recently.",
	"You're considering switching from your current choice.",
}

// PromptVariation records the iteration-dependent prompt adjustments so
// stored responses stay auditable. Nil for the baseline iteration.
type PromptVariation struct {
	ThinkingStyle   string   `json:"thinking_style"`
	ScenarioContext string   `json:"scenario_context,omitempty"`
	BrandOrder      []string `json:"brand_order,omitempty"`
}

// ResearchPromptParams carries everything needed to phrase one research
// question for one iteration.
type ResearchPromptParams struct {
	Kind           research.ResponseKind
	Category       string
	QuestionText   string
	PersonaContext string
	Brands         []string
	Language       string
	Iteration      int // 1-based; iteration 1 is the unvaried baseline
}

// BuildResearchPrompt renders the prompt for one question iteration.
// Iterations beyond the first get a deterministic thinking-style and
// scenario variation, and preference/forced-choice brand lists are
// reshuffled per iteration to reduce position bias. The same inputs
// always produce the same prompt, which keeps runs reproducible.
func BuildResearchPrompt(p ResearchPromptParams) (string, *PromptVariation) {
	langInstruction := ""
	if p.Language != "" && p.Language != "English" {
		langInstruction = fmt.Sprintf("Respond in %s.", p.Language)
	}

	ctx := p.PersonaContext
	if ctx == "" {
		ctx = "About the person asking:\n- Name: a consumer in this category"
	}

	brands := p.Brands
	var variation *PromptVariation
	if p.Iteration > 1 && len(brands) > 0 && p.Kind != research.KindRecall {
		brands = shuffleBrands(brands, p.Iteration, p.QuestionText)
	}
	brandsList := strings.Join(brands, ", ")

	var prompt string
	switch p.Kind {
	case research.KindPreference:
		prompt = fmt.Sprintf(preferencePromptTemplate, p.Category, ctx, p.QuestionText, langInstruction, brandsList)
	case research.KindForcedChoice:
		prompt = fmt.Sprintf(forcedChoicePromptTemplate, p.Category, ctx, p.QuestionText, langInstruction, brandsList)
	default:
		prompt = fmt.Sprintf(recallPromptTemplate, p.Category, ctx, p.QuestionText, langInstruction)
	}

	if p.Iteration > 1 {
		rng := rand.New(rand.NewSource(int64(p.Iteration)*17 + int64(stableHash(p.QuestionText)%10000)))
		thinking := thinkingStyles[rng.Intn(len(thinkingStyles))]
		scenario := scenarioContexts[rng.Intn(len(scenarioContexts))]

		prompt += "\n\n" + thinking
		if scenario != "" {
			prompt += " " + scenario
		}

		variation = &PromptVariation{
			ThinkingStyle:   thinking,
			ScenarioContext: scenario,
		}
		if len(brands) > 0 && p.Kind != research.KindRecall {
			variation.BrandOrder = brands
		}
	}

	return prompt, variation
}

// shuffleBrands reorders the brand list with a seed derived from the
// iteration and question, so reruns see identical orderings.
func shuffleBrands(brands []string, iteration int, questionText string) []string {
	shuffled := append([]string(nil), brands...)
	rng := rand.New(rand.NewSource(int64(iteration)*31 + int64(stableHash(questionText)%10000)))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

func stableHash(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}

// PersonaContext renders the persona profile block included in research
// prompts so models answer from the persona's perspective.
func PersonaContext(p *models.Persona) string {
	var b strings.Builder
	b.WriteString("About the person asking:\n")
	fmt.Fprintf(&b, "- Name: %s\n", p.Name)
	fmt.Fprintf(&b, "- Profile: %s %s, %s\n", p.AgeRange, p.Occupation, p.Description)
	fmt.Fprintf(&b, "- Archetype: %s\n", p.Archetype)
	fmt.Fprintf(&b, "- Tech savviness: %d/5, price sensitivity: %d/5, brand loyalty: %d/5\n",
		p.TechSavviness, p.PriceSensitivity, p.BrandLoyalty)
	fmt.Fprintf(&b, "- Key priorities: %s", strings.Join(p.KeyPriorities, ", "))
	return b.String()
}

// BuildPersonaGenerationPrompt asks a model to invent diverse consumer
// personas for a category.
func BuildPersonaGenerationPrompt(category, marketContext string, count int, language string) string {
	langInstruction := ""
	if language != "" && language != "English" {
		langInstruction = fmt.Sprintf("\n\nIMPORTANT: Write ALL persona descriptions, names, occupations, and key_priorities in %s.", language)
	}

	return fmt.Sprintf(`Generate %d diverse consumer personas for the "%s" category.

Market Context: %s%s

For each persona, provide:
1. A realistic name
2. Archetype (choose from: innovator, pragmatist, conservative, budget_conscious, quality_seeker)
3. A brief description (2-3 sentences)
4. Age range
5. Occupation
6. Tech savviness (1-5 scale)
7. Price sensitivity (1-5 scale)
8. Brand loyalty (1-5 scale)
9. 3-5 key priorities when choosing in this category

Make the personas diverse in demographics, priorities, and decision-making styles.

Return ONLY valid JSON in this exact format:
{
  "personas": [
    {
      "name": "string",
      "archetype": "innovator|pragmatist|conservative|budget_conscious|quality_seeker",
      "description": "string",
      "age_range": "string",
      "occupation": "string",
      "tech_savviness": 1,
      "price_sensitivity": 1,
      "brand_loyalty": 1,
      "key_priorities": ["string"]
    }
  ]
}`, count, category, marketContext, langInstruction)
}

// BuildQuestionGenerationPrompt asks a model to write the questions a
// persona would naturally ask. Questions never name tracked brands; the
// point is to see which brands come up organically.
func BuildQuestionGenerationPrompt(p *models.Persona, category, marketContext string, count int, researchAreas []string, language string) string {
	effectiveCount := count
	if len(researchAreas)*2 > effectiveCount {
		effectiveCount = len(researchAreas) * 2
	}

	areasSection := ""
	areasJSONField := ""
	if len(researchAreas) > 0 {
		areasSection = fmt.Sprintf(`
Research areas to cover: %s
- You MUST generate questions that cover ALL of these research areas
- Distribute questions so each area is addressed by at least 1-2 questions
- Each question should be tagged with which research area it targets
`, strings.Join(researchAreas, ", "))
		areasJSONField = fmt.Sprintf(",\n      \"research_area\": \"one of: %s\"", strings.Join(researchAreas, ", "))
	}

	langInstruction := ""
	if language != "" && language != "English" {
		langInstruction = fmt.Sprintf("Write ALL questions and context in %s.", language)
	}

	return fmt.Sprintf(`You are %s, a %s %s.

Your profile:
- Archetype: %s
- Description: %s
- Tech savviness: %d/5
- Price sensitivity: %d/5
- Brand loyalty: %d/5
- Key priorities: %s

You're researching the "%s" category. Context: %s
%s
Generate %d natural questions you would ask when researching this category.
%s

CRITICAL RULES:
- DO NOT mention specific brand names in questions
- The majority of questions (at least 60-70%%) should directly ask for brand/model suggestions and recommendations
- Questions should be phrased to elicit concrete brand names and specific model/product recommendations
- The remaining questions can cover features, comparisons, or experiences but should still invite mentioning brands
- Questions should reflect your priorities, concerns, and decision-making style

Return ONLY valid JSON:
{
  "questions": [
    {
      "question_text": "string",
      "context": "brief explanation of why this persona asks this"%s
    }
  ]
}`, p.Name, p.AgeRange, p.Occupation,
		p.Archetype, p.Description, p.TechSavviness, p.PriceSensitivity, p.BrandLoyalty,
		strings.Join(p.KeyPriorities, ", "),
		category, marketContext, areasSection, effectiveCount, langInstruction, areasJSONField)
}
