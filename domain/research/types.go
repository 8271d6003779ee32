package research

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"brandtrack/domain/core"
)

// ResponseKind identifies the question framing that produced a response.
type ResponseKind string

const (
	// KindRecall is open brand recall: the model lists every brand it would
	// recommend, in preference order.
	KindRecall ResponseKind = "recall"
	// KindPreference ranks a provided brand list with an explicit 0..1
	// preference score per brand.
	KindPreference ResponseKind = "preference"
	// KindForcedChoice picks exactly one brand from a provided list.
	KindForcedChoice ResponseKind = "forced_choice"
)

// Valid reports whether k is a known response kind.
func (k ResponseKind) Valid() bool {
	switch k {
	case KindRecall, KindPreference, KindForcedChoice:
		return true
	}
	return false
}

// Sentiment is the categorical sentiment a model attaches to a brand mention.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Score maps categorical sentiment onto the -1..+1 scale used by the
// aggregator. Unknown labels count as neutral.
func (s Sentiment) Score() float64 {
	switch s {
	case SentimentPositive:
		return 1.0
	case SentimentNegative:
		return -1.0
	default:
		return 0.0
	}
}

// RankedMention is one brand entry in a recall or preference payload.
// Rank 1 means most-preferred / first-mentioned. Score is present only for
// preference responses (0.0 to 1.0).
type RankedMention struct {
	Brand     string    `json:"brand"`
	Rank      int       `json:"rank"`
	Score     *float64  `json:"score,omitempty"`
	Sentiment Sentiment `json:"sentiment"`
}

// ForcedChoice is the payload of a forced_choice response: exactly one
// chosen brand with a 0.0 to 1.0 confidence.
type ForcedChoice struct {
	ChosenBrand string  `json:"chosen_brand"`
	Confidence  float64 `json:"confidence"`
}

// Payload is the tagged structured payload of a response record. Exactly one
// of the variant fields is populated, selected by Kind. Modeling the three
// shapes as a tagged variant keeps extraction exhaustive: a new kind cannot
// be added without the extractor's switch failing to handle it.
type Payload struct {
	// The list fields must not carry omitempty: an empty list is a valid
	// zero-mention observation and has to survive a JSONB round trip as
	// [] rather than collapsing to the nil that marks a malformed payload.
	Kind            ResponseKind    `json:"kind"`
	Recommendations []RankedMention `json:"recommendations"`
	Rankings        []RankedMention `json:"rankings"`
	Choice          *ForcedChoice   `json:"choice,omitempty"`
}

// Validate checks that the payload carries the fields its kind requires.
// A failing payload is a malformed-payload condition: the record is skipped
// for aggregation and the skip is counted, never silently inflating n.
func (p Payload) Validate() error {
	switch p.Kind {
	case KindRecall:
		if p.Recommendations == nil {
			return fmt.Errorf("recall payload missing recommendations")
		}
	case KindPreference:
		if p.Rankings == nil {
			return fmt.Errorf("preference payload missing rankings")
		}
	case KindForcedChoice:
		if p.Choice == nil {
			return fmt.Errorf("forced_choice payload missing choice")
		}
		if p.Choice.ChosenBrand == "" {
			return fmt.Errorf("forced_choice payload has empty chosen brand")
		}
	default:
		return fmt.Errorf("unknown response kind %q", p.Kind)
	}
	return nil
}

// Value implements driver.Valuer so payloads persist as JSONB.
func (p Payload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB payload columns.
func (p *Payload) Scan(value interface{}) error {
	if value == nil {
		*p = Payload{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Payload", value)
	}
	if len(raw) == 0 {
		*p = Payload{}
		return nil
	}
	return json.Unmarshal(raw, p)
}

// ResponseRecord is one structured observation: a single iteration of one
// question put to one model under one persona. Records are immutable once
// stored; every statistic is a fresh read-only view derived from them.
type ResponseRecord struct {
	ID           core.ResponseID `json:"id" db:"id"`
	RunID        core.RunID      `json:"run_id" db:"run_id"`
	QuestionID   core.QuestionID `json:"question_id" db:"question_id"`
	PersonaID    core.PersonaID  `json:"persona_id" db:"persona_id"`
	ModelName    string          `json:"model_name" db:"model_name"`
	Iteration    int             `json:"iteration" db:"iteration"`
	ResearchArea string          `json:"research_area,omitempty" db:"research_area"`
	Payload      Payload         `json:"payload" db:"payload"`
	Reasoning    string          `json:"reasoning,omitempty" db:"reasoning"`
	RawText      string          `json:"raw_text,omitempty" db:"raw_text"`
	CreatedAt    core.Timestamp  `json:"created_at" db:"created_at"`
}
