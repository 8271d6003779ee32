package brand

import (
	"strings"
)

// MatchStrategy resolves a free-form brand string returned by a model to a
// canonical tracked brand name. Implementations must be deterministic:
// when several tracked brands could match, the first in set order wins.
type MatchStrategy interface {
	// Name identifies the strategy in audit output.
	Name() string
	// Match returns the canonical tracked brand and true, or "" and false
	// when the raw string resolves to no tracked brand.
	Match(raw string, set *Set) (string, bool)
}

// ExactStrategy matches on case-insensitive string equality only.
type ExactStrategy struct{}

func (ExactStrategy) Name() string { return "exact" }

func (ExactStrategy) Match(raw string, set *Set) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", false
	}
	return set.canonical(key)
}

// SubstringStrategy matches case-insensitive exact first, then falls back to
// containment in either direction ("Apple iPhone" resolves to "Apple",
// "GE" input resolves to nothing but "General Electric Co" resolves to
// "General Electric"). Containment is a documented source of false
// positives; ambiguous inputs resolve to the first tracked brand in set
// order.
type SubstringStrategy struct{}

func (SubstringStrategy) Name() string { return "substring" }

func (SubstringStrategy) Match(raw string, set *Set) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", false
	}
	if name, ok := set.canonical(key); ok {
		return name, true
	}
	for _, name := range set.names {
		lower := strings.ToLower(name)
		if strings.Contains(key, lower) || strings.Contains(lower, key) {
			return name, true
		}
	}
	return "", false
}

// DefaultStrategy is the substring-fallback matcher used throughout the
// engine unless a caller supplies its own.
func DefaultStrategy() MatchStrategy {
	return SubstringStrategy{}
}
