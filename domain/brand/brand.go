package brand

import (
	"fmt"
	"strings"
)

// Set is the ordered list of tracked brand names for a research session.
// The order is significant: every computation iterates brands in set order
// so that identical input always yields identical output.
// A Set is immutable once constructed.
type Set struct {
	names []string
	lower map[string]string // lowercased name -> canonical name
}

// NewSet builds a tracked brand set from the session's brand names.
// Names are deduplicated case-insensitively, keeping first occurrence.
// An empty set is a hard precondition failure: no statistic is meaningful
// without at least one tracked brand.
func NewSet(names []string) (*Set, error) {
	s := &Set{lower: make(map[string]string)}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, seen := s.lower[key]; seen {
			continue
		}
		s.lower[key] = name
		s.names = append(s.names, name)
	}
	if len(s.names) == 0 {
		return nil, fmt.Errorf("tracked brand set cannot be empty")
	}
	return s, nil
}

// MustNewSet builds a Set and panics on invalid input. Use in tests only.
func MustNewSet(names []string) *Set {
	s, err := NewSet(names)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the canonical brand names in set order.
// The returned slice is a copy; callers may not mutate the set.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of tracked brands.
func (s *Set) Len() int {
	return len(s.names)
}

// Contains reports whether name is a tracked brand (case-insensitive exact).
func (s *Set) Contains(name string) bool {
	_, ok := s.lower[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// canonical returns the canonical spelling for a lowercased key.
func (s *Set) canonical(lowerKey string) (string, bool) {
	name, ok := s.lower[lowerKey]
	return name, ok
}
