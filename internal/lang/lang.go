// Package lang selects the preferred-language subset of multilingual metadata entries.
package lang

const (
	// Default is the preferred language when the caller has no other preference.
	Default = "en"

	// Unknown is the bucket for entries without a language tag.
	Unknown = "unknown"
)

// Tagged is implemented by entries that carry a language tag.
type Tagged interface {
	Lang() string
}

// Groups holds entries grouped by language. Keys keep their first-insertion order,
// which is what the fallback in SelectPreferred relies on.
type Groups[T Tagged] struct {
	order  []string
	groups map[string][]T
}

// GroupBy groups entries by language tag, preserving the order in which each
// language first appears. Entries with an empty tag go to the Unknown bucket.
func GroupBy[T Tagged](entries []T) *Groups[T] {
	g := &Groups[T]{groups: make(map[string][]T)}
	for _, e := range entries {
		key := e.Lang()
		if key == "" {
			key = Unknown
		}
		if _, seen := g.groups[key]; !seen {
			g.order = append(g.order, key)
		}
		g.groups[key] = append(g.groups[key], e)
	}
	return g
}

// Languages returns the language keys in first-insertion order.
func (g *Groups[T]) Languages() []string {
	return append([]string(nil), g.order...)
}

// Get returns the entries for a language.
func (g *Groups[T]) Get(language string) ([]T, bool) {
	entries, ok := g.groups[language]
	return entries, ok
}

// Len returns the number of distinct languages.
func (g *Groups[T]) Len() int {
	return len(g.order)
}

// SelectPreferred returns every entry of the preferred language. When that language
// is absent it returns the group of whichever language appeared first in the input.
// This fallback is best effort, not a canonical tie-break.
func SelectPreferred[T Tagged](entries []T, preferred string) []T {
	if len(entries) == 0 {
		return nil
	}
	g := GroupBy(entries)
	if selected, ok := g.Get(preferred); ok {
		return selected
	}
	selected, _ := g.Get(g.order[0])
	return selected
}
