package elsst

import (
	"encoding/json"
)

// node is one element of a JSON-LD graph as exported by the thesaurus.
type node struct {
	ID      string
	Types   []string
	Pref    []literal
	Alt     []literal
	Broader []reference
}

type literal struct {
	Language string `json:"@language"`
	Value    string `json:"@value"`
}

type reference struct {
	ID string `json:"@id"`
}

func (n *node) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string          `json:"@id"`
		Type    json.RawMessage `json:"@type"`
		Pref    json.RawMessage `json:"http://www.w3.org/2004/02/skos/core#prefLabel"`
		Alt     json.RawMessage `json:"http://www.w3.org/2004/02/skos/core#altLabel"`
		Broader json.RawMessage `json:"http://www.w3.org/2004/02/skos/core#broader"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = node{
		ID:      raw.ID,
		Types:   oneOrMany[string](raw.Type),
		Pref:    oneOrMany[literal](raw.Pref),
		Alt:     oneOrMany[literal](raw.Alt),
		Broader: oneOrMany[reference](raw.Broader),
	}
	return nil
}

// oneOrMany decodes a JSON-LD value that may be a single item or a list.
// Values of the wrong shape decode to nil.
func oneOrMany[T any](raw json.RawMessage) []T {
	if len(raw) == 0 {
		return nil
	}
	var many []T
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one T
	if err := json.Unmarshal(raw, &one); err == nil {
		return []T{one}
	}
	return nil
}

func (n node) concept() Concept {
	c := Concept{
		ID:         n.ID,
		PrefLabels: make(map[string]string),
		AltLabels:  make(map[string][]string),
	}
	for _, l := range n.Pref {
		if l.Language != "" && l.Value != "" {
			c.PrefLabels[l.Language] = l.Value
		}
	}
	for _, l := range n.Alt {
		if l.Language != "" && l.Value != "" {
			c.AltLabels[l.Language] = append(c.AltLabels[l.Language], l.Value)
		}
	}
	if len(n.Broader) > 0 {
		c.Broader = n.Broader[0].ID
	}
	return c
}
