// Package elsst serves the ELSST thesaurus as a catalogue of SKG-IF topics.
//
// The catalogue is loaded once from a SKOS JSON-LD export and is read-only
// afterwards, so it is safe for concurrent use.
package elsst

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/cessda/skgif-api/internal/skgif"
)

const skosConcept = "http://www.w3.org/2004/02/skos/core#Concept"

// MinSearchLength is the shortest search term accepted, in characters.
const MinSearchLength = 3

var (
	// ErrNoGraph is returned for exports without a @graph.
	ErrNoGraph = errors.New("no @graph found in JSON-LD")

	// ErrTermTooShort is returned by Search for terms under MinSearchLength.
	ErrTermTooShort = errors.New("search term too short")

	// ErrInvalidLanguage is returned by Search for languages that are not a
	// two-letter lower-case code.
	ErrInvalidLanguage = errors.New("language must be a 2-letter ISO 639-1 code")
)

// Concept is one thesaurus concept.
type Concept struct {
	ID         string
	PrefLabels map[string]string
	AltLabels  map[string][]string
	Broader    string
}

// Term returns the concept as an SKG-IF topic term.
func (c Concept) Term() skgif.Term {
	return skgif.Term{LocalIdentifier: c.ID, Labels: c.PrefLabels}
}

type labelRef struct {
	folded string
	id     string
}

// Catalogue holds the concepts of one export and a per-language label index.
type Catalogue struct {
	order    []string
	concepts map[string]Concept
	index    map[string][]labelRef
}

// New builds a catalogue from concepts. Later concepts replace earlier ones
// with the same ID.
func New(concepts []Concept) *Catalogue {
	c := &Catalogue{
		concepts: make(map[string]Concept, len(concepts)),
		index:    make(map[string][]labelRef),
	}
	for _, concept := range concepts {
		if _, ok := c.concepts[concept.ID]; !ok {
			c.order = append(c.order, concept.ID)
		}
		c.concepts[concept.ID] = concept
	}

	for _, id := range c.order {
		concept := c.concepts[id]
		for lang, label := range concept.PrefLabels {
			c.index[lang] = append(c.index[lang], labelRef{folded: fold(label), id: id})
		}
		for lang, labels := range concept.AltLabels {
			for _, label := range labels {
				c.index[lang] = append(c.index[lang], labelRef{folded: fold(label), id: id})
			}
		}
	}
	return c
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Load reads an export file.
func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ELSST export: %w", err)
	}
	return Parse(data)
}

// Parse decodes a SKOS JSON-LD export. The graph is read from a top-level
// object or from every element of a top-level list. Nodes that are not
// concepts are ignored.
func Parse(data []byte) (*Catalogue, error) {
	nodes, err := graphNodes(data)
	if err != nil {
		return nil, err
	}

	var concepts []Concept
	for _, raw := range nodes {
		var n node
		if err := json.Unmarshal(raw, &n); err != nil || n.ID == "" {
			continue
		}
		if !slices.Contains(n.Types, skosConcept) {
			continue
		}
		concepts = append(concepts, n.concept())
	}
	return New(concepts), nil
}

func graphNodes(data []byte) ([]json.RawMessage, error) {
	type document struct {
		Graph []json.RawMessage `json:"@graph"`
	}

	var obj document
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Graph == nil {
			return nil, ErrNoGraph
		}
		return obj.Graph, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing ELSST export: %w", err)
	}
	var nodes []json.RawMessage
	for _, item := range list {
		var doc document
		if json.Unmarshal(item, &doc) == nil {
			nodes = append(nodes, doc.Graph...)
		}
	}
	return nodes, nil
}

// Len returns the number of concepts.
func (c *Catalogue) Len() int {
	return len(c.order)
}

// All returns every concept in export order.
func (c *Catalogue) All() []Concept {
	out := make([]Concept, len(c.order))
	for i, id := range c.order {
		out[i] = c.concepts[id]
	}
	return out
}

// Get returns the concept with the given URI. Schemes whose double slash was
// collapsed by a proxy (https:/host) are repaired first.
func (c *Catalogue) Get(uri string) (Concept, bool) {
	concept, ok := c.concepts[RepairURI(uri)]
	return concept, ok
}

// RepairURI restores the "//" of an http or https URI that lost one slash.
func RepairURI(uri string) string {
	for _, scheme := range []string{"https:/", "http:/"} {
		if strings.HasPrefix(uri, scheme) && !strings.HasPrefix(uri, scheme+"/") {
			return scheme + "/" + strings.TrimPrefix(uri, scheme)
		}
	}
	return uri
}

// Search returns the concepts with a preferred or alternative label in
// language that contains term, ignoring case, sorted by URI.
func (c *Catalogue) Search(term, language string) ([]Concept, error) {
	if utf8.RuneCountInString(term) < MinSearchLength {
		return nil, ErrTermTooShort
	}
	if !validLanguage(language) {
		return nil, ErrInvalidLanguage
	}

	query := fold(term)
	seen := make(map[string]bool)
	var ids []string
	for _, ref := range c.index[language] {
		if seen[ref.id] || !strings.Contains(ref.folded, query) {
			continue
		}
		seen[ref.id] = true
		ids = append(ids, ref.id)
	}
	slices.Sort(ids)

	out := make([]Concept, len(ids))
	for i, id := range ids {
		out[i] = c.concepts[id]
	}
	return out, nil
}

func validLanguage(l string) bool {
	return len(l) == 2 && l[0] >= 'a' && l[0] <= 'z' && l[1] >= 'a' && l[1] <= 'z'
}
