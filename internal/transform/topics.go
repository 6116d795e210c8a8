package transform

import (
	"cmp"
	"log/slog"
	"slices"
	"sort"

	"github.com/cessda/skgif-api/internal/lang"
	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/study"
	"github.com/cessda/skgif-api/internal/vocab"
)

// topicKey identifies one topic. Controlled vocabulary entries are keyed by
// notation when resolved and by normalized label otherwise. Other schemes are
// keyed by URI and normalized label.
type topicKey struct {
	Scheme   string
	Notation string
	URI      string
	Label    string
}

func (k topicKey) compare(o topicKey) int {
	return cmp.Or(
		cmp.Compare(k.Scheme, o.Scheme),
		cmp.Compare(k.Notation, o.Notation),
		cmp.Compare(k.URI, o.URI),
		cmp.Compare(k.Label, o.Label),
	)
}

type topicGroup struct {
	key    topicKey
	uri    string
	stable bool // uri came from the vocabulary
	labels map[string]string
}

// vocabIndex resolves classifications against one language's vocabulary.
type vocabIndex struct {
	concepts vocab.Vocabulary
	titles   map[string]string // normalized title -> lowest notation
}

func newVocabIndex(v vocab.Vocabulary) *vocabIndex {
	notations := make([]string, 0, len(v))
	for n := range v {
		notations = append(notations, n)
	}
	sort.Strings(notations)

	titles := make(map[string]string, len(v))
	for _, n := range notations {
		t := normalizeText(v[n].Title)
		if t == "" {
			continue
		}
		if _, ok := titles[t]; !ok {
			titles[t] = n
		}
	}
	return &vocabIndex{concepts: v, titles: titles}
}

// resolve finds the notation of a classification, first by its code and then
// by its normalized label.
func (x *vocabIndex) resolve(code, normLabel string) (string, vocab.Concept, bool) {
	if code != "" {
		if c, ok := x.concepts[code]; ok {
			return code, c, true
		}
	}
	if normLabel != "" {
		if n, ok := x.titles[normLabel]; ok {
			return n, x.concepts[n], true
		}
	}
	return "", vocab.Concept{}, false
}

func classificationLang(c study.Classification) string {
	if l := c.Lang(); l != "" {
		return l
	}
	return lang.Default
}

func (r *run) vocabIndexes(classifications []study.Classification) map[string]*vocabIndex {
	idx := make(map[string]*vocabIndex)
	for _, c := range classifications {
		l := classificationLang(c)
		if _, ok := idx[l]; ok {
			continue
		}
		var v vocab.Vocabulary
		if r.vocab != nil {
			v = r.vocab.Vocabulary(l)
		}
		idx[l] = newVocabIndex(v)
	}
	return idx
}

func (r *run) topics(classifications []study.Classification) []skgif.Topic {
	if len(classifications) == 0 {
		return nil
	}
	indexes := r.vocabIndexes(classifications)

	groups := make(map[topicKey]*topicGroup)
	for i, c := range classifications {
		l := classificationLang(c)
		scheme := topicScheme(c.SystemName.String())
		rawURI := c.URI.String()
		label := c.Description.String()
		normLabel := normalizeText(label)

		var (
			key      topicKey
			uri      = rawURI
			resolved bool
		)
		if scheme == SchemeCESSDATopics {
			notation, concept, ok := indexes[l].resolve(c.Code.String(), normLabel)
			if ok {
				key = topicKey{Scheme: scheme, Notation: notation}
				if concept.URI != "" {
					uri = concept.URI
					resolved = true
				}
				if label == "" {
					label = concept.Title
				}
			} else {
				key = topicKey{Scheme: scheme, Label: normLabel}
			}
		} else {
			key = topicKey{Scheme: scheme, URI: rawURI, Label: normLabel}
		}

		if label == "" {
			r.skip("topic", "classification has no label", slog.Int("index", i))
			continue
		}

		g, ok := groups[key]
		if !ok {
			g = &topicGroup{key: key, labels: make(map[string]string)}
			groups[key] = g
		}
		// A vocabulary URI wins over raw ones; among raw URIs the smallest is kept.
		switch {
		case resolved && !g.stable:
			g.uri, g.stable = uri, true
		case !g.stable && uri != "" && (g.uri == "" || uri < g.uri):
			g.uri = uri
		}
		g.labels[l] = label
	}

	ordered := make([]*topicGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	slices.SortFunc(ordered, func(a, b *topicGroup) int { return a.key.compare(b.key) })

	var topics []skgif.Topic
	for n, g := range ordered {
		term := skgif.Term{Labels: g.labels}
		if g.stable {
			term.LocalIdentifier = g.uri
		} else {
			term.LocalIdentifier = r.ids.Generate(skgif.CategoryTopic, n+1)
		}
		if g.key.Scheme != "" && g.uri != "" {
			term.Identifiers = []skgif.Identifier{{Value: g.uri, Scheme: g.key.Scheme}}
		}
		topics = append(topics, skgif.Topic{Term: term})
	}
	return topics
}
