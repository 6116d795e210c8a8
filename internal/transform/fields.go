package transform

import (
	"github.com/cessda/skgif-api/internal/lang"
	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/study"
)

// productIdentifiers returns the record identifiers deduplicated on
// (scheme, value). English entries are considered first.
func productIdentifiers(ids []study.Identifier) []skgif.Identifier {
	var english, others []study.Identifier
	for _, id := range ids {
		if id.Lang() == lang.Default {
			english = append(english, id)
		} else {
			others = append(others, id)
		}
	}

	seen := make(map[skgif.Identifier]bool)
	var out []skgif.Identifier
	for _, group := range [][]study.Identifier{english, others} {
		for _, id := range group {
			ident := skgif.Identifier{
				Value:  id.Identifier.String(),
				Scheme: skgif.NormalizeScheme(id.Agency.String()),
			}
			if ident.Value == "" || seen[ident] {
				continue
			}
			seen[ident] = true
			out = append(out, ident)
		}
	}
	return out
}

// byLanguage collects non-empty texts per language. Untagged entries count as English.
func byLanguage[T lang.Tagged](entries []T, text func(T) string) map[string][]string {
	out := make(map[string][]string)
	for _, e := range entries {
		s := text(e)
		if s == "" {
			continue
		}
		l := e.Lang()
		if l == "" {
			l = lang.Default
		}
		out[l] = append(out[l], s)
	}
	return out
}

func titles(ts []study.Title) map[string][]string {
	return byLanguage(ts, func(t study.Title) string { return t.Title.String() })
}

func abstracts(as []study.Abstract) map[string][]string {
	out := byLanguage(as, func(a study.Abstract) string { return a.Abstract.String() })
	if len(out) == 0 {
		return nil
	}
	return out
}

// dates returns the publication date and the collection periods of a record,
// or nil when it has neither.
func dates(rec *study.Record) map[string][]string {
	out := make(map[string][]string)

	if pub := publicationDate(rec); pub != "" {
		out[skgif.DatePublication] = []string{pub}
	}

	seen := make(map[string]bool)
	var collected []string
	for _, p := range rec.CollectionPeriods {
		d := p.Period.String()
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		collected = append(collected, d)
	}
	if len(collected) > 0 {
		out[skgif.DateCollected] = collected
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// publicationDate returns the first distribution date, falling back to the
// first publication date.
func publicationDate(rec *study.Record) string {
	for _, d := range rec.DistributionDates {
		if s := d.Date.String(); s != "" {
			return s
		}
	}
	for _, d := range rec.PublicationDates {
		if s := d.Date.String(); s != "" {
			return s
		}
	}
	return ""
}
