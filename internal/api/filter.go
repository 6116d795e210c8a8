package api

import (
	"net/http"
	"strings"

	"github.com/cessda/skgif-api/internal/storage"
)

// Product filter keys that are served.
const (
	filterTitleAbstract = "cf.search.title_abstract"
	filterTitle         = "cf.search.title"
)

// Topic filter keys.
const (
	filterLabels   = "cf.search.labels"
	filterLanguage = "cf.search.language"
)

// unsupportedFilterKeys are SKG-IF product filter keys this catalogue knows
// but cannot search on.
var unsupportedFilterKeys = map[string]bool{
	"product_type":                                           true,
	"identifiers.id":                                         true,
	"identifiers.scheme":                                     true,
	"contributions.by.local_identifier":                      true,
	"contributions.by.identifiers.id":                        true,
	"contributions.by.identifiers.scheme":                    true,
	"contributions.by.name":                                  true,
	"contributions.by.family_name":                          true,
	"contributions.by.given_name":                            true,
	"contributions.declared_affiliations.local_identifier":   true,
	"contributions.declared_affiliations.identifiers.id":     true,
	"contributions.declared_affiliations.identifiers.scheme": true,
	"contributions.declared_affiliations.name":               true,
	"contributions.declared_affiliations.short_name":         true,
	"funding.local_identifier":                               true,
	"funding.grant_number":                                   true,
	"funding.identifiers.id":                                 true,
	"funding.identifiers.scheme":                             true,
	"cf.contributions_orcid":                                 true,
	"cf.contributions_aff_ror":                               true,
	"cf.contributions_aff_country":                           true,
	"cf.cites":                                               true,
	"cf.cites_by":                                            true,
	"cf.cites_doi":                                           true,
	"cf.cites_by_doi":                                        true,
}

// filterError is a filter the request cannot be served with.
type filterError struct {
	status int
	detail string
}

func (e *filterError) Error() string { return e.detail }

// parseProductFilter turns "key:value,key:value" into a store query. Parts
// without a colon are ignored and repeated keys must all match. Known but
// unsupported keys answer 422, unknown keys 400.
func parseProductFilter(filter string) (storage.Query, *filterError) {
	var q storage.Query
	var unsupported, unknown []string

	for _, part := range strings.Split(filter, ",") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = strings.ReplaceAll(strings.TrimSpace(key), " ", "")
		value = strings.TrimSpace(value)

		switch {
		case key == filterTitleAbstract:
			q.Text = append(q.Text, value)
		case key == filterTitle:
			q.Title = append(q.Title, value)
		case unsupportedFilterKeys[key]:
			unsupported = append(unsupported, key)
		default:
			unknown = append(unknown, key)
		}
	}

	if len(unsupported) > 0 {
		return q, &filterError{http.StatusUnprocessableEntity, "Filter keys not implemented: " + strings.Join(unsupported, ", ")}
	}
	if len(unknown) > 0 {
		return q, &filterError{http.StatusBadRequest, "Invalid filter keys: " + strings.Join(unknown, ", ")}
	}
	return q, nil
}

// topicFilter is a parsed topic search.
type topicFilter struct {
	labels   string
	language string
}

// parseTopicFilter reads "cf.search.labels:<term>,cf.search.language:<xx>".
// The language defaults to English. Every part must be a key:value pair.
func parseTopicFilter(filter string) (topicFilter, *filterError) {
	f := topicFilter{language: "en"}
	var hasLabels bool

	for _, part := range strings.Split(filter, ",") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			return f, &filterError{http.StatusUnprocessableEntity, "Filter parameter is malformed. Expected format: 'key1:value1,key2:value2'."}
		}
		switch strings.TrimSpace(key) {
		case filterLabels:
			f.labels = strings.TrimSpace(value)
			hasLabels = true
		case filterLanguage:
			f.language = strings.TrimSpace(value)
		}
	}

	if !hasLabels || f.labels == "" {
		return f, &filterError{http.StatusUnprocessableEntity, "A 'cf.search.labels' key with a value of at least 3 characters must be provided in the filter."}
	}
	return f, nil
}
