// Package study decodes harvested study metadata records.
//
// Records come from many archives and are only loosely structured. Decoding is
// lenient: a list entry of the wrong shape is dropped and reported in
// Record.Problems instead of failing the whole record.
package study

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cessda/skgif-api/internal/lang"
)

// Record field names as stored in the document store.
const (
	FieldAggregatorIdentifier   = "_aggregator_identifier"
	FieldStudyNumber            = "study_number"
	FieldDirectBaseURL          = "_direct_base_url"
	FieldIdentifiers            = "identifiers"
	FieldStudyTitles            = "study_titles"
	FieldAbstracts              = "abstracts"
	FieldClassifications        = "classifications"
	FieldPrincipalInvestigators = "principal_investigators"
	FieldDistributors           = "distributors"
	FieldPublishers             = "publishers"
	FieldGrantNumbers           = "grant_numbers"
	FieldFundingAgencies        = "funding_agencies"
	FieldCollectionPeriods      = "collection_periods"
	FieldDistributionDates      = "distribution_dates"
	FieldPublicationDates       = "publication_dates"
	FieldDataAccess             = "data_access"
)

// ErrNotObject is returned when a record or list entry is not a JSON object.
var ErrNotObject = errors.New("not a JSON object")

// EntryError describes a part of a record that could not be decoded.
type EntryError struct {
	Field string
	Index int // -1 when the field itself is malformed
	Err   error
}

func (e *EntryError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s[%d]: %v", e.Field, e.Index, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Record is one harvested study.
type Record struct {
	AggregatorIdentifier FlexibleString
	StudyNumber          FlexibleString
	DirectBaseURL        FlexibleString

	Identifiers            []Identifier
	Titles                 []Title
	Abstracts              []Abstract
	Classifications        []Classification
	PrincipalInvestigators []PrincipalInvestigator
	Distributors           []Distributor
	Publishers             []Publisher
	GrantNumbers           []Funding
	FundingAgencies        []Funding
	CollectionPeriods      []CollectionPeriod
	DistributionDates      []DistributionDate
	PublicationDates       []PublicationDate
	DataAccess             []DataAccess

	// Problems lists the parts of the source document that were skipped.
	Problems []error
}

// Decode parses a harvested record. It fails only when data is not a JSON object;
// malformed fields and entries are skipped and listed in Problems.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UnmarshalJSON decodes a record leniently.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return fmt.Errorf("decoding study record: %w", ErrNotObject)
	}

	var problems []error
	*r = Record{
		AggregatorIdentifier: decodeScalar(fields, FieldAggregatorIdentifier, &problems),
		StudyNumber:          decodeScalar(fields, FieldStudyNumber, &problems),
		DirectBaseURL:        decodeScalar(fields, FieldDirectBaseURL, &problems),

		Identifiers:            decodeList[Identifier](fields, FieldIdentifiers, &problems),
		Titles:                 decodeList[Title](fields, FieldStudyTitles, &problems),
		Abstracts:              decodeList[Abstract](fields, FieldAbstracts, &problems),
		Classifications:        decodeList[Classification](fields, FieldClassifications, &problems),
		PrincipalInvestigators: decodeList[PrincipalInvestigator](fields, FieldPrincipalInvestigators, &problems),
		Distributors:           decodeList[Distributor](fields, FieldDistributors, &problems),
		Publishers:             decodeList[Publisher](fields, FieldPublishers, &problems),
		GrantNumbers:           decodeList[Funding](fields, FieldGrantNumbers, &problems),
		FundingAgencies:        decodeList[Funding](fields, FieldFundingAgencies, &problems),
		CollectionPeriods:      decodeList[CollectionPeriod](fields, FieldCollectionPeriods, &problems),
		DistributionDates:      decodeList[DistributionDate](fields, FieldDistributionDates, &problems),
		PublicationDates:       decodeList[PublicationDate](fields, FieldPublicationDates, &problems),
		DataAccess:             decodeList[DataAccess](fields, FieldDataAccess, &problems),
	}
	r.Problems = problems
	return nil
}

// ID returns the identifier a product is published under: the aggregator
// identifier, or the study number when the aggregator did not assign one.
func (r *Record) ID() string {
	if id := r.AggregatorIdentifier.String(); id != "" {
		return id
	}
	return r.StudyNumber.String()
}

// ClassificationLanguages returns the distinct languages of the classifications
// in first-seen order. Untagged classifications count as English.
func (r *Record) ClassificationLanguages() []string {
	seen := make(map[string]bool)
	var langs []string
	for _, c := range r.Classifications {
		l := c.Language.String()
		if l == "" {
			l = lang.Default
		}
		if !seen[l] {
			seen[l] = true
			langs = append(langs, l)
		}
	}
	return langs
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeScalar(fields map[string]json.RawMessage, key string, problems *[]error) FlexibleString {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var v FlexibleString
	if err := json.Unmarshal(raw, &v); err != nil {
		*problems = append(*problems, &EntryError{Field: key, Index: -1, Err: err})
		return ""
	}
	return v
}

func decodeList[T any](fields map[string]json.RawMessage, key string, problems *[]error) []T {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		*problems = append(*problems, &EntryError{Field: key, Index: -1, Err: fmt.Errorf("not a list: %w", err)})
		return nil
	}

	out := make([]T, 0, len(items))
	for i, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			*problems = append(*problems, &EntryError{Field: key, Index: i, Err: ErrNotObject})
			continue
		}
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			*problems = append(*problems, &EntryError{Field: key, Index: i, Err: err})
			continue
		}
		out = append(out, v)
	}
	return out
}
