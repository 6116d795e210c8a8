package transform

import (
	"strings"

	"github.com/cessda/skgif-api/internal/accessmap"
	"github.com/cessda/skgif-api/internal/lang"
	"github.com/cessda/skgif-api/internal/skgif"
	"github.com/cessda/skgif-api/internal/study"
)

// ExtractAccessRights resolves the access rights of a record against mapping.
// A nil mapping behaves like a mapping without rules.
func ExtractAccessRights(rec *study.Record, mapping accessmap.Mapping) skgif.AccessRights {
	abbr := DistributorAbbreviation(rec)
	desc := AccessDescription(rec)
	category := accessmap.StatusUnavailable
	if abbr != "" && desc != "" {
		category = mapping.Category(abbr, desc)
	}
	return shapeAccessRights(category, desc)
}

// shapeAccessRights never pairs an unavailable status with a description.
func shapeAccessRights(category, description string) skgif.AccessRights {
	if !accessmap.IsUnavailable(category) {
		return skgif.AccessRights{Status: strings.ToLower(category), Description: description}
	}
	if description != "" {
		return skgif.AccessRights{Description: description}
	}
	return skgif.AccessRights{Status: accessmap.StatusUnavailable}
}

// DistributorAbbreviation returns the key of the record's archive in the
// access mapping. English distributor and publisher entries are tried before
// entries in any language; abbreviations are preferred over names.
func DistributorAbbreviation(rec *study.Record) string {
	for _, englishOnly := range []bool{true, false} {
		accept := func(l string) bool { return !englishOnly || l == lang.Default }
		if v := firstField(rec.Distributors, accept, distributorAbbreviation); v != "" {
			return v
		}
		if v := firstField(rec.Distributors, accept, distributorName); v != "" {
			return v
		}
		if v := firstField(rec.Publishers, accept, publisherAbbreviation); v != "" {
			return v
		}
		if v := firstField(rec.Publishers, accept, publisherName); v != "" {
			return v
		}
	}
	return ""
}

func distributorAbbreviation(d study.Distributor) string { return d.Abbreviation.String() }
func distributorName(d study.Distributor) string         { return d.Name.String() }
func publisherAbbreviation(p study.Publisher) string     { return p.Abbreviation.String() }
func publisherName(p study.Publisher) string             { return p.Name.String() }

// firstField returns the first non-empty field among entries whose language is accepted.
func firstField[T lang.Tagged](entries []T, accept func(string) bool, field func(T) string) string {
	for _, e := range entries {
		if !accept(e.Lang()) {
			continue
		}
		if v := field(e); v != "" {
			return v
		}
	}
	return ""
}

// AccessDescription returns the first access restriction text in the
// preferred language group.
func AccessDescription(rec *study.Record) string {
	for _, a := range lang.SelectPreferred(rec.DataAccess, lang.Default) {
		if s := a.Text.String(); s != "" {
			return s
		}
	}
	return ""
}
