// Package pid canonicalizes persistent identifiers of people and organisations.
package pid

import (
	"regexp"
	"strings"
)

// Supported identifier schemes.
const (
	SchemeROR   = "ror"
	SchemeORCID = "orcid"
)

// registry describes one PID registry: where codes resolve and what a code looks like.
type registry struct {
	domain string
	code   *regexp.Regexp
}

// ROR codes are a leading zero, six Crockford base32 characters and a two digit checksum.
// ORCID iDs are four groups of four, the last character being a digit or X.
var registries = map[string]registry{
	SchemeROR: {
		domain: "ror.org",
		code:   regexp.MustCompile(`^0[0-9a-hjkmnp-tv-z]{6}[0-9]{2}$`),
	},
	SchemeORCID: {
		domain: "orcid.org",
		code:   regexp.MustCompile(`^[0-9]{4}-[0-9]{4}-[0-9]{4}-[0-9]{3}[0-9x]$`),
	},
}

// NormalizeURL returns the canonical https URL for a ROR or ORCID identifier.
// Accepted shapes, all case-insensitive:
//   - bare code: 033003e23, 0000-0002-1825-0097
//   - URL: https://ror.org/033003e23, http://orcid.org/0000-0002-1825-0097, ror.org/033003e23
//   - prefixed: ror:033003e23, orcid:0000-0002-1825-0097
//
// The code is only checked against the registry's shape; checksums are not verified.
// Returns false for unknown schemes and malformed values.
func NormalizeURL(scheme, value string) (string, bool) {
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	reg, ok := registries[scheme]
	if !ok {
		return "", false
	}

	code := extractCode(strings.ToLower(strings.TrimSpace(value)), scheme, reg.domain)
	if !reg.code.MatchString(code) {
		return "", false
	}
	return "https://" + reg.domain + "/" + code, true
}

// IsSupported reports whether scheme has a canonical URL form.
func IsSupported(scheme string) bool {
	_, ok := registries[strings.ToLower(strings.TrimSpace(scheme))]
	return ok
}

// extractCode strips the URL or scheme prefix from an already lower-cased value.
func extractCode(value, scheme, domain string) string {
	for _, prefix := range []string{"https://", "http://"} {
		value = strings.TrimPrefix(value, prefix)
	}
	value = strings.TrimPrefix(value, "www.")
	if rest, ok := strings.CutPrefix(value, domain+"/"); ok {
		return strings.TrimSuffix(rest, "/")
	}
	if rest, ok := strings.CutPrefix(value, scheme+":"); ok {
		return strings.TrimSpace(rest)
	}
	return value
}
