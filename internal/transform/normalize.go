package transform

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/cessda/skgif-api/internal/skgif"
)

// SchemeCESSDATopics is the canonical spelling of the CESSDA topic classification scheme.
const SchemeCESSDATopics = "CESSDA_Topic_Classification"

// normalizeText trims s, collapses whitespace runs and case-folds it.
// It is for comparing labels only, never for display.
func normalizeText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// A Caser keeps state, so each call gets its own.
	return cases.Fold().String(norm.NFC.String(s))
}

// topicScheme normalizes a classification system name. Any spelling of the
// CESSDA topic classification maps to SchemeCESSDATopics.
func topicScheme(systemName string) string {
	s := skgif.NormalizeScheme(systemName)
	if s == "cessda_topic_classification" {
		return SchemeCESSDATopics
	}
	return s
}
