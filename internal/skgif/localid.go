package skgif

import (
	"fmt"
	"strings"
	"time"
)

// generatedPrefix marks local identifiers minted on the fly.
const generatedPrefix = "otf___"

// Local identifier categories. Indices are counted per category, so the
// category alone keeps generated identifiers of one product apart.
const (
	CategoryPerson       = "person"
	CategoryOrganisation = "organisation"
	CategoryAgent        = "agent"
	CategoryTopic        = "topic"
	CategoryVenue        = "venue"
	CategoryDataSource   = "datasource"
	CategoryGrant        = "grant"
	CategoryFunder       = "funder"
)

// IDGenerator mints on-the-fly local identifiers for one transformation.
// All identifiers from one generator share the same timestamp.
type IDGenerator struct {
	stamp int64
}

// NewIDGenerator returns a generator stamped with t.
func NewIDGenerator(t time.Time) IDGenerator {
	return IDGenerator{stamp: t.UnixMilli()}
}

// Generate returns an identifier of the form otf___<millis>___<category>-<index>.
func (g IDGenerator) Generate(category string, index int) string {
	return fmt.Sprintf("%s%d___%s-%d", generatedPrefix, g.stamp, category, index)
}

// IsGenerated reports whether id was minted by an IDGenerator.
func IsGenerated(id string) bool {
	return strings.HasPrefix(id, generatedPrefix)
}

// StripTimestamp removes the timestamp from a generated identifier, leaving
// otf___<category>-<index>. Other identifiers are returned unchanged.
func StripTimestamp(id string) string {
	rest, ok := strings.CutPrefix(id, generatedPrefix)
	if !ok {
		return id
	}
	_, tail, ok := strings.Cut(rest, "___")
	if !ok {
		return id
	}
	return generatedPrefix + tail
}
