package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cessda/skgif-api/internal/study"
)

// Constants for output formatting.
const (
	DefaultSearchLimit = 50 // Default limit for search commands
	SearchTitleMaxLen  = 70 // Used in search result summaries
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// StudySummary is a study in search results.
type StudySummary struct {
	ID          string `json:"id"`
	StudyNumber string `json:"study_number,omitempty"`
	Title       string `json:"title"`
}

// summarize picks the English title of a record, else its first title.
func summarize(rec *study.Record) StudySummary {
	s := StudySummary{ID: rec.ID(), StudyNumber: rec.StudyNumber.String()}
	for _, t := range rec.Titles {
		title := t.Title.String()
		if title == "" {
			continue
		}
		if s.Title == "" || t.Lang() == "en" {
			s.Title = title
		}
		if t.Lang() == "en" {
			break
		}
	}
	return s
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// joinOr joins values for human output, printing "-" for none.
func joinOr(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
