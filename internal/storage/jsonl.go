// Package storage handles the harvested study records: a JSONL file that is the
// source of truth and an SQLite index rebuilt from it.
package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cessda/skgif-api/internal/study"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines.
// Harvested records with many translations run to several hundred kilobytes.
const MaxJSONLLineCapacity = 16 * 1024 * 1024

// ErrNoIdentifier is returned for records with neither an aggregator
// identifier nor a study number.
var ErrNoIdentifier = errors.New("record has no identifier")

// Study is one stored record: the decoded form and the raw JSON it came from.
type Study struct {
	Record *study.Record
	Raw    json.RawMessage
}

// ID returns the key the study is stored under.
func (s Study) ID() string {
	return s.Record.ID()
}

// LineError reports a JSONL line that could not be used.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ParseStudy decodes one raw record and checks that it can be stored.
func ParseStudy(raw []byte) (Study, error) {
	rec, err := study.Decode(raw)
	if err != nil {
		return Study{}, err
	}
	if rec.ID() == "" {
		return Study{}, ErrNoIdentifier
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return Study{}, err
	}
	return Study{Record: rec, Raw: compact.Bytes()}, nil
}

// ReadAll reads every usable study from a JSONL file. Lines that are not
// storable records are returned as *LineError values in skipped.
// A missing file yields no studies.
func ReadAll(path string) (studies []Study, skipped []error, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil // Empty file returns empty slice
		}
		return nil, nil, fmt.Errorf("opening studies file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue // Skip empty lines
		}

		s, err := ParseStudy(line)
		if err != nil {
			skipped = append(skipped, &LineError{Line: lineNum, Err: err})
			continue
		}
		studies = append(studies, s)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading studies file: %w", err)
	}

	return studies, skipped, nil
}

// Append adds a raw record to the end of a JSONL file. The record must be
// storable; it is written compacted onto a single line.
func Append(path string, raw []byte) error {
	s, err := ParseStudy(raw)
	if err != nil {
		return fmt.Errorf("invalid study record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening studies file for append: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(s.Raw, '\n')); err != nil {
		return fmt.Errorf("writing study %s: %w", s.ID(), err)
	}
	return nil
}
