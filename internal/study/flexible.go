package study

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleString can unmarshal from either string or number JSON values.
// Harvested records are inconsistent about quoting codes, years and grant numbers.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	// Handle null
	if string(data) == "null" {
		*f = ""
		return nil
	}

	// Try string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	// Try number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

// String returns the value with surrounding whitespace removed.
func (f FlexibleString) String() string {
	return strings.TrimSpace(string(f))
}
