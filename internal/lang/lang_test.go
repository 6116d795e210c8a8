package lang

import (
	"reflect"
	"testing"
)

type entry struct {
	text string
	lang string
}

func (e entry) Lang() string { return e.lang }

func texts(entries []entry) []string {
	if entries == nil {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.text
	}
	return out
}

func TestSelectPreferred(t *testing.T) {
	tests := []struct {
		name      string
		entries   []entry
		preferred string
		want      []string
	}{
		{
			name:      "empty input",
			entries:   nil,
			preferred: Default,
			want:      nil,
		},
		{
			name:      "single finnish entry without english",
			entries:   []entry{{"Tutkimus", "fi"}},
			preferred: Default,
			want:      []string{"Tutkimus"},
		},
		{
			name:      "preferred group returned whole",
			entries:   []entry{{"a", "fi"}, {"b", "en"}, {"c", "sv"}, {"d", "en"}},
			preferred: Default,
			want:      []string{"b", "d"},
		},
		{
			name:      "fallback is first encountered language, not sorted",
			entries:   []entry{{"x", "sv"}, {"y", "fi"}, {"z", "sv"}},
			preferred: Default,
			want:      []string{"x", "z"},
		},
		{
			name:      "untagged entries use unknown bucket",
			entries:   []entry{{"x", ""}, {"y", "fi"}, {"z", ""}},
			preferred: Default,
			want:      []string{"x", "z"},
		},
		{
			name:      "non-default preference",
			entries:   []entry{{"a", "en"}, {"b", "fi"}},
			preferred: "fi",
			want:      []string{"b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := texts(SelectPreferred(tt.entries, tt.preferred))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectPreferred() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGroupBy_PreservesInsertionOrder(t *testing.T) {
	g := GroupBy([]entry{{"a", "sv"}, {"b", "fi"}, {"c", ""}, {"d", "sv"}, {"e", "en"}})

	want := []string{"sv", "fi", Unknown, "en"}
	if got := g.Languages(); !reflect.DeepEqual(got, want) {
		t.Errorf("Languages() = %v, want %v", got, want)
	}
	if g.Len() != 4 {
		t.Errorf("Len() = %d, want 4", g.Len())
	}
	sv, ok := g.Get("sv")
	if !ok || !reflect.DeepEqual(texts(sv), []string{"a", "d"}) {
		t.Errorf("Get(sv) = %v, %v", texts(sv), ok)
	}
	if _, ok := g.Get("de"); ok {
		t.Error("Get(de) ok = true, want false")
	}
}
