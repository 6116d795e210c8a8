package elsst

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const (
	teachingID = "https://elsst.cessda.eu/id/5/000e1113-ffda-4088-8278-020b6dc71e20"
	povertyID  = "https://elsst.cessda.eu/id/5/0a1b"
	welfareID  = "https://elsst.cessda.eu/id/5/00ff"
)

const testExport = `{
	"@context": {"skos": "http://www.w3.org/2004/02/skos/core#"},
	"@graph": [
		{
			"@id": "https://elsst.cessda.eu/id/5/000e1113-ffda-4088-8278-020b6dc71e20",
			"@type": ["http://www.w3.org/2004/02/skos/core#Concept"],
			"http://www.w3.org/2004/02/skos/core#prefLabel": [
				{"@language": "en", "@value": "TEACHING PROFESSION"},
				{"@language": "fr", "@value": "PROFESSION D'ENSEIGNANT"}
			],
			"http://www.w3.org/2004/02/skos/core#altLabel": [
				{"@language": "en", "@value": "Education"},
				{"@language": "en", "@value": "Schooling"}
			],
			"http://www.w3.org/2004/02/skos/core#broader": {"@id": "https://elsst.cessda.eu/id/5/occupations"}
		},
		{
			"@id": "https://elsst.cessda.eu/id/5/0a1b",
			"@type": "http://www.w3.org/2004/02/skos/core#Concept",
			"http://www.w3.org/2004/02/skos/core#prefLabel": {"@language": "en", "@value": "POVERTY"}
		},
		{
			"@id": "https://elsst.cessda.eu/id/5/00ff",
			"@type": ["http://www.w3.org/2004/02/skos/core#Concept"],
			"http://www.w3.org/2004/02/skos/core#prefLabel": [
				{"@language": "en", "@value": "SOCIAL WELFARE"},
				{"@language": "de", "@value": "SOZIALE WOHLFAHRT"},
				{"@language": "fi", "@value": ""}
			],
			"http://www.w3.org/2004/02/skos/core#altLabel": [{"@language": "en", "@value": "welfare against poverty"}]
		},
		{
			"@id": "https://elsst.cessda.eu/id/5/scheme",
			"@type": "http://www.w3.org/2004/02/skos/core#ConceptScheme"
		},
		{"@type": "http://www.w3.org/2004/02/skos/core#Concept"},
		"not a node"
	]
}`

func mustParse(t *testing.T, data string) *Catalogue {
	t.Helper()
	c, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return c
}

func TestParse(t *testing.T) {
	c := mustParse(t, testExport)

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 concepts", c.Len())
	}

	all := c.All()
	wantOrder := []string{teachingID, povertyID, welfareID}
	for i, concept := range all {
		if concept.ID != wantOrder[i] {
			t.Errorf("All()[%d] = %q, want %q", i, concept.ID, wantOrder[i])
		}
	}

	teaching := all[0]
	wantPref := map[string]string{"en": "TEACHING PROFESSION", "fr": "PROFESSION D'ENSEIGNANT"}
	if !reflect.DeepEqual(teaching.PrefLabels, wantPref) {
		t.Errorf("PrefLabels = %v, want %v", teaching.PrefLabels, wantPref)
	}
	if got := teaching.AltLabels["en"]; !reflect.DeepEqual(got, []string{"Education", "Schooling"}) {
		t.Errorf("AltLabels[en] = %v", got)
	}
	if teaching.Broader != "https://elsst.cessda.eu/id/5/occupations" {
		t.Errorf("Broader = %q", teaching.Broader)
	}
	if _, ok := all[2].PrefLabels["fi"]; ok {
		t.Error("empty label should not be kept")
	}
}

func TestParse_ListOfGraphs(t *testing.T) {
	c := mustParse(t, `[
		{"@graph": [{"@id": "u:1", "@type": "http://www.w3.org/2004/02/skos/core#Concept"}]},
		{"@graph": [{"@id": "u:2", "@type": "http://www.w3.org/2004/02/skos/core#Concept"}]},
		{"other": true}
	]`)
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse([]byte(`{"@context": {}}`)); !errors.Is(err, ErrNoGraph) {
		t.Errorf("Parse() error = %v, want ErrNoGraph", err)
	}
	if _, err := Parse([]byte(`{`)); err == nil {
		t.Error("Parse() error = nil for invalid JSON")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elsst.jsonld")
	if err := os.WriteFile(path, []byte(testExport), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.jsonld")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrNotExist", err)
	}
}

func TestSearch(t *testing.T) {
	c := mustParse(t, testExport)

	tests := []struct {
		name     string
		term     string
		language string
		want     []string
		wantErr  error
	}{
		{"preferred label", "teaching", "en", []string{teachingID}, nil},
		{"alternative label", "educ", "en", []string{teachingID}, nil},
		{"case insensitive", "PoVeRtY", "en", []string{welfareID, povertyID}, nil},
		{"other language", "wohlfahrt", "de", []string{welfareID}, nil},
		{"language without labels", "poverty", "sv", nil, nil},
		{"label in another language only", "enseignant", "en", nil, nil},
		{"term too short", "te", "en", nil, ErrTermTooShort},
		{"short in bytes long in characters", "äää", "en", nil, nil},
		{"language not two letters", "poverty", "eng", nil, ErrInvalidLanguage},
		{"language upper case", "poverty", "EN", nil, ErrInvalidLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Search(tt.term, tt.language)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Search() error = %v, want %v", err, tt.wantErr)
			}
			var ids []string
			for _, concept := range got {
				ids = append(ids, concept.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("Search() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestGet(t *testing.T) {
	c := mustParse(t, testExport)

	tests := []struct {
		uri  string
		want bool
	}{
		{teachingID, true},
		{"https:/elsst.cessda.eu/id/5/000e1113-ffda-4088-8278-020b6dc71e20", true},
		{"https://elsst.cessda.eu/id/5/nonexistent", false},
	}
	for _, tt := range tests {
		concept, ok := c.Get(tt.uri)
		if ok != tt.want {
			t.Errorf("Get(%q) ok = %v, want %v", tt.uri, ok, tt.want)
		}
		if ok && concept.Term().LocalIdentifier != teachingID {
			t.Errorf("Term().LocalIdentifier = %q", concept.Term().LocalIdentifier)
		}
	}
}

func TestRepairURI(t *testing.T) {
	tests := map[string]string{
		"https:/elsst.cessda.eu/id/1":  "https://elsst.cessda.eu/id/1",
		"http:/purl.org/elsst/4":       "http://purl.org/elsst/4",
		"https://elsst.cessda.eu/id/1": "https://elsst.cessda.eu/id/1",
		"urn:x":                        "urn:x",
	}
	for in, want := range tests {
		if got := RepairURI(in); got != want {
			t.Errorf("RepairURI(%q) = %q, want %q", in, got, want)
		}
	}
}
