package skgif

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func decode(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return m
}

func TestActorEntityTypes(t *testing.T) {
	e := Entity{LocalIdentifier: "id", Name: "n"}
	tests := []struct {
		actor Actor
		want  string
	}{
		{Person{e}, EntityPerson},
		{Organisation{e}, EntityOrganisation},
		{Agent{e}, EntityAgent},
	}
	for _, tt := range tests {
		m := decode(t, tt.actor)
		if m["entity_type"] != tt.want {
			t.Errorf("%T entity_type = %v, want %s", tt.actor, m["entity_type"], tt.want)
		}
		if tt.actor.EntityType() != tt.want {
			t.Errorf("%T.EntityType() = %s, want %s", tt.actor, tt.actor.EntityType(), tt.want)
		}
		if _, ok := m["identifiers"]; ok {
			t.Errorf("%T: empty identifiers should be omitted", tt.actor)
		}
	}
}

func TestContribution_MarshalJSON(t *testing.T) {
	c := Contribution{
		Role: RoleAuthor,
		By: Person{Entity{
			LocalIdentifier: "https://orcid.org/0000-0002-1825-0097",
			Name:            "Doe, Jane",
			Identifiers:     []Identifier{{Value: "0000-0002-1825-0097", Scheme: "orcid"}},
		}},
		DeclaredAffiliations: []Organisation{{Entity{LocalIdentifier: "https://ror.org/033003e23", Name: "FSD"}}},
	}
	m := decode(t, c)

	by, ok := m["by"].(map[string]any)
	if !ok {
		t.Fatalf("by = %T, want object", m["by"])
	}
	if by["entity_type"] != EntityPerson {
		t.Errorf("by.entity_type = %v", by["entity_type"])
	}
	affs := m["declared_affiliations"].([]any)
	if affs[0].(map[string]any)["entity_type"] != EntityOrganisation {
		t.Errorf("affiliation entity_type = %v", affs[0])
	}
}

func TestContribution_MarshalJSONRejectsUnknownActor(t *testing.T) {
	if _, err := json.Marshal(Contribution{Role: RoleAuthor}); err == nil {
		t.Error("Marshal() of contribution without actor should fail")
	}
}

func TestProduct_MarshalJSONOmitsEmptyOptionals(t *testing.T) {
	p := Product{
		LocalIdentifier: "abc",
		ProductType:     ProductTypeResearchData,
		Titles:          map[string][]string{"en": {"Title"}},
		Manifestations: []Manifestation{{
			AccessRights: AccessRights{Status: "unavailable"},
			Biblio:       Biblio{In: Venue{Entity{LocalIdentifier: "v", Name: "Venue"}}},
		}},
	}
	m := decode(t, p)

	if m["entity_type"] != EntityProduct {
		t.Errorf("entity_type = %v", m["entity_type"])
	}
	for _, key := range []string{"abstracts", "topics", "contributions", "funding", "identifiers"} {
		if _, ok := m[key]; ok {
			t.Errorf("%s should be omitted when empty", key)
		}
	}
	man := m["manifestations"].([]any)[0].(map[string]any)
	ar := man["access_rights"].(map[string]any)
	if _, ok := ar["description"]; ok {
		t.Error("empty description should be omitted")
	}
	biblio := man["biblio"].(map[string]any)
	if _, ok := biblio["hosting_data_source"]; ok {
		t.Error("absent hosting data source should be omitted")
	}
	if biblio["in"].(map[string]any)["entity_type"] != EntityVenue {
		t.Errorf("biblio.in = %v", biblio["in"])
	}
}

func TestTermAndGrantEntityTypes(t *testing.T) {
	term := decode(t, Topic{Term: Term{LocalIdentifier: "t", Labels: map[string]string{"en": "x"}}})
	if term["term"].(map[string]any)["entity_type"] != EntityTopic {
		t.Errorf("term = %v", term)
	}
	grant := decode(t, Grant{LocalIdentifier: "g", GrantNumber: "123"})
	if grant["entity_type"] != EntityGrant || grant["grant_number"] != "123" {
		t.Errorf("grant = %v", grant)
	}
}

func TestNormalizeScheme(t *testing.T) {
	tests := map[string]string{
		"ORCID":            "orcid",
		"  Some   Scheme ": "some_scheme",
		"doi":              "doi",
		"":                 "",
	}
	for in, want := range tests {
		if got := NormalizeScheme(in); got != want {
			t.Errorf("NormalizeScheme(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIDGenerator(t *testing.T) {
	g := NewIDGenerator(time.UnixMilli(1700000000123))

	id := g.Generate(CategoryTopic, 2)
	if id != "otf___1700000000123___topic-2" {
		t.Errorf("Generate() = %q", id)
	}
	if !IsGenerated(id) {
		t.Error("IsGenerated() = false for generated id")
	}
	if IsGenerated("https://ror.org/033003e23") {
		t.Error("IsGenerated() = true for registry URL")
	}
	if got := StripTimestamp(id); got != "otf___topic-2" {
		t.Errorf("StripTimestamp() = %q", got)
	}
	if got := StripTimestamp("https://ror.org/033003e23"); got != "https://ror.org/033003e23" {
		t.Errorf("StripTimestamp() changed a stable id: %q", got)
	}
}

func TestWrap(t *testing.T) {
	doc := decode(t, Wrap(nil, nil))

	ctx := doc["@context"].([]any)
	if ctx[0] != ContextURL {
		t.Errorf("@context[0] = %v", ctx[0])
	}
	if !strings.HasPrefix(ctx[1].(map[string]any)["@base"].(string), "https://w3id.org/skg-if/sandbox/") {
		t.Errorf("@context[1] = %v", ctx[1])
	}
	if graph := doc["@graph"].([]any); len(graph) != 0 {
		t.Errorf("@graph = %v, want empty", graph)
	}
	if _, ok := doc["meta"]; ok {
		t.Error("meta should be omitted when nil")
	}
}
