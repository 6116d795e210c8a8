package study

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	data := []byte(`{
		"_aggregator_identifier": "abc123",
		"study_number": 4242,
		"study_titles": [
			{"study_title": "Finnish Election Study", "language": "en"},
			{"study_title": "Eduskuntavaalitutkimus", "language": "fi"}
		],
		"classifications": [
			{"classification": "Elections", "system_name": "CESSDA Topic Classification", "description": "Elections", "language": "en"},
			{"classification": "Elections", "system_name": "CESSDA Topic Classification", "description": "Vaalit", "language": "fi"}
		],
		"grant_numbers": [{"grant_number": 12345}]
	}`)

	rec, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if rec.ID() != "abc123" {
		t.Errorf("ID() = %q, want abc123", rec.ID())
	}
	if rec.StudyNumber.String() != "4242" {
		t.Errorf("StudyNumber = %q, want 4242", rec.StudyNumber)
	}
	if len(rec.Titles) != 2 || rec.Titles[1].Title.String() != "Eduskuntavaalitutkimus" {
		t.Errorf("Titles = %+v", rec.Titles)
	}
	if rec.GrantNumbers[0].GrantNumber.String() != "12345" {
		t.Errorf("GrantNumber = %q, want 12345", rec.GrantNumbers[0].GrantNumber)
	}
	if len(rec.Problems) != 0 {
		t.Errorf("Problems = %v, want none", rec.Problems)
	}
}

func TestDecode_NotAnObject(t *testing.T) {
	for _, in := range []string{`[]`, `"x"`, `null`, `42`} {
		if _, err := Decode([]byte(in)); !errors.Is(err, ErrNotObject) {
			t.Errorf("Decode(%s) error = %v, want ErrNotObject", in, err)
		}
	}
}

func TestDecode_SkipsMalformedEntries(t *testing.T) {
	data := []byte(`{
		"_aggregator_identifier": "abc",
		"principal_investigators": [
			"Doe, Jane",
			{"principal_investigator": "Roe, Richard", "organization": "FSD"},
			{"principal_investigator": {"nested": true}}
		],
		"abstracts": "not a list",
		"distributors": null
	}`)

	rec, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(rec.PrincipalInvestigators) != 1 {
		t.Fatalf("PrincipalInvestigators = %+v, want 1 entry", rec.PrincipalInvestigators)
	}
	if rec.PrincipalInvestigators[0].Name.String() != "Roe, Richard" {
		t.Errorf("Name = %q", rec.PrincipalInvestigators[0].Name)
	}
	if rec.Abstracts != nil || rec.Distributors != nil {
		t.Errorf("Abstracts = %v, Distributors = %v, want nil", rec.Abstracts, rec.Distributors)
	}
	if len(rec.Problems) != 3 {
		t.Fatalf("Problems = %v, want 3", rec.Problems)
	}

	var entryErr *EntryError
	if !errors.As(rec.Problems[0], &entryErr) || entryErr.Field != FieldAbstracts || entryErr.Index != -1 {
		t.Errorf("Problems[0] = %v, want field-level abstracts error", rec.Problems[0])
	}
	if !errors.As(rec.Problems[1], &entryErr) || entryErr.Field != FieldPrincipalInvestigators || entryErr.Index != 0 {
		t.Errorf("Problems[1] = %v", rec.Problems[1])
	}
	if !errors.Is(rec.Problems[1], ErrNotObject) {
		t.Errorf("Problems[1] should wrap ErrNotObject")
	}
	if !errors.As(rec.Problems[2], &entryErr) || entryErr.Index != 2 {
		t.Errorf("Problems[2] = %v, want principal_investigators[2]", rec.Problems[2])
	}
}

func TestRecordID_FallsBackToStudyNumber(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"aggregator", Record{AggregatorIdentifier: "a", StudyNumber: "s"}, "a"},
		{"study number", Record{StudyNumber: " s "}, "s"},
		{"blank aggregator", Record{AggregatorIdentifier: "  ", StudyNumber: "s"}, "s"},
		{"none", Record{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.ID(); got != tt.want {
				t.Errorf("ID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassificationLanguages(t *testing.T) {
	rec := Record{Classifications: []Classification{
		{Language: "fi"},
		{},
		{Language: "fi"},
		{Language: "en"},
		{Language: "sv"},
	}}
	got := rec.ClassificationLanguages()
	want := []string{"fi", "en", "sv"}
	if len(got) != len(want) {
		t.Fatalf("ClassificationLanguages() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ClassificationLanguages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{`"abc"`, "abc", false},
		{`" padded "`, "padded", false},
		{`2021`, "2021", false},
		{`1.5`, "1.5", false},
		{`null`, "", false},
		{`true`, "", true},
		{`{}`, "", true},
	}
	for _, tt := range tests {
		var f FlexibleString
		err := f.UnmarshalJSON([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("UnmarshalJSON(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && f.String() != tt.want {
			t.Errorf("UnmarshalJSON(%s) = %q, want %q", tt.in, f.String(), tt.want)
		}
	}
}
