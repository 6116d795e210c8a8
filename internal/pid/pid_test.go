package pid

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name   string
		scheme string
		value  string
		want   string
		wantOK bool
	}{
		// ROR
		{name: "ror bare", scheme: "ror", value: "033003e23", want: "https://ror.org/033003e23", wantOK: true},
		{name: "ror https url", scheme: "ror", value: "https://ror.org/033003e23", want: "https://ror.org/033003e23", wantOK: true},
		{name: "ror http url", scheme: "ror", value: "http://ror.org/033003e23", want: "https://ror.org/033003e23", wantOK: true},
		{name: "ror url without protocol", scheme: "ror", value: "ror.org/033003e23", want: "https://ror.org/033003e23", wantOK: true},
		{name: "ror prefixed", scheme: "ror", value: "ror:033003e23", want: "https://ror.org/033003e23", wantOK: true},
		{name: "ror upper case", scheme: "ROR", value: "HTTPS://ROR.ORG/033003E23", want: "https://ror.org/033003e23", wantOK: true},
		{name: "ror with whitespace", scheme: " ror ", value: "  02wg9xc72 ", want: "https://ror.org/02wg9xc72", wantOK: true},
		{name: "ror trailing slash", scheme: "ror", value: "https://ror.org/02wg9xc72/", want: "https://ror.org/02wg9xc72", wantOK: true},
		{name: "ror too short", scheme: "ror", value: "03300e23", wantOK: false},
		{name: "ror excluded letter", scheme: "ror", value: "0330l3e23", wantOK: false},
		{name: "ror not starting with zero", scheme: "ror", value: "133003e23", wantOK: false},
		{name: "ror other domain", scheme: "ror", value: "https://example.org/033003e23", wantOK: false},

		// ORCID
		{name: "orcid bare", scheme: "orcid", value: "0000-0002-1825-0097", want: "https://orcid.org/0000-0002-1825-0097", wantOK: true},
		{name: "orcid url", scheme: "orcid", value: "https://orcid.org/0000-0002-1825-0097", want: "https://orcid.org/0000-0002-1825-0097", wantOK: true},
		{name: "orcid prefixed", scheme: "orcid", value: "orcid:0000-0002-1825-0097", want: "https://orcid.org/0000-0002-1825-0097", wantOK: true},
		{name: "orcid check char X", scheme: "orcid", value: "0000-0002-9079-593X", want: "https://orcid.org/0000-0002-9079-593x", wantOK: true},
		{name: "orcid www", scheme: "orcid", value: "https://www.orcid.org/0000-0002-1825-0097", want: "https://orcid.org/0000-0002-1825-0097", wantOK: true},
		{name: "orcid missing hyphens", scheme: "orcid", value: "0000000218250097", wantOK: false},
		{name: "orcid bad group", scheme: "orcid", value: "0000-002-1825-0097", wantOK: false},
		{name: "orcid letter in body", scheme: "orcid", value: "0000-000A-1825-0097", wantOK: false},

		// Other
		{name: "unknown scheme", scheme: "doi", value: "10.1234/abc", wantOK: false},
		{name: "empty scheme", scheme: "", value: "033003e23", wantOK: false},
		{name: "empty value", scheme: "ror", value: "", wantOK: false},
		{name: "scheme mismatch", scheme: "orcid", value: "033003e23", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeURL(tt.scheme, tt.value)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeURL(%q, %q) ok = %v, want %v", tt.scheme, tt.value, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q, %q) = %q, want %q", tt.scheme, tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL_FormsAgree(t *testing.T) {
	forms := []string{"02wg9xc72", "https://ror.org/02wg9xc72", "ror:02wg9xc72"}

	var first string
	for i, f := range forms {
		got, ok := NormalizeURL("ror", f)
		if !ok {
			t.Fatalf("NormalizeURL(ror, %q) not ok", f)
		}
		if i == 0 {
			first = got
			continue
		}
		if got != first {
			t.Errorf("NormalizeURL(ror, %q) = %q, want %q", f, got, first)
		}
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported("ORCID") {
		t.Error("IsSupported(ORCID) = false, want true")
	}
	if IsSupported("isni") {
		t.Error("IsSupported(isni) = true, want false")
	}
}
