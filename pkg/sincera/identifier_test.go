package sincera

import "testing"

func TestFromRow(t *testing.T) {
	tests := []struct {
		name       string
		rawID      string
		rawDomain  string
		wantKind   Kind
		wantID     int64
		wantDomain string
		wantRaw    string
	}{
		{
			name:     "numeric id only",
			rawID:    "42",
			wantKind: KindID,
			wantID:   42,
			wantRaw:  "42",
		},
		{
			name:       "domain only",
			rawDomain:  "example.com",
			wantKind:   KindDomain,
			wantDomain: "example.com",
			wantRaw:    "example.com",
		},
		{
			name:       "domain takes priority over id",
			rawID:      "42",
			rawDomain:  "example.com",
			wantKind:   KindDomain,
			wantDomain: "example.com",
			wantRaw:    "example.com",
		},
		{
			name:     "non-numeric id is invalid",
			rawID:    "abc",
			wantKind: KindInvalid,
			wantRaw:  "abc",
		},
		{
			name:     "float id is invalid",
			rawID:    "42.5",
			wantKind: KindInvalid,
			wantRaw:  "42.5",
		},
		{
			name:     "both empty",
			wantKind: KindNone,
		},
		{
			name:      "whitespace only counts as empty",
			rawID:     "   ",
			rawDomain: "\t",
			wantKind:  KindNone,
		},
		{
			name:       "values are trimmed",
			rawDomain:  "  example.com  ",
			wantKind:   KindDomain,
			wantDomain: "example.com",
			wantRaw:    "example.com",
		},
		{
			name:     "negative id parses",
			rawID:    "-7",
			wantKind: KindID,
			wantID:   -7,
			wantRaw:  "-7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := FromRow(tt.rawID, tt.rawDomain)

			if id.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", id.Kind, tt.wantKind)
			}
			if id.ID != tt.wantID {
				t.Errorf("ID = %d, want %d", id.ID, tt.wantID)
			}
			if id.Domain != tt.wantDomain {
				t.Errorf("Domain = %q, want %q", id.Domain, tt.wantDomain)
			}
			if id.Raw() != tt.wantRaw {
				t.Errorf("Raw() = %q, want %q", id.Raw(), tt.wantRaw)
			}
		})
	}
}

func TestIdentifier_String(t *testing.T) {
	tests := []struct {
		name string
		id   Identifier
		want string
	}{
		{"id", FromRow("42", ""), "publisher_id 42"},
		{"domain", FromRow("", "example.com"), "domain example.com"},
		{"invalid", FromRow("abc", ""), "invalid identifier abc"},
		{"none", FromRow("", ""), "no identifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
