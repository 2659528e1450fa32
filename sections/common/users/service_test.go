package users

import (
	"strings"
	"testing"
)

func TestDeriveSchemaName(t *testing.T) {
	cases := []struct {
		name    string
		company string
		email   string
		want    string
	}{
		{"company name", "Toko Maju Jaya", "owner@example.com", "toko_maju_jaya"},
		{"email fallback", "", "budi.s@example.com", "budi_s"},
		{"digit prefix", "88 Store", "owner@example.com", "t_88_store"},
		{"short company", "ab", "owner@example.com", "t_ab"},
		{"single letter", "x", "owner@example.com", "t_x"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveSchemaName(tc.company, tc.email); got != tc.want {
				t.Errorf("deriveSchemaName(%q, %q) = %q, want %q", tc.company, tc.email, got, tc.want)
			}
		})
	}
}

// Every derived name must pass tenant resolution: 3-63 characters of
// [a-zA-Z0-9_].
func TestDeriveSchemaNameIsAlwaysResolvable(t *testing.T) {
	inputs := []struct{ company, email string }{
		{"a", "a@example.com"},
		{"", "x@example.com"},
		{"!!", "owner@example.com"},
		{strings.Repeat("very long company name ", 10), "owner@example.com"},
		{"PT. Sinar-Jaya (Cabang #2)", "owner@example.com"},
	}

	for _, in := range inputs {
		schema := deriveSchemaName(in.company, in.email)
		if len(schema) < 3 || len(schema) > 63 {
			t.Errorf("deriveSchemaName(%q, %q) = %q: length %d out of range", in.company, in.email, schema, len(schema))
		}
		for _, r := range schema {
			if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '_' {
				t.Errorf("deriveSchemaName(%q, %q) = %q: invalid rune %q", in.company, in.email, schema, r)
			}
		}
	}
}
