package model

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := map[string]string{
		"a@x.io":          "a@x.io",
		"  A@X.io ":       "a@x.io",
		"Mixed.Case@X.IO": "mixed.case@x.io",
		"":                "",
	}
	for in, want := range tests {
		if got := NormalizeEmail(in); got != want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
