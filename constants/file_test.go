package constants

import "testing"

func TestMapFileType(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"image", IMAGE},
		{"img", IMAGE},
		{"jpg", IMAGE},
		{"jpeg", IMAGE},
		{"png", IMAGE},
		{"PNG", IMAGE},
		{" pdf ", PDF},
		{"PDF", PDF},
		{"docx", ""},
		{"", ""},
		{"tiff", ""},
	}
	for _, tc := range cases {
		if got := MapFileType(tc.in); got != tc.want {
			t.Fatalf("MapFileType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFieldKeysCoverAllFields(t *testing.T) {
	if len(FieldKeys) != 13 {
		t.Fatalf("expected 13 field keys, got %d", len(FieldKeys))
	}
	seen := make(map[string]bool, len(FieldKeys))
	for _, k := range FieldKeys {
		if seen[k] {
			t.Fatalf("duplicate field key %q", k)
		}
		seen[k] = true
	}
	for _, k := range []string{FieldCompanyName, FieldTotal, FieldDescription, FieldQuantity} {
		if !seen[k] {
			t.Fatalf("field key %q missing from FieldKeys", k)
		}
	}
}
