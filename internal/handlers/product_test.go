package handlers

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Wireless Keyboard", "wireless-keyboard"},
		{"  Mixed  CASE  Title ", "mixed-case-title"},
		{"100% Cotton T-Shirt", "100-cotton-t-shirt"},
	}
	for _, tt := range tests {
		if got := slugify(tt.title); got != tt.want {
			t.Fatalf("slugify(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
