package store

import "testing"

func TestNormalizeRoles(t *testing.T) {
	mvc := []struct {
		in   string
		want string
	}{
		{"controller", "Controller"},
		{"Controller", "Controller"},
		{"MODEL", "Model"},
		{"view", "View"},
		{"", ""},
		{"none", ""},
		{"presenter", "presenter"}, // unknown roles pass through
	}
	for _, tt := range mvc {
		if got := NormalizeMVCRole(tt.in); got != tt.want {
			t.Errorf("NormalizeMVCRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	ddd := []struct {
		in   string
		want string
	}{
		{"value_object", "ValueObject"},
		{"ValueObject", "ValueObject"},
		{"value object", "ValueObject"},
		{"domain_event", "DomainEvent"},
		{"aggregate", "Aggregate"},
		{"repository", "Repository"},
		{"", ""},
	}
	for _, tt := range ddd {
		if got := NormalizeDDDRole(tt.in); got != tt.want {
			t.Errorf("NormalizeDDDRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
