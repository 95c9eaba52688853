package middleware

import "testing"

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		origin  string
		allowed bool
	}{
		{"wildcard", "*", "http://localhost:3000", true},
		{"listed", "http://localhost:3000,app://ontrack", "app://ontrack", true},
		{"listed case-insensitive", "http://Localhost:3000", "http://localhost:3000", true},
		{"not listed", "http://localhost:3000", "https://evil.example", false},
		{"spaces around entries", " http://localhost:3000 , app://ontrack ", "http://localhost:3000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := originAllowed(splitOrigins(tt.raw), tt.origin); got != tt.allowed {
				t.Fatalf("originAllowed(%q, %q) = %v, want %v", tt.raw, tt.origin, got, tt.allowed)
			}
		})
	}
}
