package middleware

import "testing"

func TestIsOriginAllowed(t *testing.T) {
	allowed := []string{"https://app.example.com", "*.trusted.io", "*"}

	cases := []struct {
		name   string
		origin string
		list   []string
		want   bool
	}{
		{"exact match", "https://app.example.com", allowed[:1], true},
		{"empty origin rejected", "", allowed, false},
		{"wildcard domain subdomain", "https://sub.trusted.io", allowed[1:2], true},
		{"wildcard domain apex", "trusted.io", allowed[1:2], true},
		{"wildcard domain mismatch", "https://evil.com", allowed[1:2], false},
		{"global wildcard", "https://anything.com", allowed[2:], true},
		{"no match in restricted list", "https://evil.com", allowed[:1], false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isOriginAllowed(tc.origin, tc.list); got != tc.want {
				t.Fatalf("isOriginAllowed(%q, %v) = %v, want %v", tc.origin, tc.list, got, tc.want)
			}
		})
	}
}

func TestMatchOrigin(t *testing.T) {
	cases := []struct {
		name    string
		origin  string
		pattern string
		want    bool
	}{
		{"exact", "https://app.example.com", "https://app.example.com", true},
		{"global wildcard", "https://anything.com", "*", true},
		{"subdomain wildcard", "https://api.trusted.io", "*.trusted.io", true},
		{"apex matches wildcard domain", "trusted.io", "*.trusted.io", true},
		{"unrelated host", "https://trusted.io.evil.com", "*.trusted.io", false},
		{"no match", "https://a.com", "https://b.com", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := matchOrigin(tc.origin, tc.pattern); got != tc.want {
				t.Fatalf("matchOrigin(%q, %q) = %v, want %v", tc.origin, tc.pattern, got, tc.want)
			}
		})
	}
}
