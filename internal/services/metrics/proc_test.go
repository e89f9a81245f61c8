package metrics

import "testing"

func TestParseMeminfoValue(t *testing.T) {
	cases := []struct {
		name string
		line string
		want uint64
	}{
		{"mem total", "MemTotal:       16384000 kB", 16384000},
		{"mem available", "MemAvailable:    8192000 kB", 8192000},
		{"malformed", "MemTotal:", 0},
		{"non-numeric", "MemTotal: abc kB", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseMeminfoValue(tc.line); got != tc.want {
				t.Fatalf("parseMeminfoValue(%q) = %d, want %d", tc.line, got, tc.want)
			}
		})
	}
}

func TestFormatPercent(t *testing.T) {
	if got := formatPercent(42.567); got != "42.6" {
		t.Fatalf("formatPercent(42.567) = %q, want %q", got, "42.6")
	}
	if got := formatPercent(0); got != "0.0" {
		t.Fatalf("formatPercent(0) = %q, want %q", got, "0.0")
	}
}

func TestFormatInt(t *testing.T) {
	if got := formatInt(1024); got != "1024" {
		t.Fatalf("formatInt(1024) = %q, want %q", got, "1024")
	}
	if got := formatInt(0); got != "0" {
		t.Fatalf("formatInt(0) = %q, want %q", got, "0")
	}
}
