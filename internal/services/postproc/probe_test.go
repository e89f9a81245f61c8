package postproc

import "testing"

func TestIsUnitySAR(t *testing.T) {
	cases := []struct {
		sar  string
		want bool
	}{
		{"1:1", true},
		{"N/A", true},
		{"", true},
		{" 1:1 ", true},
		{"4:3", false},
		{"16:9", false},
	}
	for _, tc := range cases {
		if got := IsUnitySAR(tc.sar); got != tc.want {
			t.Fatalf("IsUnitySAR(%q) = %v, want %v", tc.sar, got, tc.want)
		}
	}
}

func TestParseSAR(t *testing.T) {
	cases := []struct {
		name    string
		sar     string
		wantNum int
		wantDen int
		wantOK  bool
	}{
		{"square", "1:1", 1, 1, true},
		{"non-square", "4:3", 4, 3, true},
		{"malformed missing colon", "11", 0, 0, false},
		{"non-numeric", "a:b", 0, 0, false},
		{"zero denominator", "4:0", 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			num, den, ok := ParseSAR(tc.sar)
			if ok != tc.wantOK {
				t.Fatalf("ParseSAR(%q) ok = %v, want %v", tc.sar, ok, tc.wantOK)
			}
			if ok && (num != tc.wantNum || den != tc.wantDen) {
				t.Fatalf("ParseSAR(%q) = (%d, %d), want (%d, %d)", tc.sar, num, den, tc.wantNum, tc.wantDen)
			}
		})
	}
}
