package postproc

import "testing"

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("truncate short string = %q, want %q", got, "hello")
	}
	if got := truncate("hello world", 5); got != "hello" {
		t.Fatalf("truncate long string = %q, want %q", got, "hello")
	}
}

func TestEvenize(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{1080, 1080},
		{1081, 1082},
		{0, 0},
		{719, 720},
	}
	for _, tc := range cases {
		if got := evenize(tc.in); got != tc.want {
			t.Fatalf("evenize(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestBitstreamFilterFor(t *testing.T) {
	cases := []struct {
		codec string
		want  string
	}{
		{"h264", "h264_metadata=sample_aspect_ratio=1/1"},
		{"hevc", "hevc_metadata=sample_aspect_ratio=1/1"},
		{"vp9", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := bitstreamFilterFor(tc.codec); got != tc.want {
			t.Fatalf("bitstreamFilterFor(%q) = %q, want %q", tc.codec, got, tc.want)
		}
	}
}
