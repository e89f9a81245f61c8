package errormap

import "testing"

func TestMap(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want TemplateKey
	}{
		{"private login required", "Login required to view this post", KeyPrivate},
		{"too large", "File exceeds the maximum upload size", KeyTooLarge},
		{"region locked", "Video not available in your country", KeyRegion},
		{"not found", "This post has been deleted", KeyNotFound},
		{"timeout", "request timed out after 30s", KeyTimeout},
		{"unavailable nsfw", "content blocked: nsfw", KeyUnavailable},
		{"processing ffmpeg", "ffmpeg exited with status 1", KeyProcessing},
		{"connection reset", "read: connection reset by peer", KeyConnection},
		{"api error", "rapidapi returned status 503", KeyAPI},
		{"unknown", "some unexpected gremlin", KeyUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Map(tc.raw); got != tc.want {
				t.Fatalf("Map(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestMapInstagramStory(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want TemplateKey
	}{
		{"unknown becomes story", "some gremlin", KeyStory},
		{"not found becomes story", "story has been deleted", KeyStory},
		{"unavailable becomes story", "content blocked", KeyStory},
		{"timeout stays timeout", "request timed out", KeyTimeout},
		{"private stays private", "login required", KeyPrivate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapInstagramStory(tc.raw); got != tc.want {
				t.Fatalf("MapInstagramStory(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	if Render(KeyTooLarge) == "" {
		t.Fatal("expected non-empty message for KeyTooLarge")
	}
	if Render(TemplateKey("bogus")) != messages[KeyUnknown] {
		t.Fatal("expected unknown key to fall back to the unknown message")
	}
}

func TestRenderIntakeKeys(t *testing.T) {
	if Render(KeyNoURL) == "" {
		t.Fatal("expected non-empty message for KeyNoURL")
	}
	if Render(KeyInvalidURL) == "" {
		t.Fatal("expected non-empty message for KeyInvalidURL")
	}
	if Render(KeyNoURL) == Render(KeyInvalidURL) {
		t.Fatal("expected distinct messages for the no-url and invalid-url hints")
	}
}
