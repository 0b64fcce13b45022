package objectstore

import "testing"

func TestPublicURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		base string
		key  string
		want string
	}{
		{"default host", "", "video/u1/abc.webm", "https://storage.googleapis.com/media/video/u1/abc.webm"},
		{"leading slash", "", "/audio/u1/a.webm", "https://storage.googleapis.com/media/audio/u1/a.webm"},
		{"custom base", "http://localhost:4443", "uploads/u1/x.jpg", "http://localhost:4443/media/uploads/u1/x.jpg"},
		{"escaped", "", "uploads/u 1/x.jpg", "https://storage.googleapis.com/media/uploads/u%201/x.jpg"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := &GCS{bucket: "media", publicBaseURL: tc.base}
			if got := s.PublicURL(tc.key); got != tc.want {
				t.Fatalf("PublicURL(%q): got=%q want=%q", tc.key, got, tc.want)
			}
		})
	}
}

func TestResolveContentType(t *testing.T) {
	t.Parallel()

	if got := resolveContentType("a/b.webm", ""); got != "video/webm" {
		t.Fatalf("webm: got=%q", got)
	}
	if got := resolveContentType("a/b.JPG", ""); got != "image/jpeg" {
		t.Fatalf("jpg: got=%q", got)
	}
	if got := resolveContentType("a/b.bin", "audio/webm"); got != "audio/webm" {
		t.Fatalf("explicit type should win: got=%q", got)
	}
	if got := resolveContentType("a/b", ""); got != "application/octet-stream" {
		t.Fatalf("fallback: got=%q", got)
	}
}
