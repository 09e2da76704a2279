package utils_test

import (
	"testing"

	"github.com/smartui-sdk/smartui-go/internal/utils"
)

func TestCanonicalizeSnapshotURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"strips default http port", "http://example.com:80/a", "http://example.com/a"},
		{"strips default https port", "https://example.com:443/a", "https://example.com/a"},
		{"keeps explicit port", "http://example.com:8080/a", "http://example.com:8080/a"},
		{"strips fragment", "https://example.com/a#section", "https://example.com/a"},
		{"trims trailing slash", "https://example.com/a/b/", "https://example.com/a/b"},
		{"keeps root slash", "https://example.com/", "https://example.com/"},
		{"punycodes unicode host", "https://bücher.example/a", "https://xn--bcher-kva.example/a"},
		{"trims surrounding whitespace", "  https://example.com/a  ", "https://example.com/a"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := utils.CanonicalizeSnapshotURL(tc.in)
			if err != nil {
				t.Fatalf("CanonicalizeSnapshotURL(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("CanonicalizeSnapshotURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCanonicalizeSnapshotURL_Invalid(t *testing.T) {
	t.Parallel()
	if _, err := utils.CanonicalizeSnapshotURL("http://exa mple.com/%zz"); err == nil {
		t.Fatal("expected parse error")
	}
}
