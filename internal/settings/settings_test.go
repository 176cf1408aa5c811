package settings

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func writeStore(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileMissingIsEmpty(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if _, err := s.String("proxy"); err == nil {
		t.Error("expected ErrMissing for absent key")
	}
}

func TestProxyModes(t *testing.T) {
	cases := []struct {
		name    string
		content string
		direct  bool // expect nil proxy func
		explicit string
	}{
		{"missing", `{}`, false, ""},
		{"empty", `{"proxy": ""}`, false, ""},
		{"system", `{"proxy": "<system>"}`, false, ""},
		{"direct", `{"proxy": "<direct>"}`, true, ""},
		{"explicit", `{"proxy": "http://127.0.0.1:7890"}`, false, "http://127.0.0.1:7890"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, err := LoadFile(writeStore(t, c.content))
			if err != nil {
				t.Fatal(err)
			}
			fn, err := s.Proxy()
			if err != nil {
				t.Fatal(err)
			}
			if c.direct {
				if fn != nil {
					t.Error("direct mode should yield a nil proxy func")
				}
				return
			}
			if fn == nil {
				t.Fatal("expected a proxy func")
			}
			if c.explicit != "" {
				req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
				u, err := fn(req)
				if err != nil {
					t.Fatal(err)
				}
				want, _ := url.Parse(c.explicit)
				if u == nil || u.String() != want.String() {
					t.Errorf("proxy = %v, want %v", u, want)
				}
				if got := s.ProxyURL(); got != c.explicit {
					t.Errorf("ProxyURL = %q, want %q", got, c.explicit)
				}
			} else if got := s.ProxyURL(); got != "" {
				t.Errorf("ProxyURL = %q, want empty", got)
			}
		})
	}
}

func TestMalformedStore(t *testing.T) {
	if _, err := LoadFile(writeStore(t, `{not json`)); err == nil {
		t.Error("malformed settings must surface an error")
	}
}
