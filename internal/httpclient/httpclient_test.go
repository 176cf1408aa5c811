package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func TestBrowserHeaderProfile(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	c := New(nil, nil)
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatal(err)
	}

	for k, want := range defaultHeaders {
		if v := got.Get(k); v != want {
			t.Errorf("header %s = %q, want %q", k, v, want)
		}
	}
}

func TestRefererRules(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"javbus", "https://www.javbus.com/SSIS-123", "https://www.javbus.com/"},
		{"getchu", "http://www.getchu.com/soft.phtml?id=1", "http://www.getchu.com/top.html"},
		{"giga search", "https://www.giga-web.jp/search/", "https://www.giga-web.jp/top.html"},
		{"giga cookie gate", "https://www.giga-web.jp/cookie_set.php?eighteen=1", ""},
		{"unrelated", "https://example.com/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			if err != nil {
				t.Fatal(err)
			}
			applyReferer(req)
			if got := req.Header.Get("Referer"); got != tt.want {
				t.Errorf("Referer = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodesGzipAndBrotli(t *testing.T) {
	const plain = "<html><body>hello</body></html>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		switch r.URL.Path {
		case "/gz":
			zw := gzip.NewWriter(&buf)
			zw.Write([]byte(plain))
			zw.Close()
			w.Header().Set("Content-Encoding", "gzip")
		case "/br":
			bw := brotli.NewWriter(&buf)
			bw.Write([]byte(plain))
			bw.Close()
			w.Header().Set("Content-Encoding", "br")
		default:
			buf.WriteString(plain)
		}
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := New(nil, nil)
	for _, path := range []string{"/gz", "/br", "/plain"} {
		page, err := c.Get(context.Background(), srv.URL+path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if string(page.Body) != plain {
			t.Errorf("%s: body = %q", path, page.Body)
		}
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(nil, nil)
	_, err := c.Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want *StatusError, got %v", err)
	}
	if se.Status != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", se.Status)
	}
}

func TestRetriesOnceAfter429(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(nil, nil)
	page, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(page.Body) != "ok" {
		t.Errorf("body = %q", page.Body)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestLandingURLAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/from", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/to/final", http.StatusFound)
	})
	mux.HandleFunc("/to/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("landed"))
	})

	c := New(nil, nil)
	page, err := c.Get(context.Background(), srv.URL+"/from")
	if err != nil {
		t.Fatal(err)
	}
	if page.URL.Path != "/to/final" {
		t.Errorf("landing URL = %s, want /to/final", page.URL)
	}
}

func TestParseRetryAfter(t *testing.T) {
	max := 60 * time.Second
	tests := []struct {
		name string
		s    string
		want time.Duration
	}{
		{"empty", "", time.Second},
		{"seconds", "5", 5 * time.Second},
		{"zero", "0", 0},
		{"over cap", "120", max},
		{"invalid", "x", time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.s, max); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}
