package cookiejar

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestSetAndMatch(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "cookies.json"))
	if err != nil {
		t.Fatal(err)
	}

	u := mustURL(t, "https://www.javbus.com/SSIS-123")
	j.SetCookies(u, []*http.Cookie{
		{Name: "existmag", Value: "all", Path: "/"},
		{Name: "age", Value: "verified", Domain: ".javbus.com", Path: "/"},
	})

	got := j.Cookies(mustURL(t, "https://www.javbus.com/search"))
	if len(got) != 2 {
		t.Fatalf("want 2 cookies, got %d", len(got))
	}

	// Domain cookie matches a sibling subdomain, host-only does not.
	sib := j.Cookies(mustURL(t, "https://images.javbus.com/"))
	if len(sib) != 1 || sib[0].Name != "age" {
		t.Errorf("sibling subdomain: got %+v", sib)
	}
}

func TestSecureNotSentOverHTTP(t *testing.T) {
	j, _ := Open(filepath.Join(t.TempDir(), "cookies.json"))
	u := mustURL(t, "https://example.com/")
	j.SetCookies(u, []*http.Cookie{{Name: "s", Value: "1", Secure: true}})

	if got := j.Cookies(mustURL(t, "http://example.com/")); len(got) != 0 {
		t.Errorf("secure cookie leaked over http: %+v", got)
	}
	if got := j.Cookies(u); len(got) != 1 {
		t.Errorf("secure cookie missing over https: %+v", got)
	}
}

func TestRejectsPublicSuffixDomain(t *testing.T) {
	j, _ := Open(filepath.Join(t.TempDir(), "cookies.json"))
	j.SetCookies(mustURL(t, "https://example.co.uk/"), []*http.Cookie{
		{Name: "super", Value: "1", Domain: "co.uk"},
	})
	if j.Len() != 0 {
		t.Error("public-suffix domain cookie must be rejected")
	}
}

func TestFlushRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	j, _ := Open(path)
	j.SetCookies(mustURL(t, "https://example.com/"), []*http.Cookie{
		{Name: "a", Value: "1", Expires: time.Now().Add(time.Hour)},
	})
	if err := j.Flush(); err != nil {
		t.Fatal(err)
	}

	j2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := j2.Cookies(mustURL(t, "https://example.com/")); len(got) != 1 || got[0].Value != "1" {
		t.Errorf("round trip lost the cookie: %+v", got)
	}
}

func TestImportMergeDeletesSource(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "cookies.json")
	merge := filepath.Join(dir, "cookies-merge.json")

	etc := `[{
		"domain": ".fc2ppvdb.com",
		"expirationDate": ` + itoa(time.Now().Add(time.Hour).Unix()) + `,
		"httpOnly": true,
		"name": "cf_clearance",
		"path": "/",
		"sameSite": "no_restriction",
		"secure": true,
		"value": "tok"
	}]`
	if err := os.WriteFile(merge, []byte(etc), 0o644); err != nil {
		t.Fatal(err)
	}

	j, err := Open(main, merge)
	if err != nil {
		t.Fatal(err)
	}
	got := j.Matching(mustURL(t, "https://fc2ppvdb.com/articles/1234567"))
	if len(got) != 1 || got[0].Name != "cf_clearance" || got[0].SameSite != SameSiteNone {
		t.Fatalf("import not merged: %+v", got)
	}
	if _, err := os.Stat(merge); !os.IsNotExist(err) {
		t.Error("import file must be deleted after a successful merge")
	}
}

func TestExpiredDroppedOnLoad(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "cookies.json")
	old := `[{"domain":"example.com","name":"gone","path":"/","value":"x","expirationDate":1}]`
	if err := os.WriteFile(main, []byte(old), 0o644); err != nil {
		t.Fatal(err)
	}
	j, err := Open(main)
	if err != nil {
		t.Fatal(err)
	}
	if j.Len() != 0 {
		t.Error("expired entries must be ignored on load")
	}
}

func itoa(v int64) string {
	b := []byte{}
	if v == 0 {
		return "0"
	}
	for v > 0 {
		b = append([]byte{byte('0' + v%10)}, b...)
		v /= 10
	}
	return string(b)
}
