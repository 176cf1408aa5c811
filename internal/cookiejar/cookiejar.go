// Package cookiejar is a persistent cookie jar shared by the HTTP and
// headless transports.
//
// On disk the jar lives at <AppLocalData>/cookies.json in its native format.
// At load time an optional import file in the EditThisCookie browser-export
// shape (cookies-merge.json or cookies.edit.json) is merged once and then
// deleted. The jar implements net/http.CookieJar and also exposes the raw
// matching entries so the headless transport can translate them into CDP
// cookie parameters.
package cookiejar

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// SameSite values stored on disk.
const (
	SameSiteStrict = "strict"
	SameSiteLax    = "lax"
	SameSiteNone   = "no_restriction"
)

// Entry is one persisted cookie.
type Entry struct {
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Expires  float64 `json:"expirationDate,omitempty"` // Unix seconds; 0 = session
	Secure   bool    `json:"secure"`
	HTTPOnly bool    `json:"httpOnly"`
	SameSite string  `json:"sameSite,omitempty"`
	HostOnly bool    `json:"hostOnly,omitempty"`
}

func (e *Entry) expired(now time.Time) bool {
	return e.Expires != 0 && float64(now.Unix()) >= e.Expires
}

// key identifies a cookie for replacement: same domain, path and name.
func (e *Entry) key() string {
	return strings.TrimPrefix(e.Domain, ".") + "\x00" + e.Path + "\x00" + e.Name
}

// Jar is the shared cookie store. Structural mutations are serialized;
// readers take the same lock briefly to snapshot matches.
type Jar struct {
	mu      sync.Mutex
	entries map[string]Entry
	path    string
	now     func() time.Time
}

// Open loads the jar from path and merges any pending import files.
// A missing main store starts empty; expired entries are dropped on load.
func Open(path string, imports ...string) (*Jar, error) {
	j := &Jar{
		entries: map[string]Entry{},
		path:    path,
		now:     time.Now,
	}
	if err := j.loadFile(path, false); err != nil {
		return nil, err
	}
	for _, imp := range imports {
		if err := j.loadFile(imp, true); err == nil {
			// One-way migration: the import file is consumed.
			os.Remove(imp)
		}
	}
	return j, nil
}

func (j *Jar) loadFile(path string, mustExist bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return nil
		}
		return err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	now := j.now()
	for _, e := range entries {
		if e.expired(now) || e.Name == "" || e.Domain == "" {
			continue
		}
		// EditThisCookie exports write domain cookies with a leading dot.
		if strings.HasPrefix(e.Domain, ".") {
			e.Domain = strings.TrimPrefix(e.Domain, ".")
			e.HostOnly = false
		}
		if e.Path == "" {
			e.Path = "/"
		}
		j.entries[e.key()] = e
	}
	return nil
}

// Flush writes the current unexpired entries to the main store. Call on
// process shutdown.
func (j *Jar) Flush() error {
	j.mu.Lock()
	entries := make([]Entry, 0, len(j.entries))
	now := j.now()
	for _, e := range j.entries {
		if !e.expired(now) {
			entries = append(entries, e)
		}
	}
	j.mu.Unlock()

	sort.Slice(entries, func(a, b int) bool { return entries[a].key() < entries[b].key() })
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, data, 0o600)
}

// SetCookies implements http.CookieJar. Cookies whose domain would be an
// entire public suffix are rejected.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	host := u.Hostname()
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		e := Entry{
			Domain:   host,
			Path:     c.Path,
			Name:     c.Name,
			Value:    c.Value,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			HostOnly: true,
		}
		if d := strings.TrimPrefix(c.Domain, "."); d != "" {
			if ps, _ := publicsuffix.PublicSuffix(d); ps == d {
				continue // supercookie attempt
			}
			if !domainMatch(host, d) {
				continue
			}
			e.Domain = d
			e.HostOnly = false
		}
		if e.Path == "" {
			e.Path = "/"
		}
		if !c.Expires.IsZero() {
			e.Expires = float64(c.Expires.Unix())
		} else if c.MaxAge > 0 {
			e.Expires = float64(j.now().Add(time.Duration(c.MaxAge) * time.Second).Unix())
		} else if c.MaxAge < 0 {
			delete(j.entries, e.key())
			continue
		}
		switch c.SameSite {
		case http.SameSiteStrictMode:
			e.SameSite = SameSiteStrict
		case http.SameSiteLaxMode:
			e.SameSite = SameSiteLax
		case http.SameSiteNoneMode:
			e.SameSite = SameSiteNone
		}
		if e.expired(j.now()) {
			delete(j.entries, e.key())
			continue
		}
		j.entries[e.key()] = e
	}
}

// Put inserts or replaces one entry directly. The headless transport uses
// this to fold cookies minted by the browser back into the shared jar.
func (j *Jar) Put(e Entry) {
	if e.Name == "" || e.Domain == "" {
		return
	}
	if strings.HasPrefix(e.Domain, ".") {
		e.Domain = strings.TrimPrefix(e.Domain, ".")
		e.HostOnly = false
	}
	if e.Path == "" {
		e.Path = "/"
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if e.expired(j.now()) {
		delete(j.entries, e.key())
		return
	}
	j.entries[e.key()] = e
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	var out []*http.Cookie
	for _, e := range j.Matching(u) {
		out = append(out, &http.Cookie{Name: e.Name, Value: e.Value})
	}
	return out
}

// Matching returns the unexpired entries applicable to u, longest path
// first. The headless transport converts these to CDP cookie params.
func (j *Jar) Matching(u *url.URL) []Entry {
	host := u.Hostname()
	secure := u.Scheme == "https"
	path := u.Path
	if path == "" {
		path = "/"
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	var out []Entry
	for _, e := range j.entries {
		if e.expired(now) {
			continue
		}
		if e.Secure && !secure {
			continue
		}
		if e.HostOnly {
			if !strings.EqualFold(host, e.Domain) {
				continue
			}
		} else if !domainMatch(host, e.Domain) {
			continue
		}
		if !pathMatch(path, e.Path) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool {
		if len(out[a].Path) != len(out[b].Path) {
			return len(out[a].Path) > len(out[b].Path)
		}
		return out[a].key() < out[b].key()
	})
	return out
}

// Len reports the number of stored entries.
func (j *Jar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

func domainMatch(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if strings.HasPrefix(reqPath, cookiePath) {
		return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
	}
	return false
}
