// Package settings reads the small configuration surface the scraper core
// consumes from the external settings store, a JSON key/value file at
// <AppLocalData>/settings.json maintained by the embedding application.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/karoyqiu/avmeta/internal/appdir"
)

// Sentinel values of the proxy setting.
const (
	proxySystem = "<system>"
	proxyDirect = "<direct>"
)

// ErrMissing reports a requested key absent from the store.
var ErrMissing = errors.New("settings: key not found")

// Store is a read-only view of the settings file.
type Store struct {
	values map[string]json.RawMessage
}

// Load reads the settings file. A missing file is an empty store, not an
// error; the core must work with zero configuration.
func Load() (*Store, error) {
	path, err := appdir.File("settings.json")
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads a settings store from an explicit path.
func LoadFile(path string) (*Store, error) {
	s := &Store{values: map[string]json.RawMessage{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("settings: malformed %s: %w", path, err)
	}
	return s, nil
}

// String returns the string value for key, or ErrMissing.
func (s *Store) String(key string) (string, error) {
	raw, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissing, key)
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("settings: %s: %w", key, err)
	}
	return v, nil
}

// Proxy resolves the configured proxy into an http.Transport proxy func.
//
//	missing / "" / "<system>"  environment proxy
//	"<direct>"                 no proxy
//	anything else              explicit proxy URL
func (s *Store) Proxy() (func(*http.Request) (*url.URL, error), error) {
	v, err := s.String("proxy")
	if errors.Is(err, ErrMissing) {
		return http.ProxyFromEnvironment, nil
	}
	if err != nil {
		return nil, err
	}
	switch v {
	case "", proxySystem:
		return http.ProxyFromEnvironment, nil
	case proxyDirect:
		return nil, nil
	}
	u, err := url.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("settings: proxy: %w", err)
	}
	return http.ProxyURL(u), nil
}

// ProxyURL returns the explicit proxy URL string, or "" when the system or
// direct modes are configured. The headless transport passes this to the
// browser process.
func (s *Store) ProxyURL() string {
	v, err := s.String("proxy")
	if err != nil || v == "" || v == proxySystem || v == proxyDirect {
		return ""
	}
	return v
}
