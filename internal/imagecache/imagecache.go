// Package imagecache fetches cover and poster images and caches them as
// data URLs, weighted by encoded size so the cache holds roughly a fixed
// byte budget rather than a fixed item count.
package imagecache

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"

	"github.com/karoyqiu/avmeta/internal/httpclient"
)

// maxBytes is the approximate total budget of cached data URLs.
const maxBytes = 128 << 20

// Cache is a read-through image cache. Concurrent requests for the same URL
// coalesce into one fetch; failures are returned but never cached.
type Cache struct {
	client *httpclient.Client
	cache  *ristretto.Cache[string, string]
	group  singleflight.Group
}

// New builds a Cache over the shared HTTP transport.
func New(client *httpclient.Client) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 1 << 14,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{client: client, cache: c}, nil
}

// Get returns the image at url as a data URL, from cache when possible.
//
// The underlying fetch is detached from ctx: when several callers wait on
// the same URL and one cancels, the fetch completes for the rest. Only the
// canceled caller sees its context error.
func (c *Cache) Get(ctx context.Context, url string) (string, error) {
	if v, ok := c.cache.Get(url); ok {
		return v, nil
	}

	ch := c.group.DoChan(url, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.Background(), httpclient.DefaultTimeout)
		defer cancel()
		return c.fetch(fctx, url)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Cache) fetch(ctx context.Context, url string) (string, error) {
	page, err := c.client.Get(ctx, url)
	if err != nil {
		return "", err
	}
	du, err := encode(page.ContentType, page.Body)
	if err != nil {
		return "", err
	}
	c.cache.Set(url, du, int64(len(du)))
	return du, nil
}

// Close releases the cache's internal goroutines.
func (c *Cache) Close() {
	c.cache.Close()
}

// Wait blocks until pending cache writes are applied. Tests use this to
// observe a Set.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// encode renders raw image bytes as a data URL. The content type comes from
// the response header, falling back to sniffing.
func encode(contentType string, body []byte) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("imagecache: empty image body")
	}
	ct := contentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(ct)
	if ct == "" || !strings.HasPrefix(ct, "image/") {
		ct = http.DetectContentType(body)
	}
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("imagecache: not an image: %s", ct)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}
