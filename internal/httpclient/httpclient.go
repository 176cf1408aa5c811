// Package httpclient is the HTTP side of the scraper's dual transport.
//
// Every request goes out with the header profile of a modern desktop
// browser, the shared persistent cookie jar, the proxy configured in the
// external settings store, and per-host pacing. Some hosts require a fixed
// Referer to serve images or search results; those rules live here so the
// per-site parsers stay free of transport concerns.
package httpclient

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds one request end to end.
	DefaultTimeout = 30 * time.Second

	defaultIdleConnTimeout = 90 * time.Second
	maxIdleConnsPerHost    = 16

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
)

// UserAgent is shared with the headless transport so both present the same
// browser identity.
func UserAgent() string { return userAgent }

// defaultHeaders mirror a desktop Chrome navigation request.
var defaultHeaders = map[string]string{
	"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9," +
		"image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "zh-CN,zh;q=0.9,ja;q=0.8,en;q=0.7",
	"Accept-Encoding":           "gzip, br",
	"DNT":                       "1",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Ch-Ua":                 `"Not/A)Brand";v="8", "Chromium";v="126", "Google Chrome";v="126"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"Windows"`,
	"User-Agent":                userAgent,
}

// refererRules attach a fixed Referer when the target host matches.
// giga search requires one but its cookie_set endpoint must not see it.
var refererRules = []struct {
	hostContains string
	exceptPath   string
	referer      string
}{
	{"getchu", "", "http://www.getchu.com/top.html"},
	{"xcity", "", "https://xcity.jp/result_published/?genre=%2Fresult_published%2F&q=2&sg=main&num=60"},
	{"javbus", "", "https://www.javbus.com/"},
	{"giga", "cookie_set.php", "https://www.giga-web.jp/top.html"},
}

// StatusError is a non-2xx response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.Status, e.URL)
}

// Page is a fetched document. URL is the final landing URL after redirects;
// relative links in Body resolve against it.
type Page struct {
	URL         *url.URL
	Status      int
	ContentType string
	Body        []byte
}

// Client is the shared scraping HTTP client.
type Client struct {
	hc *http.Client

	mu     sync.Mutex
	pacers map[string]*rate.Limiter
}

// New builds a Client bound to the shared cookie jar and proxy selection.
// proxy follows http.Transport.Proxy semantics; nil means direct.
func New(jar http.CookieJar, proxy func(*http.Request) (*url.URL, error)) *Client {
	t := &http.Transport{
		Proxy:               proxy,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		// Accept-Encoding is set explicitly below, so transparent gzip is
		// off and both gzip and brotli are decoded here.
		DisableCompression: true,
	}
	return &Client{
		hc: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: t,
			Jar:       jar,
		},
		pacers: map[string]*rate.Limiter{},
	}
}

// pacer returns the per-host limiter: one request per 500ms with a small
// burst, enough to stay polite without slowing a single query down.
func (c *Client) pacer(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.pacers[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(500*time.Millisecond), 2)
		c.pacers[host] = l
	}
	return l
}

// Get fetches u and returns the decoded page. Non-2xx statuses produce a
// *StatusError with the body discarded.
func (c *Client) Get(ctx context.Context, u string) (*Page, error) {
	return c.do(ctx, http.MethodGet, u, "", "")
}

// PostForm sends an URL-encoded form, used for region-gate confirmations.
func (c *Client) PostForm(ctx context.Context, u string, form url.Values) (*Page, error) {
	return c.do(ctx, http.MethodPost, u,
		"application/x-www-form-urlencoded", form.Encode())
}

func (c *Client) do(ctx context.Context, method, u, contentType, body string) (*Page, error) {
	resp, err := c.send(ctx, method, u, contentType, body)
	if err != nil {
		return nil, err
	}

	// One retry on throttling or a transient server error.
	if delay, ok := defaultRetryPolicy.retryDelay(resp.StatusCode, resp.Header.Get("Retry-After")); ok {
		drain(resp)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		if resp, err = c.send(ctx, method, u, contentType, body); err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: u, Status: resp.StatusCode}
	}

	r, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &Page{
		URL:         resp.Request.URL,
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

func (c *Client) send(ctx context.Context, method, u, contentType, body string) (*http.Response, error) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	applyReferer(req)

	if err := c.pacer(req.URL.Hostname()).Wait(ctx); err != nil {
		return nil, err
	}
	return c.hc.Do(req)
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip":
		return gzip.NewReader(resp.Body)
	default:
		return resp.Body, nil
	}
}

func applyReferer(req *http.Request) {
	host := req.URL.Hostname()
	for _, r := range refererRules {
		if !strings.Contains(host, r.hostContains) {
			continue
		}
		if r.exceptPath != "" && strings.Contains(req.URL.Path, r.exceptPath) {
			continue
		}
		req.Header.Set("Referer", r.referer)
		return
	}
}
