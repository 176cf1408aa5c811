// Package headless is the browser side of the scraper's dual transport.
//
// Sites behind Cloudflare or heavy client-side rendering cannot be read with
// a plain HTTP client, so those fetches run inside a shared headless Chrome.
// The browser starts lazily on first use, presents the same user agent and
// proxy as the HTTP transport, is seeded from the shared cookie jar before
// every navigation, and shuts itself down after a period of inactivity.
package headless

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/karoyqiu/avmeta/internal/cookiejar"
	"github.com/karoyqiu/avmeta/internal/httpclient"
)

const (
	// opTimeout bounds one navigation end to end.
	opTimeout = 60 * time.Second
	// idleShutdown closes the browser after this much inactivity.
	idleShutdown = 3 * time.Minute
)

// Page is a rendered document. URL is the final location after any
// redirects or client-side navigation.
type Page struct {
	URL  *url.URL
	Body []byte
}

// Option adjusts a single fetch.
type Option func(*fetchOpts)

type fetchOpts struct {
	waitVisible string
	extraWait   time.Duration
}

// WaitVisible blocks the fetch until sel is visible in the DOM.
func WaitVisible(sel string) Option {
	return func(o *fetchOpts) { o.waitVisible = sel }
}

// SettleFor adds a fixed delay after load, for pages that render content
// without a selector worth waiting on.
func SettleFor(d time.Duration) Option {
	return func(o *fetchOpts) { o.extraWait = d }
}

// Browser is the shared headless Chrome. The zero value is not usable;
// construct with New. Safe for concurrent use; navigations serialize.
type Browser struct {
	jar      *cookiejar.Jar
	proxyURL string

	mu     sync.Mutex
	cancel context.CancelFunc
	bctx   context.Context
	idle   *time.Timer
}

// New prepares a Browser bound to the shared cookie jar. proxyURL is the
// explicit proxy for the browser process, or "" for none. No process is
// started until the first fetch.
func New(jar *cookiejar.Jar, proxyURL string) *Browser {
	return &Browser{jar: jar, proxyURL: proxyURL}
}

// Get renders u and returns the final document. The shared cookie jar is
// seeded into the browser before navigation and browser cookies are folded
// back after.
func (b *Browser) Get(ctx context.Context, u string, opts ...Option) (*Page, error) {
	var fo fetchOpts
	for _, o := range opts {
		o(&fo)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bctx, err := b.ensure()
	if err != nil {
		return nil, err
	}

	tab, cancelTab := chromedp.NewContext(bctx)
	defer cancelTab()
	tab, cancelTimeout := context.WithTimeout(tab, opTimeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	actions := []chromedp.Action{
		b.seedCookies(u),
		chromedp.Navigate(u),
	}
	if fo.waitVisible != "" {
		actions = append(actions, chromedp.WaitVisible(fo.waitVisible, chromedp.ByQuery))
	}
	if fo.extraWait > 0 {
		actions = append(actions, chromedp.Sleep(fo.extraWait))
	}

	var html, location string
	actions = append(actions,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		b.exportCookies(),
	)

	if err := chromedp.Run(tab, actions...); err != nil {
		b.resetIdleLocked()
		return nil, err
	}
	b.resetIdleLocked()

	final, err := url.Parse(location)
	if err != nil || final.Host == "" {
		final, err = url.Parse(u)
		if err != nil {
			return nil, err
		}
	}
	return &Page{URL: final, Body: []byte(html)}, nil
}

// Close shuts the browser down if it is running.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownLocked()
}

// ensure starts the browser process if needed. Caller holds b.mu.
func (b *Browser) ensure() (context.Context, error) {
	if b.bctx != nil {
		return b.bctx, nil
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", "new"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(httpclient.UserAgent()),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if b.proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(b.proxyURL))
	}

	actx, acancel := chromedp.NewExecAllocator(context.Background(), opts...)
	bctx, bcancel := chromedp.NewContext(actx)

	// Launch eagerly so startup failures surface here, not mid-scrape.
	if err := chromedp.Run(bctx); err != nil {
		bcancel()
		acancel()
		return nil, err
	}

	log.Debug().Str("proxy", b.proxyURL).Msg("headless browser started")
	b.bctx = bctx
	b.cancel = func() {
		bcancel()
		acancel()
	}
	b.resetIdleLocked()
	return b.bctx, nil
}

func (b *Browser) resetIdleLocked() {
	if b.idle != nil {
		b.idle.Stop()
	}
	b.idle = time.AfterFunc(idleShutdown, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.shutdownLocked()
	})
}

func (b *Browser) shutdownLocked() {
	if b.idle != nil {
		b.idle.Stop()
		b.idle = nil
	}
	if b.cancel != nil {
		log.Debug().Msg("headless browser stopped")
		b.cancel()
		b.cancel = nil
		b.bctx = nil
	}
}

// seedCookies pushes the jar entries applicable to u into the browser.
func (b *Browser) seedCookies(u string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		target, err := url.Parse(u)
		if err != nil {
			return err
		}
		entries := b.jar.Matching(target)
		if len(entries) == 0 {
			return nil
		}
		params := make([]*network.CookieParam, 0, len(entries))
		for _, e := range entries {
			p := &network.CookieParam{
				Name:     e.Name,
				Value:    e.Value,
				Domain:   e.Domain,
				Path:     e.Path,
				Secure:   e.Secure,
				HTTPOnly: e.HTTPOnly,
				SameSite: toCDPSameSite(e.SameSite),
			}
			if e.Expires != 0 {
				t := cdp.TimeSinceEpoch(time.Unix(int64(e.Expires), 0))
				p.Expires = &t
			}
			params = append(params, p)
		}
		return storage.SetCookies(params).Do(ctx)
	})
}

// exportCookies folds the browser's cookies back into the shared jar, so
// challenge tokens minted during the visit benefit later HTTP fetches.
func (b *Browser) exportCookies() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			e := cookiejar.Entry{
				Domain:   c.Domain,
				Path:     c.Path,
				Name:     c.Name,
				Value:    c.Value,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
				SameSite: fromCDPSameSite(c.SameSite),
				HostOnly: !hasLeadingDot(c.Domain),
			}
			if c.Expires > 0 {
				e.Expires = c.Expires
			}
			b.jar.Put(e)
		}
		return nil
	})
}

func hasLeadingDot(domain string) bool {
	return len(domain) > 0 && domain[0] == '.'
}

func toCDPSameSite(s string) network.CookieSameSite {
	switch s {
	case cookiejar.SameSiteStrict:
		return network.CookieSameSiteStrict
	case cookiejar.SameSiteLax:
		return network.CookieSameSiteLax
	case cookiejar.SameSiteNone:
		return network.CookieSameSiteNone
	}
	return ""
}

func fromCDPSameSite(s network.CookieSameSite) string {
	switch s {
	case network.CookieSameSiteStrict:
		return cookiejar.SameSiteStrict
	case network.CookieSameSiteLax:
		return cookiejar.SameSiteLax
	case network.CookieSameSiteNone:
		return cookiejar.SameSiteNone
	}
	return ""
}
