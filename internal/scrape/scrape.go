// Package scrape drives metadata collection for one normalized code across
// an ordered list of per-site sources, merging partial results until the
// accumulated record is good enough.
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/karoyqiu/avmeta/internal/headless"
	"github.com/karoyqiu/avmeta/internal/httpclient"
	"github.com/karoyqiu/avmeta/internal/translate"
	"github.com/karoyqiu/avmeta/internal/video"
)

// maxHops bounds search-page to detail-page redirection per source, so a
// site returning circular "next" links cannot loop the crawl.
const maxHops = 3

// Hints carry values gleaned from a search page into the detail-page parse,
// scoped to the single request that produced them.
type Hints struct {
	// Duration in seconds, when the search card shows a runtime the detail
	// page does not.
	Duration int64
	// Poster captured from a search result card.
	Poster string
}

func (h Hints) merge(other Hints) Hints {
	if h.Duration == 0 {
		h.Duration = other.Duration
	}
	if h.Poster == "" {
		h.Poster = other.Poster
	}
	return h
}

// Page is one fetched document handed to a source.
type Page struct {
	// URL is the final landing URL; relative links resolve against it.
	URL   *url.URL
	Body  []byte
	Hints Hints

	doc *goquery.Document
}

// Doc parses the body as HTML once and memoizes the result.
func (p *Page) Doc() (*goquery.Document, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, err
	}
	p.doc = doc
	return doc, nil
}

// Abs resolves ref against the page's landing URL.
func (p *Page) Abs(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || p.URL == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return p.URL.ResolveReference(u).String()
}

// Source is one site adapter. PageURL builds the entry URL for a code;
// NextPage resolves search pages toward the detail page, returning "" when
// the current page is the detail page; Title must succeed for the source to
// count; Info extracts whatever optional fields the page offers.
type Source interface {
	Name() string
	Language() string
	PageURL(code string) (string, error)
	NextPage(code string, page *Page) (string, Hints, error)
	Title(code string, page *Page) (string, error)
	Info(code string, page *Page) video.Info
}

// HeadlessFallback is implemented by sources with a browser-rendered
// variant, tried when the HTTP variant fails with a transport error.
type HeadlessFallback interface {
	Headless() Source
}

// BrowserRendered marks a source whose pages must come from the headless
// transport. Opts apply to every fetch.
type BrowserRendered interface {
	BrowserOptions() []headless.Option
}

// Gated is implemented by sources whose detail pages may hide behind a
// confirmation form. When Gate reports a form, the framework POSTs it to
// the same URL and re-parses; a second gate fails the source.
type Gated interface {
	Gate(page *Page) (url.Values, bool)
}

// Env bundles the shared transports a crawl runs over.
type Env struct {
	HTTP       *httpclient.Client
	Browser    *headless.Browser
	Translator *translate.Translator
}

var errTooManyHops = errors.New("scrape: next-page chain too long")

// Crawl runs one source for one code and returns its partial record.
// The record's relative image URLs are already absolutized and, for
// non-Chinese sources, title and outline carry best-effort translations.
func Crawl(ctx context.Context, env *Env, src Source, code string) (*video.Info, error) {
	info, err := crawl(ctx, env, src, code)
	if err == nil {
		return info, nil
	}

	// Transport trouble with an HTTP source: try the browser variant.
	fb, ok := src.(HeadlessFallback)
	if ok && isTransportError(err) {
		hs := fb.Headless()
		log.Debug().Str("site", src.Name()).Err(err).Msg("retrying via headless variant")
		return crawl(ctx, env, hs, code)
	}
	return nil, err
}

func crawl(ctx context.Context, env *Env, src Source, code string) (*video.Info, error) {
	start, err := src.PageURL(code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name(), err)
	}

	page, err := fetch(ctx, env, src, start)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name(), err)
	}
	if page, err = passGate(ctx, env, src, page); err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name(), err)
	}

	var hints Hints
	for hop := 0; ; hop++ {
		next, h, err := src.NextPage(code, page)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Name(), err)
		}
		if next == "" {
			break
		}
		if hop >= maxHops {
			return nil, fmt.Errorf("%s: %w", src.Name(), errTooManyHops)
		}
		hints = hints.merge(h)
		if page, err = fetch(ctx, env, src, page.Abs(next)); err != nil {
			return nil, fmt.Errorf("%s: %w", src.Name(), err)
		}
		if page, err = passGate(ctx, env, src, page); err != nil {
			return nil, fmt.Errorf("%s: %w", src.Name(), err)
		}
		page.Hints = hints
	}

	title, err := src.Title(code, page)
	title = strings.TrimSpace(title)
	if err != nil || title == "" {
		if err == nil {
			err = errors.New("empty title")
		}
		return nil, fmt.Errorf("%s: title: %w", src.Name(), err)
	}

	info := src.Info(code, page)
	info.Title.Text = title
	if info.Code == "" {
		info.Code = code
	}
	absolutize(&info, page)
	translateInfo(ctx, env.Translator, src, &info)
	return &info, nil
}

func fetch(ctx context.Context, env *Env, src Source, u string) (*Page, error) {
	if br, ok := src.(BrowserRendered); ok {
		if env.Browser == nil {
			return nil, errors.New("headless transport unavailable")
		}
		p, err := env.Browser.Get(ctx, u, br.BrowserOptions()...)
		if err != nil {
			return nil, err
		}
		return &Page{URL: p.URL, Body: p.Body}, nil
	}
	p, err := env.HTTP.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	return &Page{URL: p.URL, Body: p.Body}, nil
}

func passGate(ctx context.Context, env *Env, src Source, page *Page) (*Page, error) {
	g, ok := src.(Gated)
	if !ok {
		return page, nil
	}
	form, gated := g.Gate(page)
	if !gated {
		return page, nil
	}
	p, err := env.HTTP.PostForm(ctx, page.URL.String(), form)
	if err != nil {
		return nil, err
	}
	next := &Page{URL: p.URL, Body: p.Body, Hints: page.Hints}
	if _, still := g.Gate(next); still {
		return nil, &httpclient.StatusError{URL: page.URL.String(), Status: 403}
	}
	return next, nil
}

// isTransportError distinguishes failures worth a headless retry from
// parse-level failures that a browser would not fix.
func isTransportError(err error) bool {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(err.Error(), "connection") ||
		strings.Contains(err.Error(), "EOF")
}

// absolutize resolves every image URL in info against the landing URL.
func absolutize(info *video.Info, page *Page) {
	info.Poster = page.Abs(info.Poster)
	info.Cover = page.Abs(info.Cover)
	for i := range info.Actresses {
		info.Actresses[i].Photo = page.Abs(info.Actresses[i].Photo)
	}
	for i := range info.ExtraFanart {
		info.ExtraFanart[i] = page.Abs(info.ExtraFanart[i])
	}
}

// translateInfo fills the translated sub-fields of title and outline for
// sources not already in the library language. Failures leave them empty.
func translateInfo(ctx context.Context, tr *translate.Translator, src Source, info *video.Info) {
	if tr == nil || strings.HasPrefix(src.Language(), "zh") {
		return
	}
	if info.Title.Text != "" && info.Title.Translated == "" {
		if t, err := tr.Translate(ctx, info.Title.Text); err == nil {
			info.Title.Translated = t
		}
	}
	if info.Outline != nil && info.Outline.Text != "" && info.Outline.Translated == "" {
		if t, err := tr.Translate(ctx, info.Outline.Text); err == nil {
			info.Outline.Translated = t
		}
	}
}

// ── parsing helpers shared by the site adapters ──

var dateLayouts = []string{"2006-01-02", "2006/1/2", "2006年01月02日", "2006年1月2日"}

// ParseDate reads a date-only string in any of the observed site formats
// and returns the Unix epoch of local midnight, or 0.
func ParseDate(s string) int64 {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.Unix()
		}
	}
	return 0
}

// ParseDuration reads "HH:MM:SS" or "MM:SS" and returns seconds, or 0.
func ParseDuration(s string) int64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	var total int64
	for _, p := range parts {
		n, err := parseInt(p)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty number")
	}
	var n int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
		n = n*10 + int64(r-'0')
	}
	return n, nil
}

// ParseMinutes reads a leading integer minute count ("120分", "90min") and
// returns seconds, or 0.
func ParseMinutes(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := parseInt(s[:end])
	if err != nil {
		return 0
	}
	return n * 60
}
