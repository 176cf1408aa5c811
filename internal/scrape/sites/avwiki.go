package sites

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/karoyqiu/avmeta/internal/scrape"
	"github.com/karoyqiu/avmeta/internal/video"
)

func errNoResult(code string) error {
	return fmt.Errorf("no usable search result for %s", code)
}

// avwiki is consulted only when the main merge leaves actresses empty; it
// indexes performer credits for works the other sites list anonymously.
type avwiki struct{}

func (avwiki) Name() string     { return "avwiki" }
func (avwiki) Language() string { return "ja" }

func (avwiki) PageURL(c string) (string, error) {
	return "https://av-wiki.net/?s=" + c + "&post_type=product", nil
}

func (avwiki) NextPage(c string, page *scrape.Page) (string, scrape.Hints, error) {
	if page.URL.Path != "/" {
		return "", scrape.Hints{}, nil
	}
	doc, err := page.Doc()
	if err != nil {
		return "", scrape.Hints{}, err
	}
	href, ok := doc.Find("article").First().Find("div.read-more > a").First().Attr("href")
	if !ok {
		return "", scrape.Hints{}, errNoResult(c)
	}
	return href, scrape.Hints{}, nil
}

func (avwiki) Title(_ string, page *scrape.Page) (string, error) {
	doc, err := page.Doc()
	if err != nil {
		return "", err
	}
	return doc.Find("h1").First().Text(), nil
}

func (avwiki) Info(c string, page *scrape.Page) video.Info {
	info := video.Info{Code: c}
	doc, err := page.Doc()
	if err != nil {
		return info
	}
	doc.Find("dl > dd > a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !strings.Contains(href, "/av-actress/") || strings.Contains(href, "/unknown/") {
			return
		}
		info.Actresses = append(info.Actresses, video.Actress{Name: strings.TrimSpace(s.Text())})
	})
	return info
}

// Enricher adapts avwiki to the pipeline's late-stage actress lookup.
type Enricher struct {
	env *scrape.Env
}

// NewEnricher builds the avwiki-backed enricher.
func NewEnricher(env *scrape.Env) *Enricher {
	return &Enricher{env: env}
}

// Actresses crawls avwiki for the code and returns its performer credits.
func (e *Enricher) Actresses(ctx context.Context, code string) ([]video.Actress, error) {
	info, err := scrape.Crawl(ctx, e.env, avwiki{}, code)
	if err != nil {
		return nil, err
	}
	return info.Actresses, nil
}
