package sites

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/karoyqiu/avmeta/internal/scrape"
	"github.com/karoyqiu/avmeta/internal/video"
)

// regionGateSentinel appears in the interstitial javbus serves to some
// regions; POSTing the confirmation form once gets past it.
const regionGateSentinel = "地區年齡檢測"

// javbus fetches the detail page directly by code.
type javbus struct{}

func (javbus) Name() string     { return "javbus" }
func (javbus) Language() string { return "ja" }

func (javbus) PageURL(c string) (string, error) {
	return "https://www.javbus.com/" + c, nil
}

func (javbus) Gate(page *scrape.Page) (url.Values, bool) {
	if strings.Contains(string(page.Body), regionGateSentinel) {
		return url.Values{"submit": {"確認"}}, true
	}
	return nil, false
}

func (javbus) NextPage(string, *scrape.Page) (string, scrape.Hints, error) {
	return "", scrape.Hints{}, nil
}

// Title drops the leading code from the h3 heading.
func (javbus) Title(code string, page *scrape.Page) (string, error) {
	doc, err := page.Doc()
	if err != nil {
		return "", err
	}
	title := doc.Find("h3").First().Text()
	return strings.TrimSpace(strings.ReplaceAll(title, code, "")), nil
}

func (javbus) Info(c string, page *scrape.Page) video.Info {
	info := video.Info{Code: c}
	doc, err := page.Doc()
	if err != nil {
		return info
	}

	if cover, ok := doc.Find("a.bigImage img").First().Attr("src"); ok {
		info.Cover = cover
	}

	// The info panel is a run of <p><span class="header">label</span> value</p>.
	doc.Find("div.info p").Each(func(_ int, s *goquery.Selection) {
		header := s.Find("span.header").First().Text()
		value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s.Text()), strings.TrimSpace(header)))
		switch {
		case strings.Contains(header, "發行日期"):
			info.ReleaseDate = scrape.ParseDate(value)
		case strings.Contains(header, "長度"):
			info.Duration = scrape.ParseMinutes(value)
		case strings.Contains(header, "導演"):
			info.Director = value
		case strings.Contains(header, "製作商"):
			info.Studio = value
		case strings.Contains(header, "發行商"):
			info.Publisher = value
		case strings.Contains(header, "系列"):
			info.Series = value
		}
	})

	doc.Find("span.genre a[href*='/genre/']").Each(func(_ int, s *goquery.Selection) {
		info.Tags = append(info.Tags, strings.TrimSpace(s.Text()))
	})

	// An actress card pairs div.star-name with the portrait img above it.
	doc.Find("div.star-name").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a").First()
		name := strings.TrimSpace(a.Text())
		if name == "" {
			return
		}
		actress := video.Actress{Name: name}
		if img := s.Parent().Find("img").First(); img.Length() > 0 {
			if src, ok := img.Attr("src"); ok {
				actress.Photo = src
			}
		}
		info.Actresses = append(info.Actresses, actress)
	})

	// The first sample is the cover again; keep the rest.
	var fanart []string
	doc.Find("a.sample-box").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			fanart = append(fanart, href)
		}
	})
	if len(fanart) > 1 {
		info.ExtraFanart = fanart[1:]
	}
	return info
}
