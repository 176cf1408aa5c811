package sites

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/karoyqiu/avmeta/internal/headless"
	"github.com/karoyqiu/avmeta/internal/scrape"
	"github.com/karoyqiu/avmeta/internal/video"
)

// crackedMarkers flag search results that are re-encodes of somebody
// else's release, not the work itself.
var crackedMarkers = []string{"克破", "无码破解", "無碼破解"}

var airavDateRe = regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}`)

// airav parses the Chinese-language airav.io catalog. Cloudflare blocks
// the plain client at times, so a browser-rendered variant backs it.
type airav struct{}

func (airav) Name() string     { return "airav_cc" }
func (airav) Language() string { return "zh-TW" }

func (airav) PageURL(c string) (string, error) {
	return "https://airav.io/search_result?kw=" + c, nil
}

func (airav) NextPage(c string, page *scrape.Page) (string, scrape.Hints, error) {
	if !strings.Contains(page.URL.Path, "search_result") {
		return "", scrape.Hints{}, nil
	}
	doc, err := page.Doc()
	if err != nil {
		return "", scrape.Hints{}, err
	}
	href := airavPickCard(doc, false)
	if href == "" {
		return "", scrape.Hints{}, errNoResult(c)
	}
	return href, scrape.Hints{}, nil
}

// airavPickCard returns the first search card that is not a cracked
// re-encode; with fallback, the first card of any kind.
func airavPickCard(doc *goquery.Document, fallback bool) string {
	var href, first string
	doc.Find("div.col.oneVideo").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h, ok := s.Find("a").First().Attr("href")
		if !ok {
			return true
		}
		if first == "" {
			first = h
		}
		text := s.Find("h5").First().Text()
		for _, marker := range crackedMarkers {
			if strings.Contains(text, marker) {
				return true
			}
		}
		href = h
		return false
	})
	if href == "" && fallback {
		return first
	}
	return href
}

func (airav) Title(_ string, page *scrape.Page) (string, error) {
	doc, err := page.Doc()
	if err != nil {
		return "", err
	}
	return doc.Find("h1").First().Text(), nil
}

func (airav) Info(c string, page *scrape.Page) video.Info {
	info := video.Info{Code: c}
	doc, err := page.Doc()
	if err != nil {
		return info
	}

	var vo struct {
		ThumbnailURL string `json:"thumbnailUrl"`
	}
	script := doc.Find(`script[type="application/ld+json"]`).First().Text()
	if err := json.Unmarshal([]byte(strings.TrimSpace(script)), &vo); err == nil {
		info.Cover = vo.ThumbnailURL
	}

	if outline := strings.TrimSpace(doc.Find("div.video-info > p").First().Text()); outline != "" {
		t := video.Text(outline)
		info.Outline = &t
	}

	for _, name := range labelItems(doc, "女優") {
		info.Actresses = append(info.Actresses, video.Actress{Name: name})
	}
	info.Tags = labelItems(doc, "標籤")
	if series := labelItems(doc, "系列"); len(series) > 0 {
		info.Series = series[len(series)-1]
	}
	if studios := labelItems(doc, "廠商"); len(studios) > 0 {
		info.Studio = studios[len(studios)-1]
	}

	// The release date sits next to a clock icon.
	clock := doc.Find("i.fa.fa-clock").First()
	if clock.Length() > 0 {
		if m := airavDateRe.FindString(clock.Parent().Text()); m != "" {
			info.ReleaseDate = scrape.ParseDate(m)
		}
	}
	return info
}

// labelItems collects the link texts of the list item starting with label.
func labelItems(doc *goquery.Document, label string) []string {
	var items []string
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		if !strings.HasPrefix(strings.TrimSpace(s.Text()), label) {
			return
		}
		s.Find("a").Each(func(_ int, a *goquery.Selection) {
			text := strings.TrimSpace(a.Text())
			if text != "" && !strings.Contains(text, label) {
				items = append(items, text)
			}
		})
	})
	return items
}

func (airav) Headless() scrape.Source { return airavHeadless{} }

// airavHeadless renders through the shared browser. Unlike the HTTP
// variant it falls back to the first search card when every card looks
// cracked, mirroring how a human would click through anyway.
type airavHeadless struct{ airav }

func (airavHeadless) Name() string { return "airav_cc-headless" }

func (airavHeadless) BrowserOptions() []headless.Option {
	return []headless.Option{headless.WaitVisible("div.oneVideo, h1")}
}

func (airavHeadless) NextPage(c string, page *scrape.Page) (string, scrape.Hints, error) {
	if !strings.Contains(page.URL.Path, "search_result") {
		return "", scrape.Hints{}, nil
	}
	doc, err := page.Doc()
	if err != nil {
		return "", scrape.Hints{}, err
	}
	href := airavPickCard(doc, true)
	if href == "" {
		return "", scrape.Hints{}, errNoResult(c)
	}
	return href, scrape.Hints{}, nil
}
