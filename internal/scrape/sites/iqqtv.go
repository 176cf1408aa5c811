package sites

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/karoyqiu/avmeta/internal/scrape"
	"github.com/karoyqiu/avmeta/internal/video"
)

// iqqtv parses the Chinese-language iqq catalog. The search card carries a
// runtime the detail page lacks, so NextPage passes it along as a hint.
type iqqtv struct{}

func (iqqtv) Name() string     { return "iqqtv" }
func (iqqtv) Language() string { return "zh-CN" }

func (iqqtv) PageURL(c string) (string, error) {
	return "https://iqq5.xyz/cn/search.php?kw_type=key&kw=" + c, nil
}

func (iqqtv) NextPage(c string, page *scrape.Page) (string, scrape.Hints, error) {
	if !strings.Contains(page.URL.Path, "search.php") {
		return "", scrape.Hints{}, nil
	}
	doc, err := page.Doc()
	if err != nil {
		return "", scrape.Hints{}, err
	}

	var href string
	var hints scrape.Hints
	doc.Find("span.title").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, c) || isCracked(text) {
			return true
		}
		h, ok := s.Find("a").First().Attr("href")
		if !ok {
			return true
		}
		href = h
		// The runtime lives on the surrounding card, two levels up.
		t := s.Parent().Parent().Find("span.video-time").First().Text()
		hints.Duration = scrape.ParseDuration(t)
		return false
	})
	if href == "" {
		return "", scrape.Hints{}, errNoResult(c)
	}
	return href, hints, nil
}

func isCracked(text string) bool {
	for _, marker := range append(crackedMarkers, "无码流出", "無碼流出") {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func (iqqtv) Title(_ string, page *scrape.Page) (string, error) {
	doc, err := page.Doc()
	if err != nil {
		return "", err
	}
	return doc.Find("h1.h4.b").First().Text(), nil
}

func (iqqtv) Info(c string, page *scrape.Page) video.Info {
	info := video.Info{Code: c, Duration: page.Hints.Duration}
	doc, err := page.Doc()
	if err != nil {
		return info
	}

	if cover, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		info.Cover = cover
	}

	if intro := doc.Find("div.intro").First().Text(); intro != "" {
		text := strings.NewReplacer("简介：", "", "簡介：", "").Replace(intro)
		if text = strings.TrimSpace(text); text != "" {
			t := video.Text(text)
			info.Outline = &t
		}
	}

	doc.Find("div.tag-info > a[href*='actor']").Each(func(_ int, s *goquery.Selection) {
		info.Actresses = append(info.Actresses, video.Actress{Name: strings.TrimSpace(s.Text())})
	})
	doc.Find("div.tag-info > a[href*='tag']").Each(func(_ int, s *goquery.Selection) {
		info.Tags = append(info.Tags, strings.TrimSpace(s.Text()))
	})

	info.Series = strings.TrimSpace(doc.Find("a[href*='series']").First().Text())
	info.Studio = strings.TrimSpace(doc.Find("div.company").First().Text())
	info.ReleaseDate = scrape.ParseDate(doc.Find("div.date").First().Text())

	doc.Find("div.cover img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("data-src"); ok {
			info.ExtraFanart = append(info.ExtraFanart, src)
		}
	})
	return info
}
