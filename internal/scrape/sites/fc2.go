package sites

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/karoyqiu/avmeta/internal/scrape"
	"github.com/karoyqiu/avmeta/internal/video"
)

var fc2DateRe = regexp.MustCompile(`\d+/\d+/\d+`)

// fc2 reads the official FC2 marketplace article page.
type fc2 struct{}

func (fc2) Name() string     { return "fc2" }
func (fc2) Language() string { return "ja" }

func (fc2) PageURL(c string) (string, error) {
	return "https://adult.contents.fc2.com/article/" + fc2Number.Replace(c) + "/", nil
}

func (fc2) NextPage(string, *scrape.Page) (string, scrape.Hints, error) {
	return "", scrape.Hints{}, nil
}

// Title comes from the ld+json block; the visible heading mixes in seller
// banners.
func (fc2) Title(_ string, page *scrape.Page) (string, error) {
	doc, err := page.Doc()
	if err != nil {
		return "", err
	}
	var name struct {
		Name string `json:"name"`
	}
	text := doc.Find(`script[type="application/ld+json"]`).First().Text()
	if err := json.Unmarshal([]byte(text), &name); err != nil {
		return "", err
	}
	return name.Name, nil
}

func (fc2) Info(c string, page *scrape.Page) video.Info {
	info := video.Info{Code: c}
	doc, err := page.Doc()
	if err != nil {
		return info
	}

	if src, ok := doc.Find("div.items_article_MainitemThumb img").First().Attr("src"); ok {
		info.Poster = src
	}
	if href, ok := doc.Find("ul.items_article_SampleImagesArea a").First().Attr("href"); ok {
		info.Cover = href
	}

	doc.Find("a.tag.tagTag").Each(func(_ int, s *goquery.Selection) {
		info.Tags = append(info.Tags, strings.TrimSpace(s.Text()))
	})

	info.Studio = strings.TrimSpace(
		doc.Find("div.items_article_headerInfo > ul li:last-of-type > a").First().Text())

	release := doc.Find("div.items_article_Releasedate p").First().Text()
	if m := fc2DateRe.FindString(release); m != "" {
		info.ReleaseDate = scrape.ParseDate(m)
	}

	var fanart []string
	doc.Find("ul.items_article_SampleImagesArea a").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			fanart = append(fanart, href)
		}
	})
	if len(fanart) > 1 {
		info.ExtraFanart = fanart[1:]
	}
	return info
}
