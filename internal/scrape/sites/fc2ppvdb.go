package sites

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/karoyqiu/avmeta/internal/headless"
	"github.com/karoyqiu/avmeta/internal/scrape"
	"github.com/karoyqiu/avmeta/internal/video"
)

// fc2Number strips the family markers down to the bare article number.
// The longest marker goes first so "FC2-PPV-123" is not left as "PPV-123".
var fc2Number = strings.NewReplacer("FC2-PPV-", "", "FC2PPV", "", "FC2-", "", "-", "")

// fc2ppvdb reads the community database for FC2 articles. The site sits
// behind Cloudflare intermittently, so a browser-rendered variant backs it.
type fc2ppvdb struct{}

func (fc2ppvdb) Name() string     { return "fc2ppvdb" }
func (fc2ppvdb) Language() string { return "ja" }

func (fc2ppvdb) PageURL(c string) (string, error) {
	return "https://fc2ppvdb.com/articles/" + fc2Number.Replace(c), nil
}

func (fc2ppvdb) NextPage(string, *scrape.Page) (string, scrape.Hints, error) {
	return "", scrape.Hints{}, nil
}

func (fc2ppvdb) Title(_ string, page *scrape.Page) (string, error) {
	doc, err := page.Doc()
	if err != nil {
		return "", err
	}
	return doc.Find("h2 > a").First().Text(), nil
}

func (fc2ppvdb) Info(c string, page *scrape.Page) video.Info {
	info := video.Info{Code: c}
	doc, err := page.Doc()
	if err != nil {
		return info
	}

	if poster, ok := doc.Find("main img").First().Attr("src"); ok {
		info.Poster = strings.TrimSpace(poster)
	}

	// The detail block is the h2's parent; its divs are label-prefixed lines.
	doc.Find("h2").First().Parent().Find("div").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		switch {
		case strings.HasPrefix(text, "販売者："):
			info.Publisher = strings.TrimSpace(strings.TrimPrefix(text, "販売者："))
		case strings.HasPrefix(text, "販売日："):
			info.ReleaseDate = scrape.ParseDate(strings.TrimPrefix(text, "販売日："))
		case strings.HasPrefix(text, "収録時間："):
			info.Duration = scrape.ParseDuration(strings.TrimPrefix(text, "収録時間："))
		case strings.HasPrefix(text, "タグ："):
			var tags []string
			s.Find("a[href^='/tags/']").Each(func(_ int, a *goquery.Selection) {
				tags = append(tags, strings.TrimSpace(a.Text()))
			})
			if len(tags) > 0 {
				info.Tags = tags
			}
		}
	})

	doc.Find("a[href^='/actresses/']").Each(func(_ int, s *goquery.Selection) {
		img := s.Find("img").First()
		if img.Length() == 0 {
			return
		}
		name, _ := s.Attr("title")
		if name == "" {
			return
		}
		photo, _ := img.Attr("src")
		info.Actresses = append(info.Actresses, video.Actress{
			Name:  name,
			Photo: strings.TrimSpace(photo),
		})
	})
	return info
}

func (fc2ppvdb) Headless() scrape.Source { return fc2ppvdbHeadless{} }

// fc2ppvdbHeadless renders the same pages in the shared browser, which
// passes the Cloudflare challenge the plain client cannot.
type fc2ppvdbHeadless struct{ fc2ppvdb }

func (fc2ppvdbHeadless) Name() string { return "fc2ppvdb-headless" }

func (fc2ppvdbHeadless) BrowserOptions() []headless.Option {
	return []headless.Option{headless.WaitVisible("h2")}
}
