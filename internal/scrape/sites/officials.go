// Package sites holds the per-site source adapters and their registry.
package sites

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/karoyqiu/avmeta/internal/code"
	"github.com/karoyqiu/avmeta/internal/scrape"
	"github.com/karoyqiu/avmeta/internal/video"
)

// officialSites maps a label prefix to the studio's own site. Official
// pages share one page template, so a single adapter covers all of them.
var officialSites = buildOfficialSites([]struct {
	base     string
	prefixes string
}{
	{"https://s1s1s1.com", "SIVR|SSIS|SSNI|SNIS|SOE|ONED|ONE|ONSD|OFJE|SPS|TKSOE"},
	{"https://moodyz.com", "MDVR|MIDV|MIDE|MIDD|MIBD|MIMK|MIID|MIGD|MIFD|MIAE|MIAD|MIAA|MDL|MDJ|MDI|MDG|MDF|MDE|MDLD|MDED|MIZD|MIRD|MDJD|RMID|MDID|MDMD|MIMU|MDPD|MIVD|MDUD|MDGD|MDVD|MIAS|MIQD|MINT|RMPD|MDRD|TKMIDE|TKMIDD|KMIDE|TKMIGD|MDFD|RMWD|MIAB"},
	{"https://www.madonna-av.com", "JUVR|JUSD|JUQ|JUY|JUX|JUL|JUK|JUC|JUKD|OBA|JUFD|ROEB|ROE|URE|MDON|JFB|OBE|JUMS"},
	{"https://www.wanz-factory.com", "WAVR|WAAA|BMW|WANZ"},
	{"https://ideapocket.com", "IPVR|IPX|IPZ|IPTD|IPSD|IDBD|SUPD|IPIT|AND|HPD|TKIPZ|IPZZ|COSD|ANPD|DAN|ALAD|KIPX"},
	{"https://kirakira-av.com", "KIVR|BLK|KIBD|KIFD|KIRD|KISD|SET"},
	{"https://www.av-e-body.com", "EBVR|EBOD|MKCK|EYAN"},
	{"https://bi-av.com", "CJVR|CJOD|BBI|BIB|CJOB|BEB|BID|BIST|BWB"},
	{"https://premium-beauty.com", "PRVR|PGD|PRED|PBD|PJD|PRTD|PXD|PID|PTV"},
	{"https://miman.jp", "MMVR|MMND|MMXD|AOM"},
	{"https://tameikegoro.jp", "MEVR|MEYD|MBYD|MDYD|MNYD"},
	{"https://fitch-av.com", "FCVR|JUFE|JUFD|JFB|JUNY|NYB|FINH|GCF|NIMA"},
	{"https://kawaiikawaii.jp", "KAVR|CAWD|KWBD|KAWD|KWSR|KWSD|KANE"},
	{"https://befreebe.com", "BF"},
	{"https://muku.tv", "MUCD|MUDR|MUKD|SMCD|MUKC"},
	{"https://attackers.net", "ATVR|RBK|RBD|SAME|SHKD|ATID|ADN|ATKD|JBD|SSPD|ATAD|AZSD"},
	{"https://mko-labo.net", "MVR|MISM|EMLB"},
	{"https://dasdas.jp", "DSVR|DASS|DAZD|DASD|PLA"},
	{"https://mvg.jp", "MVSD|MVBD"},
	{"https://av-opera.jp", "OPVR|OPBD|OPUD"},
	{"https://oppai-av.com", "PPVR|PPPE|PPBD|PPPD|PPSD|PPFD"},
	{"https://v-av.com", "VVVD|VICD|VIZD|VSPD"},
	{"https://to-satsu.com", "CLVR|STOL|CLUB"},
	{"https://bibian-av.com", "BBVR|BBAN"},
	{"https://honnaka.jp", "HNVR|HMN|HNDB|HND|KRND|HNKY|HNJC|HNSE"},
	{"https://rookie-av.jp", "RVR|RBB|RKI"},
	{"https://nanpa-japan.jp", "NJVR|NNPJ|NPJB"},
	{"https://hajimekikaku.com", "HJBB|HJMO|AVGL"},
	{"https://hhh-av.com", "HUNTB|HUNTA|HUNT|HUNBL|ROYD|TYSF"},
})

func buildOfficialSites(entries []struct {
	base     string
	prefixes string
}) map[string]string {
	m := make(map[string]string)
	for _, e := range entries {
		for _, p := range strings.Split(e.prefixes, "|") {
			m[p] = e.base
		}
	}
	return m
}

// officials scrapes a studio's own site, found by the code's label prefix.
type officials struct{}

func (officials) Name() string     { return "officials" }
func (officials) Language() string { return "ja" }

func (officials) PageURL(c string) (string, error) {
	prefix := code.Prefix(c)
	if prefix == "" {
		return "", fmt.Errorf("no label prefix in %q", c)
	}
	base, ok := officialSites[prefix]
	if !ok {
		return "", fmt.Errorf("no official site for label %s", prefix)
	}
	return base + "/search/list?keyword=" + strings.ReplaceAll(c, "-", ""), nil
}

// NextPage picks the search card whose link mentions the code and keeps its
// thumbnail as the poster; the detail page shows only the cover.
func (officials) NextPage(c string, page *scrape.Page) (string, scrape.Hints, error) {
	if !strings.Contains(page.URL.Path, "/search/") {
		return "", scrape.Hints{}, nil
	}
	doc, err := page.Doc()
	if err != nil {
		return "", scrape.Hints{}, err
	}

	compact := strings.ReplaceAll(c, "-", "")
	var href, poster string
	doc.Find("a.img.hover").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h, ok := s.Attr("href")
		if !ok || !strings.Contains(strings.ToUpper(h), compact) {
			return true
		}
		src, ok := s.Find("img[data-src]").Attr("data-src")
		if !ok {
			return true
		}
		href, poster = h, src
		return false
	})
	if href == "" {
		return "", scrape.Hints{}, fmt.Errorf("no result card for %s", c)
	}
	return href, scrape.Hints{Poster: poster}, nil
}

func (officials) Title(_ string, page *scrape.Page) (string, error) {
	doc, err := page.Doc()
	if err != nil {
		return "", err
	}
	return doc.Find("h2.p-workPage__title").First().Text(), nil
}

func (officials) Info(c string, page *scrape.Page) video.Info {
	info := video.Info{Code: c, Poster: page.Hints.Poster}
	doc, err := page.Doc()
	if err != nil {
		return info
	}

	if cover, ok := doc.Find("img.swiper-lazy").First().Attr("data-src"); ok {
		info.Cover = cover
	}
	if outline := strings.TrimSpace(doc.Find("p.p-workPage__text").First().Text()); outline != "" {
		t := video.Text(outline)
		info.Outline = &t
	}

	doc.Find("a.c-tag.c-main-bg-hover.c-main-font.c-main-bd").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && strings.Contains(href, "/actress/") {
			info.Actresses = append(info.Actresses, video.Actress{Name: strings.TrimSpace(s.Text())})
		}
	})

	doc.Find("div").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		switch {
		case strings.Contains(text, "製作商"):
			info.Studio = firstText(s, "div:first-of-type")
		case strings.Contains(text, "発売日"):
			info.ReleaseDate = scrape.ParseDate(firstText(s, "div:first-of-type > div > a"))
		case strings.Contains(text, "シリーズ"):
			info.Series = firstText(s, "div:first-of-type > a")
		case strings.Contains(text, "監督"):
			info.Director = firstText(s, "div:first-of-type > div > p")
		case strings.Contains(text, "レーベル"):
			info.Publisher = firstText(s, "div:first-of-type > a")
		case strings.Contains(text, "収録時間"):
			info.Duration = scrape.ParseMinutes(firstText(s, "div:first-of-type > div > p"))
		case strings.Contains(text, "ジャンル"):
			var tags []string
			s.Find("div:first-of-type > div > a").Each(func(_ int, a *goquery.Selection) {
				tags = append(tags, strings.TrimSpace(a.Text()))
			})
			if len(tags) > 0 {
				info.Tags = tags
			}
		}
	})

	var fanart []string
	doc.Find("img.swiper-lazy").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("data-src"); ok {
			fanart = append(fanart, src)
		}
	})
	if len(fanart) > 1 {
		info.ExtraFanart = fanart[1:]
	}
	return info
}

func firstText(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}
