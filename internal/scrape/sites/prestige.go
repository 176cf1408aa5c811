package sites

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/karoyqiu/avmeta/internal/code"
	"github.com/karoyqiu/avmeta/internal/scrape"
	"github.com/karoyqiu/avmeta/internal/video"
)

// prestige talks to the prestige-av.com JSON API instead of HTML pages:
// a search call resolves the code to a product UUID, a product call returns
// the full record.
type prestige struct{}

// prestigePrefixes is sorted; PageURL binary-searches it.
var prestigePrefixes = []string{
	"ABC", "ABF", "ABP", "ABS", "ABW", "AFS", "AKA", "AMA", "ATD", "BCV",
	"BGN", "BLO", "BSD", "CDC", "CHN", "CHS", "CMI", "CPDE", "CTD", "DAY",
	"DCX", "DIC", "DLD", "DMS", "DNW", "DOCP", "DOCVR", "DTT", "EDD", "ESK",
	"EVO", "EZD", "FCP", "FIV", "FND", "FSB", "FST", "FTN", "GETS", "GIRO",
	"GNAB", "GOAL", "GSX", "GYAN", "GZAP", "HAR", "HSP", "HYK", "INU", "JAN",
	"JBS", "JCN", "JOB", "KBH", "KBI", "KFNE", "KIL", "KUM", "KZD", "LXV",
	"MAN", "MAS", "MBD", "MBM", "MBMS", "MCT", "MEI", "MGT", "MMY", "MZQ",
	"NDX", "NMP", "NNN", "NRS", "ONEZ", "PPT", "PPX", "PRDVR", "PVRBST",
	"PXH", "RAW", "RDD", "RDT", "RIX", "RTP", "SDVR", "SGA", "SHL", "SHS",
	"SIM", "SOR", "SOUD", "SRS", "TBL", "TDT", "TEM", "TGAV", "TOK", "TRD",
	"TRE", "TUS", "ULT", "XND", "YOK", "YRH", "YRZ", "ZZR",
}

type prestigeSearch struct {
	Hits struct {
		Hits []struct {
			Source struct {
				ProductUUID    string `json:"productUuid"`
				DeliveryItemID string `json:"deliveryItemId"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type prestigeName struct {
	Name string `json:"name"`
}

type prestigePath struct {
	Path string `json:"path"`
}

type prestigeProduct struct {
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	PlayTime     int64          `json:"playTime"`
	Maker        *prestigeName  `json:"maker"`
	Label        *prestigeName  `json:"label"`
	Series       *prestigeName  `json:"series"`
	Genre        []prestigeName `json:"genre"`
	Directors    []prestigeName `json:"directors"`
	Thumbnail    prestigePath   `json:"thumbnail"`
	PackageImage prestigePath   `json:"packageImage"`
	Actress      []prestigeName `json:"actress"`
	Media        []prestigePath `json:"media"`
	SKU          []struct {
		SalesStartAt string `json:"salesStartAt"`
	} `json:"sku"`
}

func (prestige) Name() string     { return "prestige" }
func (prestige) Language() string { return "ja" }

func (prestige) PageURL(c string) (string, error) {
	prefix := code.Prefix(c)
	i := sort.SearchStrings(prestigePrefixes, prefix)
	if i >= len(prestigePrefixes) || prestigePrefixes[i] != prefix {
		return "", fmt.Errorf("not a prestige label: %q", prefix)
	}
	return "https://www.prestige-av.com/api/search?isEnabledQuery=true&searchText=" +
		url.QueryEscape(c) +
		"&isEnableAggregation=false&release=false&reservation=false&soldOut=false&from=0&aggregationTermsSize=0&size=20", nil
}

func (prestige) NextPage(c string, page *scrape.Page) (string, scrape.Hints, error) {
	if !strings.Contains(page.URL.Path, "/api/search") {
		return "", scrape.Hints{}, nil
	}
	var result prestigeSearch
	if err := json.Unmarshal(page.Body, &result); err != nil {
		return "", scrape.Hints{}, err
	}
	for _, hit := range result.Hits.Hits {
		if strings.HasSuffix(hit.Source.DeliveryItemID, c) {
			return "https://www.prestige-av.com/api/product/" + hit.Source.ProductUUID,
				scrape.Hints{}, nil
		}
	}
	return "", scrape.Hints{}, fmt.Errorf("no search hit for %s", c)
}

func (prestige) Title(_ string, page *scrape.Page) (string, error) {
	var product prestigeProduct
	if err := json.Unmarshal(page.Body, &product); err != nil {
		return "", err
	}
	// The streaming-only marker is noise, not part of the work's title.
	return strings.TrimSpace(strings.ReplaceAll(product.Title, "【配信専用】", "")), nil
}

func (prestige) Info(c string, page *scrape.Page) video.Info {
	info := video.Info{Code: c}
	var product prestigeProduct
	if err := json.Unmarshal(page.Body, &product); err != nil {
		return info
	}

	info.Poster = prestigeMedia(product.Thumbnail.Path)
	info.Cover = prestigeMedia(product.PackageImage.Path)
	if body := strings.TrimSpace(product.Body); body != "" {
		t := video.Text(body)
		info.Outline = &t
	}
	if product.Series != nil {
		info.Series = product.Series.Name
	}
	if product.Maker != nil {
		info.Studio = product.Maker.Name
	}
	if product.Label != nil {
		info.Publisher = product.Label.Name
	}
	if len(product.Directors) > 0 {
		info.Director = product.Directors[0].Name
	}
	info.Duration = product.PlayTime * 60

	if len(product.SKU) > 0 {
		if t, err := time.Parse(time.RFC3339, product.SKU[0].SalesStartAt); err == nil {
			info.ReleaseDate = t.Unix()
		}
	}
	for _, a := range product.Actress {
		info.Actresses = append(info.Actresses, video.Actress{Name: a.Name})
	}
	for _, g := range product.Genre {
		info.Tags = append(info.Tags, g.Name)
	}
	for _, m := range product.Media {
		info.ExtraFanart = append(info.ExtraFanart, prestigeMedia(m.Path))
	}
	return info
}

func prestigeMedia(path string) string {
	if path == "" {
		return ""
	}
	return "https://www.prestige-av.com/api/media/" + strings.TrimPrefix(path, "/")
}
