package sites

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/karoyqiu/avmeta/internal/scrape"
)

func pageAt(t *testing.T, rawURL, body string) *scrape.Page {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	return &scrape.Page{URL: u, Body: []byte(body)}
}

func TestOfficialsPageURL(t *testing.T) {
	tests := []struct {
		code string
		want string
		ok   bool
	}{
		{"SSIS-123", "https://s1s1s1.com/search/list?keyword=SSIS123", true},
		{"MIDV-555", "https://moodyz.com/search/list?keyword=MIDV555", true},
		{"NOPE-1", "", false},
	}
	for _, tt := range tests {
		got, err := officials{}.PageURL(tt.code)
		if tt.ok != (err == nil) {
			t.Fatalf("PageURL(%q) err = %v", tt.code, err)
		}
		if got != tt.want {
			t.Errorf("PageURL(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestOfficialsNextPagePicksMatchingCard(t *testing.T) {
	body := `<html>
		<a class="img hover" href="/works/detail/other999">
			<img data-src="/img/other.jpg">
		</a>
		<a class="img hover" href="/works/detail/ssis123">
			<img data-src="/img/ssis123.jpg">
		</a>
	</html>`
	page := pageAt(t, "https://s1s1s1.com/search/list?keyword=SSIS123", body)

	next, hints, err := officials{}.NextPage("SSIS-123", page)
	if err != nil {
		t.Fatal(err)
	}
	if next != "/works/detail/ssis123" {
		t.Errorf("next = %q", next)
	}
	if hints.Poster != "/img/ssis123.jpg" {
		t.Errorf("poster hint = %q", hints.Poster)
	}
}

func TestOfficialsDetailParse(t *testing.T) {
	body := `<html>
		<h2 class="p-workPage__title"> 新人NO.1STYLE </h2>
		<img class="swiper-lazy" data-src="/img/cover.jpg">
		<img class="swiper-lazy" data-src="/img/art1.jpg">
		<img class="swiper-lazy" data-src="/img/art2.jpg">
		<p class="p-workPage__text">デビュー作。</p>
		<a class="c-tag c-main-bg-hover c-main-font c-main-bd" href="/actress/123">新人女優</a>
		<div>シリーズ<div><a>NO.1STYLE</a></div></div>
		<div>発売日<div><div><a>2023-04-05</a></div></div></div>
		<div>収録時間<div><div><p>150分</p></div></div></div>
	</html>`
	page := pageAt(t, "https://s1s1s1.com/works/detail/ssis123", body)
	page.Hints = scrape.Hints{Poster: "/img/ssis123.jpg"}

	info := officials{}.Info("SSIS-123", page)
	if info.Poster != "/img/ssis123.jpg" {
		t.Errorf("poster = %q", info.Poster)
	}
	if info.Cover != "/img/cover.jpg" {
		t.Errorf("cover = %q", info.Cover)
	}
	if info.Outline == nil || info.Outline.Text != "デビュー作。" {
		t.Errorf("outline = %+v", info.Outline)
	}
	if len(info.Actresses) != 1 || info.Actresses[0].Name != "新人女優" {
		t.Errorf("actresses = %+v", info.Actresses)
	}
	if info.Series != "NO.1STYLE" {
		t.Errorf("series = %q", info.Series)
	}
	if info.Duration != 150*60 {
		t.Errorf("duration = %d", info.Duration)
	}
	if want := time.Date(2023, 4, 5, 0, 0, 0, 0, time.Local).Unix(); info.ReleaseDate != want {
		t.Errorf("release = %d, want %d", info.ReleaseDate, want)
	}
	if len(info.ExtraFanart) != 2 || info.ExtraFanart[0] != "/img/art1.jpg" {
		t.Errorf("fanart = %v (cover must be dropped)", info.ExtraFanart)
	}
}

func TestPrestigePageURL(t *testing.T) {
	if _, err := (prestige{}).PageURL("ABP-123"); err != nil {
		t.Errorf("ABP is a prestige label: %v", err)
	}
	if _, err := (prestige{}).PageURL("SSIS-123"); err == nil {
		t.Error("SSIS is not a prestige label")
	}
}

func TestPrestigeNextPageMatchesSuffix(t *testing.T) {
	body := `{"hits":{"hits":[
		{"_source":{"productUuid":"uuid-other","deliveryItemId":"OTHER-999"}},
		{"_source":{"productUuid":"uuid-match","deliveryItemId":"PRE-ABP-123"}}
	]}}`
	page := pageAt(t, "https://www.prestige-av.com/api/search?searchText=ABP-123", body)

	next, _, err := prestige{}.NextPage("ABP-123", page)
	if err != nil {
		t.Fatal(err)
	}
	if next != "https://www.prestige-av.com/api/product/uuid-match" {
		t.Errorf("next = %q", next)
	}
}

func TestPrestigeProductParse(t *testing.T) {
	body := `{
		"title": "【配信専用】絶対的美少女",
		"body": "あらすじ。",
		"playTime": 140,
		"maker": {"name": "プレステージ"},
		"label": {"name": "ABP"},
		"series": {"name": "シリーズ名"},
		"genre": [{"name": "単体作品"}],
		"directors": [{"name": "監督A"}, {"name": "監督B"}],
		"thumbnail": {"path": "thumb.jpg"},
		"packageImage": {"path": "/pkg.jpg"},
		"actress": [{"name": "女優A"}],
		"media": [{"path": "m1.jpg"}, {"path": "m2.jpg"}],
		"sku": [{"salesStartAt": "2023-04-05T10:00:00+09:00"}]
	}`
	page := pageAt(t, "https://www.prestige-av.com/api/product/uuid-match", body)

	title, err := prestige{}.Title("ABP-123", page)
	if err != nil {
		t.Fatal(err)
	}
	if title != "絶対的美少女" {
		t.Errorf("title = %q (marker must be stripped)", title)
	}

	info := prestige{}.Info("ABP-123", page)
	if info.Poster != "https://www.prestige-av.com/api/media/thumb.jpg" {
		t.Errorf("poster = %q", info.Poster)
	}
	if info.Cover != "https://www.prestige-av.com/api/media/pkg.jpg" {
		t.Errorf("cover = %q", info.Cover)
	}
	if info.Duration != 140*60 {
		t.Errorf("duration = %d", info.Duration)
	}
	if info.Director != "監督A" {
		t.Errorf("director = %q", info.Director)
	}
	if info.ReleaseDate == 0 {
		t.Error("release date not parsed from RFC3339")
	}
	if len(info.ExtraFanart) != 2 {
		t.Errorf("fanart = %v", info.ExtraFanart)
	}
}

func TestFc2NumberStripping(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"FC2-1234567", "https://fc2ppvdb.com/articles/1234567"},
		{"FC2-PPV-1234567", "https://fc2ppvdb.com/articles/1234567"},
		{"FC2PPV-1234567", "https://fc2ppvdb.com/articles/1234567"},
	}
	for _, tt := range tests {
		got, err := fc2ppvdb{}.PageURL(tt.code)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("PageURL(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestFc2ppvdbParse(t *testing.T) {
	body := `<html><main>
		<img src="/storage/images/article/fc2ppv-1234567.jpg">
		<section>
			<h2><a href="/articles/1234567">【無】タイトル</a></h2>
			<div>販売者：ハメ撮りランキング</div>
			<div>販売日：2024-04-10</div>
			<div>収録時間：46:07</div>
			<div>タグ：<a href="/tags/a">ハメ撮り</a><a href="/tags/b">中出し</a></div>
		</section>
		<a href="/actresses/4960" title="美人受付嬢"><img src="/storage/images/actress/4960.jpg"></a>
	</main></html>`
	page := pageAt(t, "https://fc2ppvdb.com/articles/1234567", body)

	title, err := fc2ppvdb{}.Title("FC2-1234567", page)
	if err != nil {
		t.Fatal(err)
	}
	if title != "【無】タイトル" {
		t.Errorf("title = %q", title)
	}

	info := fc2ppvdb{}.Info("FC2-1234567", page)
	if info.Publisher != "ハメ撮りランキング" {
		t.Errorf("publisher = %q", info.Publisher)
	}
	if info.Duration != 46*60+7 {
		t.Errorf("duration = %d", info.Duration)
	}
	if len(info.Tags) != 2 {
		t.Errorf("tags = %v", info.Tags)
	}
	if len(info.Actresses) != 1 || info.Actresses[0].Name != "美人受付嬢" ||
		info.Actresses[0].Photo != "/storage/images/actress/4960.jpg" {
		t.Errorf("actresses = %+v", info.Actresses)
	}
	if info.Poster != "/storage/images/article/fc2ppv-1234567.jpg" {
		t.Errorf("poster = %q", info.Poster)
	}
}

func TestJavbusGate(t *testing.T) {
	gated := pageAt(t, "https://www.javbus.com/PPX-023", "<html>地區年齡檢測</html>")
	form, ok := javbus{}.Gate(gated)
	if !ok || form.Get("submit") != "確認" {
		t.Errorf("gate = %v %v", form, ok)
	}
	open := pageAt(t, "https://www.javbus.com/PPX-023", "<html><h3>t</h3></html>")
	if _, ok := (javbus{}).Gate(open); ok {
		t.Error("no sentinel, no gate")
	}
}

func TestJavbusParse(t *testing.T) {
	body := `<html>
		<h3>PPX-023 中出しBEST 8時間</h3>
		<a class="bigImage" href="/cover_big.jpg"><img src="/cover.jpg"></a>
		<div class="info">
			<p><span class="header">發行日期:</span> 2023-04-05</p>
			<p><span class="header">長度:</span> 480分鐘</p>
			<p><span class="header">製作商:</span> プレステージ</p>
			<p><span class="genre"><a href="/genre/x">中出</a></span></p>
		</div>
		<div class="star-box">
			<a href="/star/abc"><img src="/star.jpg" title="涼森れむ"></a>
			<div class="star-name"><a href="/star/abc">涼森れむ</a></div>
		</div>
		<a class="sample-box" href="/sample1.jpg"></a>
		<a class="sample-box" href="/sample2.jpg"></a>
		<a class="sample-box" href="/sample3.jpg"></a>
	</html>`
	page := pageAt(t, "https://www.javbus.com/PPX-023", body)

	title, err := javbus{}.Title("PPX-023", page)
	if err != nil {
		t.Fatal(err)
	}
	if title != "中出しBEST 8時間" {
		t.Errorf("title = %q (code must be stripped)", title)
	}

	info := javbus{}.Info("PPX-023", page)
	if info.Cover != "/cover.jpg" {
		t.Errorf("cover = %q", info.Cover)
	}
	if info.Duration != 480*60 {
		t.Errorf("duration = %d", info.Duration)
	}
	if info.Studio != "プレステージ" {
		t.Errorf("studio = %q", info.Studio)
	}
	if len(info.Actresses) != 1 || info.Actresses[0].Name != "涼森れむ" ||
		info.Actresses[0].Photo != "/star.jpg" {
		t.Errorf("actresses = %+v", info.Actresses)
	}
	if len(info.Tags) != 1 || info.Tags[0] != "中出" {
		t.Errorf("tags = %v", info.Tags)
	}
	if len(info.ExtraFanart) != 2 || info.ExtraFanart[0] != "/sample2.jpg" {
		t.Errorf("fanart = %v (first sample must be dropped)", info.ExtraFanart)
	}
}

func TestAiravSkipsCrackedCards(t *testing.T) {
	body := `<html>
		<div class="col oneVideo"><a href="/video/1"><h5>SSIS-123 无码破解</h5></a></div>
		<div class="col oneVideo"><a href="/video/2"><h5>SSIS-123 正常版</h5></a></div>
	</html>`
	page := pageAt(t, "https://airav.io/search_result?kw=SSIS-123", body)

	next, _, err := airav{}.NextPage("SSIS-123", page)
	if err != nil {
		t.Fatal(err)
	}
	if next != "/video/2" {
		t.Errorf("next = %q", next)
	}
}

func TestAiravHeadlessFallsBackToFirstCard(t *testing.T) {
	body := `<html>
		<div class="col oneVideo"><a href="/video/1"><h5>SSIS-123 克破</h5></a></div>
		<div class="col oneVideo"><a href="/video/2"><h5>SSIS-123 無碼破解</h5></a></div>
	</html>`
	page := pageAt(t, "https://airav.io/search_result?kw=SSIS-123", body)

	if _, _, err := (airav{}).NextPage("SSIS-123", page); err == nil {
		t.Error("http variant must refuse all-cracked results")
	}
	next, _, err := airavHeadless{}.NextPage("SSIS-123", page)
	if err != nil {
		t.Fatal(err)
	}
	if next != "/video/1" {
		t.Errorf("headless fallback next = %q", next)
	}
}

func TestAiravDetailParse(t *testing.T) {
	body := `<html>
		<h1>SSIS-123 高傲女上司</h1>
		<script type="application/ld+json">{"thumbnailUrl":"https://cdn.airav.io/cover.jpg"}</script>
		<div class="video-info"><p>劇情簡介。</p>
			<ul>
				<li>女優：<a href="/a/1">美園和花</a><a href="/a/2">葵つかさ</a></li>
				<li>標籤：<a href="/t/1">字幕</a></li>
				<li>廠商：<a href="/s/all">全部</a><a href="/s/1">S1</a></li>
			</ul>
		</div>
		<div><i class="fa fa-clock"></i> 2023-04-05</div>
	</html>`
	page := pageAt(t, "https://airav.io/playon.aspx?hid=1", body)

	info := airav{}.Info("SSIS-123", page)
	if info.Cover != "https://cdn.airav.io/cover.jpg" {
		t.Errorf("cover = %q", info.Cover)
	}
	if info.Outline == nil || info.Outline.Text != "劇情簡介。" {
		t.Errorf("outline = %+v", info.Outline)
	}
	if len(info.Actresses) != 2 {
		t.Errorf("actresses = %+v", info.Actresses)
	}
	if info.Studio != "S1" {
		t.Errorf("studio = %q (must take the last link)", info.Studio)
	}
	if info.ReleaseDate == 0 {
		t.Error("release date next to clock icon not parsed")
	}
}

func TestIqqtvNextPageCarriesDuration(t *testing.T) {
	body := `<html>
		<div class="card"><div>
			<span class="title">SSIS-123 无码流出<a href="/cn/bad.php"></a></span>
		</div><span class="video-time">02:00:00</span></div>
		<div class="card"><div>
			<span class="title">SSIS-123 正式<a href="/cn/video.php?id=2"></a></span>
		</div><span class="video-time">01:59:30</span></div>
	</html>`
	page := pageAt(t, "https://iqq5.xyz/cn/search.php?kw=SSIS-123", body)

	next, hints, err := iqqtv{}.NextPage("SSIS-123", page)
	if err != nil {
		t.Fatal(err)
	}
	if next != "/cn/video.php?id=2" {
		t.Errorf("next = %q", next)
	}
	if hints.Duration != 2*3600-30 {
		t.Errorf("duration hint = %d", hints.Duration)
	}
}

func TestIqqtvDetailParse(t *testing.T) {
	body := `<html>
		<h1 class="h4 b">标题</h1>
		<meta property="og:image" content="https://cdn.iqq.tv/cover.jpg">
		<div class="intro">简介：剧情介绍。</div>
		<div class="tag-info">
			<a href="/cn/actor.php?id=1">女优A</a>
			<a href="/cn/tag.php?id=2">标签B</a>
		</div>
		<div class="company">S1</div>
		<div class="date">2023-04-05</div>
	</html>`
	page := pageAt(t, "https://iqq5.xyz/cn/video.php?id=2", body)
	page.Hints = scrape.Hints{Duration: 7170}

	info := iqqtv{}.Info("SSIS-123", page)
	if info.Duration != 7170 {
		t.Errorf("duration from hint = %d", info.Duration)
	}
	if info.Cover != "https://cdn.iqq.tv/cover.jpg" {
		t.Errorf("cover = %q", info.Cover)
	}
	if info.Outline == nil || info.Outline.Text != "剧情介绍。" {
		t.Errorf("outline = %+v", info.Outline)
	}
	if info.Studio != "S1" {
		t.Errorf("studio = %q", info.Studio)
	}
}

func TestAvwikiActressFilter(t *testing.T) {
	body := `<html><h1>SSIS-123</h1><dl><dd>
		<a href="https://av-wiki.net/av-actress/abc/">女優A</a>
		<a href="https://av-wiki.net/av-actress/unknown/">不明</a>
		<a href="https://av-wiki.net/maker/s1/">S1</a>
	</dd></dl></html>`
	page := pageAt(t, "https://av-wiki.net/ssis-123/", body)

	info := avwiki{}.Info("SSIS-123", page)
	if len(info.Actresses) != 1 || info.Actresses[0].Name != "女優A" {
		t.Errorf("actresses = %+v", info.Actresses)
	}
}

func TestRegistryCoversRoutedSources(t *testing.T) {
	reg := Registry()
	for _, name := range []string{"officials", "prestige", "javbus", "fc2ppvdb", "fc2", "airav_cc", "iqqtv"} {
		src, ok := reg[name]
		if !ok {
			t.Errorf("missing source %s", name)
			continue
		}
		if src.Name() == "" || !strings.Contains("ja zh-CN zh-TW en", src.Language()) {
			t.Errorf("source %s has bad identity: %q %q", name, src.Name(), src.Language())
		}
	}
}
