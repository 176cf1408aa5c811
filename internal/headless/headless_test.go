package headless

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/karoyqiu/avmeta/internal/cookiejar"
)

func TestSameSiteRoundTrip(t *testing.T) {
	for _, s := range []string{
		cookiejar.SameSiteStrict,
		cookiejar.SameSiteLax,
		cookiejar.SameSiteNone,
	} {
		if got := fromCDPSameSite(toCDPSameSite(s)); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
	if got := toCDPSameSite("unspecified"); got != network.CookieSameSite("") {
		t.Errorf("unknown value must map to empty, got %q", got)
	}
}

func TestFetchOptions(t *testing.T) {
	var fo fetchOpts
	for _, o := range []Option{WaitVisible(".video-card"), SettleFor(2 * time.Second)} {
		o(&fo)
	}
	if fo.waitVisible != ".video-card" {
		t.Errorf("waitVisible = %q", fo.waitVisible)
	}
	if fo.extraWait != 2*time.Second {
		t.Errorf("extraWait = %v", fo.extraWait)
	}
}
