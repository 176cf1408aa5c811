package scrape

import (
	"regexp"
	"strings"

	"github.com/karoyqiu/avmeta/internal/code"
	"github.com/karoyqiu/avmeta/internal/video"
)

// Category routing. A code maps to an ordered list of source names; the
// pipeline walks the list in order and skips names with no registered
// source, so the lists can stay complete even while only a subset of sites
// has an adapter.

var (
	westernRe = regexp.MustCompile(`[^.]+\.\d{2}\.\d{2}\.\d{2}`)
	dmmRe     = regexp.MustCompile(`\D{2,}00\d{3,}`)
)

var (
	fc2Sites = []string{
		"fc2ppvdb", "fc2", "fc2club", "fc2hub", "freejavbt",
		"7mmtv", "hdouban", "javdb", "avsox", "airav",
	}
	westernSites    = []string{"theporndb", "javdb", "javbus", "hdouban"}
	amateurSites    = []string{"mgstage", "avsex", "jav321", "freejavbt", "7mmtv", "javbus", "javdb"}
	uncensoredSites = []string{
		"iqqtv", "javbus", "freejavbt", "jav321", "avsox",
		"7mmtv", "hdouban", "javdb", "airav",
	}
	censoredSites = []string{
		"airav_cc", "iqqtv", "avsex", "javbus", "lulubar", "freejavbt",
		"jav321", "dmm", "javlibrary", "7mmtv", "hdouban", "javdb",
		"airav", "xcity", "avsox", "officials", "prestige",
	}
	dmmSites = []string{"dmm"}
)

// Route returns the ordered source names for a normalized code.
func Route(c string) []string {
	switch {
	case strings.HasPrefix(c, "FC2"):
		return fc2Sites
	case strings.HasPrefix(c, "KIN8"):
		return []string{"kin8"}
	case strings.HasPrefix(c, "DLID"):
		return []string{"getchu"}
	case strings.Contains(c, "GETCHU"):
		return []string{"getchu_dmm"}
	case strings.HasPrefix(c, "Mywife"):
		return []string{"mywife"}
	case westernRe.MatchString(c):
		return westernSites
	case code.IsUncensored(c):
		return uncensoredSites
	case strings.HasPrefix(c, "SIRO"):
		return amateurSites
	case dmmRe.MatchString(c) && !strings.ContainsAny(c, "-_"):
		return dmmSites
	default:
		return censoredSites
	}
}

// fieldExcludes lists, per optional field, the sources whose value for that
// field is not authoritative. An excluded source's value is cleared before
// the merge so it can never reach the accumulator.
var fieldExcludes = map[string][]string{
	"outline":     {"avsox", "fc2club", "javbus", "javdb", "javlibrary", "freejavbt", "hdouban"},
	"cover":       {"javdb"},
	"poster":      {"airav", "fc2club", "fc2hub", "iqqtv", "7mmtv", "javlibrary", "lulubar"},
	"extrafanart": {"airav", "airav_cc", "avsex", "avsox", "iqqtv", "javlibrary", "lulubar"},
	"release":     {"fc2club", "fc2hub"},
	"duration":    {"airav", "airav_cc", "fc2", "fc2club", "fc2hub", "lulubar"},
	"director": {
		"airav", "airav_cc", "avsex", "avsox", "fc2", "fc2hub",
		"iqqtv", "jav321", "mgstage", "lulubar",
	},
	"series":    {"airav", "airav_cc", "avsex", "iqqtv", "7mmtv", "javlibrary", "lulubar"},
	"studio":    {"avsex"},
	"publisher": {"airav", "airav_cc", "avsex", "iqqtv", "lulubar"},
}

func excluded(field, source string) bool {
	for _, s := range fieldExcludes[field] {
		if s == source {
			return true
		}
	}
	return false
}

// filterFields clears the fields a source is not authoritative for.
func filterFields(source string, info *video.Info) {
	if excluded("outline", source) {
		info.Outline = nil
	}
	if excluded("cover", source) {
		info.Cover = ""
	}
	if excluded("poster", source) {
		info.Poster = ""
	}
	if excluded("extrafanart", source) {
		info.ExtraFanart = nil
	}
	if excluded("release", source) {
		info.ReleaseDate = 0
	}
	if excluded("duration", source) {
		info.Duration = 0
	}
	if excluded("director", source) {
		info.Director = ""
	}
	if excluded("series", source) {
		info.Series = ""
	}
	if excluded("studio", source) {
		info.Studio = ""
	}
	if excluded("publisher", source) {
		info.Publisher = ""
	}
}
