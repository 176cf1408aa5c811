package sites

import "github.com/karoyqiu/avmeta/internal/scrape"

// Registry returns the implemented sources keyed by the names the category
// router emits. Routed names without an adapter here are skipped by the
// pipeline.
func Registry() map[string]scrape.Source {
	return map[string]scrape.Source{
		"officials": officials{},
		"prestige":  prestige{},
		"javbus":    javbus{},
		"fc2ppvdb":  fc2ppvdb{},
		"fc2":       fc2{},
		"airav_cc":  airav{},
		"iqqtv":     iqqtv{},
	}
}
