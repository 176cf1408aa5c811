// Package code derives a canonical product code from a video filename.
//
// Filenames in the wild carry site tags, resolution markers, disc/episode
// suffixes and embedded dates around the actual product code. Normalize
// scrubs that noise, then runs an ordered rule table; the first matching
// rule wins, so specific studio formats (Mywife, FC2, HEYZO, ...) are tried
// before the generic letters-dash-digits patterns.
package code

import (
	"regexp"
	"strings"
)

var (
	discRe   = regexp.MustCompile(`[-_ .]CD\d{1,2}`)
	partRe   = regexp.MustCompile(`[-_ .][A-Z0-9]\.$`)
	ymdRe    = regexp.MustCompile(`\d{4}[-_.]\d{1,2}[-_.]\d{1,2}`)
	shortYmd = regexp.MustCompile(`[-\[]\d{2}[-_.]\d{2}[-_.]\d{2}]?`)
)

// noiseTokens are stripped verbatim from the uppercased filename before any
// pattern matching. Mostly release-site tags and resolution markers.
var noiseTokens = []string{
	"H_720",
	"2048论坛@FUN2048.COM",
	"1080P",
	"720P",
	"22-SHT.ME",
	"-HD",
	"BBS2048.ORG@",
	"HHD800.COM@",
	"KFA55.COM@",
	"ICAO.ME@",
	"HHB_000",
	"[456K.ME]",
	"[THZU.CC]",
}

// rule is one entry of the extraction table. The table is scanned top to
// bottom and the first rule that applies produces the code; order encodes
// precedence, so keep new rules below the ones they must not shadow.
type rule struct {
	name string
	// guard, when set, must hold for the rule to be considered at all.
	guard func(s string) bool
	// prep rewrites the working string before matching (family aliases).
	prep func(s string) string
	re   *regexp.Regexp
	// apply turns the submatches into the final code; nil keeps the whole
	// match. m is FindStringSubmatch output on the prepped string.
	apply func(m []string) string
	// loose rules return the prepped string when the pattern fails, so a
	// recognized family tag is never dropped entirely.
	loose bool
}

func contains(sub string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, sub) }
}

func familyPrep(s string) string {
	s = strings.ReplaceAll(s, "PPV", "")
	s = strings.ReplaceAll(s, "_", "-")
	return strings.ReplaceAll(s, "--", "-")
}

var rules = []rule{
	{
		name:  "mywife",
		guard: contains("MYWIFE"),
		re:    regexp.MustCompile(`NO\.(\d*)`),
		apply: func(m []string) string { return "Mywife No." + m[1] },
	},
	{
		name: "cw3d2d",
		re:   regexp.MustCompile(`CW3D2D?BD-?\d{2,}`),
	},
	{
		name:  "mmr",
		re:    regexp.MustCompile(`MMR-?[A-Z]{2,}-?\d+[A-Z]*`),
		apply: func(m []string) string { return strings.Replace(m[0], "MMR-", "MMR", 1) },
	},
	{
		name:  "md",
		guard: func(s string) bool { return !strings.Contains(s, "MDVR") },
		re:    regexp.MustCompile(`([^A-Z]|^)(MD[A-Z-]*\d{4,}(-\d)?)`),
		apply: func(m []string) string { return m[2] },
	},
	{
		// Western studios: GROUP.YY.MM.DD, dots replacing dashes.
		name: "oumei",
		re:   regexp.MustCompile(`([A-Z0-9_]{2,})[-.]2?0?(\d{2}[-.]\d{2}[-.]\d{2})`),
		apply: func(m []string) string {
			return m[1] + "." + strings.ReplaceAll(m[2], "-", ".")
		},
	},
	{
		name: "xxx-av",
		re:   regexp.MustCompile(`XXX-AV-\d{4,}`),
	},
	{
		name: "mky",
		re:   regexp.MustCompile(`MKY-[A-Z]+-\d{3,}`),
	},
	{
		name:  "fc2",
		guard: contains("FC2"),
		prep:  familyPrep,
		re:    regexp.MustCompile(`FC2-\d{5,}`),
		loose: true,
	},
	{
		name:  "heyzo",
		guard: contains("HEYZO"),
		prep:  familyPrep,
		re:    regexp.MustCompile(`HEYZO-\d{3,}`),
		loose: true,
	},
	{
		name: "h4610",
		re:   regexp.MustCompile(`(H4610|C0930|H0930)-[A-Z]+\d{4,}`),
	},
	{
		name: "kin8",
		re:   regexp.MustCompile(`KIN8(TENGOKU)?-?\d{3,}`),
		apply: func(m []string) string {
			s := strings.Replace(m[0], "TENGOKU", "-", 1)
			return strings.ReplaceAll(s, "--", "-")
		},
	},
	{
		name: "s2m",
		re:   regexp.MustCompile(`S2M[BD]*-\d{3,}`),
	},
	{
		name: "mcb3d",
		re:   regexp.MustCompile(`MCB3D[BD]*-\d{2,}`),
	},
	{
		name:  "t28",
		re:    regexp.MustCompile(`T28-?\d{3,}`),
		apply: func(m []string) string { return strings.Replace(m[0], "T2800", "T28-", 1) },
	},
	{
		name:  "th101",
		re:    regexp.MustCompile(`TH101-\d{3,}-\d{5,}`),
		apply: func(m []string) string { return strings.ToLower(m[0]) },
	},
	{
		// DMM zero-padded form: AZ00NNN becomes AZ-NNN.
		name:  "az00n",
		re:    regexp.MustCompile(`([A-Z]{2,})00(\d{3})`),
		apply: func(m []string) string { return m[1] + "-" + m[2] },
	},
	{
		name: "num-az-num",
		re:   regexp.MustCompile(`\d{2,}[A-Z]{2,}-\d{2,}[A-Z]?`),
	},
	{
		name: "az-num",
		re:   regexp.MustCompile(`[A-Z]{2,}-\d{2,}`),
	},
	{
		name: "az-aznum",
		re:   regexp.MustCompile(`[A-Z]+-[A-Z]\d+`),
	},
	{
		name: "num-num",
		re:   regexp.MustCompile(`\d{2,}[-_]\d{2,}`),
	},
	{
		name: "num-az",
		re:   regexp.MustCompile(`\d{3,}-[A-Z]{3,}`),
	},
	{
		name:  "n",
		re:    regexp.MustCompile(`([^A-Z]|^)(N\d{4})(\D|$)`),
		apply: func(m []string) string { return strings.ToLower(m[2]) },
	},
	{
		name:  "h-num",
		re:    regexp.MustCompile(`H_\d{3,}([A-Z]{2,})(\d{2,})`),
		apply: func(m []string) string { return m[1] + "-" + m[2] },
	},
	{
		name:  "az3num2",
		re:    regexp.MustCompile(`([A-Z]{3,}).*?(\d{2,})`),
		apply: func(m []string) string { return m[1] + "-" + m[2] },
	},
	{
		name:  "az2num3",
		re:    regexp.MustCompile(`([A-Z]{2,}).*?(\d{3,})`),
		apply: func(m []string) string { return m[1] + "-" + m[2] },
	},
}

// Normalize derives the canonical product code from a raw filename.
// It returns "" when no code can be recognized. The result is uppercase
// (except the literal "Mywife No." and the lowercased n/th101 families),
// has no spaces, and is trimmed of leading and trailing "-_.".
func Normalize(filename string) string {
	name := strings.ToUpper(filename)

	for _, w := range noiseTokens {
		name = strings.ReplaceAll(name, w, "")
	}

	// Canonicalize disc, part and episode markers. Order is significant:
	// "-C" collapses before the PART rewrites introduce "-CD".
	name = strings.ReplaceAll(name, "-C", ".")
	name = strings.ReplaceAll(name, ".PART", "-CD")
	name = strings.ReplaceAll(name, "-PART", "-CD")
	name = strings.ReplaceAll(name, " EP.", ".EP")
	name = strings.ReplaceAll(name, "-CD-", "")

	name = discRe.ReplaceAllString(name, "")
	name = partRe.ReplaceAllString(name, "")
	name = strings.Trim(strings.ReplaceAll(name, " ", "-"), "-_.")

	// Embedded dates.
	name = ymdRe.ReplaceAllString(name, "")
	name = shortYmd.ReplaceAllString(name, "")

	// Family aliases.
	name = strings.ReplaceAll(name, "FC2-PPV", "FC2-")
	name = strings.ReplaceAll(name, "FC2PPV", "FC2-")
	name = strings.ReplaceAll(name, "GACHIPPV", "GACHI")
	name = strings.ReplaceAll(name, "--", "-")

	c := extract(name)
	if c == "" {
		return ""
	}
	if strings.HasPrefix(c, "FC-") {
		c = "FC2-" + strings.TrimPrefix(c, "FC-")
	}
	return strings.Trim(c, "-_.")
}

func extract(name string) string {
	for _, r := range rules {
		if r.guard != nil && !r.guard(name) {
			continue
		}
		s := name
		if r.prep != nil {
			s = r.prep(s)
		}
		m := r.re.FindStringSubmatch(s)
		if m == nil {
			if r.loose {
				return s
			}
			if r.guard != nil {
				// A guarded family tag without a matching number ends
				// the scan; later generic rules would misparse it.
				continue
			}
			continue
		}
		if r.apply != nil {
			return r.apply(m)
		}
		return m[0]
	}

	// Fallback: bracket characters stripped, remainder as-is.
	repl := strings.NewReplacer("[", "", "]", "", "(", "", ")", "",
		"【", "", "】", "", "（", "", "）", "")
	return strings.TrimSpace(repl.Replace(name))
}

var (
	nNumRe       = regexp.MustCompile(`(?i)n\d{4}`)
	westernRe    = regexp.MustCompile(`[^.]+\.\d{2}\.\d{2}\.\d{2}`)
	prefixDateRe = regexp.MustCompile(`([A-Za-z0-9-.]{3,})[-_. ]\d{2}\.\d{2}\.\d{2}`)
	mkyPrefixRe  = regexp.MustCompile(`(MKY-[A-Z]+)-\d{3,}`)
	cw3d2dRe     = regexp.MustCompile(`CW3D2D?BD-?\d{2,}`)
	mcb3dRe      = regexp.MustCompile(`MCB3D[BD]*-\d{2,}`)
	h4610Re      = regexp.MustCompile(`(H4610|C0930|H0930)-[A-Z]+\d{4,}`)
	leadLetters  = regexp.MustCompile(`(\d*[A-Za-z]+)\d*`)
)

// uncensoredPrefixes are label prefixes of studios publishing uncensored
// material; codes starting with one of these route to the uncensored sources.
var uncensoredPrefixes = []string{
	"BT-", "CT-", "EMP-", "CCDV-", "CWP-", "CWPBD-", "DSAM-", "DRC-", "DRG-",
	"GACHI-", "heydouga", "JAV-", "LAF-", "LAFBD-", "HEYZO-", "KTG-", "KP-",
	"KG-", "LLDV-", "MCDV-", "MKD-", "MKBD-", "MMDV-", "NIP-", "PB-", "PT-",
	"QE-", "RED-", "RHJ-", "S2M-", "SKY-", "SKYHD-", "SMD-", "SSDV-", "SSKP-",
	"TRG-", "TS-", "XXX-AV-", "YKB-", "BIRD", "BOUGA",
}

// IsUncensored reports whether the code belongs to an uncensored label.
func IsUncensored(c string) bool {
	if nNumRe.MatchString(c) || westernRe.MatchString(c) {
		return true
	}
	for _, p := range uncensoredPrefixes {
		if strings.HasPrefix(c, p) {
			return true
		}
	}
	return false
}

// Prefix extracts the label part of a code ("SSIS-123" yields "SSIS").
// Special families keep their canonical prefix spelling.
func Prefix(c string) string {
	if m := prefixDateRe.FindStringSubmatch(c); m != nil {
		return m[1]
	}
	for _, p := range []string{"FC2", "Mywife", "KIN8", "S2M", "T28", "TH101", "XXX-AV"} {
		if strings.HasPrefix(c, p) {
			return p
		}
	}
	if m := mkyPrefixRe.FindStringSubmatch(c); m != nil {
		return m[1]
	}
	if cw3d2dRe.MatchString(c) {
		return "CW3D2D"
	}
	if mcb3dRe.MatchString(c) {
		return "MCB3D"
	}
	if m := h4610Re.FindStringSubmatch(c); m != nil {
		return m[1]
	}
	if m := leadLetters.FindStringSubmatch(c); m != nil {
		return m[1]
	}
	return ""
}
