// Package video defines the normalized metadata record assembled by the
// scraping pipeline and the field-ownership rules for merging partial
// records from multiple sources.
package video

// TranslatedText is a text field with an optional machine translation.
// The two parts move independently during merges.
type TranslatedText struct {
	Text       string `json:"text"`
	Translated string `json:"translated,omitempty"`
}

// Text returns a TranslatedText with no translation yet.
func Text(s string) TranslatedText {
	return TranslatedText{Text: s}
}

// Actress is one performer credit. Photo may be empty.
type Actress struct {
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

// Info is the aggregate metadata record for one product code.
// All URL fields are absolute once a record leaves the crawl framework.
type Info struct {
	Code        string          `json:"code"`
	Title       TranslatedText  `json:"title"`
	Poster      string          `json:"poster,omitempty"`
	Cover       string          `json:"cover,omitempty"`
	Outline     *TranslatedText `json:"outline,omitempty"`
	Actresses   []Actress       `json:"actresses,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Series      string          `json:"series,omitempty"`
	Studio      string          `json:"studio,omitempty"`
	Publisher   string          `json:"publisher,omitempty"`
	Director    string          `json:"director,omitempty"`
	Duration    int64           `json:"duration,omitempty"`    // seconds
	ReleaseDate int64           `json:"releaseDate,omitempty"` // Unix epoch seconds
	ExtraFanart []string        `json:"extraFanart,omitempty"`
}

// Apply merges other into i. A later source only fills gaps: title and
// outline sub-fields copy into empty slots and move independently, and the
// remaining scalars keep the accumulated value. The exceptions are the
// whole-field-overwrite set (actresses, cover, release date, tags), where a
// present value always replaces the accumulated one. Records for a
// different code are discarded wholesale.
func (i *Info) Apply(other Info) {
	if i.Code == "" {
		i.Code = other.Code
	} else if i.Code != other.Code {
		return
	}

	if i.Title.Text == "" {
		i.Title.Text = other.Title.Text
	}
	if i.Title.Translated == "" {
		i.Title.Translated = other.Title.Translated
	}
	if other.Outline != nil {
		if i.Outline == nil {
			o := *other.Outline
			i.Outline = &o
		} else {
			if i.Outline.Text == "" {
				i.Outline.Text = other.Outline.Text
			}
			if i.Outline.Translated == "" {
				i.Outline.Translated = other.Outline.Translated
			}
		}
	}

	if other.Actresses != nil {
		i.Actresses = other.Actresses
	}
	if other.Cover != "" {
		i.Cover = other.Cover
	}
	if other.ReleaseDate != 0 {
		i.ReleaseDate = other.ReleaseDate
	}
	if other.Tags != nil {
		i.Tags = other.Tags
	}

	if i.Poster == "" {
		i.Poster = other.Poster
	}
	if i.Series == "" {
		i.Series = other.Series
	}
	if i.Studio == "" {
		i.Studio = other.Studio
	}
	if i.Publisher == "" {
		i.Publisher = other.Publisher
	}
	if i.Director == "" {
		i.Director = other.Director
	}
	if i.Duration == 0 {
		i.Duration = other.Duration
	}
	if i.ExtraFanart == nil {
		i.ExtraFanart = other.ExtraFanart
	}
}

// GoodEnough is the early-stop predicate for the source loop: an outline, at
// least one performer, and either artwork URL. Weakening this changes which
// sources get visited, so keep it exact.
func (i *Info) GoodEnough() bool {
	return i.Outline != nil && len(i.Actresses) > 0 && (i.Poster != "" || i.Cover != "")
}
