// Package translate renders scraped Japanese and English text into the
// library language. Translation is best-effort: callers keep the original
// text and treat a failed translation as a missing field, never as a
// scrape failure.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/karoyqiu/avmeta/internal/httpclient"
)

const endpoint = "https://translate.googleapis.com/translate_a/single"

// DefaultTarget is the library language.
const DefaultTarget = "zh-CN"

// Translator translates free text through the public web endpoint, reusing
// the scraper's HTTP transport so pacing and proxying apply.
type Translator struct {
	client *httpclient.Client
	target string
}

// New builds a Translator. target is a BCP 47 language tag; "" means
// DefaultTarget.
func New(client *httpclient.Client, target string) *Translator {
	if target == "" {
		target = DefaultTarget
	}
	return &Translator{client: client, target: target}
}

// Translate returns text rendered in the target language. Empty input
// translates to empty output without a network round trip.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	q := url.Values{
		"client": {"gtx"},
		"sl":     {"auto"},
		"tl":     {t.target},
		"dt":     {"t"},
		"q":      {text},
	}
	page, err := t.client.Get(ctx, endpoint+"?"+q.Encode())
	if err != nil {
		log.Debug().Err(err).Msg("translation request failed")
		return "", err
	}
	out, err := parseResponse(page.Body)
	if err != nil {
		log.Debug().Err(err).Msg("translation response unreadable")
		return "", err
	}
	return out, nil
}

// parseResponse walks the nested-array payload: the first element is a list
// of segments, each segment's first element the translated text.
func parseResponse(body []byte) (string, error) {
	var root []json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if len(root) == 0 {
		return "", fmt.Errorf("translate: empty payload")
	}
	var segments [][]json.RawMessage
	if err := json.Unmarshal(root[0], &segments); err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var s string
		if err := json.Unmarshal(seg[0], &s); err != nil {
			continue
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
