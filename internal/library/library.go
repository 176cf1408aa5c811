// Package library is the command facade the embedding UI calls: resolve a
// filename to a code, consult the store, run the scrape pipeline on a miss,
// and keep download bookkeeping.
package library

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/karoyqiu/avmeta/internal/code"
	"github.com/karoyqiu/avmeta/internal/video"
	"github.com/karoyqiu/avmeta/internal/videodb"
)

// Scraper runs the source pipeline for a normalized code.
type Scraper interface {
	Scrape(ctx context.Context, code string) (*video.Info, error)
}

// ImageFetcher resolves an image URL to a data URL, typically cached.
type ImageFetcher interface {
	Get(ctx context.Context, url string) (string, error)
}

// Library ties normalization, persistence, the pipeline and the image
// cache together behind the handful of calls the UI makes.
type Library struct {
	db      *videodb.DB
	scraper Scraper
	images  ImageFetcher
}

// New builds the facade. images may be nil when image serving is unused.
func New(db *videodb.DB, scraper Scraper, images ImageFetcher) *Library {
	return &Library{db: db, scraper: scraper, images: images}
}

// resolve derives the lookup code from a filename, falling back to the
// caller-supplied hash when the name yields nothing. The name wins when
// both are available.
func resolve(name, hash string) string {
	if c := code.Normalize(name); c != "" {
		return c
	}
	return hash
}

// GetVideoInfo returns the metadata for a filename. Stored info is served
// as-is; otherwise the pipeline runs and a usable result is persisted.
// An unrecognizable name, or a code no source can enrich, yields nil
// without touching the store.
func (l *Library) GetVideoInfo(ctx context.Context, name string) (*video.Info, error) {
	c := code.Normalize(name)
	if c == "" {
		log.Debug().Str("name", name).Msg("no code in filename")
		return nil, nil
	}

	rec, err := l.db.Find(ctx, c)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.Info != nil {
		return rec.Info, nil
	}
	return l.scrapeAndSave(ctx, c)
}

// Rescrape ignores any stored info and runs the pipeline again. The stored
// record is replaced only when the fresh result has a title.
func (l *Library) Rescrape(ctx context.Context, name string) (*video.Info, error) {
	c := code.Normalize(name)
	if c == "" {
		return nil, nil
	}
	return l.scrapeAndSave(ctx, c)
}

func (l *Library) scrapeAndSave(ctx context.Context, c string) (*video.Info, error) {
	info, err := l.scraper.Scrape(ctx, c)
	if err != nil {
		return nil, err
	}
	// A record without a title is useless to the UI; don't let it shadow a
	// later, better scrape.
	if info == nil || info.Title.Text == "" {
		log.Info().Str("code", c).Msg("no source produced a usable record")
		return nil, nil
	}
	if err := l.db.SaveInfo(ctx, info); err != nil {
		return nil, err
	}
	return info, nil
}

// HasBeenDownloaded returns when the video was first marked downloaded,
// or nil for never. hash stands in for the code when the name parses to
// nothing.
func (l *Library) HasBeenDownloaded(ctx context.Context, name, hash string) (*time.Time, error) {
	c := resolve(name, hash)
	if c == "" {
		return nil, nil
	}
	rec, err := l.db.Find(ctx, c)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return rec.DownloadedAt, nil
}

// MarkAsDownloaded records the download time for a name, first write wins.
// A name that resolves to no code is ignored silently.
func (l *Library) MarkAsDownloaded(ctx context.Context, name, hash string, at time.Time) error {
	c := resolve(name, hash)
	if c == "" {
		log.Debug().Str("name", name).Msg("nothing to mark")
		return nil
	}
	return l.db.MarkDownloaded(ctx, c, at)
}

// DownloadImage fetches an image through the cache and returns it as a
// data URL.
func (l *Library) DownloadImage(ctx context.Context, url string) (string, error) {
	return l.images.Get(ctx, url)
}
