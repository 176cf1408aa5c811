package scrape

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/karoyqiu/avmeta/internal/video"
)

// Enricher is a late-stage source consulted only to fill a gap the main
// merge left, currently just actresses.
type Enricher interface {
	Actresses(ctx context.Context, code string) ([]video.Actress, error)
}

// Pipeline walks the routed sources for a code and merges their results.
type Pipeline struct {
	env      *Env
	sources  map[string]Source
	enricher Enricher
}

// NewPipeline builds a Pipeline over the registered sources. enricher may
// be nil.
func NewPipeline(env *Env, sources map[string]Source, enricher Enricher) *Pipeline {
	return &Pipeline{env: env, sources: sources, enricher: enricher}
}

// Scrape collects metadata for a normalized code. Individual source
// failures are logged and skipped; the merge stops early once the record is
// good enough. The result may be sparse; callers judge it by its title.
func (p *Pipeline) Scrape(ctx context.Context, code string) (*video.Info, error) {
	start := time.Now()
	var acc video.Info

	for _, name := range Route(code) {
		src, ok := p.sources[name]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			pipelineRuns.WithLabelValues("canceled").Inc()
			return nil, err
		}

		info, err := Crawl(ctx, p.env, src, code)
		if err != nil {
			sourceCrawls.WithLabelValues(name, "error").Inc()
			log.Warn().Str("site", name).Str("code", code).Err(err).Msg("source failed")
			continue
		}
		sourceCrawls.WithLabelValues(name, "ok").Inc()

		filterFields(name, info)
		acc.Apply(*info)
		if acc.GoodEnough() {
			break
		}
	}

	if len(acc.Actresses) == 0 && p.enricher != nil {
		if actresses, err := p.enricher.Actresses(ctx, code); err == nil && len(actresses) > 0 {
			acc.Actresses = actresses
		} else if err != nil {
			log.Debug().Str("code", code).Err(err).Msg("actress enrichment failed")
		}
	}

	pipelineDuration.Observe(time.Since(start).Seconds())
	if acc.Title.Text == "" {
		pipelineRuns.WithLabelValues("empty").Inc()
	} else {
		pipelineRuns.WithLabelValues("ok").Inc()
	}
	log.Debug().Str("code", code).Str("title", acc.Title.Text).Msg("scrape finished")
	return &acc, nil
}
