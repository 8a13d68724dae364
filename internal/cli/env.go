package cli

import (
	"net/http"
	"net/url"
	"time"

	"github.com/codepr/crawlwave/internal/config"
	"github.com/codepr/crawlwave/internal/crawler/counter"
	"github.com/codepr/crawlwave/internal/crawler/download"
	"github.com/codepr/crawlwave/internal/crawler/origin"
	"github.com/codepr/crawlwave/internal/crawler/worker"
	"github.com/codepr/crawlwave/internal/directives"
)

// crawlEnv bundles the process-lifetime objects every worker shard shares:
// one downloader, one origin registry (which itself fetches and caches
// robots.txt per host) and one progress counter.
type crawlEnv struct {
	downloader *download.HTTPDownloader
	origins    *origin.Registry
	counter    *counter.Counter
}

func newCrawlEnv(cfg *config.Config, d *directives.Directives) *crawlEnv {
	userAgent := d.Variables.AsString(directives.VarUserAgent)
	requestTimeout := time.Duration(d.Variables.AsPositiveFloat(directives.VarRequestTimeout) * float64(time.Second))

	robotsClient := &http.Client{Timeout: requestTimeout}
	registry := origin.NewRegistry(robotsClient, userAgent, d.Variables.AsPositiveFloat(directives.VarMaxHitsPerSec))

	return &crawlEnv{
		downloader: download.NewHTTPDownloader(userAgent, requestTimeout),
		origins:    registry,
		counter:    &counter.Counter{},
	}
}

// buildWorkers constructs one worker.Worker per cfg.Profile.Workers,
// sharing env across every shard, matching the teacher's one-pool-per-
// process shape.
func buildWorkers(cfg *config.Config, d *directives.Directives, env *crawlEnv) []*worker.Worker {
	requestTimeout := time.Duration(d.Variables.AsPositiveFloat(directives.VarRequestTimeout) * float64(time.Second))
	maxBodySize := int64(d.Variables.AsPositiveInt(directives.VarMaxBodySize))

	workers := make([]*worker.Worker, cfg.Profile.Workers)
	for i := range workers {
		workers[i] = &worker.Worker{
			ID:             i,
			Downloader:     env.downloader,
			Boundaries:     &d.Boundaries,
			Origins:        env.origins,
			Directives:     d,
			Counter:        env.counter,
			Profile:        cfg.Profile,
			RequestTimeout: requestTimeout,
			MaxBodySize:    maxBodySize,
		}
	}
	return workers
}

// parseSeeds converts a directive module's raw seed strings into URLs,
// failing fast on a malformed one (Validate already checked this, but a
// directive file can change between validate and run invocations).
func parseSeeds(raw []string) ([]*url.URL, error) {
	seeds := make([]*url.URL, len(raw))
	for i, s := range raw {
		u, err := url.Parse(s)
		if err != nil {
			return nil, err
		}
		seeds[i] = u
	}
	return seeds, nil
}
