package scraper

import (
	"strings"
	"time"

	"github.com/jimezsa/jobmatch/internal/config"
	"github.com/jimezsa/jobmatch/internal/network"
	"github.com/rs/zerolog"
)

type RegistryOptions struct {
	Rotator        *network.Rotator
	RequestTimeout time.Duration
	MaxCards       int
	DefaultQuery   string
	Delay          DelayPolicy
	Logger         zerolog.Logger
}

// Registry builds one adapter per source, each with its own client, robots
// cache and rate limiter. The returned order follows sources.
func Registry(sources []config.SourceConfig, opts RegistryOptions) ([]Scraper, error) {
	scrapers := make([]Scraper, 0, len(sources))
	for _, src := range sources {
		client, err := network.NewClient(opts.Rotator, opts.RequestTimeout)
		if err != nil {
			return nil, err
		}
		userAgent := src.Headers["User-Agent"]
		fetcher := network.NewFetcher(client, network.FetcherOptions{
			UserAgent:  userAgent,
			Timeout:    opts.RequestTimeout,
			MaxRetries: network.DefaultMaxRetries,
			Limiter:    network.NewRateLimiter(rateLimit(src.RateLimit)),
			Robots:     network.NewRobotsPolicy(client, userAgent),
			Logger:     opts.Logger.With().Str("source", src.Name).Logger(),
		})
		scrapers = append(scrapers, NewAdapter(src, fetcher, Options{
			MaxCards:     opts.MaxCards,
			DefaultQuery: opts.DefaultQuery,
			Delay:        opts.Delay,
			Logger:       opts.Logger,
		}))
	}
	return scrapers, nil
}

func rateLimit(limit config.RateLimit) network.RateLimit {
	return network.RateLimit{
		Calls:  limit.Calls,
		Period: time.Duration(limit.PeriodSeconds) * time.Second,
	}
}

// Select keeps the scrapers named in sites, in registry order. An empty list keeps all.
func Select(scrapers []Scraper, sites []string) []Scraper {
	sites = NormalizeSites(sites)
	if len(sites) == 0 {
		return scrapers
	}
	wanted := map[string]struct{}{}
	for _, site := range sites {
		wanted[site] = struct{}{}
	}
	out := make([]Scraper, 0, len(sites))
	for _, s := range scrapers {
		if _, ok := wanted[s.Name()]; ok {
			out = append(out, s)
		}
	}
	return out
}

func NormalizeSites(sites []string) []string {
	out := make([]string, 0, len(sites))
	for _, site := range sites {
		site = strings.ToLower(strings.TrimSpace(site))
		if site == "" {
			continue
		}
		site = strings.TrimPrefix(site, "www.")
		site = strings.ReplaceAll(site, "-", "_")
		out = append(out, site)
	}
	return out
}
