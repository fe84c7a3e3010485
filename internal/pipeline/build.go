package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jimezsa/jobmatch/internal/config"
	"github.com/jimezsa/jobmatch/internal/events"
	"github.com/jimezsa/jobmatch/internal/fraud"
	"github.com/jimezsa/jobmatch/internal/network"
	"github.com/jimezsa/jobmatch/internal/scraper"
	"github.com/jimezsa/jobmatch/internal/store"
)

const proxyBanDuration = 10 * time.Minute

type BuildOptions struct {
	Sources []config.SourceConfig
	// Sites restricts the run to the named sources. Empty means all.
	Sites   []string
	Proxies []string
	Logger  zerolog.Logger
}

// Build wires a Manager from runtime configuration: adapters for every
// selected source, the configured store, the optional fraud model and the
// optional Kafka publisher.
func Build(ctx context.Context, cfg config.Config, opts BuildOptions) (*Manager, error) {
	sources := opts.Sources
	if len(sources) == 0 {
		sources = config.DefaultSources()
	}

	var rotator *network.Rotator
	if len(opts.Proxies) > 0 {
		var err error
		rotator, err = network.NewRotator(opts.Proxies, proxyBanDuration)
		if err != nil {
			return nil, err
		}
	}

	scrapers, err := scraper.Registry(sources, scraper.RegistryOptions{
		Rotator:        rotator,
		RequestTimeout: cfg.RequestTimeout(),
		MaxCards:       cfg.MaxCards,
		DefaultQuery:   cfg.DefaultQuery,
		Delay:          scraper.DefaultDelay(),
		Logger:         opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build scrapers: %w", err)
	}
	scrapers = scraper.Select(scrapers, opts.Sites)
	if len(scrapers) == 0 {
		return nil, fmt.Errorf("no sources match %v", opts.Sites)
	}

	st, err := store.Open(ctx, cfg.StoreURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var model fraud.Model
	if cfg.ModelURL != "" {
		model = fraud.NewHTTPModel(cfg.ModelURL, cfg.RequestTimeout())
	}

	var publisher events.Publisher = events.Discard{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	return NewManager(scrapers, st, Options{
		Scorer:         fraud.NewScorer(model, opts.Logger.With().Str("component", "fraud").Logger()),
		Publisher:      publisher,
		AdapterTimeout: cfg.AdapterTimeout(),
		Sequential:     !cfg.Parallel,
		Logger:         opts.Logger,
	}), nil
}

// Store exposes the manager's store for read paths sharing the same backend.
func (m *Manager) Store() store.Store {
	return m.store
}
