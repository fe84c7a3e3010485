// Package pipeline drives one ingestion run: every source adapter is scraped,
// results are filtered and scored, then written to the store in a single
// transaction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jimezsa/jobmatch/internal/events"
	"github.com/jimezsa/jobmatch/internal/extract"
	"github.com/jimezsa/jobmatch/internal/fraud"
	"github.com/jimezsa/jobmatch/internal/models"
	"github.com/jimezsa/jobmatch/internal/scraper"
	"github.com/jimezsa/jobmatch/internal/store"
)

const DefaultAdapterTimeout = 2 * time.Minute

type Options struct {
	Scorer         *fraud.Scorer
	Publisher      events.Publisher
	AdapterTimeout time.Duration
	// Sequential runs adapters one at a time in registry order.
	Sequential bool
	Now        func() time.Time
	NewRunID   func() string
	Logger     zerolog.Logger
}

type Manager struct {
	scrapers       []scraper.Scraper
	store          store.Store
	scorer         *fraud.Scorer
	publisher      events.Publisher
	adapterTimeout time.Duration
	sequential     bool
	now            func() time.Time
	newRunID       func() string
	log            zerolog.Logger
}

func NewManager(scrapers []scraper.Scraper, st store.Store, opts Options) *Manager {
	m := &Manager{
		scrapers:       scrapers,
		store:          st,
		scorer:         opts.Scorer,
		publisher:      opts.Publisher,
		adapterTimeout: opts.AdapterTimeout,
		sequential:     opts.Sequential,
		now:            opts.Now,
		newRunID:       opts.NewRunID,
		log:            opts.Logger,
	}
	if m.scorer == nil {
		m.scorer = fraud.NewScorer(nil, opts.Logger)
	}
	if m.publisher == nil {
		m.publisher = events.Discard{}
	}
	if m.adapterTimeout <= 0 {
		m.adapterTimeout = DefaultAdapterTimeout
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newRunID == nil {
		m.newRunID = uuid.NewString
	}
	return m
}

// SourceResult is the outcome of one adapter within a run.
type SourceResult struct {
	Source   string
	Postings int
	Err      error
}

// Report summarizes a run. Created is the number of postings whose URL was
// not in the store before the run.
type Report struct {
	RunID     string
	Sources   []SourceResult
	Collected int
	Dropped   int
	Created   int
	Updated   int
}

// ScrapeJobs runs the configured adapters and returns the number of newly
// created postings. Only persistence failures are returned as errors.
func (m *Manager) ScrapeJobs(ctx context.Context, query, location string) (int, error) {
	return m.ScrapeAll(ctx, query, location, !m.sequential)
}

func (m *Manager) ScrapeAll(ctx context.Context, query, location string, parallel bool) (int, error) {
	report, err := m.Run(ctx, query, location, parallel)
	return report.Created, err
}

func (m *Manager) Run(ctx context.Context, query, location string, parallel bool) (Report, error) {
	report := Report{RunID: m.newRunID()}
	log := m.log.With().Str("run_id", report.RunID).Logger()

	results := m.collect(ctx, query, location, parallel)

	var postings []models.JobPosting
	for _, res := range results {
		report.Sources = append(report.Sources, SourceResult{Source: res.source, Postings: len(res.postings), Err: res.err})
		switch {
		case res.err != nil:
			log.Error().Err(res.err).Str("source", res.source).Msg("source failed")
		case len(res.postings) == 0:
			log.Warn().Str("source", res.source).Msg("source returned no postings")
		}
		postings = append(postings, res.postings...)
	}
	report.Collected = len(postings)

	postings = dropPlaceholders(postings)
	report.Dropped = report.Collected - len(postings)
	if len(postings) == 0 {
		log.Warn().Int("dropped", report.Dropped).Msg("nothing to persist")
		return report, nil
	}

	published, err := m.persist(ctx, report.RunID, postings, &report)
	if err != nil {
		log.Error().Err(err).Msg("persist postings")
		return report, err
	}

	if err := m.publisher.Publish(ctx, published...); err != nil {
		log.Error().Err(err).Int("events", len(published)).Msg("publish ingestion events")
	}

	log.Info().
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("dropped", report.Dropped).
		Msg("ingestion finished")
	return report, nil
}

// Close releases the store and the event publisher.
func (m *Manager) Close() error {
	return errors.Join(m.publisher.Close(), m.store.Close())
}

type sourceResult struct {
	source   string
	postings []models.JobPosting
	err      error
}

// collect returns one result per adapter in registry order, whatever the
// completion order was.
func (m *Manager) collect(ctx context.Context, query, location string, parallel bool) []sourceResult {
	results := make([]sourceResult, len(m.scrapers))
	if !parallel {
		for i, sc := range m.scrapers {
			results[i] = m.runAdapter(ctx, sc, query, location)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, sc := range m.scrapers {
		wg.Add(1)
		go func(i int, sc scraper.Scraper) {
			defer wg.Done()
			results[i] = m.runAdapter(ctx, sc, query, location)
		}(i, sc)
	}
	wg.Wait()
	return results
}

// runAdapter waits for sc at most adapterTimeout. An adapter that ignores
// cancellation is abandoned; its late result lands in a buffered channel.
func (m *Manager) runAdapter(ctx context.Context, sc scraper.Scraper, query, location string) sourceResult {
	name := sc.Name()
	ctx, cancel := context.WithTimeout(ctx, m.adapterTimeout)
	defer cancel()

	done := make(chan sourceResult, 1)
	go func() {
		done <- scrapeSource(ctx, sc, name, query, location)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		select {
		case res := <-done:
			return res
		default:
		}
		return sourceResult{source: name, err: fmt.Errorf("%s: %w", name, ctx.Err())}
	}
}

func scrapeSource(ctx context.Context, sc scraper.Scraper, name, query, location string) (res sourceResult) {
	res.source = name
	defer func() {
		if r := recover(); r != nil {
			res.postings = nil
			res.err = fmt.Errorf("%s: panic: %v", name, r)
		}
	}()

	res.postings, res.err = sc.Scrape(ctx, query, location)
	if res.err != nil {
		res.postings = nil
	}
	return res
}

func dropPlaceholders(postings []models.JobPosting) []models.JobPosting {
	kept := postings[:0:0]
	for _, p := range postings {
		if p.SourceURL == "" || extract.IsPlaceholderURL(p.SourceURL) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// persist takes one snapshot of known URLs and skills, scores and upserts
// every posting, then commits once.
func (m *Manager) persist(ctx context.Context, runID string, postings []models.JobPosting, report *Report) ([]events.PostingEvent, error) {
	existing, err := m.store.List(ctx)
	if err != nil {
		return nil, persistenceFailed("load postings", err)
	}
	knownURLs := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		knownURLs[p.SourceURL] = struct{}{}
	}

	skills, err := m.store.ListSkills(ctx)
	if err != nil {
		return nil, persistenceFailed("load skills", err)
	}
	knownSkills := models.NewSkillSet(skills...).Keys()

	tx, err := m.store.Begin(ctx)
	if err != nil {
		return nil, persistenceFailed("begin", err)
	}

	created, updated := 0, 0
	out := make([]events.PostingEvent, 0, len(postings))
	at := m.now()
	for i := range postings {
		p := postings[i]
		m.scorer.Apply(ctx, &p)

		for _, tag := range p.Skills {
			if _, ok := knownSkills[tag.Normalized()]; ok {
				continue
			}
			if err := tx.CreateSkill(ctx, tag); err != nil {
				_ = tx.Rollback(ctx)
				return nil, persistenceFailed("create skill", err)
			}
			knownSkills[tag.Normalized()] = struct{}{}
		}

		if err := tx.Upsert(ctx, p); err != nil {
			_ = tx.Rollback(ctx)
			return nil, persistenceFailed("upsert", err)
		}

		action := events.ActionUpdated
		if _, ok := knownURLs[p.SourceURL]; ok {
			updated++
		} else {
			created++
			knownURLs[p.SourceURL] = struct{}{}
			action = events.ActionCreated
		}
		out = append(out, events.NewPostingEvent(runID, action, p, at))
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return nil, persistenceFailed("commit", err)
	}
	report.Created = created
	report.Updated = updated
	return out, nil
}

func persistenceFailed(op string, err error) error {
	if errors.Is(err, store.ErrPersistenceFailed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", store.ErrPersistenceFailed, op, err)
}
