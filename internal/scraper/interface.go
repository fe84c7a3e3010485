package scraper

import (
	"context"
	"errors"

	"github.com/jimezsa/jobmatch/internal/models"
	"github.com/jimezsa/jobmatch/internal/network"
)

// ErrExtractionFailed marks a single card that could not be turned into a posting.
var ErrExtractionFailed = errors.New("card extraction failed")

// Scraper is the uniform source adapter contract. A fetch failure yields no
// postings and a non-nil error describing it; callers treat it as a degraded
// source, not a failed run.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, query, location string) ([]models.JobPosting, error)
}

// PageFetcher is satisfied by *network.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, target string, headers map[string]string) (*network.Page, error)
}
