package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobmatch/internal/config"
	"github.com/jimezsa/jobmatch/internal/extract"
	"github.com/jimezsa/jobmatch/internal/models"
	"github.com/rs/zerolog"
)

const (
	DefaultQuery    = "developer"
	DefaultLocation = "France"
	DefaultMaxCards = 20
)

var contractKeywords = []string{"temps plein", "temps partiel", "cdi", "cdd", "stage", "freelance"}

type Options struct {
	MaxCards     int
	DefaultQuery string
	Delay        DelayPolicy
	Now          func() time.Time
	Logger       zerolog.Logger
}

// Adapter scrapes one source by walking the selector chains of its SourceConfig.
// Every site goes through the same code path; only the configuration differs.
type Adapter struct {
	cfg          config.SourceConfig
	fetcher      PageFetcher
	maxCards     int
	defaultQuery string
	delay        DelayPolicy
	now          func() time.Time
	log          zerolog.Logger
}

func NewAdapter(cfg config.SourceConfig, fetcher PageFetcher, opts Options) *Adapter {
	a := &Adapter{
		cfg:          cfg,
		fetcher:      fetcher,
		maxCards:     opts.MaxCards,
		defaultQuery: opts.DefaultQuery,
		delay:        opts.Delay,
		now:          opts.Now,
		log:          opts.Logger.With().Str("source", cfg.Name).Logger(),
	}
	if a.maxCards <= 0 {
		a.maxCards = DefaultMaxCards
	}
	if strings.TrimSpace(a.defaultQuery) == "" {
		a.defaultQuery = DefaultQuery
	}
	if a.delay == nil {
		a.delay = DefaultDelay()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

func (a *Adapter) Name() string {
	return a.cfg.Name
}

func (a *Adapter) Scrape(ctx context.Context, query, location string) ([]models.JobPosting, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = a.defaultQuery
	}
	location = strings.TrimSpace(location)

	searchURL := BuildURL(a.cfg, query, location)
	page, err := a.fetcher.Fetch(ctx, searchURL, a.cfg.Headers)
	if err != nil {
		a.log.Error().Err(err).Str("url", searchURL).Msg("fetch failed, source yields no postings")
		return nil, fmt.Errorf("%s: %w", a.cfg.Name, err)
	}

	cards, selector := firstMatch(page.Doc.Selection, a.cfg.Selector(config.FieldCards))
	if cards == nil {
		a.log.Warn().Strs("selectors", a.cfg.Selector(config.FieldCards)).Msg("no cards matched")
		return nil, nil
	}
	a.log.Debug().Int("cards", cards.Length()).Str("selector", selector).Msg("cards found")

	var postings []models.JobPosting
	for i := 0; i < cards.Length() && i < a.maxCards; i++ {
		if i > 0 {
			if err := a.delay(ctx); err != nil {
				a.log.Warn().Err(err).Int("processed", i).Msg("stopping early")
				break
			}
		}

		posting, err := a.safeBuild(cards.Eq(i), query, location, searchURL)
		if err != nil {
			a.log.Error().Err(err).Int("card", i+1).Msg("skipping card")
			continue
		}
		postings = append(postings, posting)
	}

	if len(postings) == 0 {
		a.log.Warn().Msg("no postings extracted")
	}
	return postings, nil
}

func (a *Adapter) safeBuild(card *goquery.Selection, query, location, searchURL string) (posting models.JobPosting, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExtractionFailed, r)
		}
	}()
	return a.buildPosting(card, query, location, searchURL)
}

func (a *Adapter) buildPosting(card *goquery.Selection, query, location, searchURL string) (models.JobPosting, error) {
	cfg := a.cfg
	scrapedAt := a.now().UTC()

	title := firstText(card, cfg.Selector(config.FieldTitle))
	if title == "" {
		title = "Position " + query
	}

	company := firstText(card, cfg.Selector(config.FieldCompany))
	if company == "" {
		company = cfg.DefaultCompany
	}
	company = extract.CompanyName(company)

	place := firstText(card, cfg.Selector(config.FieldLocation))
	if place == "" {
		place = location
	}
	if place == "" {
		place = DefaultLocation
	}

	link := a.resolveLink(card, searchURL)
	if link == "" {
		return models.JobPosting{}, fmt.Errorf("%w: no usable link", ErrExtractionFailed)
	}

	postedAt := scrapedAt
	dateText := ""
	if chain := cfg.Selector(config.FieldDate); len(chain) > 0 {
		if raw := firstAttr(card, chain, "datetime"); raw != "" {
			if ts, err := parsePostedAt(raw); err == nil {
				postedAt = ts.UTC()
			}
		}
		dateText = firstText(card, chain)
	}

	description := firstText(card, cfg.Selector(config.FieldDescription))
	if description == "" {
		description = fmt.Sprintf("Offer for the %s position at %s in %s.", title, company, place)
		if dateText != "" {
			description += " Published " + dateText + "."
		}
	}

	contract := firstText(card, cfg.Selector(config.FieldContract))
	if contract == "" && cfg.ContractFromMetadata {
		contract = contractFromMetadata(card, cfg.Selector(config.FieldMetadata))
	}

	salary := extract.Salary(firstText(card, cfg.Selector(config.FieldSalary)))
	if salary == nil {
		salary = extract.Salary(description)
	}

	classifyText := strings.Join([]string{title, description, place, contract}, " ")

	skills := extract.Skills(title + " " + description)
	if len(skills) == 0 {
		skills = models.NewSkillSet(models.SkillTag(query))
	}

	logo := cfg.LogoURL
	if logo == "" {
		logo = extract.LogoURL(company)
	}

	return models.JobPosting{
		SourceURL:          link,
		Source:             models.Source(cfg.Name),
		Title:              title,
		CompanyName:        company,
		CompanyLogoURL:     logo,
		Description:        description,
		Location:           place,
		Salary:             salary,
		WorkArrangement:    extract.WorkArrangement(classifyText),
		ContractType:       extract.ContractType(contract),
		EducationRequired:  extract.EducationLevel(description),
		ExperienceRequired: extract.ExperienceYears(description),
		ApplicationLink:    link,
		PostedAt:           postedAt,
		ScrapedAt:          scrapedAt,
		Skills:             skills,
	}, nil
}

// resolveLink prefers the link chain, then an offer id attribute, then the search page itself.
func (a *Adapter) resolveLink(card *goquery.Selection, searchURL string) string {
	if href := firstAttr(card, a.cfg.Selector(config.FieldLink), "href"); href != "" {
		return absoluteURL(origin(a.cfg.BaseURL), href)
	}
	if a.cfg.IDLinkTemplate != "" {
		for _, attr := range a.cfg.IDAttributes {
			if id := cardAttr(card, attr); id != "" {
				return strings.ReplaceAll(a.cfg.IDLinkTemplate, "{id}", url.PathEscape(id))
			}
		}
	}
	return searchURL
}

func contractFromMetadata(card *goquery.Selection, chain []string) string {
	if len(chain) == 0 {
		return ""
	}
	contract := ""
	card.Find(chain[0]).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		folded := extract.Fold(text)
		for _, kw := range contractKeywords {
			if strings.Contains(folded, kw) {
				contract = text
				return false
			}
		}
		return true
	})
	return contract
}

// BuildURL fills the params template with the URL-encoded query and location,
// keeping parameter order. An empty location becomes DefaultLocation.
func BuildURL(cfg config.SourceConfig, query, location string) string {
	if location == "" {
		location = DefaultLocation
	}
	if len(cfg.Params) == 0 {
		return cfg.BaseURL
	}
	replacer := strings.NewReplacer("{query}", query, "{location}", location)
	parts := make([]string, 0, len(cfg.Params))
	for _, param := range cfg.Params {
		value := replacer.Replace(param.Value)
		parts = append(parts, param.Name+"="+strings.ReplaceAll(url.QueryEscape(value), "+", "%20"))
	}
	sep := "?"
	if strings.Contains(cfg.BaseURL, "?") {
		sep = "&"
	}
	return cfg.BaseURL + sep + strings.Join(parts, "&")
}
