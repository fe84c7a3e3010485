package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Selector field names used in SourceConfig.Selectors.
const (
	FieldCards       = "cards"
	FieldTitle       = "title"
	FieldCompany     = "company"
	FieldLocation    = "location"
	FieldSalary      = "salary"
	FieldLink        = "link"
	FieldDescription = "description"
	FieldMetadata    = "metadata"
	FieldDate        = "date"
	FieldContract    = "contract"
)

// Param is one query-string entry. Value may contain {query} and {location}.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type RateLimit struct {
	Calls         int `json:"calls"`
	PeriodSeconds int `json:"period_seconds"`
}

// SourceConfig is everything an adapter needs to scrape one site.
type SourceConfig struct {
	Name      string              `json:"name"`
	BaseURL   string              `json:"base_url"`
	Params    []Param             `json:"params,omitempty"`
	Selectors map[string][]string `json:"selectors,omitempty"`
	Headers   map[string]string   `json:"headers,omitempty"`
	RateLimit RateLimit           `json:"rate_limit"`

	// DefaultCompany replaces the "Unspecified" company fallback.
	DefaultCompany string `json:"default_company,omitempty"`
	// LogoURL pins one logo for every posting of the source.
	LogoURL string `json:"logo_url,omitempty"`
	// IDAttributes are card attributes holding an offer id, tried when no link matches.
	IDAttributes []string `json:"id_attributes,omitempty"`
	// IDLinkTemplate builds the posting URL from that id, e.g. "https://host/jobs/view/{id}".
	IDLinkTemplate string `json:"id_link_template,omitempty"`
	// ContractFromMetadata scans metadata elements for contract keywords.
	ContractFromMetadata bool `json:"contract_from_metadata,omitempty"`
}

// Selector returns the fallback chain for field.
func (s SourceConfig) Selector(field string) []string {
	return s.Selectors[field]
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

func browserHeaders(referer string) map[string]string {
	return map[string]string{
		"User-Agent":                chromeUA,
		"Accept-Language":           "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Referer":                   referer,
		"Sec-Ch-Ua":                 `"Not A(Brand";v="99", "Google Chrome";v="121", "Chromium";v="121"`,
		"Sec-Ch-Ua-Mobile":          "?0",
		"Sec-Ch-Ua-Platform":        `"Windows"`,
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "same-origin",
		"Sec-Fetch-User":            "?1",
		"Upgrade-Insecure-Requests": "1",
	}
}

// DefaultSources is the built-in source table, in the order sequential runs use.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:    "indeed",
			BaseURL: "https://fr.indeed.com/emplois",
			Params: []Param{
				{"q", "{query}"},
				{"l", "{location}"},
				{"sort", "date"},
				{"fromage", "1"},
			},
			Selectors: map[string][]string{
				FieldCards: {`div.job_seen_beacon`, `div.cardOutline`, `div[data-testid="job-card"]`},
				FieldTitle: {`h2.jobTitle span`, `a.jcs-JobTitle span`, `h2 a`, `h2`},
				FieldCompany: {
					`span.companyName`, `div.company_location > pre > span.companyName`,
					`div[data-testid="company-name"]`, `span[data-testid="company-name"]`,
					`.company-name`, `.companyInfo`,
				},
				FieldLocation:    {`div.companyLocation`, `div[data-testid="text-location"]`},
				FieldSalary:      {`div.salary-snippet-container`, `div[data-testid="attribute_snippet_testid"]`},
				FieldLink:        {`h2.jobTitle a`, `a.jcs-JobTitle`, `h2 a`},
				FieldDescription: {`div.job-snippet`, `div[data-testid="job-snippet"]`},
				FieldMetadata:    {`div.metadata`, `div[data-testid="attribute_snippet_testid"]`},
			},
			Headers:              browserHeaders("https://fr.indeed.com/"),
			RateLimit:            RateLimit{Calls: 5, PeriodSeconds: 60},
			ContractFromMetadata: true,
		},
		{
			Name:    "linkedin",
			BaseURL: "https://www.linkedin.com/jobs/search",
			Params: []Param{
				{"keywords", "{query}"},
				{"location", "{location}"},
				{"f_TPR", "r86400"},
				{"position", "1"},
				{"pageNum", "0"},
			},
			Selectors: map[string][]string{
				FieldCards: {`div.base-card`, `li.jobs-search-results__list-item`, `div.job-search-card`},
				FieldTitle: {`h3.base-search-card__title`, `h3.job-search-card__title`},
				FieldCompany: {
					`h4.base-search-card__subtitle`, `a.job-search-card__subtitle-link`,
					`a.hidden-nested-link`, `span.job-search-card__company-name`,
				},
				FieldLocation: {`span.job-search-card__location`, `div.base-search-card__metadata`},
				FieldLink:     {`a.base-card__full-link`, `a.job-search-card__link`},
				FieldDate:     {`time.job-search-card__listdate`, `time`},
			},
			Headers:        browserHeaders("https://www.linkedin.com/"),
			RateLimit:      RateLimit{Calls: 3, PeriodSeconds: 60},
			IDAttributes:   []string{"data-id", "data-job-id"},
			IDLinkTemplate: "https://www.linkedin.com/jobs/view/{id}",
		},
		{
			Name:    "monster",
			BaseURL: "https://www.monster.fr/emploi/recherche",
			Params: []Param{
				{"q", "{query}"},
				{"where", "{location}"},
				{"page", "1"},
				{"recency", "1"},
			},
			Selectors: map[string][]string{
				FieldCards:    {`div.job-cardstyle__JobCardComponent`, `div.results-card`},
				FieldTitle:    {`h3.job-cardstyle__JobCardTitle`, `a.title`},
				FieldCompany:  {`span.job-cardstyle__CompanyName`, `div.company`},
				FieldLocation: {`span.job-cardstyle__Location`, `div.location`},
				FieldLink:     {`a.job-cardstyle__JobCardComponent`, `a.title`},
			},
			Headers:   browserHeaders("https://www.monster.fr/"),
			RateLimit: RateLimit{Calls: 5, PeriodSeconds: 60},
		},
		{
			Name:    "pole_emploi",
			BaseURL: "https://candidat.pole-emploi.fr/offres/recherche",
			Params: []Param{
				{"motsCles", "{query}"},
				{"lieux", "{location}"},
				{"offresPartenaires", "true"},
				{"rayon", "10"},
				{"tri", "1"},
				{"typeContrat", ""},
				{"qualification", ""},
				{"periodeEmission", "1"},
			},
			Selectors: map[string][]string{
				FieldCards:       {`li.result`, `div.result`, `div.offre-container`},
				FieldTitle:       {`h2.t4`, `h2.media-heading`},
				FieldCompany:     {`div.entreprise`, `p.subtext`},
				FieldLocation:    {`span.location`, `p.location`},
				FieldLink:        {`a.media`, `a.card-body`},
				FieldDescription: {`p.description`, `div.description`},
				FieldContract:    {`span.contrat`, `p.contrat`},
			},
			Headers:        browserHeaders("https://candidat.pole-emploi.fr/"),
			RateLimit:      RateLimit{Calls: 5, PeriodSeconds: 60},
			DefaultCompany: "Pôle Emploi",
			LogoURL:        "https://www.pole-emploi.fr/themes/custom/pef/logo.svg",
			IDAttributes:   []string{"data-id"},
			IDLinkTemplate: "https://candidat.pole-emploi.fr/offres/recherche/detail/{id}",
		},
	}
}

// LoadSources returns the built-in table with per-source overrides from
// sources.json (json5, keyed by source name) applied on top. Unknown names
// are added as new sources.
func LoadSources(dir string) ([]SourceConfig, error) {
	sources := DefaultSources()
	if dir == "" {
		return sources, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, SourcesFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sources, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return sources, nil
	}

	var overrides map[string]SourceConfig
	if err := json5.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse %s: %w", SourcesFileName, err)
	}
	return applyOverrides(sources, overrides), nil
}

func applyOverrides(sources []SourceConfig, overrides map[string]SourceConfig) []SourceConfig {
	index := map[string]int{}
	for i, src := range sources {
		index[src.Name] = i
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		override := overrides[name]
		override.Name = name
		i, ok := index[name]
		if !ok {
			sources = append(sources, override)
			continue
		}
		sources[i] = mergeSource(sources[i], override)
	}
	return sources
}

func mergeSource(base, override SourceConfig) SourceConfig {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if len(override.Params) > 0 {
		base.Params = override.Params
	}
	if len(override.Selectors) > 0 {
		merged := make(map[string][]string, len(base.Selectors))
		for field, chain := range base.Selectors {
			merged[field] = chain
		}
		for field, chain := range override.Selectors {
			merged[field] = chain
		}
		base.Selectors = merged
	}
	if len(override.Headers) > 0 {
		merged := make(map[string]string, len(base.Headers))
		for key, value := range base.Headers {
			merged[key] = value
		}
		for key, value := range override.Headers {
			merged[key] = value
		}
		base.Headers = merged
	}
	if override.RateLimit.Calls > 0 && override.RateLimit.PeriodSeconds > 0 {
		base.RateLimit = override.RateLimit
	}
	if override.DefaultCompany != "" {
		base.DefaultCompany = override.DefaultCompany
	}
	if override.LogoURL != "" {
		base.LogoURL = override.LogoURL
	}
	if len(override.IDAttributes) > 0 {
		base.IDAttributes = override.IDAttributes
	}
	if override.IDLinkTemplate != "" {
		base.IDLinkTemplate = override.IDLinkTemplate
	}
	if override.ContractFromMetadata {
		base.ContractFromMetadata = true
	}
	return base
}
