package models

import (
	"sort"
	"strings"
	"time"
)

// Source identifies the adapter a posting was scraped from.
type Source string

const (
	SourceIndeed     Source = "indeed"
	SourceLinkedIn   Source = "linkedin"
	SourceMonster    Source = "monster"
	SourcePoleEmploi Source = "pole_emploi"
)

type WorkArrangement string

const (
	WorkUnspecified WorkArrangement = "unspecified"
	WorkOnsite      WorkArrangement = "onsite"
	WorkRemote      WorkArrangement = "remote"
	WorkHybrid      WorkArrangement = "hybrid"
)

// ParseWorkArrangement maps user input (English or French labels) to a WorkArrangement.
func ParseWorkArrangement(value string) WorkArrangement {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "onsite", "on-site", "présentiel", "presentiel":
		return WorkOnsite
	case "remote", "télétravail", "teletravail":
		return WorkRemote
	case "hybrid", "mixte":
		return WorkHybrid
	default:
		return WorkUnspecified
	}
}

type EducationLevel string

const (
	EducationUnspecified EducationLevel = "unspecified"
	EducationNone        EducationLevel = "none"
	EducationBac         EducationLevel = "bac"
	EducationBac2        EducationLevel = "bac+2"
	EducationBac3        EducationLevel = "bac+3"
	EducationBac5        EducationLevel = "bac+5"
	EducationBac8        EducationLevel = "bac+8"
)

// Rank orders education levels numerically. Unrecognized labels rank 0.
func (e EducationLevel) Rank() int {
	switch EducationLevel(strings.ToLower(string(e))) {
	case EducationBac:
		return 1
	case EducationBac2:
		return 2
	case EducationBac3:
		return 3
	case EducationBac5:
		return 5
	case EducationBac8:
		return 8
	default:
		return 0
	}
}

// Known reports whether the level carries information.
func (e EducationLevel) Known() bool {
	return e != "" && e != EducationUnspecified
}

// Salary is either a single amount or a [Min, Max] range. The zero value means unknown.
type Salary struct {
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`
}

func SalaryAmount(amount int) *Salary {
	return &Salary{Min: amount, Max: amount}
}

func SalaryRange(min, max int) *Salary {
	return &Salary{Min: min, Max: max}
}

func (s *Salary) IsRange() bool {
	return s != nil && s.Max != s.Min
}

// Amount is the comparable figure used by scoring: the lower bound of a range.
func (s *Salary) Amount() int {
	if s == nil {
		return 0
	}
	return s.Min
}

type FraudIndicator struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// JobPosting is the normalized listing record. SourceURL is its identity.
type JobPosting struct {
	SourceURL          string           `json:"source_url"`
	Source             Source           `json:"source"`
	Title              string           `json:"title"`
	CompanyName        string           `json:"company_name"`
	CompanyLogoURL     string           `json:"company_logo_url,omitempty"`
	Description        string           `json:"description"`
	Location           string           `json:"location"`
	Salary             *Salary          `json:"salary,omitempty"`
	WorkArrangement    WorkArrangement  `json:"work_arrangement"`
	ContractType       string           `json:"contract_type,omitempty"`
	EducationRequired  EducationLevel   `json:"education_required"`
	ExperienceRequired *int             `json:"experience_required_years,omitempty"`
	Benefits           string           `json:"benefits,omitempty"`
	ApplicationLink    string           `json:"application_link"`
	PostedAt           time.Time        `json:"posted_at"`
	ScrapedAt          time.Time        `json:"scraped_at"`
	FraudProbability   float64          `json:"fraud_probability"`
	FraudIndicators    []FraudIndicator `json:"fraud_indicators,omitempty"`
	Skills             SkillSet         `json:"skills"`
}

// SkillTag is a canonical skill name. Two tags are equal when their normalized forms match.
type SkillTag string

func (t SkillTag) Normalized() string {
	return strings.ToLower(strings.TrimSpace(string(t)))
}

// SkillSet holds unique tags keyed by normalized name; order is irrelevant.
type SkillSet []SkillTag

func NewSkillSet(tags ...SkillTag) SkillSet {
	var set SkillSet
	for _, tag := range tags {
		set = set.Add(tag)
	}
	return set
}

func (s SkillSet) Contains(tag SkillTag) bool {
	key := tag.Normalized()
	for _, existing := range s {
		if existing.Normalized() == key {
			return true
		}
	}
	return false
}

// Add appends tag unless an equal tag is already present or it is blank.
func (s SkillSet) Add(tag SkillTag) SkillSet {
	tag = SkillTag(strings.TrimSpace(string(tag)))
	if tag == "" || s.Contains(tag) {
		return s
	}
	return append(s, tag)
}

func (s SkillSet) Keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(s))
	for _, tag := range s {
		keys[tag.Normalized()] = struct{}{}
	}
	return keys
}

// Sorted returns a copy ordered by normalized name, for stable output.
func (s SkillSet) Sorted() SkillSet {
	out := append(SkillSet(nil), s...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Normalized() < out[j].Normalized()
	})
	return out
}

func (s SkillSet) Strings() []string {
	out := make([]string, 0, len(s))
	for _, tag := range s {
		out = append(out, string(tag))
	}
	return out
}
