package fraud

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jimezsa/jobmatch/internal/extract"
	"github.com/jimezsa/jobmatch/internal/models"
)

const (
	CodeMissingCompany    = "missing_company_info"
	CodeVagueDescription  = "vague_job_description"
	CodePoorLanguage      = "poor_language"
	CodePersonalInfo      = "personal_info_request"
	CodeUrgencyPressure   = "urgency_pressure"
	CodeNoRequirements    = "no_requirements"
	CodeTooGoodToBeTrue   = "too_good_to_be_true"
	CodeSuspiciousContact = "suspicious_contact"
)

type indicator struct {
	description string
	weight      float64
}

var indicators = map[string]indicator{
	CodeMissingCompany:    {"Company information missing or very limited", 0.8},
	CodeVagueDescription:  {"Job description vague or too generic", 0.5},
	CodePoorLanguage:      {"Poorly written or badly formatted text", 0.6},
	CodePersonalInfo:      {"Requests personal or financial information up front", 0.9},
	CodeUrgencyPressure:   {"Pressure to apply quickly or urgent tone", 0.7},
	CodeNoRequirements:    {"No required qualifications or experience", 0.4},
	CodeTooGoodToBeTrue:   {"Salary abnormally high for the position", 0.7},
	CodeSuspiciousContact: {"Posting hosted on a suspicious domain", 0.9},
}

// SuspiciousDomains are source hosts that only appear in fake listings.
var SuspiciousDomains = []string{"example.com", "test.com", "fake.com", "scam.com"}

const (
	minCompanyLength     = 3
	minDescriptionLength = 100
	tooGoodSalary        = 100000
	poorLanguageRatio    = 0.1
)

// Patterns match folded (lower-case, accent-free) text.
var (
	personalInfoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:carte bancaire|credit card|bank account|compte bancaire)\b`),
		regexp.MustCompile(`\b(?:numero de securite sociale|social security|ssn)\b`),
		regexp.MustCompile(`\b(?:piece d['’]identite|identity card|passport|passeport)\b`),
		regexp.MustCompile(`\b(?:paiement|payment|frais|fees|advance|avance)\b`),
	}
	urgencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:urgent|immediat|immediate|rapidement|quickly)\b`),
		regexp.MustCompile(`\b(?:ne tardez pas|don['’]t wait|limited time|temps limite)\b`),
		regexp.MustCompile(`\b(?:opportunite unique|unique opportunity|once in a lifetime)\b`),
	}
	juniorTitle = regexp.MustCompile(`\b(?:junior|debutant|stagiaire|stage|intern|internship|entry[- ]level)\b`)
	words       = regexp.MustCompile(`[\pL\pN_]+`)
)

// ruleScore evaluates every heuristic and returns the clamped weighted sum.
func ruleScore(p models.JobPosting) (float64, []models.FraudIndicator) {
	var (
		score     float64
		triggered []models.FraudIndicator
	)
	hit := func(code string) {
		ind := indicators[code]
		score += ind.weight
		triggered = append(triggered, models.FraudIndicator{Code: code, Description: ind.description})
	}

	company := strings.TrimSpace(p.CompanyName)
	if extract.IsUnspecifiedCompany(company) || utf8.RuneCountInString(company) < minCompanyLength {
		hit(CodeMissingCompany)
	}

	description := strings.TrimSpace(p.Description)
	if utf8.RuneCountInString(description) < minDescriptionLength {
		hit(CodeVagueDescription)
	}

	folded := extract.Fold(description)
	if description != "" && poorLanguage(folded) {
		hit(CodePoorLanguage)
	}
	if matchesAny(folded, personalInfoPatterns) {
		hit(CodePersonalInfo)
	}
	if matchesAny(folded, urgencyPatterns) {
		hit(CodeUrgencyPressure)
	}

	if !p.EducationRequired.Known() && p.ExperienceRequired == nil {
		hit(CodeNoRequirements)
	}

	if p.Salary != nil && p.Salary.Max > tooGoodSalary && juniorTitle.MatchString(extract.Fold(p.Title)) {
		hit(CodeTooGoodToBeTrue)
	}

	if extract.HostMatches(p.SourceURL, SuspiciousDomains) {
		hit(CodeSuspiciousContact)
	}

	return clamp(score), triggered
}

// poorLanguage flags text where more than a tenth of the words are long "-ment" words.
func poorLanguage(folded string) bool {
	all := words.FindAllString(folded, -1)
	if len(all) == 0 {
		return false
	}
	long := 0
	for _, w := range all {
		if utf8.RuneCountInString(w) > 7 && strings.HasSuffix(w, "ment") {
			long++
		}
	}
	return float64(long)/float64(len(all)) > poorLanguageRatio
}

// matchesAny stops at the first matching pattern.
func matchesAny(text string, patterns []*regexp.Regexp) bool {
	if text == "" {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
