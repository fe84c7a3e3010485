package extract

import (
	"regexp"
	"strings"

	"github.com/jimezsa/jobmatch/internal/models"
)

type educationTier struct {
	level    models.EducationLevel
	keywords []string
}

// Highest tier first.
var educationTiers = []educationTier{
	{models.EducationBac8, []string{"bac+8", "doctorat", "doctorate", "phd"}},
	{models.EducationBac5, []string{"bac+5", "master", "ingenieur"}},
	{models.EducationBac3, []string{"bac+3", "licence", "bachelor"}},
	{models.EducationBac2, []string{"bac+2", "dut", "bts"}},
	{models.EducationBac, []string{"bac"}},
}

var educationMatchers = compileKeywordMatchers(educationTiers)

// A keyword must be a whole word, optionally plural or feminine: "dut" matches
// "DUT informatique" but not "produit" or "Dutch", "bac" not "backend".
func compileKeywordMatchers(tiers []educationTier) [][]*regexp.Regexp {
	out := make([][]*regexp.Regexp, len(tiers))
	for i, tier := range tiers {
		for _, kw := range tier.keywords {
			out[i] = append(out[i], regexp.MustCompile(`(?:^|[^\pL\pN])` + regexp.QuoteMeta(kw) + `(?:e|s|es)?(?:$|[^\pL\pN])`))
		}
	}
	return out
}

// EducationLevel classifies the highest education tier mentioned in text.
func EducationLevel(text string) models.EducationLevel {
	folded := Fold(text)
	for i, tier := range educationTiers {
		for _, re := range educationMatchers[i] {
			if re.MatchString(folded) {
				return tier.level
			}
		}
	}
	return models.EducationUnspecified
}

var (
	remoteKeywords = []string{"teletravail", "remote", "a distance", "home office", "home-office"}
	hybridKeywords = []string{"hybride", "hybrid", "mixte", "partiel"}
	onsiteKeywords = []string{"sur site", "presentiel", "sur place", "on-site", "onsite"}
)

// WorkArrangement classifies remote/hybrid/onsite wording in text.
func WorkArrangement(text string) models.WorkArrangement {
	folded := Fold(text)
	switch {
	case containsAny(folded, remoteKeywords):
		if containsAny(folded, hybridKeywords) {
			return models.WorkHybrid
		}
		return models.WorkRemote
	case containsAny(folded, onsiteKeywords):
		return models.WorkOnsite
	default:
		return models.WorkUnspecified
	}
}

// ContractType picks the first contract keyword (cdi, stage, ...) in text, or "".
func ContractType(text string) string {
	folded := Fold(text)
	for _, kw := range []string{"temps plein", "temps partiel", "cdi", "cdd", "stage", "freelance", "alternance", "interim"} {
		if strings.Contains(folded, kw) {
			return kw
		}
	}
	return ""
}

func containsAny(value string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(value, kw) {
			return true
		}
	}
	return false
}
