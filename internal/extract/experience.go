package extract

import (
	"regexp"
	"strconv"
)

// Patterns run against folded text, so accents are already gone.
var experiencePatterns = []*regexp.Regexp{
	// 5 ans d'experience
	regexp.MustCompile(`(\d+)\s*(?:ans?|annees?)\s*d['’"]\s*experience`),
	// experience de 5 ans
	regexp.MustCompile(`experience\s*(?:de|d['’"])?\s*(\d+)\s*(?:ans?|annees?)\b`),
	// 5 ans d'anciennete
	regexp.MustCompile(`(\d+)\s*(?:ans?|annees?)\s*d['’"]\s*anciennete`),
}

// ExperienceYears returns the required years of experience stated in text, or nil.
func ExperienceYears(text string) *int {
	if text == "" {
		return nil
	}
	folded := Fold(text)
	for _, re := range experiencePatterns {
		m := re.FindStringSubmatch(folded)
		if m == nil {
			continue
		}
		years, err := strconv.Atoi(m[1])
		if err != nil || years < 0 {
			continue
		}
		return &years
	}
	return nil
}
