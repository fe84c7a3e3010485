package extract

import (
	"regexp"
	"strings"
)

// UnspecifiedCompany is returned when no usable company name remains.
const UnspecifiedCompany = "Unspecified"

var (
	companySeparators = strings.NewReplacer("·", " ", "•", " ", "|", " ")
	companySuffixes   = regexp.MustCompile(`(?i)\b(?:SAS|SASU|SARL|SA|EURL|SNC|SCS|SCA|Inc|LLC|Ltd|Limited|Corp|Corporation|GmbH|AG|BV|PLC|SpA|Oy|AB|Group|Groupe|Holding|Consulting|Consultants)\b\.?`)
	trailingPunct     = regexp.MustCompile(`[,.;:\-_\s]+$`)
)

// CompanyName strips separators, legal-entity suffixes and trailing punctuation.
func CompanyName(name string) string {
	name = companySeparators.Replace(normalizeSpaces(name))
	name = strings.Join(strings.Fields(name), " ")
	name = companySuffixes.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")
	name = trailingPunct.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if name == "" {
		return UnspecifiedCompany
	}
	return name
}

// IsUnspecifiedCompany reports whether name is blank or the sentinel.
func IsUnspecifiedCompany(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || strings.EqualFold(name, UnspecifiedCompany)
}

// LogoURL derives a logo address from a cleaned company name.
func LogoURL(company string) string {
	compact := strings.NewReplacer(" ", "", ",", "", ".", "").Replace(strings.ToLower(company))
	if len(compact) < 3 || IsUnspecifiedCompany(company) {
		compact = "company"
	}
	return "https://logo.clearbit.com/" + compact + ".com"
}
