package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jimezsa/jobmatch/internal/models"
)

type salaryPattern struct {
	re    *regexp.Regexp
	parse func(m []string) (*models.Salary, error)
}

// Ordered from most to least specific; the first pattern that matches and parses wins.
var salaryPatterns = []salaryPattern{
	// 45k-60k, 45,5k – 60k
	{
		re: regexp.MustCompile(`(?i)(\d{1,3})(?:[.,](\d{1,3}))?\s*k\s*[-–]\s*(\d{1,3})(?:[.,](\d{1,3}))?\s*k`),
		parse: func(m []string) (*models.Salary, error) {
			low, err := thousands(m[1], m[2])
			if err != nil {
				return nil, err
			}
			high, err := thousands(m[3], m[4])
			if err != nil {
				return nil, err
			}
			return models.SalaryRange(low, high), nil
		},
	},
	// 45 000 - 60 000 €
	{
		re: regexp.MustCompile(`(?i)(\d{1,3}(?: ?\d{3})+)\s*(?:€|euros?)?\s*(?:[-–]|à)\s*(\d{1,3}(?: ?\d{3})+)\s*(?:€|euros?)`),
		parse: func(m []string) (*models.Salary, error) {
			low, err := atoiSpaced(m[1])
			if err != nil {
				return nil, err
			}
			high, err := atoiSpaced(m[2])
			if err != nil {
				return nil, err
			}
			return models.SalaryRange(low, high), nil
		},
	},
	// 50.5k, 50,5k
	{
		re: regexp.MustCompile(`(?i)\b(\d{1,2})[.,](\d{1,3})\s*k\b`),
		parse: func(m []string) (*models.Salary, error) {
			amount, err := thousands(m[1], m[2])
			if err != nil {
				return nil, err
			}
			return models.SalaryAmount(amount), nil
		},
	},
	// 50 000 €, 50k
	{
		re: regexp.MustCompile(`(?i)\b(\d{1,3}(?: ?\d{3})*)\s*(€|k\b)`),
		parse: func(m []string) (*models.Salary, error) {
			amount, err := atoiSpaced(m[1])
			if err != nil {
				return nil, err
			}
			if strings.EqualFold(m[2], "k") {
				amount *= 1000
			}
			return models.SalaryAmount(amount), nil
		},
	},
	// 50 000 euros
	{
		re: regexp.MustCompile(`(?i)\b(\d{1,3}(?: ?\d{3})*)\s*euros?\b`),
		parse: func(m []string) (*models.Salary, error) {
			amount, err := atoiSpaced(m[1])
			if err != nil {
				return nil, err
			}
			return models.SalaryAmount(amount), nil
		},
	},
}

// Salary returns the first salary figure or range found in text, or nil.
// Parse failures are swallowed and the next pattern is tried.
func Salary(text string) *models.Salary {
	text = normalizeSpaces(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, pattern := range salaryPatterns {
		m := pattern.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		salary, err := pattern.parse(m)
		if err != nil || salary == nil || salary.Min <= 0 {
			continue
		}
		return salary
	}
	return nil
}

func atoiSpaced(value string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(value, " ", ""))
}

// thousands turns "50" + "5" into 50500.
func thousands(whole, fraction string) (int, error) {
	if fraction == "" {
		fraction = "0"
	}
	f, err := strconv.ParseFloat(whole+"."+fraction, 64)
	if err != nil {
		return 0, err
	}
	return int(f*1000 + 0.5), nil
}
