package match

import (
	"sort"
	"strings"

	"github.com/jimezsa/jobmatch/internal/extract"
	"github.com/jimezsa/jobmatch/internal/models"
)

const (
	DefaultMinScore = 10
	DefaultLimit    = 100

	// HideFraudThreshold is the probability above which HideFraud drops a posting.
	HideFraudThreshold = 0.6
)

type Scored struct {
	Posting models.JobPosting
	Score   int
}

// Rank scores postings for profile, keeps those at or above minScore and returns
// at most limit of them, best first. Placeholder postings are skipped.
func Rank(profile models.CandidateProfile, postings []models.JobPosting, minScore, limit int) []Scored {
	scored := make([]Scored, 0, len(postings))
	for _, p := range postings {
		if extract.IsPlaceholderURL(p.SourceURL) {
			continue
		}
		score := Score(profile, p)
		if score < minScore {
			continue
		}
		scored = append(scored, Scored{Posting: p, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Filter applies the read-path criteria. Zero-valued criteria are ignored.
func Filter(postings []models.JobPosting, c models.Criteria) []models.JobPosting {
	query := extract.Fold(strings.TrimSpace(c.Query))
	location := extract.Fold(strings.TrimSpace(c.Location))
	skills := models.NewSkillSet()
	for _, s := range c.Skills {
		skills = skills.Add(models.SkillTag(s))
	}

	out := make([]models.JobPosting, 0, len(postings))
	for _, p := range postings {
		if extract.IsPlaceholderURL(p.SourceURL) {
			continue
		}
		if query != "" && !containsFolded(query, p.Title, p.Description, p.CompanyName) {
			continue
		}
		if location != "" && !strings.Contains(extract.Fold(p.Location), location) {
			continue
		}
		if known(c.WorkArrangement) && p.WorkArrangement != c.WorkArrangement {
			continue
		}
		if c.SalaryMin > 0 && p.Salary.Amount() < c.SalaryMin {
			continue
		}
		if c.Education.Known() && !strings.EqualFold(string(p.EducationRequired), string(c.Education)) {
			continue
		}
		if c.ExperienceMax != nil && p.ExperienceRequired != nil && *p.ExperienceRequired > *c.ExperienceMax {
			continue
		}
		if len(skills) > 0 && !anySkill(skills, p.Skills) {
			continue
		}
		if c.FraudMax != nil && p.FraudProbability > *c.FraudMax {
			continue
		}
		if c.HideFraud && p.FraudProbability > HideFraudThreshold {
			continue
		}
		out = append(out, p)
	}
	return out
}

func containsFolded(needle string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(extract.Fold(field), needle) {
			return true
		}
	}
	return false
}

func anySkill(wanted, have models.SkillSet) bool {
	for _, tag := range have {
		if wanted.Contains(tag) {
			return true
		}
	}
	return false
}
