// Package match scores how well a posting fits a candidate profile and serves
// the filtered, ranked read path over stored postings.
package match

import (
	"math"
	"strings"

	"github.com/jimezsa/jobmatch/internal/models"
)

const (
	baseScore = 5
	fallback  = 2

	skillsWeight = 35
	skillsBonus  = 5

	locationExact   = 15
	locationPartial = 10

	workExact   = 15
	workPartial = 8

	salaryMet  = 10
	salaryNear = 5

	educationExact = 10
	educationMeets = 8

	maxScore = 100
)

// Score returns the additive fit of p for profile, in [0, 100]. Every
// criterion contributes at least the fallback so unknowns still rank above nothing.
func Score(profile models.CandidateProfile, p models.JobPosting) int {
	total := float64(baseScore)
	total += skillsScore(profile.Skills, p.Skills)
	total += float64(locationScore(profile.DesiredLocation, p.Location))
	total += float64(workScore(profile.WorkArrangement, p.WorkArrangement))
	total += float64(salaryScore(profile.DesiredSalary, p.Salary))
	total += float64(educationScore(profile.EducationLevel, p.EducationRequired))

	score := int(math.Round(total))
	if score > maxScore {
		return maxScore
	}
	if score < 0 {
		return 0
	}
	return score
}

func skillsScore(profile, posting models.SkillSet) float64 {
	if len(profile) == 0 || len(posting) == 0 {
		return fallback
	}
	want := profile.Keys()
	have := posting.Keys()
	common := 0
	for key := range have {
		if _, ok := want[key]; ok {
			common++
		}
	}
	if common == 0 {
		return fallback
	}
	return float64(common)/float64(len(have))*skillsWeight + skillsBonus
}

func locationScore(desired, location string) int {
	desired = strings.ToLower(strings.TrimSpace(desired))
	location = strings.ToLower(strings.TrimSpace(location))
	switch {
	case desired == "" || location == "":
		return fallback
	case desired == location:
		return locationExact
	case strings.Contains(location, desired) || strings.Contains(desired, location):
		return locationPartial
	default:
		return fallback
	}
}

func workScore(desired, offered models.WorkArrangement) int {
	if !known(desired) || !known(offered) {
		return fallback
	}
	switch {
	case desired == offered:
		return workExact
	case desired == models.WorkHybrid || offered == models.WorkHybrid:
		return workPartial
	default:
		return fallback
	}
}

func known(w models.WorkArrangement) bool {
	return w != "" && w != models.WorkUnspecified
}

func salaryScore(desired int, salary *models.Salary) int {
	offered := salary.Amount()
	if desired <= 0 || offered <= 0 {
		return fallback
	}
	switch {
	case offered >= desired:
		return salaryMet
	case float64(offered) >= 0.8*float64(desired):
		return salaryNear
	default:
		return fallback
	}
}

func educationScore(level, required models.EducationLevel) int {
	if !level.Known() || !required.Known() {
		return fallback
	}
	switch {
	case strings.EqualFold(string(level), string(required)):
		return educationExact
	case required.Rank() <= level.Rank():
		return educationMeets
	default:
		return fallback
	}
}
