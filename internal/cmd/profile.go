package cmd

import (
	"fmt"
	"os"

	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/jimezsa/jobmatch/internal/models"
)

// loadProfile reads a candidate profile. Comments and trailing commas are
// accepted, like the config files.
func loadProfile(path string) (models.CandidateProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.CandidateProfile{}, fmt.Errorf("read profile %q: %w", path, err)
	}

	var raw struct {
		models.CandidateProfile
		Skills          []string `json:"skills"`
		WorkArrangement string   `json:"work_arrangement"`
		EducationLevel  string   `json:"education_level"`
	}
	if err := json5.Unmarshal(data, &raw); err != nil {
		return models.CandidateProfile{}, fmt.Errorf("parse profile %q: %w", path, err)
	}

	profile := raw.CandidateProfile
	profile.Skills = nil
	for _, skill := range raw.Skills {
		profile.Skills = profile.Skills.Add(models.SkillTag(skill))
	}
	profile.WorkArrangement = models.ParseWorkArrangement(raw.WorkArrangement)
	profile.EducationLevel = models.EducationLevel(raw.EducationLevel)
	if !profile.EducationLevel.Known() {
		profile.EducationLevel = ""
	}
	return profile, nil
}
