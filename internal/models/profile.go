package models

// CandidateProfile is the read-only input to match scoring.
type CandidateProfile struct {
	DesiredLocation string          `json:"desired_location"`
	DesiredSalary   int             `json:"desired_salary"`
	WorkArrangement WorkArrangement `json:"work_arrangement"`
	EducationLevel  EducationLevel  `json:"education_level"`
	Skills          SkillSet        `json:"skills"`
	YearsExperience int             `json:"years_experience"`
}
