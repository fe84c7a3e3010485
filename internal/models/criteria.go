package models

// Criteria narrows stored postings on the read path. Zero values disable a filter.
type Criteria struct {
	Query           string
	Location        string
	WorkArrangement WorkArrangement
	SalaryMin       int
	Education       EducationLevel
	ExperienceMax   *int
	Skills          []string
	FraudMax        *float64
	HideFraud       bool
}
