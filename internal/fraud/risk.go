package fraud

// RiskLevel bands a fraud probability for display.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very-low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very-high"
)

func Risk(probability float64) RiskLevel {
	switch {
	case probability < 0.2:
		return RiskVeryLow
	case probability < 0.4:
		return RiskLow
	case probability < 0.6:
		return RiskMedium
	case probability < 0.8:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

func (r RiskLevel) Label() string {
	switch r {
	case RiskVeryLow:
		return "Very low"
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	default:
		return "Very high"
	}
}

// Class is the display severity: success, info, warning or danger.
func (r RiskLevel) Class() string {
	switch r {
	case RiskVeryLow:
		return "success"
	case RiskLow:
		return "info"
	case RiskMedium:
		return "warning"
	default:
		return "danger"
	}
}
