// Package fraud scores postings for fraud risk with fixed heuristics and an
// optional statistical model.
package fraud

import (
	"context"
	"math"

	"github.com/jimezsa/jobmatch/internal/models"
	"github.com/rs/zerolog"
)

const (
	modelWeight = 0.7
	rulesWeight = 0.3
)

type Result struct {
	Probability float64
	Indicators  []models.FraudIndicator
	Risk        RiskLevel
}

type Scorer struct {
	model Model
	log   zerolog.Logger
}

// NewScorer returns a rule-only scorer when model is nil.
func NewScorer(model Model, logger zerolog.Logger) *Scorer {
	return &Scorer{model: model, log: logger}
}

func (s *Scorer) Score(ctx context.Context, p models.JobPosting) Result {
	probability, indicators := ruleScore(p)

	if s.model != nil {
		modelScore, err := s.model.PredictProbability(ctx, FeaturesOf(p))
		switch {
		case err != nil:
			s.log.Debug().Err(err).Str("url", p.SourceURL).Msg("fraud model unavailable, using rules only")
		case math.IsNaN(modelScore) || modelScore < 0 || modelScore > 1:
			s.log.Debug().Float64("score", modelScore).Str("url", p.SourceURL).Msg("fraud model out of range, using rules only")
		default:
			probability = clamp(modelWeight*modelScore + rulesWeight*probability)
		}
	}

	return Result{Probability: probability, Indicators: indicators, Risk: Risk(probability)}
}

// Apply scores p and stores the outcome on it.
func (s *Scorer) Apply(ctx context.Context, p *models.JobPosting) Result {
	result := s.Score(ctx, *p)
	p.FraudProbability = result.Probability
	p.FraudIndicators = result.Indicators
	return result
}
