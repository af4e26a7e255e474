package ranking

import (
	"math"
	"time"

	"github.com/bizrank/review-service/internal/types"
)

// Category weights of the overall score
const (
	WeightQuality               = 0.25
	WeightServiceExcellence     = 0.20
	WeightCustomerExperience    = 0.20
	WeightTechnicalMastery      = 0.15
	WeightCompetitiveAdvantage  = 0.10
	WeightOperationalExcellence = 0.10
)

// MinEligibleReviews is the sample size a business needs to be ranked
const MinEligibleReviews = 5

// ReviewScores computes the six 0-10 category scores of one tag record
func ReviewScores(t types.AnalysisTags) types.CategoryScores {
	return types.CategoryScores{
		Quality: capTen(0.6*t.Quality.ExcellenceIntensity +
			0.25*flag(t.Quality.ExceededExpectations) +
			0.15*flag(t.Quality.FirstTimeFix)),
		ServiceExcellence: capTen(0.35*t.Service.Professionalism +
			0.35*t.Service.Communication +
			0.3*t.Service.Expertise),
		CustomerExperience: capTen(0.4*t.CustomerExperience.EmotionalImpact +
			0.3*t.CustomerExperience.BusinessImpact +
			0.3*t.CustomerExperience.RelationshipBuilding),
		TechnicalMastery: capTen(0.5*t.Service.Expertise +
			0.3*t.Performance.ProblemResolution +
			0.2*flag(t.Quality.FirstTimeFix)),
		CompetitiveAdvantage: capTen(0.7*competitiveMarkers(t.Competitive) +
			0.3*t.Recommendation.AdvocacyScore),
		OperationalExcellence: capTen(0.4*t.Performance.ResponseSpeed +
			0.3*t.Performance.ValueDelivery +
			0.3*t.Performance.ProblemResolution),
	}
}

// WeightedSum combines category scores with the category weights (0-10)
func WeightedSum(c types.CategoryScores) float64 {
	return c.Quality*WeightQuality +
		c.ServiceExcellence*WeightServiceExcellence +
		c.CustomerExperience*WeightCustomerExperience +
		c.TechnicalMastery*WeightTechnicalMastery +
		c.CompetitiveAdvantage*WeightCompetitiveAdvantage +
		c.OperationalExcellence*WeightOperationalExcellence
}

// RecencyWeight weights a review by its age
func RecencyWeight(age time.Duration) float64 {
	days := age.Hours() / 24
	switch {
	case days <= 30:
		return 1.0
	case days <= 60:
		return 0.8
	case days <= 90:
		return 0.6
	case days <= 180:
		return 0.4
	default:
		return 0.2
	}
}

// ConfidenceMultiplier rewards larger samples. It is piecewise linear,
// non-decreasing and bounded to [0.6, 1.1]: 0.8 at 5 reviews, 1.0 at 20,
// 1.1 from 35.
func ConfidenceMultiplier(n int) float64 {
	x := float64(n)
	switch {
	case n <= 0:
		return 0.6
	case n < 5:
		return 0.6 + 0.2*x/5
	case n <= 20:
		return 0.8 + 0.2*(x-5)/15
	case n <= 35:
		return 1.0 + 0.1*(x-20)/15
	default:
		return 1.1
	}
}

// OverallScore converts a weighted sum into the 0-100 overall score
func OverallScore(weightedSum, multiplier float64) float64 {
	return math.Min(round1(weightedSum*multiplier*10), 100)
}

// competitiveMarkers scores the competitive flags on a 0-10 scale
func competitiveMarkers(c types.CompetitiveMarkers) float64 {
	s := 0.0
	if c.ComparedFavorably {
		s += 4
	}
	if c.MarketPosition {
		s += 3
	}
	if c.Differentiation {
		s += 3
	}
	return s
}

func flag(b bool) float64 {
	if b {
		return 10
	}
	return 0
}

func capTen(v float64) float64 {
	return math.Max(0, math.Min(10, v))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
