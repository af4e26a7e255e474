package achievements

import (
	"math"

	"github.com/bizrank/review-service/internal/types"
)

// Metrics are the named values tier requirements are tested against.
// Boolean metrics are stored as 1 or 0. A metric missing from the map fails
// every requirement on it.
type Metrics map[string]float64

// Bool reports a boolean metric and whether it is present
func (m Metrics) Bool(name string) (bool, bool) {
	v, ok := m[name]
	return v != 0, ok
}

// BuildMetrics aggregates eligible tags, review counts and the ranking.
// Ranking metrics are omitted when ranking is nil.
func BuildMetrics(tags []types.AnalysisTags, reviews types.ReviewStats, ranking *types.Ranking) Metrics {
	m := Metrics{
		"total_reviews": float64(reviews.Count),
		"avg_rating":    round2(reviews.AverageRating),
	}

	eligible := make([]types.AnalysisTags, 0, len(tags))
	for _, t := range tags {
		if t.Eligible() {
			eligible = append(eligible, t)
		}
	}
	m["reviews_analyzed"] = float64(len(eligible))

	if n := float64(len(eligible)); n > 0 {
		var sum struct {
			confidence      float64
			excellence      float64
			professionalism float64
			communication   float64
			expertise       float64
			advocacy        float64
			sentiment       float64
			responseSpeed   float64
			exceeded        float64
			firstTimeFix    float64
			recommend       float64
			compared        float64
			positive        float64
		}
		for _, t := range eligible {
			sum.confidence += t.ConfidenceScore
			sum.excellence += t.Quality.ExcellenceIntensity
			sum.professionalism += t.Service.Professionalism
			sum.communication += t.Service.Communication
			sum.expertise += t.Service.Expertise
			sum.advocacy += t.Recommendation.AdvocacyScore
			sum.sentiment += t.Sentiment.Overall
			sum.responseSpeed += t.Performance.ResponseSpeed
			sum.exceeded += indicator(t.Quality.ExceededExpectations)
			sum.firstTimeFix += indicator(t.Quality.FirstTimeFix)
			sum.recommend += indicator(t.Recommendation.WouldRecommend)
			sum.compared += indicator(t.Competitive.ComparedFavorably)
			sum.positive += indicator(t.Sentiment.Classification == types.SentimentPositive)
		}
		m["avg_confidence"] = round2(sum.confidence / n)
		m["avg_excellence"] = round2(sum.excellence / n)
		m["avg_professionalism"] = round2(sum.professionalism / n)
		m["avg_communication"] = round2(sum.communication / n)
		m["avg_expertise"] = round2(sum.expertise / n)
		m["avg_advocacy"] = round2(sum.advocacy / n)
		m["avg_sentiment"] = round2(sum.sentiment / n)
		m["avg_response_speed"] = round2(sum.responseSpeed / n)
		m["pct_exceeded_expectations"] = round2(sum.exceeded / n * 100)
		m["pct_first_time_fix"] = round2(sum.firstTimeFix / n * 100)
		m["pct_would_recommend"] = round2(sum.recommend / n * 100)
		m["pct_compared_favorably"] = round2(sum.compared / n * 100)
		m["pct_positive"] = round2(sum.positive / n * 100)
	}

	if ranking != nil {
		m["overall_score"] = ranking.OverallScore
		m["score_quality"] = ranking.CategoryScores.Quality
		m["score_service_excellence"] = ranking.CategoryScores.ServiceExcellence
		m["score_customer_experience"] = ranking.CategoryScores.CustomerExperience
		m["score_technical_mastery"] = ranking.CategoryScores.TechnicalMastery
		m["score_competitive_advantage"] = ranking.CategoryScores.CompetitiveAdvantage
		m["score_operational_excellence"] = ranking.CategoryScores.OperationalExcellence
		if pos := ranking.RankingPosition; pos > 0 {
			m["ranking_position"] = float64(pos)
			m["top_10"] = indicator(pos <= 10)
			m["top_3"] = indicator(pos <= 3)
			m["number_one"] = indicator(pos == 1)
		}
	}
	return m
}

// Satisfied reports whether the requirement holds in m
func (r Requirement) Satisfied(m Metrics) bool {
	v, ok := m[r.Metric]
	if !ok {
		return false
	}
	if r.Equals != nil {
		return (v != 0) == *r.Equals
	}
	return v >= *r.Min
}

// progress returns how far m is toward the requirement, 0-1
func (r Requirement) progress(m Metrics) float64 {
	if r.Satisfied(m) {
		return 1
	}
	if r.Equals != nil || *r.Min <= 0 {
		return 0
	}
	target := *r.Min
	return math.Max(0, math.Min(1, m[r.Metric]/target))
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
