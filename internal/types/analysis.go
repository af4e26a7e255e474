package types

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MinTagConfidence is the analysis confidence a tag needs to count toward ranking
const MinTagConfidence = 60.0

// QualityIndicators captures how well the work itself was done
type QualityIndicators struct {
	ExcellenceIntensity  float64 `json:"excellenceIntensity"` // 0-10
	ExceededExpectations bool    `json:"exceededExpectations"`
	FirstTimeFix         bool    `json:"firstTimeFix"`
	NoCallbacksNeeded    bool    `json:"noCallbacksNeeded"`
	AttentionToDetail    float64 `json:"attentionToDetail"` // 0-10
}

// ServiceExcellence scores the people delivering the service
type ServiceExcellence struct {
	Professionalism float64 `json:"professionalism"`
	Communication   float64 `json:"communication"`
	Expertise       float64 `json:"expertise"`
}

// CustomerExperience scores how the customer felt about the interaction
type CustomerExperience struct {
	EmotionalImpact      float64 `json:"emotionalImpact"`
	BusinessImpact       float64 `json:"businessImpact"`
	RelationshipBuilding float64 `json:"relationshipBuilding"`
}

// CompetitiveMarkers flags statements that position the business against others
type CompetitiveMarkers struct {
	ComparedFavorably      bool `json:"comparedFavorably"`
	MarketPosition         bool `json:"marketPosition"` // "best in town"
	Differentiation        bool `json:"differentiation"`
	SwitchedFromCompetitor bool `json:"switchedFromCompetitor"`
}

// BusinessPerformance scores operational delivery
type BusinessPerformance struct {
	ResponseSpeed     float64 `json:"responseSpeed"`
	ValueDelivery     float64 `json:"valueDelivery"`
	ProblemResolution float64 `json:"problemResolution"`
}

// Recommendation captures advocacy strength
type Recommendation struct {
	AdvocacyScore  float64 `json:"advocacyScore"` // 0-10
	WouldRecommend bool    `json:"wouldRecommend"`
}

// Sentiment classifications
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
	SentimentMixed    = "mixed"
)

// Sentiment is the overall polarity of a review
type Sentiment struct {
	Overall        float64 `json:"overall"` // -1..1
	Classification string  `json:"classification"`
}

// AnalysisTags is the closed, strategy-agnostic analysis record of one review
type AnalysisTags struct {
	ReviewID           string              `json:"reviewId"`
	BusinessID         string              `json:"businessId"`
	Quality            QualityIndicators   `json:"quality"`
	Service            ServiceExcellence   `json:"serviceExcellence"`
	CustomerExperience CustomerExperience  `json:"customerExperience"`
	Competitive        CompetitiveMarkers  `json:"competitive"`
	Performance        BusinessPerformance `json:"businessPerformance"`
	Recommendation     Recommendation      `json:"recommendation"`
	Sentiment          Sentiment           `json:"sentiment"`
	Keywords           []string            `json:"keywords"`
	Topics             []string            `json:"topics"`
	ConfidenceScore    float64             `json:"confidenceScore"` // 0-100
	ModelVersion       string              `json:"modelVersion"`
	Rating             float64             `json:"rating"`
	ReviewDate         time.Time           `json:"reviewDate"`
	AnalyzedAt         time.Time           `json:"analyzedAt"`
}

// Eligible reports whether the tag counts toward ranking
func (t AnalysisTags) Eligible() bool {
	return t.ConfidenceScore >= MinTagConfidence
}

const maxKeywords = 20

// Validate checks the record at the ingestion boundary. Out-of-range numbers
// are rejected when NaN and clamped otherwise so a slightly noisy model reply
// is still usable.
func (t *AnalysisTags) Validate() error {
	scores := []*float64{
		&t.Quality.ExcellenceIntensity,
		&t.Quality.AttentionToDetail,
		&t.Service.Professionalism,
		&t.Service.Communication,
		&t.Service.Expertise,
		&t.CustomerExperience.EmotionalImpact,
		&t.CustomerExperience.BusinessImpact,
		&t.CustomerExperience.RelationshipBuilding,
		&t.Performance.ResponseSpeed,
		&t.Performance.ValueDelivery,
		&t.Performance.ProblemResolution,
		&t.Recommendation.AdvocacyScore,
	}
	for _, s := range scores {
		if math.IsNaN(*s) || math.IsInf(*s, 0) {
			return fmt.Errorf("sub-score is not a finite number")
		}
		*s = clamp(*s, 0, 10)
	}

	if math.IsNaN(t.Sentiment.Overall) || math.IsNaN(t.ConfidenceScore) {
		return fmt.Errorf("sentiment or confidence is not a number")
	}
	t.Sentiment.Overall = clamp(t.Sentiment.Overall, -1, 1)
	t.ConfidenceScore = clamp(t.ConfidenceScore, 0, 100)

	switch c := strings.ToLower(strings.TrimSpace(t.Sentiment.Classification)); c {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentMixed:
		t.Sentiment.Classification = c
	case "":
		t.Sentiment.Classification = ClassifySentiment(t.Sentiment.Overall)
	default:
		return fmt.Errorf("unknown sentiment classification %q", t.Sentiment.Classification)
	}

	t.Keywords = dedupeLower(t.Keywords, maxKeywords)
	t.Topics = dedupeLower(t.Topics, maxKeywords)
	return nil
}

// ClassifySentiment maps a polarity score to its classification
func ClassifySentiment(overall float64) string {
	switch {
	case overall >= 0.25:
		return SentimentPositive
	case overall <= -0.25:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func dedupeLower(in []string, limit int) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
