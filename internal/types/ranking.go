package types

import (
	"encoding/json"
	"time"
)

// CategoryScores are the six 0-10 sub-scores composing the overall score
type CategoryScores struct {
	Quality               float64 `json:"quality"`
	ServiceExcellence     float64 `json:"serviceExcellence"`
	CustomerExperience    float64 `json:"customerExperience"`
	TechnicalMastery      float64 `json:"technicalMastery"`
	CompetitiveAdvantage  float64 `json:"competitiveAdvantage"`
	OperationalExcellence float64 `json:"operationalExcellence"`
}

// Ranking is a business's computed position within its (category, city) cohort
type Ranking struct {
	BusinessID           string         `json:"businessId"`
	CategoryID           string         `json:"categoryId"`
	City                 string         `json:"city"`
	OverallScore         float64        `json:"overallScore"`
	RankingPosition      int            `json:"rankingPosition"` // 0 until the cohort is re-ranked
	PreviousPosition     *int           `json:"previousPosition,omitempty"`
	CategoryScores       CategoryScores `json:"categoryScores"`
	ReviewsAnalyzed      int            `json:"reviewsAnalyzed"`
	ConfidenceScore      float64        `json:"confidenceScore"`
	ConfidenceMultiplier float64        `json:"confidenceMultiplier"`
	LastCalculated       time.Time      `json:"lastCalculated"`
}

// PositionUpdate renumbers one ranking row
type PositionUpdate struct {
	BusinessID       string
	Position         int
	PreviousPosition *int
}

// RankingFilter selects ranking rows; empty fields are ignored
type RankingFilter struct {
	BusinessID string
	CategoryID string
	City       string
	Limit      int
}

// TierLevel is an achievement tier
type TierLevel string

const (
	TierBronze   TierLevel = "bronze"
	TierSilver   TierLevel = "silver"
	TierGold     TierLevel = "gold"
	TierPlatinum TierLevel = "platinum"
	TierDiamond  TierLevel = "diamond"
)

// TierOrder lists tiers from lowest to highest
var TierOrder = []TierLevel{TierBronze, TierSilver, TierGold, TierPlatinum, TierDiamond}

// Rank returns the tier's index in TierOrder, or -1 when unknown
func (t TierLevel) Rank() int {
	for i, known := range TierOrder {
		if t == known {
			return i
		}
	}
	return -1
}

// AchievementStatus is active until an admin revokes it
type AchievementStatus string

const (
	AchievementActive  AchievementStatus = "active"
	AchievementRevoked AchievementStatus = "revoked"
)

// Achievement is one awarded (business, type, tier) badge
type Achievement struct {
	ID              string            `json:"id"`
	BusinessID      string            `json:"businessId"`
	AchievementType string            `json:"achievementType"`
	TierLevel       TierLevel         `json:"tierLevel"`
	TierRequirement PlanTier          `json:"tierRequirement"`
	DisplayName     string            `json:"displayName"`
	BadgeIcon       string            `json:"badgeIcon"`
	DisplayPriority int               `json:"displayPriority"`
	QualifyingData  json.RawMessage   `json:"qualifyingData,omitempty"`
	Status          AchievementStatus `json:"status"`
	AwardedAt       time.Time         `json:"awardedAt"`
}

// AchievementProgress tracks the next reachable tier of an unearned achievement
type AchievementProgress struct {
	BusinessID      string    `json:"businessId"`
	AchievementType string    `json:"achievementType"`
	NextTier        TierLevel `json:"nextTier"`
	NextTierLocked  bool      `json:"nextTierLocked"` // plan tier gates the next tier
	RequiredPlan    PlanTier  `json:"requiredPlan"`
	CurrentProgress float64   `json:"currentProgress"` // percent 0-100
	CurrentValue    float64   `json:"currentValue"`
	TargetValue     float64   `json:"targetValue"`
	Recommendation  string    `json:"recommendation"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
