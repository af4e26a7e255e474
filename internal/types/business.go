package types

import (
	"strings"
	"time"
)

// PlanTier is a business subscription level
type PlanTier string

const (
	PlanFree    PlanTier = "free"
	PlanStarter PlanTier = "starter"
	PlanPro     PlanTier = "pro"
	PlanPower   PlanTier = "power"
)

var planRank = map[PlanTier]int{
	PlanFree:    0,
	PlanStarter: 1,
	PlanPro:     2,
	PlanPower:   3,
}

// ParsePlanTier parses a plan tier name, defaulting unknown values to free
func ParsePlanTier(s string) PlanTier {
	p := PlanTier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := planRank[p]; ok {
		return p
	}
	return PlanFree
}

// Rank returns the ordering position free < starter < pro < power
func (p PlanTier) Rank() int {
	if r, ok := planRank[p]; ok {
		return r
	}
	return 0
}

// AtLeast reports whether p unlocks everything gated at min
func (p PlanTier) AtLeast(min PlanTier) bool {
	return p.Rank() >= min.Rank()
}

// SyncPriority maps a plan tier to its review sync priority.
// Paying tiers are serviced first, free tier still gets a slot.
func (p PlanTier) SyncPriority() int {
	switch p {
	case PlanPower:
		return 10
	case PlanPro:
		return 7
	case PlanStarter:
		return 5
	default:
		return 3
	}
}

// Business is the collaborator-owned listing record
type Business struct {
	ID         string   `json:"id"`
	PlaceID    string   `json:"placeId"` // external review source identifier
	Name       string   `json:"name"`
	City       string   `json:"city"`
	CategoryID string   `json:"categoryId"`
	PlanTier   PlanTier `json:"planTier"`
	Active     bool     `json:"active"`
}

// RawReview is a review as imported from the provider
type RawReview struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"businessId"`
	ExternalID string    `json:"externalId,omitempty"`
	AuthorName string    `json:"authorName"`
	Rating     float64   `json:"rating"`
	Comment    string    `json:"comment"`
	OwnerReply string    `json:"ownerReply,omitempty"`
	Source     string    `json:"source"` // 'provider', 'import'
	CreatedAt  time.Time `json:"createdAt"`
	ImportedAt time.Time `json:"importedAt"`
}

// ReviewKey is the dedupe identity of a review within one business
type ReviewKey struct {
	AuthorName string
	Comment    string
	Rating     float64
}

// ReviewStats summarises the stored raw reviews of one business
type ReviewStats struct {
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
}
