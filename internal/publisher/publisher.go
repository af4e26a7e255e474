// Package publisher emits ranking and achievement events for collaborators.
package publisher

import (
	"context"
	"time"

	"github.com/bizrank/review-service/internal/types"
)

// Routing keys on the events exchange
const (
	RouteRankingUpdated     = "ranking.updated"
	RouteAchievementAwarded = "achievement.awarded"
)

// Publisher emits domain events. Publishing is best effort: callers log
// failures and carry on since the database remains authoritative.
type Publisher interface {
	RankingUpdated(ctx context.Context, r types.Ranking) error
	AchievementAwarded(ctx context.Context, a types.Achievement) error
	Close() error
}

// Event is the envelope of every message
type Event[T any] struct {
	Type       string    `json:"type"`
	BusinessID string    `json:"businessId"`
	Data       T         `json:"data"`
	Timestamp  time.Time `json:"timestamp"`
}

// Nop discards events; used when no broker is configured
type Nop struct{}

func (Nop) RankingUpdated(context.Context, types.Ranking) error { return nil }

func (Nop) AchievementAwarded(context.Context, types.Achievement) error { return nil }

func (Nop) Close() error { return nil }
