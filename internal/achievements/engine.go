// Package achievements awards tiered badges from a declarative catalog and
// tracks progress toward the tiers a business has not earned yet.
package achievements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/pkg/cuid2"
	"github.com/bizrank/review-service/internal/types"
)

var achievementsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "achievements_awarded_total",
	Help: "Total number of achievements awarded",
}, []string{"tier"})

// Store persists achievements and progress and exposes the detection inputs
type Store interface {
	ListAnalysisTags(ctx context.Context, businessID string) ([]types.AnalysisTags, error)
	GetRanking(ctx context.Context, businessID string) (*types.Ranking, error)
	ReviewStats(ctx context.Context, businessID string) (types.ReviewStats, error)

	ListAchievements(ctx context.Context, businessID string) ([]types.Achievement, error)
	// InsertAchievement stores a unless (business, type, tier) already exists
	// in any status; it reports whether a row was created.
	InsertAchievement(ctx context.Context, a types.Achievement) (bool, error)
	RevokeAchievement(ctx context.Context, id string) error
	UpsertAchievementProgress(ctx context.Context, p types.AchievementProgress) error
	DeleteAchievementProgress(ctx context.Context, businessID, achievementType string) error
	ListAchievementProgress(ctx context.Context, businessID string) ([]types.AchievementProgress, error)
}

// BusinessLookup resolves the collaborator-owned business record
type BusinessLookup interface {
	GetBusiness(ctx context.Context, id string) (*types.Business, error)
}

// Detection is the outcome of one detection pass
type Detection struct {
	BusinessID string                      `json:"businessId"`
	Awarded    []types.Achievement         `json:"awarded"`
	Progress   []types.AchievementProgress `json:"progress"`
	Metrics    Metrics                     `json:"metrics"`
}

// Engine evaluates the catalog against business metrics
type Engine struct {
	catalog    *Catalog
	store      Store
	businesses BusinessLookup
	now        func() time.Time
	logger     zerolog.Logger
}

// NewEngine creates an achievement engine
func NewEngine(catalog *Catalog, store Store, businesses BusinessLookup, logger *zerolog.Logger) *Engine {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "achievements").Logger()
	}
	return &Engine{catalog: catalog, store: store, businesses: businesses, now: time.Now, logger: l}
}

// WithClock replaces the time source, used by tests
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Detect awards every tier whose requirements pass and whose plan gate the
// business meets, then recomputes progress. Existing awards in any status
// are never recreated.
func (e *Engine) Detect(ctx context.Context, businessID string) (*Detection, error) {
	b, err := e.businesses.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load business %s: %w", businessID, err)
	}
	tags, err := e.store.ListAnalysisTags(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis tags: %w", err)
	}
	stats, err := e.store.ReviewStats(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load review stats: %w", err)
	}
	ranking, err := e.store.GetRanking(ctx, businessID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("failed to load ranking: %w", err)
	}
	existing, err := e.store.ListAchievements(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}

	held := make(map[string]bool, len(existing))
	for _, a := range existing {
		held[heldKey(a.AchievementType, a.TierLevel)] = true
	}

	metrics := BuildMetrics(tags, stats, ranking)
	now := e.now().UTC()
	result := &Detection{BusinessID: businessID, Metrics: metrics}

	for _, def := range e.catalog.Achievements {
		for _, tier := range def.Tiers {
			key := heldKey(def.Type, tier.Level)
			if held[key] || !b.PlanTier.AtLeast(tier.Plan) || !passes(tier, metrics) {
				continue
			}

			a := types.Achievement{
				ID:              cuid2.New("ach"),
				BusinessID:      businessID,
				AchievementType: def.Type,
				TierLevel:       tier.Level,
				TierRequirement: tier.Plan,
				DisplayName:     def.DisplayName,
				BadgeIcon:       def.BadgeIcon,
				DisplayPriority: def.DisplayPriority,
				QualifyingData:  qualifyingData(tier, metrics),
				Status:          types.AchievementActive,
				AwardedAt:       now,
			}
			created, err := e.store.InsertAchievement(ctx, a)
			if err != nil {
				return nil, fmt.Errorf("failed to award %s/%s: %w", def.Type, tier.Level, err)
			}
			held[key] = true
			if !created {
				continue
			}
			achievementsAwarded.WithLabelValues(string(tier.Level)).Inc()
			result.Awarded = append(result.Awarded, a)

			e.logger.Info().
				Str("business_id", businessID).
				Str("achievement", def.Type).
				Str("tier", string(tier.Level)).
				Msg("Achievement awarded")
		}

		p, pending := nextProgress(def, held, b.PlanTier, metrics, now)
		if !pending {
			if err := e.store.DeleteAchievementProgress(ctx, businessID, def.Type); err != nil {
				return nil, fmt.Errorf("failed to clear progress for %s: %w", def.Type, err)
			}
			continue
		}
		p.BusinessID = businessID
		if err := e.store.UpsertAchievementProgress(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to save progress for %s: %w", def.Type, err)
		}
		result.Progress = append(result.Progress, p)
	}

	return result, nil
}

// Revoke soft-deletes an achievement; it stays held and is never re-awarded
func (e *Engine) Revoke(ctx context.Context, id string) error {
	if err := e.store.RevokeAchievement(ctx, id); err != nil {
		return fmt.Errorf("failed to revoke achievement %s: %w", id, err)
	}
	e.logger.Info().Str("achievement_id", id).Msg("Achievement revoked")
	return nil
}

// List returns the achievements of a business
func (e *Engine) List(ctx context.Context, businessID string) ([]types.Achievement, error) {
	return e.store.ListAchievements(ctx, businessID)
}

// Progress returns the stored progress rows of a business
func (e *Engine) Progress(ctx context.Context, businessID string) ([]types.AchievementProgress, error) {
	return e.store.ListAchievementProgress(ctx, businessID)
}

// nextProgress describes the lowest unearned tier of def. It reports false
// when every tier is held.
func nextProgress(def Definition, held map[string]bool, plan types.PlanTier, m Metrics, now time.Time) (types.AchievementProgress, bool) {
	for _, tier := range def.Tiers {
		if held[heldKey(def.Type, tier.Level)] {
			continue
		}

		total := 0.0
		for _, r := range tier.Requirements {
			total += r.progress(m)
		}
		primary := tier.Requirements[0]
		target := 1.0
		if primary.Min != nil {
			target = *primary.Min
		} else if !*primary.Equals {
			target = 0
		}

		return types.AchievementProgress{
			AchievementType: def.Type,
			NextTier:        tier.Level,
			NextTierLocked:  !plan.AtLeast(tier.Plan),
			RequiredPlan:    tier.Plan,
			CurrentProgress: round2(total / float64(len(tier.Requirements)) * 100),
			CurrentValue:    m[primary.Metric],
			TargetValue:     target,
			Recommendation:  def.Recommendation,
			UpdatedAt:       now,
		}, true
	}
	return types.AchievementProgress{}, false
}

func passes(tier Tier, m Metrics) bool {
	for _, r := range tier.Requirements {
		if !r.Satisfied(m) {
			return false
		}
	}
	return true
}

// qualifyingData snapshots the metrics a tier was awarded on
func qualifyingData(tier Tier, m Metrics) json.RawMessage {
	snapshot := make(map[string]float64, len(tier.Requirements))
	for _, r := range tier.Requirements {
		snapshot[r.Metric] = m[r.Metric]
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil
	}
	return data
}

func heldKey(achievementType string, level types.TierLevel) string {
	return achievementType + "/" + string(level)
}
