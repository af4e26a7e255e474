package achievements

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/bizrank/review-service/internal/storage/memory"
	"github.com/bizrank/review-service/internal/types"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func analysedTags(businessID string, n int, confidence float64) []types.AnalysisTags {
	out := make([]types.AnalysisTags, n)
	for i := range out {
		out[i] = types.AnalysisTags{
			ReviewID:        fmt.Sprintf("%s-rev-%02d", businessID, i),
			BusinessID:      businessID,
			Quality:         types.QualityIndicators{ExcellenceIntensity: 8, FirstTimeFix: i%2 == 0},
			Service:         types.ServiceExcellence{Professionalism: 8, Communication: 8, Expertise: 8},
			Performance:     types.BusinessPerformance{ResponseSpeed: 8, ValueDelivery: 8, ProblemResolution: 8},
			Recommendation:  types.Recommendation{AdvocacyScore: 8, WouldRecommend: true},
			Sentiment:       types.Sentiment{Overall: 0.8, Classification: types.SentimentPositive},
			ConfidenceScore: confidence,
			ReviewDate:      now,
		}
	}
	return out
}

// goldRanking has every category score exactly at the gold threshold
func goldRanking(businessID string) types.Ranking {
	return types.Ranking{
		BusinessID:   businessID,
		CategoryID:   "plumbing",
		City:         "Split",
		OverallScore: 78,
		CategoryScores: types.CategoryScores{
			Quality: 8.0, ServiceExcellence: 8.0, CustomerExperience: 8.0,
			TechnicalMastery: 8.0, CompetitiveAdvantage: 5.0, OperationalExcellence: 8.0,
		},
		ReviewsAnalyzed: 20,
		ConfidenceScore: 75,
		RankingPosition: 4,
	}
}

type EngineSuite struct {
	suite.Suite

	ctx    context.Context
	store  *memory.Store
	engine *Engine
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	catalog, err := DefaultCatalog()
	s.Require().NoError(err)
	s.engine = NewEngine(catalog, s.store, s.store, nil).WithClock(func() time.Time { return now })
}

func (s *EngineSuite) seed(id string, plan types.PlanTier) {
	s.Require().NoError(s.store.PutBusiness(s.ctx, types.Business{
		ID: id, PlaceID: "place-" + id, CategoryID: "plumbing", City: "Split", PlanTier: plan, Active: true,
	}))
	for _, tag := range analysedTags(id, 20, 75) {
		s.Require().NoError(s.store.UpsertAnalysisTags(s.ctx, tag))
	}
	s.Require().NoError(s.store.SaveRanking(s.ctx, goldRanking(id)))
}

func (s *EngineSuite) tiersOf(businessID, achievementType string) []types.Achievement {
	all, err := s.store.ListAchievements(s.ctx, businessID)
	s.Require().NoError(err)
	var out []types.Achievement
	for _, a := range all {
		if a.AchievementType == achievementType {
			out = append(out, a)
		}
	}
	return out
}

func (s *EngineSuite) progressOf(businessID, achievementType string) *types.AchievementProgress {
	rows, err := s.store.ListAchievementProgress(s.ctx, businessID)
	s.Require().NoError(err)
	for _, p := range rows {
		if p.AchievementType == achievementType {
			return &p
		}
	}
	return nil
}

func (s *EngineSuite) TestGoldThresholdsOnProPlan() {
	s.seed("b1", types.PlanPro)

	_, err := s.engine.Detect(s.ctx, "b1")
	s.Require().NoError(err)

	quality := s.tiersOf("b1", "quality_excellence")
	s.Require().Len(quality, 3)
	gold := quality[2]
	s.Equal(types.TierGold, gold.TierLevel)
	s.Equal(types.PlanPro, gold.TierRequirement)
	s.Equal("Quality Excellence", gold.DisplayName)
	s.Equal("badge-quality", gold.BadgeIcon)
	s.Equal(types.AchievementActive, gold.Status)
	s.Equal(now, gold.AwardedAt)

	var qualifying map[string]float64
	s.Require().NoError(json.Unmarshal(gold.QualifyingData, &qualifying))
	s.Equal(8.0, qualifying["score_quality"])
	s.Equal(20.0, qualifying["reviews_analyzed"])
	s.Equal(75.0, qualifying["avg_confidence"])

	p := s.progressOf("b1", "quality_excellence")
	s.Require().NotNil(p)
	s.Equal(types.TierPlatinum, p.NextTier)
	s.False(p.NextTierLocked)
	s.Equal(8.0, p.CurrentValue)
	s.Equal(8.5, p.TargetValue)
	s.Less(p.CurrentProgress, 100.0)
	s.NotEmpty(p.Recommendation)
}

func (s *EngineSuite) TestStarterPlanCapsTiers() {
	s.seed("b1", types.PlanStarter)

	_, err := s.engine.Detect(s.ctx, "b1")
	s.Require().NoError(err)

	all, err := s.store.ListAchievements(s.ctx, "b1")
	s.Require().NoError(err)
	s.Require().NotEmpty(all)
	for _, a := range all {
		s.LessOrEqual(a.TierRequirement.Rank(), types.PlanStarter.Rank(), "%s/%s", a.AchievementType, a.TierLevel)
		s.LessOrEqual(a.TierLevel.Rank(), types.TierSilver.Rank(), "%s/%s", a.AchievementType, a.TierLevel)
	}

	quality := s.tiersOf("b1", "quality_excellence")
	s.Len(quality, 2)
	p := s.progressOf("b1", "quality_excellence")
	s.Require().NotNil(p)
	s.Equal(types.TierGold, p.NextTier)
	s.True(p.NextTierLocked)
	s.Equal(types.PlanPro, p.RequiredPlan)
	s.Equal(100.0, p.CurrentProgress)
}

func (s *EngineSuite) TestDetectionIsIdempotent() {
	s.seed("b1", types.PlanPower)

	first, err := s.engine.Detect(s.ctx, "b1")
	s.Require().NoError(err)
	s.NotEmpty(first.Awarded)
	before, err := s.store.ListAchievements(s.ctx, "b1")
	s.Require().NoError(err)

	second, err := s.engine.Detect(s.ctx, "b1")
	s.Require().NoError(err)
	s.Empty(second.Awarded)
	after, err := s.store.ListAchievements(s.ctx, "b1")
	s.Require().NoError(err)
	s.Equal(len(before), len(after))
}

func (s *EngineSuite) TestRevokedIsNeverReawarded() {
	s.seed("b1", types.PlanPro)
	_, err := s.engine.Detect(s.ctx, "b1")
	s.Require().NoError(err)
	gold := s.tiersOf("b1", "quality_excellence")[2]

	s.Require().NoError(s.engine.Revoke(s.ctx, gold.ID))
	_, err = s.engine.Detect(s.ctx, "b1")
	s.Require().NoError(err)

	quality := s.tiersOf("b1", "quality_excellence")
	s.Len(quality, 3)
	s.Equal(types.AchievementRevoked, quality[2].Status)
}

func (s *EngineSuite) TestRevokeUnknown() {
	s.ErrorIs(s.engine.Revoke(s.ctx, "ach_missing"), types.ErrNotFound)
}

func (s *EngineSuite) TestRankingMetricsNeedARanking() {
	s.Require().NoError(s.store.PutBusiness(s.ctx, types.Business{ID: "b2", PlanTier: types.PlanPower, Active: true}))
	for _, tag := range analysedTags("b2", 3, 80) {
		s.Require().NoError(s.store.UpsertAnalysisTags(s.ctx, tag))
	}

	res, err := s.engine.Detect(s.ctx, "b2")

	s.Require().NoError(err)
	s.Empty(res.Awarded)
	p := s.progressOf("b2", "market_leader")
	s.Require().NotNil(p)
	s.Equal(types.TierBronze, p.NextTier)
	s.Equal(0.0, p.CurrentProgress)
}

func (s *EngineSuite) TestProgressRemovedWhenAllTiersEarned() {
	catalog, err := ParseCatalog([]byte(`
achievements:
  - type: first_steps
    displayName: First Steps
    badgeIcon: badge-steps
    recommendation: Keep going.
    tiers:
      - level: bronze
        plan: free
        requirements:
          - {metric: reviews_analyzed, min: 30}
`))
	s.Require().NoError(err)
	engine := NewEngine(catalog, s.store, s.store, nil)
	s.seed("b1", types.PlanFree)

	_, err = engine.Detect(s.ctx, "b1")
	s.Require().NoError(err)
	s.NotNil(s.progressOf("b1", "first_steps"))

	for _, tag := range analysedTags("b1", 30, 75) {
		s.Require().NoError(s.store.UpsertAnalysisTags(s.ctx, tag))
	}
	res, err := engine.Detect(s.ctx, "b1")
	s.Require().NoError(err)
	s.Len(res.Awarded, 1)
	s.Nil(s.progressOf("b1", "first_steps"))
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func TestBuildMetrics(t *testing.T) {
	tags := analysedTags("b1", 4, 80)
	tags = append(tags, types.AnalysisTags{ReviewID: "low", ConfidenceScore: 20})
	ranking := goldRanking("b1")
	ranking.RankingPosition = 2

	m := BuildMetrics(tags, types.ReviewStats{Count: 12, AverageRating: 4.456}, &ranking)

	assert.Equal(t, 4.0, m["reviews_analyzed"])
	assert.Equal(t, 12.0, m["total_reviews"])
	assert.Equal(t, 4.46, m["avg_rating"])
	assert.Equal(t, 80.0, m["avg_confidence"])
	assert.Equal(t, 50.0, m["pct_first_time_fix"])
	assert.Equal(t, 100.0, m["pct_would_recommend"])
	assert.Equal(t, 8.0, m["score_quality"])
	top3, ok := m.Bool("top_3")
	require.True(t, ok)
	assert.True(t, top3)
	one, _ := m.Bool("number_one")
	assert.False(t, one)

	bare := BuildMetrics(nil, types.ReviewStats{}, nil)
	assert.NotContains(t, bare, "score_quality")
	assert.NotContains(t, bare, "avg_confidence")
	_, ok = bare.Bool("top_10")
	assert.False(t, ok)
}

func TestRequirementSatisfied(t *testing.T) {
	threshold := 8.0
	yes := true
	m := Metrics{"score": 8.0, "flag": 0}

	assert.True(t, Requirement{Metric: "score", Min: &threshold}.Satisfied(m))
	assert.False(t, Requirement{Metric: "flag", Equals: &yes}.Satisfied(m))
	assert.False(t, Requirement{Metric: "absent", Min: &threshold}.Satisfied(m))
	m["score"] = 7.99
	assert.False(t, Requirement{Metric: "score", Min: &threshold}.Satisfied(m))
}
