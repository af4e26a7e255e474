package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizrank/review-service/internal/types"
)

func TestHeuristic_DetailedPositiveReview(t *testing.T) {
	in := Input{
		Text: "They came out the same day and fixed our leaking water heater on the first visit. " +
			"The technician was professional, explained everything clearly and was very knowledgeable. " +
			"Fair price, took about 2 hours, and they went the extra mile cleaning up. " +
			"Better than the other companies we called. Highly recommend!",
		Rating: 5,
	}

	tags, err := NewHeuristic().Analyze(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, tags.Validate())

	assert.True(t, tags.Quality.FirstTimeFix)
	assert.True(t, tags.Quality.ExceededExpectations)
	assert.True(t, tags.Competitive.ComparedFavorably)
	assert.True(t, tags.Recommendation.WouldRecommend)
	assert.Greater(t, tags.Service.Professionalism, 7.0)
	assert.Greater(t, tags.Performance.ResponseSpeed, 7.0)
	assert.Equal(t, types.SentimentPositive, tags.Sentiment.Classification)
	assert.GreaterOrEqual(t, tags.ConfidenceScore, types.MinTagConfidence)
	assert.Contains(t, tags.Topics, "professionalism")
	assert.Equal(t, HeuristicModelVersion, tags.ModelVersion)
}

func TestHeuristic_ShortReviewHasLowConfidence(t *testing.T) {
	tags, err := NewHeuristic().Analyze(context.Background(), Input{Text: "Great!", Rating: 5})
	require.NoError(t, err)
	assert.Less(t, tags.ConfidenceScore, types.MinTagConfidence)
}

func TestHeuristic_NegativeReview(t *testing.T) {
	in := Input{
		Text:   "Terrible experience. The crew was rude, showed up 3 hours late and we were overcharged. Avoid.",
		Rating: 1,
	}

	tags, err := NewHeuristic().Analyze(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, types.SentimentNegative, tags.Sentiment.Classification)
	assert.False(t, tags.Recommendation.WouldRecommend)
	assert.False(t, tags.Quality.ExceededExpectations)
	assert.Equal(t, 0.0, tags.Quality.ExcellenceIntensity)
	assert.Contains(t, tags.Topics, "negative")
}

func TestHeuristic_ConfidenceGrowsWithDetail(t *testing.T) {
	short, _ := NewHeuristic().Analyze(context.Background(), Input{Text: "Good job fixing the sink.", Rating: 4})
	long, _ := NewHeuristic().Analyze(context.Background(), Input{
		Text:   "Good job fixing the sink. Arrived within an hour, explained the cost up front, $120 total, and the repair has held for 3 months.",
		Rating: 4,
	})
	assert.Greater(t, long.ConfidenceScore, short.ConfidenceScore)
}

func TestHeuristic_Deterministic(t *testing.T) {
	in := Input{Text: "Quick, honest and professional. Will use again.", Rating: 4}
	a, _ := NewHeuristic().Analyze(context.Background(), in)
	b, _ := NewHeuristic().Analyze(context.Background(), in)
	assert.Equal(t, a, b)
}
