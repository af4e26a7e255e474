package reviews

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	providerhttp "github.com/bizrank/review-service/internal/http"
	"github.com/bizrank/review-service/internal/http/ratelimit"
)

const (
	// DefaultMaxReviews caps one sync of a place
	DefaultMaxReviews = 200
	// DefaultPageDelay is the pause between page requests
	DefaultPageDelay = 500 * time.Millisecond
	// DefaultEndpoint is the provider reviews endpoint path
	DefaultEndpoint = "/reviews"
)

// Requester performs one provider call with retry
type Requester interface {
	Request(ctx context.Context, endpoint string, payload any) (*providerhttp.Response, error)
}

// ReviewBatch is the accumulated result of paginating one place
type ReviewBatch struct {
	Reviews []ProviderReview
	Pages   int
}

type pageRequest struct {
	DataID string `json:"data_id"`
	SortBy string `json:"sort_by"`
	HL     string `json:"hl"`
	Token  string `json:"token,omitempty"`
}

// Fetcher paginates the provider reviews API
type Fetcher struct {
	client    Requester
	endpoint  string
	pageDelay time.Duration
	sleep     ratelimit.Sleeper
	now       func() time.Time
	logger    zerolog.Logger
}

// NewFetcher creates a fetcher against endpoint (DefaultEndpoint when empty)
func NewFetcher(client Requester, endpoint string, logger *zerolog.Logger) *Fetcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "review_fetcher").Logger()
	}
	return &Fetcher{
		client:    client,
		endpoint:  endpoint,
		pageDelay: DefaultPageDelay,
		sleep:     ratelimit.ContextSleep,
		now:       time.Now,
		logger:    l,
	}
}

// WithPageDelay overrides the inter-page delay and sleeper
func (f *Fetcher) WithPageDelay(d time.Duration, sleep ratelimit.Sleeper) *Fetcher {
	f.pageDelay = d
	if sleep != nil {
		f.sleep = sleep
	}
	return f
}

// FetchAllReviews pages through the reviews of placeID, newest first.
// It stops when no continuation token is returned, a page is empty, or
// maxReviews have been collected (excess is truncated).
func (f *Fetcher) FetchAllReviews(ctx context.Context, placeID string, maxReviews int) (*ReviewBatch, error) {
	if maxReviews <= 0 {
		maxReviews = DefaultMaxReviews
	}

	batch := &ReviewBatch{}
	token := ""

	for {
		if batch.Pages > 0 {
			if err := f.sleep(ctx, f.pageDelay); err != nil {
				return batch, err
			}
		}

		resp, err := f.client.Request(ctx, f.endpoint, pageRequest{
			DataID: placeID,
			SortBy: "newest",
			HL:     "en",
			Token:  token,
		})
		if err != nil {
			return batch, fmt.Errorf("failed to fetch reviews page %d for %s: %w", batch.Pages+1, placeID, err)
		}

		page, err := NormalizePage(resp.Body, f.now())
		if err != nil {
			return batch, fmt.Errorf("failed to normalize reviews page %d: %w", batch.Pages+1, err)
		}
		batch.Pages++

		f.logger.Debug().
			Str("place_id", placeID).
			Int("page", batch.Pages).
			Int("reviews", len(page.Reviews)).
			Bool("has_more", page.ContinuationToken != "").
			Msg("Fetched reviews page")

		if len(page.Reviews) == 0 {
			break
		}

		batch.Reviews = append(batch.Reviews, page.Reviews...)
		if len(batch.Reviews) >= maxReviews {
			batch.Reviews = batch.Reviews[:maxReviews]
			break
		}
		if page.ContinuationToken == "" {
			break
		}
		token = page.ContinuationToken
	}

	return batch, nil
}
