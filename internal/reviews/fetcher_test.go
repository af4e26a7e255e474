package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	providerhttp "github.com/bizrank/review-service/internal/http"
	"github.com/bizrank/review-service/internal/http/ratelimit"
)

// scriptedRequester returns one canned body per call and records payloads
type scriptedRequester struct {
	bodies   []string
	err      error
	payloads []pageRequest
}

func (s *scriptedRequester) Request(_ context.Context, _ string, payload any) (*providerhttp.Response, error) {
	s.payloads = append(s.payloads, payload.(pageRequest))
	if s.err != nil {
		return nil, s.err
	}
	i := len(s.payloads) - 1
	if i >= len(s.bodies) {
		return &providerhttp.Response{Status: 200, Body: []byte(`[]`)}, nil
	}
	return &providerhttp.Response{Status: 200, Body: []byte(s.bodies[i])}, nil
}

func reviewsJSON(n int, offset int) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf(`{"rating":5,"user":{"name":"user%d"},"snippet":"review %d"}`, offset+i, offset+i))
	}
	return strings.Join(parts, ",")
}

func newTestFetcher(req Requester, delays *[]time.Duration) *Fetcher {
	return NewFetcher(req, "", nil).WithPageDelay(DefaultPageDelay, func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func TestFetchAllReviews_ThreePagesWithTrailingTokens(t *testing.T) {
	req := &scriptedRequester{bodies: []string{
		"[" + reviewsJSON(10, 0) + `,"T1"]`,
		"[" + reviewsJSON(10, 10) + `,"T2"]`,
		"[" + reviewsJSON(5, 20) + "]",
	}}
	var delays []time.Duration

	batch, err := newTestFetcher(req, &delays).FetchAllReviews(context.Background(), "place-1", 200)

	require.NoError(t, err)
	assert.Len(t, batch.Reviews, 25)
	assert.Equal(t, 3, batch.Pages)
	require.Len(t, req.payloads, 3)
	assert.Equal(t, "", req.payloads[0].Token)
	assert.Equal(t, "T1", req.payloads[1].Token)
	assert.Equal(t, "T2", req.payloads[2].Token)
	assert.Equal(t, []time.Duration{DefaultPageDelay, DefaultPageDelay}, delays)
}

func TestFetchAllReviews_CapStopsBeforeNextToken(t *testing.T) {
	req := &scriptedRequester{bodies: []string{
		"[" + reviewsJSON(10, 0) + `,"T1"]`,
		"[" + reviewsJSON(10, 10) + `,"T2"]`,
		"[" + reviewsJSON(5, 20) + `,"T3"]`,
		"[" + reviewsJSON(10, 25) + "]",
	}}
	var delays []time.Duration

	batch, err := newTestFetcher(req, &delays).FetchAllReviews(context.Background(), "place-1", 25)

	require.NoError(t, err)
	assert.Len(t, batch.Reviews, 25)
	assert.Equal(t, 3, batch.Pages)
	// page 3 still offered T3, the cap ended the walk
	require.Len(t, req.payloads, 3)
	assert.Equal(t, "T2", req.payloads[2].Token)
	assert.Len(t, delays, 2)
}

func TestFetchAllReviews_RequestShape(t *testing.T) {
	req := &scriptedRequester{bodies: []string{"[" + reviewsJSON(1, 0) + "]"}}
	var delays []time.Duration

	_, err := newTestFetcher(req, &delays).FetchAllReviews(context.Background(), "place-9", 0)
	require.NoError(t, err)

	raw, err := json.Marshal(req.payloads[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"data_id":"place-9","sort_by":"newest","hl":"en"}`, string(raw))
}

func TestFetchAllReviews_TruncatesAtMax(t *testing.T) {
	req := &scriptedRequester{bodies: []string{
		"[" + reviewsJSON(10, 0) + `,"T1"]`,
		"[" + reviewsJSON(10, 10) + `,"T2"]`,
	}}
	var delays []time.Duration

	batch, err := newTestFetcher(req, &delays).FetchAllReviews(context.Background(), "place-1", 15)

	require.NoError(t, err)
	assert.Len(t, batch.Reviews, 15)
	assert.Equal(t, 2, batch.Pages)
	assert.Len(t, req.payloads, 2)
}

func TestFetchAllReviews_StopsOnEmptyPage(t *testing.T) {
	req := &scriptedRequester{bodies: []string{
		"[" + reviewsJSON(3, 0) + `,"T1"]`,
		`["T2"]`,
		"[" + reviewsJSON(3, 3) + "]",
	}}
	var delays []time.Duration

	batch, err := newTestFetcher(req, &delays).FetchAllReviews(context.Background(), "place-1", 200)

	require.NoError(t, err)
	assert.Len(t, batch.Reviews, 3)
	assert.Len(t, req.payloads, 2)
}

func TestFetchAllReviews_PropagatesClassifiedError(t *testing.T) {
	req := &scriptedRequester{err: ratelimit.Classify("/reviews", 404, nil)}
	var delays []time.Duration

	_, err := newTestFetcher(req, &delays).FetchAllReviews(context.Background(), "place-1", 200)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ratelimit.ErrPermanent))
}
