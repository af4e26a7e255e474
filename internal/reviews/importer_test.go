package reviews

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizrank/review-service/internal/types"
)

type fakeReviewStore struct {
	existing    []types.ReviewKey
	inserted    []types.RawReview
	batchCalls  []int
	failBatches bool
	badAuthor   string
}

func (f *fakeReviewStore) ListReviewKeys(_ context.Context, _ string) ([]types.ReviewKey, error) {
	return f.existing, nil
}

func (f *fakeReviewStore) InsertReviews(_ context.Context, reviews []types.RawReview) error {
	f.batchCalls = append(f.batchCalls, len(reviews))
	if f.failBatches {
		return errors.New("batch rejected")
	}
	f.inserted = append(f.inserted, reviews...)
	return nil
}

func (f *fakeReviewStore) InsertReview(_ context.Context, review types.RawReview) error {
	if review.AuthorName == f.badAuthor {
		return errors.New("constraint violation")
	}
	f.inserted = append(f.inserted, review)
	return nil
}

func TestImport_DedupesAgainstStorageAndBatch(t *testing.T) {
	store := &fakeReviewStore{existing: []types.ReviewKey{
		{AuthorName: "Ana", Comment: "Great  service", Rating: 5},
	}}
	fetched := []ProviderReview{
		{AuthorName: "Ana", Text: "Great service", Rating: 5},   // duplicate of stored (whitespace)
		{AuthorName: "Ben", Text: "Fast and tidy", Rating: 4},   // new
		{AuthorName: "Ben", Text: "Fast  and tidy ", Rating: 4}, // duplicate within batch
		{AuthorName: "Cleo", Text: "   ", Rating: 3},            // empty comment
		{AuthorName: "Cleo", Text: "Fast and tidy", Rating: 4},  // different author
	}

	res, err := NewImporter(store, nil).Import(context.Background(), "biz-1", fetched)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.Len(t, res.ReviewIDs, 2)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, "biz-1", store.inserted[0].BusinessID)
	assert.Equal(t, "provider", store.inserted[0].Source)
	assert.False(t, store.inserted[0].CreatedAt.IsZero())
}

func TestImport_UnicodeNormalizedDuplicates(t *testing.T) {
	// "é" precomposed vs "e" + combining acute
	store := &fakeReviewStore{existing: []types.ReviewKey{
		{AuthorName: "Ren\u00e9", Comment: "Tr\u00e8s bien", Rating: 5},
	}}
	fetched := []ProviderReview{
		{AuthorName: "Rene\u0301", Text: "Tre\u0300s bien", Rating: 5},
	}

	res, err := NewImporter(store, nil).Import(context.Background(), "biz-1", fetched)

	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Duplicates)
}

func TestImport_SubBatchesOfHundred(t *testing.T) {
	store := &fakeReviewStore{}
	fetched := make([]ProviderReview, 250)
	for i := range fetched {
		fetched[i] = ProviderReview{AuthorName: fmt.Sprintf("user%d", i), Text: "nice", Rating: 5}
	}

	res, err := NewImporter(store, nil).Import(context.Background(), "biz-1", fetched)

	require.NoError(t, err)
	assert.Equal(t, 250, res.Created)
	assert.Equal(t, []int{100, 100, 50}, store.batchCalls)
}

func TestImport_FailedBatchFallsBackPerItem(t *testing.T) {
	store := &fakeReviewStore{failBatches: true, badAuthor: "broken"}
	fetched := []ProviderReview{
		{AuthorName: "ok1", Text: "fine", Rating: 5},
		{AuthorName: "broken", Text: "fine", Rating: 5},
		{AuthorName: "ok2", Text: "fine", Rating: 5},
	}

	res, err := NewImporter(store, nil).Import(context.Background(), "biz-1", fetched)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, store.inserted, 2)
}
