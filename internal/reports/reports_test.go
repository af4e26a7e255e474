package reports

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bizrank/review-service/internal/ranking"
	"github.com/bizrank/review-service/internal/storage"
	"github.com/bizrank/review-service/internal/storage/memory"
	"github.com/bizrank/review-service/internal/types"
)

type staticRankings []types.Ranking

func (s staticRankings) List(context.Context, types.RankingFilter) ([]types.Ranking, error) {
	return s, nil
}

// knownChecksum reports every checksum as already archived
type knownChecksum struct {
	*memory.Store
	existing types.ReportArchive
}

func (k knownChecksum) GetReportArchiveByChecksum(context.Context, string) (*types.ReportArchive, error) {
	return &k.existing, nil
}

func newService(t *testing.T, archive ArchiveStore, now time.Time) (*Service, *storage.Local) {
	t.Helper()
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	rows := staticRankings{
		{BusinessID: "b1", CategoryID: "plumbing", City: "austin", OverallScore: 82.4, RankingPosition: 1},
		{BusinessID: "b2", CategoryID: "plumbing", City: "austin", OverallScore: 71, RankingPosition: 2},
	}
	svc := NewService(rows, files, archive, nil).WithClock(func() time.Time { return now })
	return svc, files
}

func TestGenerateRankingReport(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC)
	store := memory.New()
	svc, files := newService(t, store, now)

	res, err := svc.GenerateRankingReport(ctx)

	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "reports/rankings/2026-03-08/rankings-20260308T230000Z.xlsx", res.Archive.StorageKey)
	assert.Equal(t, 2, res.Archive.RowCount)
	assert.Equal(t, "local", res.Archive.StorageType)
	assert.Len(t, res.Archive.Checksum, 64)

	info, err := files.Stat(ctx, res.Archive.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, res.Archive.Checksum, info.Checksum)
	assert.Equal(t, res.Archive.FileSize, info.Size)

	a, content, err := svc.Open(ctx, res.Archive.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Archive.ID, a.ID)
	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(ranking.ReportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestGenerateRankingReport_SkipsKnownContent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC)
	existing := types.ReportArchive{ID: "rpt_existing", StorageKey: "reports/rankings/old.xlsx"}
	svc, files := newService(t, knownChecksum{Store: memory.New(), existing: existing}, now)

	res, err := svc.GenerateRankingReport(ctx)

	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "rpt_existing", res.Archive.ID)
	keys, err := files.List(ctx, "reports/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC)
	store := memory.New()
	svc, files := newService(t, store, now)

	for i, age := range []time.Duration{1, 40, 100} {
		generated := now.Add(-age * 24 * time.Hour)
		key := storage.ReportKey(KindRankings, generated, "r.xlsx")
		require.NoError(t, files.Put(ctx, key, []byte{byte(i)}, nil))
		_, err := store.CreateReportArchive(ctx, types.ReportArchive{
			ID:          string(rune('a' + i)),
			Kind:        KindRankings,
			StorageKey:  key,
			Checksum:    key,
			GeneratedAt: generated,
		})
		require.NoError(t, err)
	}

	n, err := svc.Prune(ctx, 30*24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	remaining, err := svc.List(ctx, KindRankings, 10, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "a", remaining[0].ID)
	keys, err := files.List(ctx, "reports/")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}
