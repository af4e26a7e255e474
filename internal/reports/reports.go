// Package reports renders ranking reports, stores them and keeps an archive
// record per distinct file.
package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizrank/review-service/internal/database"
	"github.com/bizrank/review-service/internal/ranking"
	"github.com/bizrank/review-service/internal/storage"
	"github.com/bizrank/review-service/internal/types"
)

// KindRankings is the weekly cohort ranking workbook
const KindRankings = "rankings"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ArchiveStore records stored reports
type ArchiveStore interface {
	CreateReportArchive(ctx context.Context, a types.ReportArchive) (bool, error)
	GetReportArchiveByChecksum(ctx context.Context, checksum string) (*types.ReportArchive, error)
	GetReportArchive(ctx context.Context, id string) (*types.ReportArchive, error)
	ListReportArchives(ctx context.Context, kind string, limit, offset int) ([]types.ReportArchive, error)
	DeleteReportArchive(ctx context.Context, id string) error
}

// RankingSource lists the rankings a report covers
type RankingSource interface {
	List(ctx context.Context, filter types.RankingFilter) ([]types.Ranking, error)
}

// Service generates and archives reports
type Service struct {
	rankings RankingSource
	files    storage.Storage
	archive  ArchiveStore
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a report service
func NewService(rankings RankingSource, files storage.Storage, archive ArchiveStore, logger *zerolog.Logger) *Service {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "reports").Logger()
	}
	return &Service{rankings: rankings, files: files, archive: archive, now: time.Now, logger: l}
}

// WithClock replaces the time source, used by tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Result describes one generation run
type Result struct {
	Archive *types.ReportArchive `json:"archive"`
	Created bool                 `json:"created"` // false when identical content was already archived
}

// GenerateRankingReport writes every ranking into a workbook and archives it.
// A workbook byte-identical to an archived one is not stored again.
func (s *Service) GenerateRankingReport(ctx context.Context) (*Result, error) {
	rows, err := s.rankings.List(ctx, types.RankingFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list rankings: %w", err)
	}

	now := s.now().UTC()
	var buf bytes.Buffer
	if err := ranking.WriteReport(&buf, rows, now); err != nil {
		return nil, fmt.Errorf("failed to render ranking report: %w", err)
	}
	content := buf.Bytes()
	checksum := database.CalculateChecksum(content)

	existing, err := s.archive.GetReportArchiveByChecksum(ctx, checksum)
	switch {
	case err == nil:
		s.logger.Info().Str("report_id", existing.ID).Msg("Ranking report unchanged, skipping upload")
		return &Result{Archive: existing}, nil
	case !errors.Is(err, types.ErrNotFound):
		return nil, fmt.Errorf("failed to check report checksum: %w", err)
	}

	filename := fmt.Sprintf("rankings-%s.xlsx", now.Format("20060102T150405Z"))
	key := storage.ReportKey(KindRankings, now, filename)
	meta := &storage.Metadata{
		ContentType: xlsxContentType,
		Filename:    filename,
		ReportKind:  KindRankings,
		GeneratedAt: now,
		Rows:        len(rows),
	}
	if err := s.files.Put(ctx, key, content, meta); err != nil {
		return nil, fmt.Errorf("failed to store ranking report: %w", err)
	}

	record := types.ReportArchive{
		ID:          database.GenerateReportID(),
		Kind:        KindRankings,
		Filename:    filename,
		StorageKey:  key,
		StorageType: string(s.files.Type()),
		ContentType: xlsxContentType,
		FileSize:    int64(len(content)),
		Checksum:    checksum,
		RowCount:    len(rows),
		GeneratedAt: now,
		CreatedAt:   now,
	}
	created, err := s.archive.CreateReportArchive(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to record ranking report: %w", err)
	}

	s.logger.Info().
		Str("report_id", record.ID).
		Str("key", key).
		Int("rows", len(rows)).
		Int64("bytes", record.FileSize).
		Msg("Ranking report archived")
	return &Result{Archive: &record, Created: created}, nil
}

// Open returns an archived report and its content
func (s *Service) Open(ctx context.Context, id string) (*types.ReportArchive, []byte, error) {
	a, err := s.archive.GetReportArchive(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	content, err := s.files.Get(ctx, a.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read report %s: %w", id, err)
	}
	return a, content, nil
}

// List returns archived reports of kind, newest first
func (s *Service) List(ctx context.Context, kind string, limit, offset int) ([]types.ReportArchive, error) {
	return s.archive.ListReportArchives(ctx, kind, limit, offset)
}

// Prune deletes reports generated before now-retention, files first
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)
	deleted, offset := 0, 0
	for {
		batch, err := s.archive.ListReportArchives(ctx, "", 100, offset)
		if err != nil {
			return deleted, err
		}
		if len(batch) == 0 {
			return deleted, nil
		}
		for _, a := range batch {
			if !a.GeneratedAt.Before(cutoff) {
				offset++
				continue
			}
			if err := s.files.Delete(ctx, a.StorageKey); err != nil {
				return deleted, err
			}
			if err := s.archive.DeleteReportArchive(ctx, a.ID); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
}
