package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bizrank/review-service/internal/types"
)

const archiveColumns = `id, kind, filename, storage_key, storage_type, content_type,
	file_size, checksum, row_count, generated_at, created_at`

func scanArchive(row pgx.Row) (*types.ReportArchive, error) {
	var a types.ReportArchive
	err := row.Scan(
		&a.ID, &a.Kind, &a.Filename, &a.StorageKey, &a.StorageType, &a.ContentType,
		&a.FileSize, &a.Checksum, &a.RowCount, &a.GeneratedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateReportArchive records a stored report. A report with the same
// checksum already on file is left untouched and false is returned.
func (s *Store) CreateReportArchive(ctx context.Context, a types.ReportArchive) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO report_archives (
			id, kind, filename, storage_key, storage_type, content_type,
			file_size, checksum, row_count, generated_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (checksum) DO NOTHING
	`, a.ID, a.Kind, a.Filename, a.StorageKey, a.StorageType, a.ContentType,
		a.FileSize, a.Checksum, a.RowCount, a.GeneratedAt, a.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to record report %s: %w", a.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetReportArchiveByChecksum looks up a report by its checksum for deduplication
func (s *Store) GetReportArchiveByChecksum(ctx context.Context, checksum string) (*types.ReportArchive, error) {
	a, err := scanArchive(s.pool.QueryRow(ctx,
		`SELECT `+archiveColumns+` FROM report_archives WHERE checksum = $1`, checksum))
	if err != nil {
		return nil, notFound(err, "report with checksum", checksum)
	}
	return a, nil
}

// GetReportArchive retrieves a report record by its id
func (s *Store) GetReportArchive(ctx context.Context, id string) (*types.ReportArchive, error) {
	a, err := scanArchive(s.pool.QueryRow(ctx,
		`SELECT `+archiveColumns+` FROM report_archives WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "report", id)
	}
	return a, nil
}

// ListReportArchives returns reports of kind, newest first
func (s *Store) ListReportArchives(ctx context.Context, kind string, limit, offset int) ([]types.ReportArchive, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+archiveColumns+` FROM report_archives
		WHERE $1 = '' OR kind = $1
		ORDER BY generated_at DESC
		LIMIT $2 OFFSET $3
	`, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	archives := make([]types.ReportArchive, 0)
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		archives = append(archives, *a)
	}
	return archives, rows.Err()
}

// DeleteReportArchive removes a report record
func (s *Store) DeleteReportArchive(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM report_archives WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("report %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// CalculateChecksum calculates SHA-256 checksum for data
func CalculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// GenerateReportID generates a new report id with rpt_ prefix
func GenerateReportID() string {
	return fmt.Sprintf("rpt_%s", uuid.New().String())
}

// IsNotFound reports whether err wraps types.ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
