package types

import "time"

// ReportArchive is a generated report file kept in storage
type ReportArchive struct {
	ID          string    `json:"id"` // rpt_{uuid}
	Kind        string    `json:"kind"`
	Filename    string    `json:"filename"`
	StorageKey  string    `json:"storageKey"`
	StorageType string    `json:"storageType"` // 'local', 's3'
	ContentType string    `json:"contentType"`
	FileSize    int64     `json:"fileSize"`
	Checksum    string    `json:"checksum"` // SHA-256, unique per report
	RowCount    int       `json:"rowCount"`
	GeneratedAt time.Time `json:"generatedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}
