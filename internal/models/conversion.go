package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ConversionProcessing = "processing"
	ConversionCompleted  = "completed"
	ConversionFailed     = "failed"
)

// Conversion records one uploaded daybook and the NDJSON artifact produced from it.
type Conversion struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceFilename  string    `json:"source_filename"`
	OutputFilename  string    `gorm:"index" json:"output_filename"`
	SourceBytes     int64     `json:"source_bytes"`
	VoucherCount    int       `json:"voucher_count"`
	RowsCreated     int       `json:"rows_created"`
	SkippedEntries  int       `json:"skipped_entries"`
	UnparsedAmounts int       `json:"unparsed_amounts"`
	Status          string    `gorm:"index" json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	// rows per voucher type
	Summary     datatypes.JSON `json:"summary,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
