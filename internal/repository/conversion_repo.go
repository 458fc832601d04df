package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"daybook-ndjson-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrConversionNotFound = errors.New("conversion not found")
	ErrInvalidCursor      = errors.New("invalid cursor")
)

// ConversionOutcome is what a finished conversion reports back to its record.
type ConversionOutcome struct {
	OutputFilename  string
	VoucherCount    int
	RowsCreated     int
	SkippedEntries  int
	UnparsedAmounts int
	RowsByType      map[string]int
}

type ConversionRepository struct {
	db *gorm.DB
}

func NewConversionRepository(db *gorm.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

// Migrate creates or updates the conversions table.
func (r *ConversionRepository) Migrate() error {
	return r.db.AutoMigrate(&models.Conversion{})
}

// Create inserts a new conversion in the processing state.
func (r *ConversionRepository) Create(ctx context.Context, sourceFilename string, sourceBytes int64) (*models.Conversion, error) {
	now := time.Now()
	conv := &models.Conversion{
		ID:             uuid.New(),
		SourceFilename: sourceFilename,
		SourceBytes:    sourceBytes,
		Status:         models.ConversionProcessing,
		StartedAt:      now,
		CreatedAt:      now,
	}
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return nil, fmt.Errorf("create conversion: %w", err)
	}
	return conv, nil
}

func (r *ConversionRepository) MarkCompleted(ctx context.Context, id uuid.UUID, out ConversionOutcome) error {
	summary, err := json.Marshal(out.RowsByType)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	return r.db.WithContext(ctx).Model(&models.Conversion{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"output_filename":  out.OutputFilename,
			"voucher_count":    out.VoucherCount,
			"rows_created":     out.RowsCreated,
			"skipped_entries":  out.SkippedEntries,
			"unparsed_amounts": out.UnparsedAmounts,
			"summary":          datatypes.JSON(summary),
			"status":           models.ConversionCompleted,
			"completed_at":     time.Now(),
		}).Error
}

func (r *ConversionRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).Model(&models.Conversion{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.ConversionFailed,
			"error_message": reason,
			"completed_at":  time.Now(),
		}).Error
}

func (r *ConversionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversion, error) {
	var conv models.Conversion
	err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByOutputFilename returns the latest completed conversion that wrote the given artifact.
func (r *ConversionRepository) FindByOutputFilename(ctx context.Context, name string) (*models.Conversion, error) {
	var conv models.Conversion
	err := r.db.WithContext(ctx).
		Where("output_filename = ? AND status = ?", name, models.ConversionCompleted).
		Order("created_at DESC").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// List pages through conversions newest first. cursor is the ID of the last item of the
// previous page, as returned in nextCursor.
func (r *ConversionRepository) List(ctx context.Context, status string, cursor string, limit int) ([]models.Conversion, string, bool, error) {
	var convs []models.Conversion
	query := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1)

	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}

	if cursor != "" {
		cursorID, err := uuid.Parse(cursor)
		if err != nil {
			return nil, "", false, ErrInvalidCursor
		}
		last, err := r.GetByID(ctx, cursorID)
		if errors.Is(err, ErrConversionNotFound) {
			return nil, "", false, ErrInvalidCursor
		}
		if err != nil {
			return nil, "", false, err
		}
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", last.CreatedAt, last.CreatedAt, last.ID)
	}

	if err := query.Find(&convs).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(convs) > limit {
		hasMore = true
		convs = convs[:limit]
		nextCursor = convs[limit-1].ID.String()
	}
	return convs, nextCursor, hasMore, nil
}
