package conversion

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"daybook-ndjson-backend/internal/metrics"
	"daybook-ndjson-backend/internal/models"
	"daybook-ndjson-backend/internal/repository"
	"daybook-ndjson-backend/internal/services/flattener"
	"daybook-ndjson-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoRows is returned when a document decodes but yields no ledger rows, which usually
// means its shape matched none of the known daybook layouts.
var ErrNoRows = errors.New("no voucher rows extracted")

// Recorder persists the lifecycle of a conversion. ConversionRepository implements it.
type Recorder interface {
	Create(ctx context.Context, sourceFilename string, sourceBytes int64) (*models.Conversion, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, out repository.ConversionOutcome) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type Result struct {
	ConversionID uuid.UUID       `json:"conversion_id"`
	RowsCreated  int             `json:"rows_created"`
	VoucherCount int             `json:"voucher_count"`
	NDJSONFile   string          `json:"ndjson_file"`
	DownloadURL  string          `json:"download_url"`
	Stats        flattener.Stats `json:"stats"`
}

type Service struct {
	store    *storage.NDJSONStore
	recorder Recorder
	log      zerolog.Logger
}

// NewService wires the conversion pipeline. recorder may be nil, in which case conversions
// are not tracked and results carry a zero ConversionID.
func NewService(store *storage.NDJSONStore, recorder Recorder, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		log:      log.With().Str("component", "conversion").Logger(),
	}
}

// DownloadURL is the relative link served for a stored artifact.
func DownloadURL(name string) string {
	return "/download-ndjson?filename=" + url.QueryEscape(name)
}

// Convert decodes an uploaded daybook, flattens it and stores the NDJSON artifact. Nothing is
// written unless the whole row sequence was built.
func (s *Service) Convert(ctx context.Context, filename string, raw []byte) (*Result, error) {
	start := time.Now()
	log := s.log.With().Str("source", filename).Int("bytes", len(raw)).Logger()

	var convID uuid.UUID
	if s.recorder != nil {
		conv, err := s.recorder.Create(ctx, filename, int64(len(raw)))
		if err != nil {
			return nil, fmt.Errorf("record conversion: %w", err)
		}
		convID = conv.ID
	}

	res, err := s.convert(filename, raw)
	if err != nil {
		metrics.ObserveFailure(time.Since(start))
		log.Warn().Err(err).Str("conversion_id", convID.String()).Msg("conversion failed")
		if s.recorder != nil {
			if markErr := s.recorder.MarkFailed(ctx, convID, err.Error()); markErr != nil {
				log.Error().Err(markErr).Msg("failed to record failed conversion")
			}
		}
		return nil, err
	}
	res.ConversionID = convID

	if s.recorder != nil {
		err := s.recorder.MarkCompleted(ctx, convID, repository.ConversionOutcome{
			OutputFilename:  res.NDJSONFile,
			VoucherCount:    res.VoucherCount,
			RowsCreated:     res.RowsCreated,
			SkippedEntries:  res.Stats.SkippedEntries,
			UnparsedAmounts: res.Stats.UnparsedAmounts,
			RowsByType:      res.Stats.RowsByVoucherType,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to record completed conversion")
		}
	}

	elapsed := time.Since(start)
	metrics.ObserveSuccess(res.RowsCreated, res.Stats.SkippedEntries, elapsed)
	log.Info().
		Str("conversion_id", convID.String()).
		Str("ndjson_file", res.NDJSONFile).
		Int("vouchers", res.VoucherCount).
		Int("rows", res.RowsCreated).
		Int("skipped_entries", res.Stats.SkippedEntries).
		Dur("elapsed", elapsed).
		Msg("conversion completed")
	return res, nil
}

func (s *Service) convert(filename string, raw []byte) (*Result, error) {
	doc, err := flattener.Decode(raw)
	if err != nil {
		return nil, err
	}

	rows, stats := flattener.FlattenWithStats(doc)
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	name := storage.OutputName(filename)
	if _, err := s.store.Save(name, rows); err != nil {
		return nil, err
	}

	return &Result{
		RowsCreated:  len(rows),
		VoucherCount: stats.Vouchers,
		NDJSONFile:   name,
		DownloadURL:  DownloadURL(name),
		Stats:        stats,
	}, nil
}
