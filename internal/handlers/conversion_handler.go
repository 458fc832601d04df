package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"daybook-ndjson-backend/internal/repository"
	"daybook-ndjson-backend/internal/services/conversion"
	"daybook-ndjson-backend/internal/services/flattener"
	"daybook-ndjson-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ConversionHandler struct {
	service        *conversion.Service
	store          *storage.NDJSONStore
	repo           *repository.ConversionRepository
	maxUploadBytes int64
	log            zerolog.Logger
}

func NewConversionHandler(
	s *conversion.Service,
	store *storage.NDJSONStore,
	repo *repository.ConversionRepository,
	maxUploadBytes int64,
	log zerolog.Logger,
) *ConversionHandler {
	return &ConversionHandler{
		service:        s,
		store:          store,
		repo:           repo,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"status": "error", "message": message})
}

// Convert accepts a daybook JSON upload in the "file" form field and writes it out as NDJSON.
func (h *ConversionHandler) Convert(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		// multipart parsing does not always wrap the limit error
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			errorResponse(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		errorResponse(c, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		h.log.Warn().Err(err).Str("file", header.Filename).Msg("failed to read upload")
		errorResponse(c, http.StatusBadRequest, "cannot read uploaded file")
		return
	}

	res, err := h.service.Convert(c.Request.Context(), header.Filename, raw)
	if err != nil {
		var decodeErr *flattener.DecodeError
		switch {
		case errors.As(err, &decodeErr):
			errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, conversion.ErrNoRows):
			errorResponse(c, http.StatusUnprocessableEntity, "No voucher rows extracted")
		default:
			h.log.Error().Err(err).Str("file", header.Filename).Msg("conversion error")
			errorResponse(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"rows_created":  res.RowsCreated,
		"ndjson_file":   res.NDJSONFile,
		"download_url":  res.DownloadURL,
		"conversion_id": res.ConversionID.String(),
	})
}

// Download streams a stored NDJSON artifact as an attachment.
func (h *ConversionHandler) Download(c *gin.Context) {
	name := c.Query("filename")

	f, info, err := h.store.Open(name)
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		errorResponse(c, http.StatusBadRequest, "invalid filename")
		return
	case errors.Is(err, storage.ErrNotFound):
		errorResponse(c, http.StatusNotFound, "File not found")
		return
	case err != nil:
		h.log.Error().Err(err).Str("file", name).Msg("failed to open artifact")
		errorResponse(c, http.StatusInternalServerError, "cannot open file")
		return
	}
	defer f.Close()

	headers := map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": info.Name()}),
	}
	if conv, err := h.repo.FindByOutputFilename(c.Request.Context(), info.Name()); err == nil {
		headers["X-Conversion-Id"] = conv.ID.String()
	}

	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", f, headers)
}

// ListArtifacts returns the NDJSON files currently held in the output directory.
func (h *ConversionHandler) ListArtifacts(c *gin.Context) {
	items, err := h.store.List()
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []storage.Artifact{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *ConversionHandler) ListConversions(c *gin.Context) {
	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errorResponse(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxPageSize)
	}

	items, nextCursor, hasMore, err := h.repo.List(c.Request.Context(), c.Query("status"), c.Query("cursor"), limit)
	if errors.Is(err, repository.ErrInvalidCursor) {
		errorResponse(c, http.StatusBadRequest, "invalid cursor")
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

func (h *ConversionHandler) GetConversion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid conversion ID")
		return
	}

	conv, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrConversionNotFound) {
		errorResponse(c, http.StatusNotFound, "conversion not found")
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, conv)
}
