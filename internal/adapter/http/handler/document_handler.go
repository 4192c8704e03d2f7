package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/journalbot/internal/adapter/http/dto"
	"github.com/iho/journalbot/internal/usecase"
)

// DocumentHandler handles document processing requests.
type DocumentHandler struct {
	pipeline *usecase.Pipeline
	stats    *usecase.StatsCollector
	cache    usecase.ResultCache
	cacheTTL time.Duration
	workers  int
	logger   zerolog.Logger
}

// NewDocumentHandler creates a new DocumentHandler. cache may be nil to
// disable result caching.
func NewDocumentHandler(
	pipeline *usecase.Pipeline,
	stats *usecase.StatsCollector,
	cache usecase.ResultCache,
	cacheTTL time.Duration,
	workers int,
	logger zerolog.Logger,
) *DocumentHandler {
	if workers <= 0 {
		workers = 4
	}

	return &DocumentHandler{
		pipeline: pipeline,
		stats:    stats,
		cache:    cache,
		cacheTTL: cacheTTL,
		workers:  workers,
		logger:   logger,
	}
}

// Process runs one document through the pipeline. Identical documents
// (same content checksum) are served from the result cache.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req dto.ProcessDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	doc, entryDate, err := req.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document", err.Error())
		return
	}

	// Date overrides change the generated entry, so only undated
	// requests are cacheable.
	cacheable := h.cache != nil && entryDate.IsZero()
	checksum := doc.Checksum()

	if cacheable {
		if cached, err := h.cache.Get(r.Context(), checksum); err != nil {
			h.logger.Warn().Err(err).Msg("result cache get failed")
		} else if cached != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	result := h.pipeline.Process(r.Context(), doc, entryDate)
	h.stats.Record(result)

	resp := dto.ResultFromDomain(result)

	if cacheable {
		if payload, err := json.Marshal(resp); err == nil {
			if err := h.cache.Set(r.Context(), checksum, payload, h.cacheTTL); err != nil {
				h.logger.Warn().Err(err).Msg("result cache set failed")
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ProcessBatch runs several documents through the pipeline.
func (h *DocumentHandler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.ProcessBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	docs, entryDate, err := req.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch", err.Error())
		return
	}

	results, stats := h.pipeline.ProcessBatch(r.Context(), docs, entryDate, h.workers)
	for _, result := range results {
		h.stats.Record(result)
	}

	writeJSON(w, http.StatusOK, dto.BatchFromDomain(results, stats))
}
