package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/journalbot/internal/domain"
	"github.com/iho/journalbot/internal/rulestore"
)

// PipelineMetrics receives pipeline outcome observations. Implementations
// must be safe for concurrent use.
type PipelineMetrics interface {
	ObserveRun(status domain.Status, duration time.Duration)
	StageFailure(stage string)
}

// noopMetrics is used when no recorder is wired.
type noopMetrics struct{}

func (noopMetrics) ObserveRun(domain.Status, time.Duration) {}
func (noopMetrics) StageFailure(string)                     {}

// PipelineConfig holds the orchestration knobs.
type PipelineConfig struct {
	// TopK bounds how many rule candidates retrieval may return.
	TopK int

	// StrictRetrieval turns a retrieval collaborator failure into a
	// failed run. When off, the run degrades: generation proceeds
	// without candidates and the retrieval signal goes neutral.
	StrictRetrieval bool

	ExtractionTimeout time.Duration
	RetrievalTimeout  time.Duration

	Confidence ConfidenceConfig
}

// Pipeline orchestrates one document through extraction,
// standardization, retrieval, generation, and scoring. Stage failures
// terminate the run; the failure is reported on the result, never as an
// error from Process.
type Pipeline struct {
	cfg       PipelineConfig
	store     *rulestore.Store
	extractor Extractor
	retriever Retriever
	generator *Generator
	idGen     IDGenerator
	metrics   PipelineMetrics
	logger    zerolog.Logger
}

// NewPipeline wires the pipeline. metrics may be nil.
func NewPipeline(
	cfg PipelineConfig,
	store *rulestore.Store,
	extractor Extractor,
	retriever Retriever,
	generator *Generator,
	idGen IDGenerator,
	metrics PipelineMetrics,
	logger zerolog.Logger,
) *Pipeline {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Pipeline{
		cfg:       cfg,
		store:     store,
		extractor: extractor,
		retriever: retriever,
		generator: generator,
		idGen:     idGen,
		metrics:   metrics,
		logger:    logger,
	}
}

// Process runs one document through the pipeline. entryDate, when
// non-zero, overrides the extracted invoice date. The returned result is
// always non-nil; it carries the failure when a stage fails.
func (p *Pipeline) Process(ctx context.Context, doc *domain.RawDocument, entryDate time.Time) *domain.PipelineResult {
	start := time.Now()
	runID := p.idGen.Generate()

	logger := p.logger.With().Str("run_id", runID).Str("document", doc.Filename).Logger()

	result := p.process(ctx, logger, doc, entryDate)
	result.RunID = runID
	result.Document = doc.Filename
	result.ProcessedAt = start
	result.Duration = time.Since(start)

	p.metrics.ObserveRun(result.Status, result.Duration)

	event := logger.Info()
	if result.Status == domain.StatusFailed {
		event = logger.Warn().Str("failed_stage", result.FailedStage).Str("error", result.ErrorDetail)
	}
	event.
		Str("status", string(result.Status)).
		Float64("confidence", result.Confidence).
		Dur("duration", result.Duration).
		Msg("pipeline run finished")

	return result
}

func (p *Pipeline) process(ctx context.Context, logger zerolog.Logger, doc *domain.RawDocument, entryDate time.Time) *domain.PipelineResult {
	snap := p.store.Snapshot()

	// Extraction.
	fields, err := p.extract(ctx, doc)
	if err != nil {
		return p.fail(StageExtraction, err)
	}

	// Standardization. Deterministic, never fails.
	description := fields.Description
	if description == "" {
		description = doc.Text()
	}
	standardized := Standardize(description, snap)

	logger.Debug().
		Str("category", string(standardized.Category)).
		Strs("keywords", standardized.Keywords).
		Float64("confidence", standardized.Confidence).
		Bool("compound", standardized.Compound).
		Msg("business standardized")

	// Retrieval.
	var notes []string

	candidates, retrievalErr := p.retrieve(ctx, &standardized)
	if retrievalErr != nil {
		if p.cfg.StrictRetrieval {
			return p.fail(StageRetrieval, retrievalErr)
		}

		logger.Warn().Err(retrievalErr).Msg("retrieval degraded, proceeding without candidates")
		candidates = nil
		notes = append(notes, "retrieval unavailable, matched without similar cases")
	}

	rule, retrievalScore := selectCandidate(candidates, standardized.Category, p.cfg.Confidence.NeutralRetrievalScore)

	// Generation.
	entry, err := p.generator.Generate(fields, standardized, rule, resolveDate(entryDate, fields), doc.Filename)
	if err != nil {
		return p.fail(StageGeneration, err)
	}

	usedFallback := entry.RuleID == ""
	switch {
	case usedFallback && rule != nil && rule.Compound():
		notes = append(notes, "compound rule collapsed to a simple entry")
	case usedFallback:
		notes = append(notes, "no applicable rule, used category default accounts")
	}

	if !usedFallback && rule.Compound() && !standardized.Compound {
		notes = append(notes, "compound entry generated without compound indicators in the description")
	}

	validationNotes := auditEntry(snap, entry)
	notes = append(notes, validationNotes...)

	// Scoring and routing.
	breakdown := domain.ConfidenceBreakdown{
		Extraction:      fields.Confidence,
		Standardization: standardized.Confidence,
		Retrieval:       retrievalScore,
		UsedFallback:    usedFallback,
	}

	final, status, manual := p.cfg.Confidence.Aggregate(breakdown)

	// A degraded retrieval or a flagged entry never auto-approves.
	if (retrievalErr != nil || len(validationNotes) > 0) && status == domain.StatusSuccess {
		status = domain.StatusNeedsReview
	}

	return &domain.PipelineResult{
		Status:         status,
		Entry:          entry,
		Confidence:     final,
		Breakdown:      breakdown,
		ManualRequired: manual,
		ReviewNotes:    notes,
	}
}

func (p *Pipeline) extract(ctx context.Context, doc *domain.RawDocument) (*domain.ExtractedFields, error) {
	if p.cfg.ExtractionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ExtractionTimeout)
		defer cancel()
	}

	fields, err := p.extractor.Extract(ctx, doc.Text())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: extraction timed out after %s", domain.ErrExtractionFailed, p.cfg.ExtractionTimeout)
		}
		return nil, err
	}

	if err := fields.Validate(); err != nil {
		return nil, err
	}

	return fields, nil
}

func (p *Pipeline) retrieve(ctx context.Context, standardized *domain.StandardizedBusiness) ([]domain.RankedRuleCandidate, error) {
	if p.cfg.RetrievalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RetrievalTimeout)
		defer cancel()
	}

	return p.retriever.Retrieve(ctx, standardized.CanonicalDescription(), p.cfg.TopK)
}

// auditEntry runs the non-fatal checks on a generated entry: every
// account code should be referenced by the active rule set. Findings go
// to the review notes and block auto-approval; they never fail the run.
func auditEntry(snap *rulestore.Snapshot, entry *domain.JournalEntry) []string {
	var notes []string

	for _, line := range entry.Lines {
		if !snap.HasAccount(line.AccountCode) {
			notes = append(notes, fmt.Sprintf("account %s %s is not referenced by any rule", line.AccountCode, line.AccountName))
		}
	}

	return notes
}

// selectCandidate picks the first candidate matching the standardized
// category, falling back to the top candidate. No candidates yields a
// nil rule and the neutral retrieval score.
func selectCandidate(candidates []domain.RankedRuleCandidate, cat domain.Category, neutral float64) (*domain.AccountingRule, float64) {
	if len(candidates) == 0 {
		return nil, neutral
	}

	for i := range candidates {
		if candidates[i].Rule.Category == cat {
			return &candidates[i].Rule, candidates[i].Score
		}
	}

	return &candidates[0].Rule, candidates[0].Score
}

func resolveDate(override time.Time, fields *domain.ExtractedFields) time.Time {
	if !override.IsZero() {
		return override
	}
	if !fields.Date.IsZero() {
		return fields.Date
	}
	return time.Now()
}

func (p *Pipeline) fail(stage string, err error) *domain.PipelineResult {
	p.metrics.StageFailure(stage)

	return &domain.PipelineResult{
		Status:      domain.StatusFailed,
		FailedStage: stage,
		ErrorDetail: err.Error(),
	}
}
