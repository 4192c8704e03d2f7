package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/iho/journalbot/internal/domain"
)

// BatchStats summarizes one batch run.
type BatchStats struct {
	Total           int
	Succeeded       int
	NeedsReview     int
	Failed          int
	ManualRequired  int
	AvgConfidence   float64
	FailuresByStage map[string]int
	Duration        time.Duration
}

// SummarizeBatch computes aggregate statistics over a slice of results.
func SummarizeBatch(results []*domain.PipelineResult, duration time.Duration) BatchStats {
	stats := BatchStats{
		Total:           len(results),
		FailuresByStage: make(map[string]int),
		Duration:        duration,
	}

	var confidenceSum float64

	for _, r := range results {
		switch r.Status {
		case domain.StatusSuccess:
			stats.Succeeded++
		case domain.StatusNeedsReview:
			stats.NeedsReview++
		case domain.StatusFailed:
			stats.Failed++
			stats.FailuresByStage[r.FailedStage]++
		}

		if r.ManualRequired {
			stats.ManualRequired++
		}

		confidenceSum += r.Confidence
	}

	if stats.Total > 0 {
		stats.AvgConfidence = confidenceSum / float64(stats.Total)
	}

	return stats
}

// ProcessBatch runs every document through the pipeline with bounded
// concurrency, preserving input order in the results. Documents are
// independent; one failed run never affects another.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []*domain.RawDocument, entryDate time.Time, workers int) ([]*domain.PipelineResult, BatchStats) {
	if workers <= 0 {
		workers = 1
	}

	start := time.Now()
	results := make([]*domain.PipelineResult, len(docs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, doc := range docs {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, doc *domain.RawDocument) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = p.Process(ctx, doc, entryDate)
		}(i, doc)
	}

	wg.Wait()

	return results, SummarizeBatch(results, time.Since(start))
}
