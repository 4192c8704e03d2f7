package usecase

import (
	"sync"
	"time"

	"github.com/iho/journalbot/internal/domain"
)

// ServiceStats is a point-in-time snapshot of processing totals since
// startup.
type ServiceStats struct {
	Total           int            `json:"total"`
	Succeeded       int            `json:"succeeded"`
	NeedsReview     int            `json:"needs_review"`
	Failed          int            `json:"failed"`
	ManualRequired  int            `json:"manual_required"`
	AvgConfidence   float64        `json:"avg_confidence"`
	FailuresByStage map[string]int `json:"failures_by_stage"`
	Since           time.Time      `json:"since"`
}

// StatsCollector accumulates processing totals. Safe for concurrent use.
type StatsCollector struct {
	mu sync.Mutex

	total          int
	succeeded      int
	needsReview    int
	failed         int
	manualRequired int
	confidenceSum  float64
	byStage        map[string]int
	since          time.Time
}

// NewStatsCollector creates an empty collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		byStage: make(map[string]int),
		since:   time.Now(),
	}
}

// Record folds one result into the running totals.
func (c *StatsCollector) Record(r *domain.PipelineResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.confidenceSum += r.Confidence

	switch r.Status {
	case domain.StatusSuccess:
		c.succeeded++
	case domain.StatusNeedsReview:
		c.needsReview++
	case domain.StatusFailed:
		c.failed++
		c.byStage[r.FailedStage]++
	}

	if r.ManualRequired {
		c.manualRequired++
	}
}

// Snapshot returns a copy of the current totals.
func (c *StatsCollector) Snapshot() ServiceStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	byStage := make(map[string]int, len(c.byStage))
	for stage, n := range c.byStage {
		byStage[stage] = n
	}

	stats := ServiceStats{
		Total:           c.total,
		Succeeded:       c.succeeded,
		NeedsReview:     c.needsReview,
		Failed:          c.failed,
		ManualRequired:  c.manualRequired,
		FailuresByStage: byStage,
		Since:           c.since,
	}

	if c.total > 0 {
		stats.AvgConfidence = c.confidenceSum / float64(c.total)
	}

	return stats
}
