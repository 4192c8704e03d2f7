package domain

import "time"

// Status is the terminal outcome of one pipeline run.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusNeedsReview Status = "needs-review"
	StatusFailed      Status = "failed"
)

// ConfidenceBreakdown carries the per-stage confidences so a reviewer can
// see which stage was weak.
type ConfidenceBreakdown struct {
	Extraction      float64
	Standardization float64
	Retrieval       float64 // neutral default when no candidate was found
	UsedFallback    bool    // simple-mode fallback instead of a matched rule
}

// PipelineResult is the terminal artifact of one run. Entry is present
// iff Status != StatusFailed; FailedStage and ErrorDetail are set iff
// Status == StatusFailed.
type PipelineResult struct {
	RunID          string
	Document       string // source document filename
	Status         Status
	Entry          *JournalEntry
	Confidence     float64
	Breakdown      ConfidenceBreakdown
	ManualRequired bool
	ReviewNotes    []string
	FailedStage    string
	ErrorDetail    string
	ProcessedAt    time.Time
	Duration       time.Duration
}
