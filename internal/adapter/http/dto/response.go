package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/journalbot/internal/domain"
	"github.com/iho/journalbot/internal/usecase"
)

// EntryLineResponse represents one posting in API responses.
type EntryLineResponse struct {
	Direction   string          `json:"direction"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Amount      decimal.Decimal `json:"amount"`
}

// EntryResponse represents a journal entry in API responses.
type EntryResponse struct {
	ID             string              `json:"id"`
	Date           time.Time           `json:"date"`
	SourceDocument string              `json:"source_document"`
	Description    string              `json:"description"`
	RuleID         string              `json:"rule_id,omitempty"`
	Lines          []EntryLineResponse `json:"lines"`
	TotalDebit     decimal.Decimal     `json:"total_debit"`
	TotalCredit    decimal.Decimal     `json:"total_credit"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.JournalEntry) *EntryResponse {
	lines := make([]EntryLineResponse, len(e.Lines))
	for i, line := range e.Lines {
		lines[i] = EntryLineResponse{
			Direction:   string(line.Direction),
			AccountCode: line.AccountCode,
			AccountName: line.AccountName,
			Amount:      line.Amount,
		}
	}

	return &EntryResponse{
		ID:             e.ID,
		Date:           e.Date,
		SourceDocument: e.SourceDocument,
		Description:    e.Description,
		RuleID:         e.RuleID,
		Lines:          lines,
		TotalDebit:     e.TotalDebit(),
		TotalCredit:    e.TotalCredit(),
	}
}

// BreakdownResponse represents the per-stage confidence signals.
type BreakdownResponse struct {
	Extraction      float64 `json:"extraction"`
	Standardization float64 `json:"standardization"`
	Retrieval       float64 `json:"retrieval"`
	UsedFallback    bool    `json:"used_fallback"`
}

// ResultResponse represents one pipeline result in API responses.
type ResultResponse struct {
	RunID          string            `json:"run_id"`
	Document       string            `json:"document"`
	Status         string            `json:"status"`
	Entry          *EntryResponse    `json:"entry,omitempty"`
	Confidence     float64           `json:"confidence"`
	Breakdown      BreakdownResponse `json:"breakdown"`
	ManualRequired bool              `json:"manual_required"`
	ReviewNotes    []string          `json:"review_notes,omitempty"`
	FailedStage    string            `json:"failed_stage,omitempty"`
	ErrorDetail    string            `json:"error_detail,omitempty"`
	ProcessedAt    time.Time         `json:"processed_at"`
	DurationMS     int64             `json:"duration_ms"`
}

// ResultFromDomain converts a domain result to a response.
func ResultFromDomain(r *domain.PipelineResult) *ResultResponse {
	resp := &ResultResponse{
		RunID:    r.RunID,
		Document: r.Document,
		Status:   string(r.Status),
		Breakdown: BreakdownResponse{
			Extraction:      r.Breakdown.Extraction,
			Standardization: r.Breakdown.Standardization,
			Retrieval:       r.Breakdown.Retrieval,
			UsedFallback:    r.Breakdown.UsedFallback,
		},
		Confidence:     r.Confidence,
		ManualRequired: r.ManualRequired,
		ReviewNotes:    r.ReviewNotes,
		FailedStage:    r.FailedStage,
		ErrorDetail:    r.ErrorDetail,
		ProcessedAt:    r.ProcessedAt,
		DurationMS:     r.Duration.Milliseconds(),
	}

	if r.Entry != nil {
		resp.Entry = EntryFromDomain(r.Entry)
	}

	return resp
}

// ResultsFromDomain converts a slice of results.
func ResultsFromDomain(results []*domain.PipelineResult) []*ResultResponse {
	out := make([]*ResultResponse, len(results))
	for i, r := range results {
		out[i] = ResultFromDomain(r)
	}
	return out
}

// BatchStatsResponse summarizes one batch run in API responses.
type BatchStatsResponse struct {
	Total           int            `json:"total"`
	Succeeded       int            `json:"succeeded"`
	NeedsReview     int            `json:"needs_review"`
	Failed          int            `json:"failed"`
	ManualRequired  int            `json:"manual_required"`
	AvgConfidence   float64        `json:"avg_confidence"`
	FailuresByStage map[string]int `json:"failures_by_stage"`
	DurationMS      int64          `json:"duration_ms"`
}

// BatchResponse represents a batch processing result.
type BatchResponse struct {
	Results []*ResultResponse  `json:"results"`
	Stats   BatchStatsResponse `json:"stats"`
}

// BatchFromDomain converts batch results and stats to a response.
func BatchFromDomain(results []*domain.PipelineResult, stats usecase.BatchStats) *BatchResponse {
	return &BatchResponse{
		Results: ResultsFromDomain(results),
		Stats: BatchStatsResponse{
			Total:           stats.Total,
			Succeeded:       stats.Succeeded,
			NeedsReview:     stats.NeedsReview,
			Failed:          stats.Failed,
			ManualRequired:  stats.ManualRequired,
			AvgConfidence:   stats.AvgConfidence,
			FailuresByStage: stats.FailuresByStage,
			DurationMS:      stats.Duration.Milliseconds(),
		},
	}
}

// RuleLineResponse represents one rule template line.
type RuleLineResponse struct {
	Direction   string `json:"direction"`
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	Amount      string `json:"amount"`
}

// RuleResponse represents an accounting rule in API responses.
type RuleResponse struct {
	ID       string             `json:"id"`
	Category string             `json:"category"`
	Keywords []string           `json:"keywords"`
	Lines    []RuleLineResponse `json:"lines"`
}

// RuleFromDomain converts a domain rule to a response.
func RuleFromDomain(rule *domain.AccountingRule) *RuleResponse {
	lines := make([]RuleLineResponse, len(rule.Lines))
	for i, line := range rule.Lines {
		lines[i] = RuleLineResponse{
			Direction:   string(line.Direction),
			AccountCode: line.AccountCode,
			AccountName: line.AccountName,
			Amount:      string(line.Amount),
		}
	}

	return &RuleResponse{
		ID:       rule.ID,
		Category: string(rule.Category),
		Keywords: rule.Keywords,
		Lines:    lines,
	}
}

// RulesFromDomain converts a slice of rules.
func RulesFromDomain(rules []*domain.AccountingRule) []*RuleResponse {
	out := make([]*RuleResponse, len(rules))
	for i, rule := range rules {
		out[i] = RuleFromDomain(rule)
	}
	return out
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
