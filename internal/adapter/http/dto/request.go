package dto

import (
	"fmt"
	"time"

	"github.com/iho/journalbot/internal/domain"
)

// ProcessDocumentRequest represents a request to process one invoice
// document.
type ProcessDocumentRequest struct {
	Filename string `json:"filename"`
	Format   string `json:"format,omitempty"`
	Content  string `json:"content"`

	// EntryDate overrides the extracted invoice date, YYYY-MM-DD.
	EntryDate string `json:"entry_date,omitempty"`
}

// ToDomain converts to a domain document plus the optional entry date
// override.
func (r *ProcessDocumentRequest) ToDomain() (*domain.RawDocument, time.Time, error) {
	if r.Content == "" {
		return nil, time.Time{}, fmt.Errorf("content is required")
	}

	format := domain.DocumentFormat(r.Format)
	if format == "" {
		format = domain.FormatText
	}

	var entryDate time.Time
	if r.EntryDate != "" {
		parsed, err := time.Parse("2006-01-02", r.EntryDate)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("invalid entry_date %q: %w", r.EntryDate, err)
		}
		entryDate = parsed
	}

	doc := &domain.RawDocument{
		Filename: r.Filename,
		Format:   format,
		Content:  []byte(r.Content),
	}

	return doc, entryDate, nil
}

// ProcessBatchRequest represents a request to process multiple
// documents.
type ProcessBatchRequest struct {
	Documents []ProcessDocumentRequest `json:"documents"`
	EntryDate string                   `json:"entry_date,omitempty"`
}

// ToDomain converts every item, failing on the first invalid one.
func (r *ProcessBatchRequest) ToDomain() ([]*domain.RawDocument, time.Time, error) {
	if len(r.Documents) == 0 {
		return nil, time.Time{}, fmt.Errorf("documents is required")
	}

	var entryDate time.Time
	if r.EntryDate != "" {
		parsed, err := time.Parse("2006-01-02", r.EntryDate)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("invalid entry_date %q: %w", r.EntryDate, err)
		}
		entryDate = parsed
	}

	docs := make([]*domain.RawDocument, len(r.Documents))
	for i := range r.Documents {
		doc, _, err := r.Documents[i].ToDomain()
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("document %d: %w", i, err)
		}
		docs[i] = doc
	}

	return docs, entryDate, nil
}
