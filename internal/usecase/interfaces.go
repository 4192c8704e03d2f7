package usecase

import (
	"context"
	"time"

	"github.com/iho/journalbot/internal/domain"
)

// Extractor wraps the external language-model call. Given raw document
// text it returns structured invoice fields with a confidence score.
type Extractor interface {
	Extract(ctx context.Context, text string) (*domain.ExtractedFields, error)
}

// Retriever wraps the external similarity search. Given the canonical
// business description it returns up to topK candidate rules ordered by
// descending similarity, ties broken by ascending rule id. An empty
// result is a valid outcome, not an error.
type Retriever interface {
	Retrieve(ctx context.Context, description string, topK int) ([]domain.RankedRuleCandidate, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ResultCache stores serialized pipeline results keyed by document
// checksum, so re-submitting the same invoice is idempotent.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
