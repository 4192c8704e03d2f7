package usecase

import (
	"fmt"

	"github.com/iho/journalbot/internal/domain"
)

// ConfidenceConfig holds the weighted-sum parameters and routing
// thresholds for confidence aggregation.
type ConfidenceConfig struct {
	ExtractionWeight      float64
	StandardizationWeight float64
	RetrievalWeight       float64

	// NeutralRetrievalScore stands in for the retrieval signal when no
	// candidates were retrieved or retrieval was skipped.
	NeutralRetrievalScore float64

	// SimpleModePenalty multiplies the final score when the entry was
	// produced by the category fallback instead of a matched rule.
	SimpleModePenalty float64

	// AutoApproveThreshold and ReviewThreshold split results into
	// success, needs-review, and needs-review with manual intervention.
	AutoApproveThreshold float64
	ReviewThreshold      float64
}

// DefaultConfidenceConfig returns the standard weights and thresholds.
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		ExtractionWeight:      0.3,
		StandardizationWeight: 0.3,
		RetrievalWeight:       0.4,
		NeutralRetrievalScore: DefaultNeutralRetrievalScore,
		SimpleModePenalty:     DefaultSimpleModePenalty,
		AutoApproveThreshold:  DefaultAutoApproveThreshold,
		ReviewThreshold:       DefaultReviewThreshold,
	}
}

// Validate checks that weights form a convex combination and thresholds
// are ordered.
func (c ConfidenceConfig) Validate() error {
	sum := c.ExtractionWeight + c.StandardizationWeight + c.RetrievalWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("confidence weights must sum to 1, got %v", sum)
	}

	for name, w := range map[string]float64{
		"extraction":      c.ExtractionWeight,
		"standardization": c.StandardizationWeight,
		"retrieval":       c.RetrievalWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s weight out of [0,1]: %v", name, w)
		}
	}

	if c.NeutralRetrievalScore < 0 || c.NeutralRetrievalScore > 1 {
		return fmt.Errorf("neutral retrieval score out of [0,1]: %v", c.NeutralRetrievalScore)
	}

	if c.SimpleModePenalty <= 0 || c.SimpleModePenalty > 1 {
		return fmt.Errorf("simple mode penalty out of (0,1]: %v", c.SimpleModePenalty)
	}

	if c.AutoApproveThreshold <= c.ReviewThreshold {
		return fmt.Errorf("auto-approve threshold %v must exceed review threshold %v",
			c.AutoApproveThreshold, c.ReviewThreshold)
	}

	return nil
}

// Aggregate combines per-stage confidences into the final score and
// routes the result. A missing retrieval signal is replaced with the
// neutral score; fallback entries are penalized before routing.
func (c ConfidenceConfig) Aggregate(b domain.ConfidenceBreakdown) (float64, domain.Status, bool) {
	retrieval := b.Retrieval
	if retrieval < 0 {
		retrieval = c.NeutralRetrievalScore
	}

	final := c.ExtractionWeight*b.Extraction +
		c.StandardizationWeight*b.Standardization +
		c.RetrievalWeight*retrieval

	if b.UsedFallback {
		final *= c.SimpleModePenalty
	}

	final = clamp01(final)

	switch {
	case final >= c.AutoApproveThreshold:
		return final, domain.StatusSuccess, false
	case final >= c.ReviewThreshold:
		return final, domain.StatusNeedsReview, false
	default:
		return final, domain.StatusNeedsReview, true
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
