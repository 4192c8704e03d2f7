package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iho/journalbot/internal/domain"
	"github.com/iho/journalbot/internal/usecase"
)

func TestConfidenceConfig_Validate(t *testing.T) {
	assert.NoError(t, usecase.DefaultConfidenceConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*usecase.ConfidenceConfig)
	}{
		{
			name:   "weights above one",
			mutate: func(c *usecase.ConfidenceConfig) { c.ExtractionWeight = 0.9 },
		},
		{
			name:   "negative weight",
			mutate: func(c *usecase.ConfidenceConfig) { c.RetrievalWeight = -0.4 },
		},
		{
			name: "thresholds inverted",
			mutate: func(c *usecase.ConfidenceConfig) {
				c.AutoApproveThreshold = 0.5
				c.ReviewThreshold = 0.7
			},
		},
		{
			name:   "zero penalty",
			mutate: func(c *usecase.ConfidenceConfig) { c.SimpleModePenalty = 0 },
		},
		{
			name:   "neutral score above one",
			mutate: func(c *usecase.ConfidenceConfig) { c.NeutralRetrievalScore = 1.5 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := usecase.DefaultConfidenceConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfidenceConfig_Aggregate(t *testing.T) {
	// All weight on one signal keeps the weighted sum exact, so the
	// threshold boundaries can be asserted without float slack.
	cfg := usecase.DefaultConfidenceConfig()
	cfg.ExtractionWeight = 1
	cfg.StandardizationWeight = 0
	cfg.RetrievalWeight = 0

	uniform := func(v float64) domain.ConfidenceBreakdown {
		return domain.ConfidenceBreakdown{Extraction: v, Standardization: v, Retrieval: v}
	}

	tests := []struct {
		name       string
		breakdown  domain.ConfidenceBreakdown
		wantFinal  float64
		wantStatus domain.Status
		wantManual bool
	}{
		{
			name:       "at auto approve threshold",
			breakdown:  uniform(0.8),
			wantFinal:  0.8,
			wantStatus: domain.StatusSuccess,
		},
		{
			name:       "just below auto approve",
			breakdown:  uniform(0.7999),
			wantFinal:  0.7999,
			wantStatus: domain.StatusNeedsReview,
		},
		{
			name:       "at review threshold",
			breakdown:  uniform(0.6),
			wantFinal:  0.6,
			wantStatus: domain.StatusNeedsReview,
		},
		{
			name:       "just below review threshold",
			breakdown:  uniform(0.5999),
			wantFinal:  0.5999,
			wantStatus: domain.StatusNeedsReview,
			wantManual: true,
		},
		{
			name: "fallback halves a perfect score",
			breakdown: domain.ConfidenceBreakdown{
				Extraction: 1, Standardization: 1, Retrieval: 1, UsedFallback: true,
			},
			wantFinal:  0.5,
			wantStatus: domain.StatusNeedsReview,
			wantManual: true,
		},
		{
			name: "only the weighted signal counts",
			breakdown: domain.ConfidenceBreakdown{
				Extraction: 0.9, Standardization: 0.1, Retrieval: 0.1,
			},
			wantFinal:  0.9,
			wantStatus: domain.StatusSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			final, status, manual := cfg.Aggregate(tt.breakdown)

			assert.InDelta(t, tt.wantFinal, final, 1e-9)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantManual, manual)
		})
	}
}

func TestConfidenceConfig_Aggregate_DefaultWeights(t *testing.T) {
	cfg := usecase.DefaultConfidenceConfig()

	final, status, manual := cfg.Aggregate(domain.ConfidenceBreakdown{
		Extraction: 0.9, Standardization: 0.8, Retrieval: 0.7,
	})

	// 0.3*0.9 + 0.3*0.8 + 0.4*0.7
	assert.InDelta(t, 0.79, final, 1e-9)
	assert.Equal(t, domain.StatusNeedsReview, status)
	assert.False(t, manual)
}

func TestConfidenceConfig_Aggregate_NeutralRetrieval(t *testing.T) {
	cfg := usecase.DefaultConfidenceConfig()

	// A negative retrieval signal means "no signal" and is replaced by
	// the neutral score.
	final, _, _ := cfg.Aggregate(domain.ConfidenceBreakdown{
		Extraction: 1, Standardization: 1, Retrieval: -1,
	})

	assert.InDelta(t, 0.3+0.3+0.4*cfg.NeutralRetrievalScore, final, 1e-9)
}

func TestConfidenceConfig_Aggregate_Monotone(t *testing.T) {
	cfg := usecase.DefaultConfidenceConfig()

	prev := -1.0
	for v := 0.0; v <= 1.0; v += 0.05 {
		final, _, _ := cfg.Aggregate(domain.ConfidenceBreakdown{
			Extraction: v, Standardization: v, Retrieval: v,
		})

		assert.GreaterOrEqual(t, final, prev)
		prev = final
	}
}
