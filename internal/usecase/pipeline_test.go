package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/journalbot/internal/domain"
	"github.com/iho/journalbot/internal/rulestore"
	"github.com/iho/journalbot/internal/usecase"
	"github.com/iho/journalbot/internal/usecase/mocks"
)

func newTestStore(t *testing.T) *rulestore.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRules), 0o600))

	store, err := rulestore.Load(path)
	require.NoError(t, err)

	return store
}

type pipelineDeps struct {
	extractor *mocks.MockExtractor
	retriever *mocks.MockRetriever
	store     *rulestore.Store
}

func newTestPipeline(t *testing.T, cfg usecase.PipelineConfig) (*usecase.Pipeline, *pipelineDeps) {
	t.Helper()

	ctrl := gomock.NewController(t)

	deps := &pipelineDeps{
		extractor: mocks.NewMockExtractor(ctrl),
		retriever: mocks.NewMockRetriever(ctrl),
		store:     newTestStore(t),
	}

	idGen := mocks.NewMockIDGenerator(ctrl)
	idGen.EXPECT().Generate().Return("run-1").AnyTimes()

	if cfg.Confidence == (usecase.ConfidenceConfig{}) {
		cfg.Confidence = usecase.DefaultConfidenceConfig()
	}

	generator := usecase.NewGenerator(usecase.GeneratorConfig{AllowComplexEntries: true}, idGen)
	pipeline := usecase.NewPipeline(cfg, deps.store, deps.extractor, deps.retriever, generator, idGen, nil, zerolog.Nop())

	return pipeline, deps
}

func candidate(t *testing.T, store *rulestore.Store, id string, score float64) domain.RankedRuleCandidate {
	t.Helper()

	rule, err := store.Snapshot().Rule(id)
	require.NoError(t, err)

	return domain.RankedRuleCandidate{Rule: *rule, Score: score}
}

func doc(name, text string) *domain.RawDocument {
	return &domain.RawDocument{Filename: name, Format: domain.FormatText, Content: []byte(text)}
}

func TestPipeline_Process_Success(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(&domain.ExtractedFields{
		Amount:      decimal.NewFromInt(10000),
		Description: "收到客户货款",
		Confidence:  0.95,
	}, nil)

	deps.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), usecase.DefaultTopK).
		Return([]domain.RankedRuleCandidate{candidate(t, deps.store, "revenue-receipt-bank", 0.9)}, nil)

	result := pipeline.Process(context.Background(), doc("invoice-001.txt", "收到客户货款 10000元"), time.Time{})

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "invoice-001.txt", result.Document)
	assert.NotEqual(t, domain.StatusFailed, result.Status)
	require.NotNil(t, result.Entry)

	assert.Equal(t, "revenue-receipt-bank", result.Entry.RuleID)
	require.Len(t, result.Entry.Lines, 2)
	assert.True(t, result.Entry.TotalDebit().Equal(result.Entry.TotalCredit()))
	assert.NoError(t, result.Entry.Validate())

	assert.Greater(t, result.Confidence, 0.0)
	assert.False(t, result.Breakdown.UsedFallback)
	assert.Empty(t, result.FailedStage)
}

func TestPipeline_Process_TaxInclusiveSale(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(&domain.ExtractedFields{
		Amount:      decimal.NewFromInt(11300),
		Description: "销售商品，含税总价11300元",
		TaxHint:     domain.TaxRateGeneral,
		Confidence:  0.9,
	}, nil)

	deps.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]domain.RankedRuleCandidate{candidate(t, deps.store, "sales-tax-inclusive", 0.85)}, nil)

	result := pipeline.Process(context.Background(), doc("invoice-002.txt", "销售商品"), time.Time{})

	require.NotNil(t, result.Entry)
	require.Len(t, result.Entry.Lines, 3)

	assert.True(t, result.Entry.Lines[0].Amount.Equal(decimal.NewFromInt(11300)))
	assert.True(t, result.Entry.Lines[1].Amount.Equal(decimal.NewFromInt(10000)))
	assert.True(t, result.Entry.Lines[2].Amount.Equal(decimal.NewFromInt(1300)))
	assert.True(t, result.Entry.TotalDebit().Equal(result.Entry.TotalCredit()))
}

func TestPipeline_Process_ExtractionTimeout(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{
		ExtractionTimeout: 10 * time.Millisecond,
	})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (*domain.ExtractedFields, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	result := pipeline.Process(context.Background(), doc("slow.txt", "text"), time.Time{})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, "extraction", result.FailedStage)
	assert.NotEmpty(t, result.ErrorDetail)
	assert.Nil(t, result.Entry)
}

func TestPipeline_Process_ExtractionError(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("model unavailable"))

	result := pipeline.Process(context.Background(), doc("doc.txt", "text"), time.Time{})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, "extraction", result.FailedStage)
}

func TestPipeline_Process_InvalidFields(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(&domain.ExtractedFields{
		Amount:     decimal.NewFromInt(-5),
		Confidence: 0.9,
	}, nil)

	result := pipeline.Process(context.Background(), doc("doc.txt", "text"), time.Time{})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, "extraction", result.FailedStage)
}

func TestPipeline_Process_NoRuleNoFallback(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(&domain.ExtractedFields{
		Amount:      decimal.NewFromInt(500),
		Description: "completely unknown business",
		Confidence:  0.9,
	}, nil)

	deps.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	result := pipeline.Process(context.Background(), doc("doc.txt", "text"), time.Time{})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, "generation", result.FailedStage)
	assert.Nil(t, result.Entry)
}

func TestPipeline_Process_EmptyRetrievalUsesFallback(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(&domain.ExtractedFields{
		Amount:      decimal.NewFromInt(5000),
		Description: "支付办公室房租",
		Confidence:  0.9,
	}, nil)

	deps.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	result := pipeline.Process(context.Background(), doc("doc.txt", "text"), time.Time{})

	require.NotNil(t, result.Entry)
	assert.Empty(t, result.Entry.RuleID)
	assert.True(t, result.Breakdown.UsedFallback)
	assert.NotEmpty(t, result.ReviewNotes)

	// The neutral retrieval score stands in for the missing signal.
	assert.InDelta(t, usecase.DefaultNeutralRetrievalScore, result.Breakdown.Retrieval, 1e-9)
}

func TestPipeline_Process_RetrievalFailureStrict(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{StrictRetrieval: true})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(&domain.ExtractedFields{
		Amount:      decimal.NewFromInt(5000),
		Description: "支付办公室房租",
		Confidence:  0.9,
	}, nil)

	deps.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("search backend down"))

	result := pipeline.Process(context.Background(), doc("doc.txt", "text"), time.Time{})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, "retrieval", result.FailedStage)
}

func TestPipeline_Process_RetrievalFailureDegrades(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(&domain.ExtractedFields{
		Amount:      decimal.NewFromInt(5000),
		Description: "支付办公室房租",
		Confidence:  0.95,
	}, nil)

	deps.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("search backend down"))

	result := pipeline.Process(context.Background(), doc("doc.txt", "text"), time.Time{})

	// Degraded, not failed: entry generated, flagged for review.
	require.NotNil(t, result.Entry)
	assert.NotEqual(t, domain.StatusFailed, result.Status)
	assert.NotEqual(t, domain.StatusSuccess, result.Status)
	assert.NotEmpty(t, result.ReviewNotes)
}

func TestPipeline_Process_CandidatePrefersStandardizedCategory(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(&domain.ExtractedFields{
		Amount:      decimal.NewFromInt(5000),
		Description: "支付办公室房租",
		Confidence:  0.9,
	}, nil)

	// Top candidate disagrees with the standardized category; the first
	// category-consistent candidate wins.
	deps.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]domain.RankedRuleCandidate{
			candidate(t, deps.store, "revenue-receipt-bank", 0.9),
			candidate(t, deps.store, "rent-expense", 0.8),
		}, nil)

	result := pipeline.Process(context.Background(), doc("doc.txt", "text"), time.Time{})

	require.NotNil(t, result.Entry)
	assert.Equal(t, "rent-expense", result.Entry.RuleID)
	assert.InDelta(t, 0.8, result.Breakdown.Retrieval, 1e-9)
}

func TestPipeline_Process_DatePrecedence(t *testing.T) {
	override := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	extracted := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		override time.Time
		wantDate time.Time
	}{
		{name: "override wins", override: override, wantDate: override},
		{name: "extracted date otherwise", override: time.Time{}, wantDate: extracted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

			deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(&domain.ExtractedFields{
				Amount:      decimal.NewFromInt(5000),
				Description: "支付办公室房租",
				Date:        extracted,
				Confidence:  0.9,
			}, nil)

			deps.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).
				Return([]domain.RankedRuleCandidate{candidate(t, deps.store, "rent-expense", 0.9)}, nil)

			result := pipeline.Process(context.Background(), doc("doc.txt", "text"), tt.override)

			require.NotNil(t, result.Entry)
			assert.True(t, result.Entry.Date.Equal(tt.wantDate))
		})
	}
}

func TestPipeline_ProcessBatch(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, text string) (*domain.ExtractedFields, error) {
			if text == "bad" {
				return nil, errors.New("unreadable")
			}
			return &domain.ExtractedFields{
				Amount:      decimal.NewFromInt(1000),
				Description: "支付办公室房租",
				Confidence:  0.9,
			}, nil
		}).Times(3)

	deps.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]domain.RankedRuleCandidate{candidate(t, deps.store, "rent-expense", 0.9)}, nil).
		AnyTimes()

	docs := []*domain.RawDocument{
		doc("a.txt", "支付房租"),
		doc("b.txt", "bad"),
		doc("c.txt", "支付房租"),
	}

	results, stats := pipeline.ProcessBatch(context.Background(), docs, time.Time{}, 2)

	require.Len(t, results, 3)
	assert.Equal(t, "a.txt", results[0].Document)
	assert.Equal(t, "b.txt", results[1].Document)
	assert.Equal(t, "c.txt", results[2].Document)

	assert.Equal(t, domain.StatusFailed, results[1].Status)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.FailuresByStage["extraction"])
}

func TestPipeline_Process_UnknownAccountBlocksAutoApproval(t *testing.T) {
	pipeline, deps := newTestPipeline(t, usecase.PipelineConfig{})

	deps.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return(&domain.ExtractedFields{
		Amount:      decimal.NewFromInt(10000),
		Description: "收到客户货款",
		Confidence:  1,
	}, nil)

	// A candidate posting to accounts the active rule set never
	// references, as after a reload that removed them.
	stale := domain.AccountingRule{
		ID:       "legacy-revenue",
		Category: domain.CategoryRevenueReceipt,
		Keywords: []string{"收到"},
		Lines: []domain.LineTemplate{
			{Direction: domain.Debit, AccountCode: "1009", AccountName: "其他货币资金", Amount: domain.AmountFull},
			{Direction: domain.Credit, AccountCode: "1122", AccountName: "应收账款", Amount: domain.AmountFull},
		},
	}
	deps.retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]domain.RankedRuleCandidate{{Rule: stale, Score: 1}}, nil)

	result := pipeline.Process(context.Background(), doc("invoice.txt", "收到客户货款"), time.Time{})

	require.NotNil(t, result.Entry)
	assert.Equal(t, domain.StatusNeedsReview, result.Status)

	found := false
	for _, note := range result.ReviewNotes {
		if strings.Contains(note, "1009") {
			found = true
		}
	}
	assert.True(t, found, "expected a review note about the unknown account, got %v", result.ReviewNotes)
}
