package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/journalbot/internal/domain"
)

const extractionPrompt = `你是一名发票信息提取助手。从下面的单据文本中提取字段，只输出一个JSON对象，不要输出其他内容:
{"amount": "金额(数字字符串)", "counterparty": "交易对方", "date": "YYYY-MM-DD或空", "description": "业务描述", "tax_hint": "general|small|service或空", "confidence": 0到1之间的数字}

单据文本:
`

// Config holds the connection settings for the extraction model.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64

	MaxRetries      int
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// LLMExtractor implements usecase.Extractor against an OpenAI-compatible
// chat completions API. Transient failures (network, 429, 5xx) are
// retried with exponential backoff; malformed model output is permanent.
type LLMExtractor struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// NewLLMExtractor creates a new LLMExtractor.
func NewLLMExtractor(cfg Config, logger zerolog.Logger) *LLMExtractor {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = 30 * time.Second
	}

	return &LLMExtractor{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// fieldsPayload is the JSON shape the model is asked to produce.
type fieldsPayload struct {
	Amount       string  `json:"amount"`
	Counterparty string  `json:"counterparty"`
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	TaxHint      string  `json:"tax_hint"`
	Confidence   float64 `json:"confidence"`
}

// Extract sends the document text to the model and parses the structured
// fields out of its reply.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (*domain.ExtractedFields, error) {
	var content string

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.InitialInterval
	b.MaxElapsedTime = e.cfg.MaxElapsedTime

	retryCount := 0

	err := backoff.Retry(func() error {
		var err error
		content, err = e.complete(ctx, text)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return backoff.Permanent(err)
		}

		retryCount++
		if retryCount > e.cfg.MaxRetries {
			return backoff.Permanent(err)
		}

		e.logger.Warn().Err(err).Int("retry", retryCount).Msg("extraction call failed, retrying")

		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	fields, err := parseFields(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	return fields, nil
}

// statusError marks HTTP-level failures so retryability can be decided
// from the status code.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("model API returned status %d", e.code)
}

func (e *LLMExtractor) complete(ctx context.Context, text string) (string, error) {
	reqBody := chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: extractionPrompt + text},
		},
		Temperature: e.cfg.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling model API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", &statusError{code: resp.StatusCode}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("model API returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}

	var ue *url.Error
	return errors.As(err, &ue)
}

// parseFields pulls the JSON object out of the model reply, tolerating
// fenced code blocks and surrounding prose.
func parseFields(content string) (*domain.ExtractedFields, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var payload fieldsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("parsing model reply: %w", err)
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(payload.Amount, ",", ""))
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", payload.Amount, err)
	}

	fields := &domain.ExtractedFields{
		Amount:       amount,
		Counterparty: payload.Counterparty,
		Description:  payload.Description,
		TaxHint:      domain.TaxRateHint(payload.TaxHint),
		Confidence:   payload.Confidence,
	}

	if payload.Date != "" {
		date, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", payload.Date, err)
		}
		fields.Date = date
	}

	if err := fields.Validate(); err != nil {
		return nil, err
	}

	return fields, nil
}

// extractJSON returns the first top-level JSON object in s.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return ""
}
