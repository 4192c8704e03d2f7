package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	// Rule store
	RulesPath string `env:"RULES_PATH" envDefault:"config/rules.yaml"`

	// Extraction model
	ExtractionBaseURL string        `env:"EXTRACTION_BASE_URL" envDefault:"http://localhost:11434"`
	ExtractionAPIKey  string        `env:"EXTRACTION_API_KEY"  envDefault:""`
	ExtractionModel   string        `env:"EXTRACTION_MODEL"    envDefault:"gpt-4o-mini"`
	ExtractionTimeout time.Duration `env:"EXTRACTION_TIMEOUT"  envDefault:"30s"`

	// Retrieval
	RetrievalTimeout time.Duration `env:"RETRIEVAL_TIMEOUT" envDefault:"5s"`
	RetrievalTopK    int           `env:"RETRIEVAL_TOP_K"   envDefault:"3"`
	StrictRetrieval  bool          `env:"STRICT_RETRIEVAL"  envDefault:"false"`

	// Generation
	AllowComplexEntries bool `env:"ALLOW_COMPLEX_ENTRIES" envDefault:"true"`

	// Confidence weights and routing thresholds
	ExtractionWeight      float64 `env:"EXTRACTION_WEIGHT"       envDefault:"0.3"`
	StandardizationWeight float64 `env:"STANDARDIZATION_WEIGHT"  envDefault:"0.3"`
	RetrievalWeight       float64 `env:"RETRIEVAL_WEIGHT"        envDefault:"0.4"`
	NeutralRetrievalScore float64 `env:"NEUTRAL_RETRIEVAL_SCORE" envDefault:"0.5"`
	SimpleModePenalty     float64 `env:"SIMPLE_MODE_PENALTY"     envDefault:"0.5"`
	AutoApproveThreshold  float64 `env:"AUTO_APPROVE_THRESHOLD"  envDefault:"0.8"`
	ReviewThreshold       float64 `env:"REVIEW_THRESHOLD"        envDefault:"0.6"`

	// Batch processing
	BatchWorkers int `env:"BATCH_WORKERS" envDefault:"4"`

	// Result cache (optional - leave REDIS_URL empty to disable)
	RedisURL       string        `env:"REDIS_URL"        envDefault:""`
	ResultCacheTTL time.Duration `env:"RESULT_CACHE_TTL" envDefault:"24h"`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"60s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Rate limiting (requests per second per client IP, 0 disables)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
