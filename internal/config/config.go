package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"autoreply/internal/utils"
)

const (
	DefaultMaxRepliesPerThread = 2
	DefaultThreadTTL           = time.Hour
	DefaultSystemPrompt        = "You are a helpful Instagram assistant."
)

// Config holds everything read from the environment at startup.
type Config struct {
	Port        string
	VerifyToken string
	AdminToken  string

	OwnAccountHandle string
	OwnAccountID     string

	MaxRepliesPerThread int
	ThreadTTL           time.Duration
	SweepInterval       time.Duration
	StoreCapacity       int

	GenerationTimeout   time.Duration
	DispatchTimeout     time.Duration
	DispatchConcurrency int

	LLM   LLMConfig
	Graph GraphConfig

	LogLevel  string
	LogFormat string
}

type LLMConfig struct {
	BaseURL       string
	Token         string
	Model         string
	SystemPrompt  string
	FallbackReply string
}

type GraphConfig struct {
	BaseURL     string
	APIVersion  string
	AccessToken string
	RateLimit   float64 // requests per second, 0 = unlimited
}

// Load reads the configuration from env vars. Call godotenv.Load before this.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        utils.GetEnv("8080", "PORT"),
		VerifyToken: os.Getenv("VERIFY_TOKEN"),
		AdminToken:  os.Getenv("ADMIN_TOKEN"),

		OwnAccountHandle: utils.GetEnv("", "OWN_ACCOUNT_HANDLE"),
		OwnAccountID:     utils.GetEnv("", "OWN_ACCOUNT_ID"),

		MaxRepliesPerThread: utils.StringToInt(os.Getenv("MAX_REPLIES_PER_THREAD"), DefaultMaxRepliesPerThread),
		ThreadTTL:           utils.StringToDuration(os.Getenv("THREAD_STATE_TTL"), DefaultThreadTTL),
		SweepInterval:       utils.StringToDuration(os.Getenv("THREAD_SWEEP_INTERVAL"), time.Minute),
		StoreCapacity:       utils.StringToInt(os.Getenv("THREAD_STORE_CAPACITY"), 10000),

		GenerationTimeout:   utils.StringToDuration(os.Getenv("GENERATION_TIMEOUT"), 10*time.Second),
		DispatchTimeout:     utils.StringToDuration(os.Getenv("DISPATCH_TIMEOUT"), 10*time.Second),
		DispatchConcurrency: utils.StringToInt(os.Getenv("DISPATCH_CONCURRENCY"), 4),

		LLM: LLMConfig{
			BaseURL:       utils.GetEnv("https://api.openai.com/v1", "LLM_BASE_URL"),
			Token:         utils.GetEnv("", "LLM_TOKEN", "OPENAI_API_KEY"),
			Model:         utils.GetEnv("gpt-4o", "LLM_MODEL"),
			SystemPrompt:  utils.GetEnv(DefaultSystemPrompt, "LLM_SYSTEM_PROMPT"),
			FallbackReply: os.Getenv("FALLBACK_REPLY"),
		},
		Graph: GraphConfig{
			BaseURL:     utils.GetEnv("https://graph.facebook.com", "GRAPH_BASE_URL"),
			APIVersion:  utils.GetEnv("v19.0", "GRAPH_API_VERSION"),
			AccessToken: utils.GetEnv("", "PAGE_ACCESS_TOKEN", "INSTAGRAM_PAGE_ACCESS_TOKEN"),
			RateLimit:   utils.StringToFloat(os.Getenv("GRAPH_RATE_LIMIT"), 0),
		},

		LogLevel:  utils.GetEnv("info", "LOG_LEVEL"),
		LogFormat: utils.GetEnv("text", "LOG_FORMAT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the moderation engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxRepliesPerThread < 1 {
		errs = append(errs, fmt.Errorf("MAX_REPLIES_PER_THREAD must be >= 1, got %d", c.MaxRepliesPerThread))
	}
	if c.ThreadTTL <= 0 {
		errs = append(errs, fmt.Errorf("THREAD_STATE_TTL must be positive, got %s", c.ThreadTTL))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("THREAD_SWEEP_INTERVAL must be positive, got %s", c.SweepInterval))
	}
	if c.StoreCapacity < 1 {
		errs = append(errs, fmt.Errorf("THREAD_STORE_CAPACITY must be >= 1, got %d", c.StoreCapacity))
	}
	if c.GenerationTimeout <= 0 || c.DispatchTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT and DISPATCH_TIMEOUT must be positive"))
	}
	if c.DispatchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("DISPATCH_CONCURRENCY must be >= 1, got %d", c.DispatchConcurrency))
	}
	if c.Graph.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("GRAPH_RATE_LIMIT must not be negative, got %v", c.Graph.RateLimit))
	}
	return errors.Join(errs...)
}
