package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	Port        string

	// External provider credentials
	OpenAIAPIKey       string
	AnthropicAPIKey    string
	FirecrawlAPIKey    string
	GooglePlacesAPIKey string
	UnsplashAccessKey  string
	PexelsAPIKey       string

	// Database performance settings
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes
	DBConnMaxIdleTime int // minutes
	DBReadTimeout     time.Duration
	DBWriteTimeout    time.Duration

	// LLM client settings
	OpenAIModel    string
	OpenAITimeout  time.Duration
	AnthropicModel string

	// Enrichment settings
	ScrapeTimeout time.Duration

	// Review pipeline knobs
	ConfidenceDelta   int // added to confidence on successful enhancement
	FeaturedThreshold int // published rows with score >= threshold are featured

	// Optional directory with template overrides for the local enhancer
	TemplateDir string

	// Logging settings
	LogLevel  string
	LogFormat string // "json" or "text"

	Env string // development, staging, production
}

func Load() *Config {
	dbMaxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	dbMaxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "10"))
	dbConnMaxLifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINUTES", "10"))
	dbConnMaxIdleTime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_IDLE_TIME_MINUTES", "5"))

	dbReadTO, _ := time.ParseDuration(getEnv("DB_READ_TIMEOUT", "8s"))
	dbWriteTO, _ := time.ParseDuration(getEnv("DB_WRITE_TIMEOUT", "6s"))

	openAIReqTimeoutSec, _ := strconv.Atoi(getEnv("OPENAI_REQUEST_TIMEOUT_SECONDS", "60"))
	scrapeTimeoutSec, _ := strconv.Atoi(getEnv("SCRAPE_TIMEOUT_SECONDS", "90"))

	confidenceDelta, _ := strconv.Atoi(getEnv("CONFIDENCE_DELTA", "10"))
	featuredThreshold, _ := strconv.Atoi(getEnv("FEATURED_THRESHOLD", "85"))

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),

		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		FirecrawlAPIKey:    getEnv("FIRECRAWL_API_KEY", ""),
		GooglePlacesAPIKey: getEnv("GOOGLE_PLACES_API_KEY", ""),
		UnsplashAccessKey:  getEnv("UNSPLASH_ACCESS_KEY", ""),
		PexelsAPIKey:       getEnv("PEXELS_API_KEY", ""),

		DBMaxOpenConns:    dbMaxOpenConns,
		DBMaxIdleConns:    dbMaxIdleConns,
		DBConnMaxLifetime: dbConnMaxLifetime,
		DBConnMaxIdleTime: dbConnMaxIdleTime,
		DBReadTimeout:     dbReadTO,
		DBWriteTimeout:    dbWriteTO,

		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout:  time.Duration(openAIReqTimeoutSec) * time.Second,
		AnthropicModel: getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),

		ScrapeTimeout: time.Duration(scrapeTimeoutSec) * time.Second,

		ConfidenceDelta:   confidenceDelta,
		FeaturedThreshold: featuredThreshold,

		TemplateDir: getEnv("TEMPLATE_DIR", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Env: getEnv("ENV", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
