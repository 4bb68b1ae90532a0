// Package config loads router configuration from the environment, the
// same shape as the teacher's models.LoadNetworksFromEnv: defaults first,
// then environment overrides, no required-but-missing panics outside of
// genuinely fatal misconfiguration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the environment-provided configuration named in spec.md §6.
type Config struct {
	ProductStoreDSN string
	FAQIndexPath    string

	LLMProvider    string
	LLMModel       string
	LLMAPIKey      string

	FAQSimilarityThreshold float64
	EvidenceDeadline       time.Duration
	RequestDeadline        time.Duration
	GreetingSet            map[string]struct{}

	SessionTTL              time.Duration
	RegistryRefreshInterval time.Duration
	RedisURL                string

	HTTPAddr string
	Env      string
}

const (
	defaultFAQSimilarityThreshold = 0.60
	defaultEvidenceDeadline       = 100 * time.Millisecond
	defaultRequestDeadline        = 2 * time.Second
	defaultSessionTTL             = 30 * time.Minute
	defaultRegistryRefresh        = 60 * time.Second
	defaultHTTPAddr               = ":8080"
)

var defaultGreetings = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
}

// Load reads a .env file if present (non-fatal if missing, matching the
// teacher's cmd/main.go godotenv.Load() call) and builds a Config from
// the environment, falling back to documented defaults.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ProductStoreDSN:         getEnv("PRODUCT_STORE_DSN", ""),
		FAQIndexPath:            getEnv("FAQ_INDEX_PATH", ""),
		LLMProvider:             getEnv("LLM_PROVIDER", "openai"),
		LLMModel:                getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:               getEnv("LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
		FAQSimilarityThreshold:  getEnvFloat("FAQ_SIMILARITY_THRESHOLD", defaultFAQSimilarityThreshold),
		EvidenceDeadline:        getEnvDuration("EVIDENCE_DEADLINE", defaultEvidenceDeadline),
		RequestDeadline:         getEnvDuration("REQUEST_DEADLINE", defaultRequestDeadline),
		GreetingSet:             getEnvSet("GREETING_SET", defaultGreetings),
		SessionTTL:              getEnvDuration("SESSION_TTL", defaultSessionTTL),
		RegistryRefreshInterval: getEnvDuration("REGISTRY_REFRESH_INTERVAL", defaultRegistryRefresh),
		RedisURL:                getEnv("REDIS_URL", ""),
		HTTPAddr:                getEnv("HTTP_ADDR", defaultHTTPAddr),
		Env:                     getEnv("ENV", "development"),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSet(key string, fallback []string) map[string]struct{} {
	items := fallback
	if v := os.Getenv(key); v != "" {
		items = strings.Split(v, ",")
	}
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[strings.ToLower(strings.TrimSpace(item))] = struct{}{}
	}
	return set
}
