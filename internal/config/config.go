package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// NumeralStrategy selects how pipeline step 3 treats numerals.
type NumeralStrategy string

const (
	NumeralForceASCII   NumeralStrategy = "force-ascii"
	NumeralForceLocal   NumeralStrategy = "force-local"
	NumeralPreserve     NumeralStrategy = "preserve"
	NumeralContextAware NumeralStrategy = "context-aware"
)

// Config holds every tunable value this service reads at startup: server
// and storage settings, queue transport, external recognizer and polish
// endpoints, retry policy, pipeline toggles, and cache/timeout knobs.
type Config struct {
	// Server
	Port string
	Host string

	// Database
	DatabasePath string

	// Redis (job queue transport)
	RedisAddr     string
	RedisPassword string

	// Storage
	UploadDir     string
	MaxAudioBytes int64

	// Default lexicon
	DefaultLexiconID string

	// External recognizer
	RecognizerBaseURL string
	RecognizerAPIKey  string
	RecognizerTimeout time.Duration

	// Large-model polish
	PolishBaseURL string
	PolishAPIKey  string
	PolishModel   string
	PolishTimeout time.Duration

	// Retry policy
	RetryMax        int
	RetryInitial    time.Duration
	RetryMultiplier float64
	RetryCap        time.Duration

	// Pipeline toggles
	EnableLexicon                 bool
	EnableCleanup                 bool
	EnableNumeral                 bool
	EnableLargeModelPolish        bool
	NumeralStrategy               NumeralStrategy
	FuzzyEnabled                  bool
	FuzzyThreshold                int
	LanguageNormalisationsEnabled bool

	// Confidence coefficients
	ConfidenceAlpha float64
	ConfidenceBeta  float64
	ConfidenceGamma float64

	// Timeouts / worker pool
	JobTimeout        time.Duration
	VisibilityTimeout time.Duration
	WorkerCount       int

	// Cache
	CacheTTL time.Duration
}

// Load loads configuration from environment variables and a .env file,
// falling back to documented defaults for everything else.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Port:         getEnv("PORT", "8080"),
		Host:         getEnv("HOST", "localhost"),
		DatabasePath: getEnv("DATABASE_PATH", "data/transcribeapi.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		UploadDir:     getEnv("UPLOAD_DIR", "data/uploads"),
		MaxAudioBytes: int64(getEnvAsInt("MAX_AUDIO_BYTES", 10*1024*1024)),

		DefaultLexiconID: getEnv("DEFAULT_LEXICON_ID", ""),

		RecognizerBaseURL: getEnv("RECOGNIZER_BASE_URL", "https://api.recognizer.example/v1"),
		RecognizerAPIKey:  getEnv("RECOGNIZER_API_KEY", ""),
		RecognizerTimeout: time.Duration(getEnvAsInt("RECOGNIZER_TIMEOUT_SECONDS", 60)) * time.Second,

		PolishBaseURL: getEnv("POLISH_BASE_URL", "https://api.openai.com/v1"),
		PolishAPIKey:  getEnv("POLISH_API_KEY", ""),
		PolishModel:   getEnv("POLISH_MODEL", "gpt-4o-mini"),
		PolishTimeout: time.Duration(getEnvAsInt("POLISH_TIMEOUT_SECONDS", 60)) * time.Second,

		RetryMax:        getEnvAsInt("RETRY_MAX", 3),
		RetryInitial:    time.Duration(getEnvAsInt("RETRY_INITIAL_MS", 1000)) * time.Millisecond,
		RetryMultiplier: getEnvAsFloat("RETRY_MULTIPLIER", 2.0),
		RetryCap:        time.Duration(getEnvAsInt("RETRY_CAP_SECONDS", 60)) * time.Second,

		EnableLexicon:                 getEnvAsBool("ENABLE_LEXICON", true),
		EnableCleanup:                 getEnvAsBool("ENABLE_CLEANUP", true),
		EnableNumeral:                 getEnvAsBool("ENABLE_NUMERAL", true),
		EnableLargeModelPolish:        getEnvAsBool("ENABLE_LARGE_MODEL_POLISH", false),
		NumeralStrategy:               NumeralStrategy(getEnv("NUMERAL_STRATEGY", string(NumeralContextAware))),
		FuzzyEnabled:                  getEnvAsBool("FUZZY_ENABLED", true),
		FuzzyThreshold:                getEnvAsInt("FUZZY_THRESHOLD", 85),
		LanguageNormalisationsEnabled: getEnvAsBool("LANGUAGE_NORMALISATIONS_ENABLED", true),

		ConfidenceAlpha: getEnvAsFloat("CONFIDENCE_ALPHA", 0.02),
		ConfidenceBeta:  getEnvAsFloat("CONFIDENCE_BETA", 0.05),
		ConfidenceGamma: getEnvAsFloat("CONFIDENCE_GAMMA", 0.5),

		JobTimeout:        time.Duration(getEnvAsInt("JOB_TIMEOUT_SECONDS", 300)) * time.Second,
		VisibilityTimeout: time.Duration(getEnvAsInt("VISIBILITY_TIMEOUT_SECONDS", 300)) * time.Second,
		WorkerCount:       getEnvAsInt("WORKER_COUNT", 2),

		CacheTTL: time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// AllowedAudioExtensions is the set of extensions accepted by the
// submission service. Both extension and declared content type must be
// members of the equivalent MIME set.
var AllowedAudioExtensions = map[string]bool{
	"wav":  true,
	"mp3":  true,
	"m4a":  true,
	"ogg":  true,
	"flac": true,
	"mp4":  true,
	"mpeg": true,
	"mpga": true,
	"webm": true,
}

var allowedContentTypes = map[string]bool{
	"audio/wav": true, "audio/x-wav": true, "audio/wave": true,
	"audio/mpeg": true, "audio/mp3": true,
	"audio/mp4": true, "audio/x-m4a": true,
	"audio/ogg":  true,
	"audio/flac": true, "audio/x-flac": true,
	"audio/webm": true,
	"video/mp4":  true,
}

// IsAllowedContentType reports whether a declared MIME type is acceptable.
func IsAllowedContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return allowedContentTypes[ct]
}
