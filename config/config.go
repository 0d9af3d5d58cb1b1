package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// HTTP configuration
	ListenAddr string

	// Race limits
	PublicMaxModels  int  // Cap on models per race when unrestricted mode is off
	UnrestrictedMode bool // Disables the public model cap

	// Attempt defaults
	DefaultMaxTokensCrossword int
	DefaultMaxTokensWordle    int
	DefaultTimeoutMsCrossword int64
	DefaultTimeoutMsWordle    int64

	// Scoring
	SpeedBonusThresholdMs int64 // Latency below which the score kicker applies

	// Adapter credentials
	APIKey string // Bearer token forwarded to model endpoints

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		ListenAddr: getEnvWithDefault("LISTEN_ADDR", ":8080"),

		PublicMaxModels:  getEnvIntWithDefault("PUBLIC_MAX_MODELS", 8),
		UnrestrictedMode: os.Getenv("UNRESTRICTED_MODE") == "true",

		DefaultMaxTokensCrossword: getEnvIntWithDefault("DEFAULT_MAX_TOKENS_CROSSWORD", 16),
		DefaultMaxTokensWordle:    getEnvIntWithDefault("DEFAULT_MAX_TOKENS_WORDLE", 10),
		DefaultTimeoutMsCrossword: getEnvInt64WithDefault("DEFAULT_TIMEOUT_MS_CROSSWORD", 4000),
		DefaultTimeoutMsWordle:    getEnvInt64WithDefault("DEFAULT_TIMEOUT_MS_WORDLE", 10000),

		SpeedBonusThresholdMs: getEnvInt64WithDefault("SPEED_BONUS_THRESHOLD_MS", 250),

		APIKey: os.Getenv("MODEL_API_KEY"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.PublicMaxModels < 1 {
		return nil, fmt.Errorf("PUBLIC_MAX_MODELS must be at least 1")
	}
	if config.SpeedBonusThresholdMs < 0 {
		return nil, fmt.Errorf("SPEED_BONUS_THRESHOLD_MS must not be negative")
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntWithDefault parses an integer environment variable with a default
func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt64WithDefault parses an int64 environment variable with a default
func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		ListenAddr:                ":0",
		PublicMaxModels:           8,
		DefaultMaxTokensCrossword: 16,
		DefaultMaxTokensWordle:    10,
		DefaultTimeoutMsCrossword: 4000,
		DefaultTimeoutMsWordle:    10000,
		SpeedBonusThresholdMs:     250,
		Environment:               "test",
	}
}
