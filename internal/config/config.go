// Package config provides environment configuration for the storefront service.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Storefront backend
	BackendURL     string
	BackendTimeout time.Duration
	ImageBasePath  string
	DefaultImage   string

	// Cart persistence
	CartStorage    string
	CartStorageKey string
	CartFileDir    string
	CartSQLitePath string
	CartIdleTTL    time.Duration

	// Add-to-cart bridge transport
	Bus string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string
	NATSBucket   string

	// JWT settings
	JWTSecret string

	// Assistant settings
	AssistantProvider string
	AnthropicAPIKey   string
	OpenAIAPIKey      string
	AssistantModel    string

	// Widget timing
	GreetingDelay  time.Duration
	NotifyDelay    time.Duration
	NotifyCooldown time.Duration
	SearchDebounce time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	Environment string
	LogLevel    string
	LogFile     string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment
// variables take precedence.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Backend
		BackendURL:     getEnv("BACKEND_URL", "http://localhost:5000"),
		BackendTimeout: getDurationEnv("BACKEND_TIMEOUT", 30*time.Second),
		ImageBasePath:  getEnv("IMAGE_BASE_PATH", "/api/product-image"),
		DefaultImage:   getEnv("DEFAULT_IMAGE", "/images/default-product.png"),

		// Cart
		CartStorage:    getEnv("CART_STORAGE", "file"),
		CartStorageKey: getEnv("CART_STORAGE_KEY", "cartItems"),
		CartFileDir:    getEnv("CART_FILE_DIR", "./data/carts"),
		CartSQLitePath: getEnv("CART_SQLITE_PATH", "./data/carts.db"),
		CartIdleTTL:    getDurationEnv("CART_IDLE_TTL", 30*time.Minute),

		Bus: getEnv("BUS", "local"),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),
		NATSBucket:   getEnv("NATS_CART_BUCKET", "STOREFRONT_CARTS"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Assistant
		AssistantProvider: getEnv("ASSISTANT_PROVIDER", "backend"),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		AssistantModel:    getEnv("ASSISTANT_MODEL", ""),

		// Widget
		GreetingDelay:  getDurationEnv("GREETING_DELAY", 500*time.Millisecond),
		NotifyDelay:    getDurationEnv("NOTIFY_DELAY", 3*time.Second),
		NotifyCooldown: getDurationEnv("NOTIFY_COOLDOWN", 10*time.Minute),
		SearchDebounce: getDurationEnv("SEARCH_DEBOUNCE", 300*time.Millisecond),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		Environment: getEnv("ENV", "production"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
