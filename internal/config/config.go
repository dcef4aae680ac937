package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	BaseURL     string // public base for short URLs and QR codes
	Port        string

	LogLevel  string
	LogFormat string // "json" or "text"

	CodeLength        int
	MaxURLLength      int
	DefaultExpiryDays int  // 0 means links never expire by default
	DedupByTarget     bool // reuse an existing link for the same target

	CacheTTLSeconds int
	CacheTimeoutMS  int // per-operation Redis deadline

	RateLimitRPS   float64 // general API endpoints (requests per second)
	RateLimitBurst int

	RedirectLimitRequests      int // fixed-window redirect budget per IP
	RedirectLimitWindowSeconds int

	CleanupIntervalMinutes int // 0 disables the background sweeper

	AdminKeyHash string // bcrypt hash of the admin key
	JWTSecret    string
	JWTTTL       int // token expiration time in hours
}

func Load() *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		Port:        getEnv("PORT", "8080"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		CodeLength:        getEnvInt("CODE_LENGTH", 6),
		MaxURLLength:      getEnvInt("MAX_URL_LENGTH", 2048),
		DefaultExpiryDays: getEnvInt("DEFAULT_EXPIRY_DAYS", 365),
		DedupByTarget:     getEnvBool("DEDUP_BY_TARGET", false),

		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 3600),
		CacheTimeoutMS:  getEnvInt("CACHE_TIMEOUT_MS", 150),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		RedirectLimitRequests:      getEnvInt("REDIRECT_LIMIT_REQUESTS", 100),
		RedirectLimitWindowSeconds: getEnvInt("REDIRECT_LIMIT_WINDOW_SECONDS", 3600),

		CleanupIntervalMinutes: getEnvInt("CLEANUP_INTERVAL_MINUTES", 60),

		AdminKeyHash: getEnv("ADMIN_KEY_HASH", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTTTL:       getEnvInt("JWT_TTL_HOURS", 24),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
