package config

import (
	"fmt"
	"github.com/joho/godotenv"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB (listing store)
	MongoURI    string
	MongoDbName string

	// Redis (cache + task queue)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort string

	// Public site
	SiteBaseURL string // canonical stall pages live at {SiteBaseURL}/{category}/{slug}

	// Short-link store (ssn.lat shortener, Postgres)
	ShortLinkDatabaseDSN string
	ShortLinkBaseURL     string

	// Cloudflare R2 (S3-compatible object storage)
	R2Endpoint        string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string
	R2PublicBaseURL   string

	// App Defaults
	AppName          string
	GetCacheTTL      time.Duration
	MaxGalleryImages int

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	// Load basic string values
	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "mela")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.SiteBaseURL = strings.TrimRight(getEnv("SITE_BASE_URL", "https://lakshya.ssn.edu.in"), "/")
	cfg.ShortLinkDatabaseDSN = getEnv("SHORTLINK_DATABASE_DSN", "")
	cfg.ShortLinkBaseURL = strings.TrimRight(getEnv("SHORTLINK_BASE_URL", "https://ssn.lat"), "/")
	cfg.R2Endpoint = getEnv("R2_ENDPOINT", "")
	cfg.R2AccessKeyID = getEnv("R2_ACCESS_KEY_ID", "")
	cfg.R2SecretAccessKey = getEnv("R2_SECRET_ACCESS_KEY", "")
	cfg.R2Bucket = getEnv("R2_BUCKET_NAME", "")
	cfg.R2PublicBaseURL = strings.TrimRight(getEnv("R2_PUBLIC_BASE_URL", ""), "/")
	cfg.AppName = getEnv("APP_NAME", "Mela")

	// Load numeric and time duration values with defaults and parsing
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	getCacheTTLSeconds, err := strconv.ParseInt(getEnv("GET_CACHE_TTL_SECONDS", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GET_CACHE_TTL_SECONDS: %w", err)
	}
	cfg.GetCacheTTL = time.Duration(getCacheTTLSeconds) * time.Second

	cfg.MaxGalleryImages, err = strconv.Atoi(getEnv("MAX_GALLERY_IMAGES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_GALLERY_IMAGES: %w", err)
	}

	// Rate Limiting
	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
