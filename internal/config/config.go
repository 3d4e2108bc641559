package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	JWTSecret   string

	// Flutterwave
	FlutterwaveSecretKey   string
	FlutterwaveBaseURL     string
	FlutterwaveWebhookHash string
	TxRefPrefix            string

	// Termii
	TermiiAPIKey   string
	TermiiBaseURL  string
	TermiiSenderID string
	OTPMode        string // "pin" or "code"

	MapsAPIKey   string
	MapsBaseURL  string
	RedisAddr    string
	MapsCacheTTL time.Duration

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	OutboundProxy      string
	OutboxInterval     time.Duration
	MetricsUser        string
	MetricsPassword    string
	RateLimitPerMinute int
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		FlutterwaveSecretKey:   os.Getenv("FLW_SECRET_KEY"),
		FlutterwaveBaseURL:     getEnv("FLW_BASE_URL", "https://api.flutterwave.com/v3"),
		FlutterwaveWebhookHash: os.Getenv("FLW_WEBHOOK_HASH"),
		TxRefPrefix:            getEnv("TX_REF_PREFIX", "SUB"),

		TermiiAPIKey:   os.Getenv("TERMII_API_KEY"),
		TermiiBaseURL:  getEnv("TERMII_BASE_URL", "https://api.ng.termii.com"),
		TermiiSenderID: getEnv("TERMII_SENDER_ID", "N-Alert"),
		OTPMode:        getEnv("OTP_MODE", "pin"),

		MapsAPIKey:   os.Getenv("MAPS_API_KEY"),
		MapsBaseURL:  getEnv("MAPS_BASE_URL", "https://maps.googleapis.com/maps/api"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		MapsCacheTTL: getDuration("MAPS_CACHE_TTL", 24*time.Hour),

		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),

		OutboundProxy:      os.Getenv("OUTBOUND_PROXY"),
		OutboxInterval:     getDuration("OUTBOX_INTERVAL", 30*time.Second),
		MetricsUser:        os.Getenv("METRICS_USER"),
		MetricsPassword:    os.Getenv("METRICS_PASSWORD"),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}
