package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration tree, loaded once at startup and
// passed down to every service constructor.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	S3       S3Config
	Telegram TelegramConfig
	Provider ProviderConfig
	Slot     SlotConfig
	Gate     GateConfig
	CORS     CORSConfig
	API      APIConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Timeout  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// S3Config configures the S3 client used by the /health dependency
// check — no media is stored in it (long-term retention is a Non-goal).
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	EndpointURL     string
}

type TelegramConfig struct {
	BotToken   string
	WebhookURL string
}

// ProviderConfig carries the per-provider HTTP client settings shared
// by the ytdlp/pytubefix/rapidapi adapters. The Routing Engine's
// default chains are not here; they are a table in the routing package.
type ProviderConfig struct {
	RapidAPIKey       string
	RapidAPIHost      string
	DefaultTimeout    time.Duration
	ConnectTimeout    time.Duration
	ScratchDir        string
	FFmpegPath        string
	FFprobePath       string
	MaxFileSizeBytes  int64
	YoutubeDocumentThresholdBytes int64
	YoutubeHardCapBytes           int64
	YtdlpBinaryPath string
	SaveNowBaseURL  string
}

// SlotConfig mirrors the Slot Controller's two admission caps (§4.3).
type SlotConfig struct {
	PerUserLimit     int
	PerUserTTL       time.Duration
	FFmpegGlobalCap  int
	FFmpegGlobalTTL  time.Duration
}

// GateConfig mirrors flyer_checker.py's monetization knobs (§4.9).
type GateConfig struct {
	FreeDays              int
	FreeDownloads         int
	YoutubeFullFreeCount  int
	InstagramCheckEvery   int
	CheckerURL            string
}

// APIConfig covers the narrowed ambient HTTP surface's rate limiting
// (health/webhook ingress only — no Admin REST/auth, non-goal).
type APIConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	Profile          string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{}

	cfg.Server.Port = getEnv("SERVER_PORT", "8080")
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")

	cfg.Postgres.Host = getEnv("POSTGRES_HOST", "localhost")
	cfg.Postgres.Port = getEnvInt("POSTGRES_PORT", 5432)
	cfg.Postgres.User = getEnvRequired("POSTGRES_USER")
	cfg.Postgres.Password = getEnvRequired("POSTGRES_PASSWORD")
	cfg.Postgres.Database = getEnv("POSTGRES_DATABASE", "downorc")
	cfg.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", "disable")
	pgTimeout, err := time.ParseDuration(getEnv("POSTGRES_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid POSTGRES_TIMEOUT: %w", err)
	}
	cfg.Postgres.Timeout = pgTimeout

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	redisTimeout, err := time.ParseDuration(getEnv("REDIS_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TIMEOUT: %w", err)
	}
	cfg.Redis.Timeout = redisTimeout

	cfg.S3.Region = getEnv("AWS_REGION", "us-east-1")
	cfg.S3.BucketName = getEnvRequired("S3_BUCKET_NAME")
	cfg.S3.EndpointURL = getEnv("AWS_ENDPOINT_URL", "")
	cfg.S3.AccessKeyID = getEnvRequired("AWS_ACCESS_KEY_ID")
	cfg.S3.SecretAccessKey = getEnvRequired("AWS_SECRET_ACCESS_KEY")

	cfg.Telegram.BotToken = getEnvRequired("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.WebhookURL = getEnv("TELEGRAM_WEBHOOK_URL", "")

	cfg.Provider.RapidAPIKey = getEnv("RAPIDAPI_KEY", "")
	cfg.Provider.RapidAPIHost = getEnv("RAPIDAPI_HOST", "")
	providerTimeout, err := time.ParseDuration(getEnv("PROVIDER_TIMEOUT", "45s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_TIMEOUT: %w", err)
	}
	cfg.Provider.DefaultTimeout = providerTimeout
	connectTimeout, err := time.ParseDuration(getEnv("PROVIDER_CONNECT_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_CONNECT_TIMEOUT: %w", err)
	}
	cfg.Provider.ConnectTimeout = connectTimeout
	cfg.Provider.ScratchDir = getEnv("SCRATCH_DIR", "/tmp/downloads")
	cfg.Provider.FFmpegPath = getEnv("FFMPEG_PATH", "ffmpeg")
	cfg.Provider.FFprobePath = getEnv("FFPROBE_PATH", "ffprobe")
	cfg.Provider.MaxFileSizeBytes = getEnvInt64("MAX_FILE_SIZE_BYTES", 50*1024*1024)
	cfg.Provider.YoutubeDocumentThresholdBytes = getEnvInt64("YOUTUBE_DOCUMENT_THRESHOLD_BYTES", 50*1024*1024)
	cfg.Provider.YoutubeHardCapBytes = getEnvInt64("YOUTUBE_HARD_CAP_BYTES", 2*1024*1024*1024)
	cfg.Provider.YtdlpBinaryPath = getEnv("YTDLP_BINARY_PATH", "yt-dlp")
	cfg.Provider.SaveNowBaseURL = getEnv("SAVENOW_BASE_URL", "https://savenow.to")

	cfg.Slot.PerUserLimit = getEnvInt("SLOT_PER_USER_LIMIT", 2)
	perUserTTL, err := time.ParseDuration(getEnv("SLOT_PER_USER_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLOT_PER_USER_TTL: %w", err)
	}
	cfg.Slot.PerUserTTL = perUserTTL
	cfg.Slot.FFmpegGlobalCap = getEnvInt("SLOT_FFMPEG_GLOBAL_CAP", 5)
	ffmpegTTL, err := time.ParseDuration(getEnv("SLOT_FFMPEG_GLOBAL_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLOT_FFMPEG_GLOBAL_TTL: %w", err)
	}
	cfg.Slot.FFmpegGlobalTTL = ffmpegTTL

	cfg.Gate.FreeDays = getEnvInt("GATE_FREE_DAYS", 0)
	cfg.Gate.FreeDownloads = getEnvInt("GATE_FREE_DOWNLOADS", 0)
	cfg.Gate.YoutubeFullFreeCount = getEnvInt("GATE_YOUTUBE_FULL_FREE_COUNT", 0)
	cfg.Gate.InstagramCheckEvery = getEnvInt("GATE_INSTAGRAM_CHECK_EVERY", 3)
	cfg.Gate.CheckerURL = getEnv("GATE_CHECKER_URL", "")

	cfg.CORS = loadCORSConfig()

	cfg.API.RateLimitRequests = getEnvInt("API_RATE_LIMIT_REQUESTS", 30)
	rateLimitWindow, err := time.ParseDuration(getEnv("API_RATE_LIMIT_WINDOW", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_RATE_LIMIT_WINDOW: %w", err)
	}
	cfg.API.RateLimitWindow = rateLimitWindow

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
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

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(strings.TrimSpace(value), ",")
	}
	return defaultValue
}

func loadCORSConfig() CORSConfig {
	profile := getEnv("CORS_PROFILE", "custom")

	switch profile {
	case "development":
		return getDevelopmentCORSConfig()
	case "production":
		return getProductionCORSConfig()
	default:
		return getCustomCORSConfig()
	}
}

func getDevelopmentCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled: getEnvBool("CORS_ENABLED", true),
		AllowedOrigins: getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}),
		AllowedMethods: getEnvStringSlice("CORS_ALLOWED_METHODS", []string{
			"GET", "POST", "OPTIONS",
		}),
		AllowedHeaders: getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{
			"Origin", "Content-Type", "Accept", "X-Request-ID",
		}),
		ExposedHeaders:   getEnvStringSlice("CORS_EXPOSED_HEADERS", []string{}),
		AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           getEnvInt("CORS_MAX_AGE", 86400),
		Profile:          "development",
	}
}

func getProductionCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled: getEnvBool("CORS_ENABLED", true),
		AllowedOrigins: getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{
			"https://api.telegram.org",
		}),
		AllowedMethods: getEnvStringSlice("CORS_ALLOWED_METHODS", []string{
			"GET", "POST", "OPTIONS",
		}),
		AllowedHeaders: getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{
			"Origin", "Content-Type", "Accept", "X-Request-ID",
		}),
		ExposedHeaders:   getEnvStringSlice("CORS_EXPOSED_HEADERS", []string{}),
		AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           getEnvInt("CORS_MAX_AGE", 3600),
		Profile:          "production",
	}
}

func getCustomCORSConfig() CORSConfig {
	return CORSConfig{
		Enabled: getEnvBool("CORS_ENABLED", true),
		AllowedOrigins: getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
		}),
		AllowedMethods: getEnvStringSlice("CORS_ALLOWED_METHODS", []string{
			"GET", "POST", "OPTIONS",
		}),
		AllowedHeaders: getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{
			"Origin", "Content-Type", "Accept",
		}),
		ExposedHeaders:   getEnvStringSlice("CORS_EXPOSED_HEADERS", []string{}),
		AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           getEnvInt("CORS_MAX_AGE", 3600),
		Profile:          "custom",
	}
}
