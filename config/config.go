package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Values come from the environment (optionally via a .env file) with
// sensible defaults for local development.
type Config struct {
	// Engine settings
	FFmpegPath     string        // Path to the ffmpeg binary
	ProcessTimeout time.Duration // Hard wall-clock bound for one engine invocation

	// Mastering defaults
	TruePeakCeiling float64 // Default true-peak ceiling in dBTP
	MaxAttempts     int     // Gain-correction attempt budget per file
	SampleRate      int     // Default output sample rate in Hz
	MP3Bitrate      string  // e.g., "320k"
	AACBitrate      string  // e.g., "256k"

	// Watch mode
	InboxDir  string // Directory watched for newly dropped source files
	OutboxDir string // Directory mastered files are written to

	// HTTP server
	ServerAddr string

	// 数据库配置
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO 对象存储配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// 日志配置
	LogLevel      string
	LogOutputPath string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		FFmpegPath:     getEnv("FFMPEG_PATH", "ffmpeg"),
		ProcessTimeout: time.Duration(getEnvInt("PROCESS_TIMEOUT_SECONDS", 600)) * time.Second,

		// -1.0 dBTP is the common streaming-delivery ceiling.
		TruePeakCeiling: getEnvFloat("TRUE_PEAK_CEILING", -1.0),
		MaxAttempts:     getEnvInt("MAX_ATTEMPTS", 8),
		SampleRate:      getEnvInt("SAMPLE_RATE", 44100),
		MP3Bitrate:      getEnv("MP3_BITRATE", "320k"),
		AACBitrate:      getEnv("AAC_BITRATE", "256k"),

		InboxDir:  getEnv("INBOX_DIR", "inbox"),
		OutboxDir: getEnv("OUTBOX_DIR", "outbox"),

		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "loudgate"),

		// Redis配置，使用默认值
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "loudgate-masters"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogOutputPath: getEnv("LOG_OUTPUT_PATH", ""),
	}
}
