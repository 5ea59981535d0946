package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries the environment-backed settings for both the API server and
// the worker process.
type Config struct {
	HTTPPort    string
	MetricsPort string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioRegion    string
	Bucket         string
	PublicBaseURL  string

	DBPath string

	FFmpegPath  string
	FFprobePath string
	TempDir     string

	JobMaxRetry int
	JobTimeout  time.Duration
	PutRetries  int
	PutBackoff  time.Duration
}

// FromEnv reads configuration from the environment, applying defaults for
// anything unset.
func FromEnv() Config {
	tempDir := os.Getenv("WORKER_TMP_DIR")
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return Config{
		HTTPPort:       valueOrDefault(os.Getenv("PORT"), "8080"),
		MetricsPort:    valueOrDefault(os.Getenv("METRICS_PORT"), "9090"),
		RedisAddr:      valueOrDefault(os.Getenv("REDIS_ADDR"), "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        parseInt(os.Getenv("REDIS_DB"), 0),
		MinioEndpoint:  valueOrDefault(os.Getenv("MINIO_ENDPOINT"), "localhost:9000"),
		MinioAccessKey: valueOrDefault(os.Getenv("MINIO_ACCESS_KEY"), "minio"),
		MinioSecretKey: valueOrDefault(os.Getenv("MINIO_SECRET_KEY"), "minio123"),
		MinioUseSSL:    strings.EqualFold(os.Getenv("MINIO_USE_SSL"), "true"),
		MinioRegion:    os.Getenv("MINIO_REGION"),
		Bucket:         valueOrDefault(os.Getenv("MEDIA_BUCKET"), "boptone-media"),
		PublicBaseURL:  valueOrDefault(os.Getenv("MEDIA_PUBLIC_BASE_URL"), "http://localhost:9000"),
		DBPath:         valueOrDefault(os.Getenv("MEDIA_DB_PATH"), "./media.db"),
		FFmpegPath:     valueOrDefault(os.Getenv("FFMPEG_PATH"), "ffmpeg"),
		FFprobePath:    valueOrDefault(os.Getenv("FFPROBE_PATH"), "ffprobe"),
		TempDir:        tempDir,
		JobMaxRetry:    parseInt(os.Getenv("JOB_MAX_RETRY"), 3),
		JobTimeout:     parseDuration(os.Getenv("JOB_TIMEOUT"), 30*time.Minute),
		PutRetries:     parseInt(os.Getenv("STORAGE_PUT_RETRIES"), 3),
		PutBackoff:     parseDuration(os.Getenv("STORAGE_PUT_BACKOFF"), 2*time.Second),
	}
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
