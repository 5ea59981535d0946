package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "METRICS_PORT", "REDIS_ADDR", "MEDIA_BUCKET",
		"JOB_MAX_RETRY", "JOB_TIMEOUT", "STORAGE_PUT_RETRIES",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "9090", cfg.MetricsPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "boptone-media", cfg.Bucket)
	assert.Equal(t, 3, cfg.JobMaxRetry)
	assert.Equal(t, 30*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 3, cfg.PutRetries)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("MINIO_USE_SSL", "TRUE")
	t.Setenv("JOB_TIMEOUT", "90m")
	t.Setenv("JOB_MAX_RETRY", "5")

	cfg := FromEnv()
	assert.Equal(t, "9999", cfg.HTTPPort)
	assert.Equal(t, "redis:6380", cfg.RedisAddr)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 90*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 5, cfg.JobMaxRetry)
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("JOB_MAX_RETRY", "many")
	t.Setenv("JOB_TIMEOUT", "soon")

	cfg := FromEnv()
	assert.Equal(t, 3, cfg.JobMaxRetry, "unparseable int falls back to the default")
	assert.Equal(t, 30*time.Minute, cfg.JobTimeout, "unparseable duration falls back to the default")
}
