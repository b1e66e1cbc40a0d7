package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectAuthDefault(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	assert.Empty(t, cfg.AuthSecret)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("LOG_LEVEL", " DEBUG ")

	cfg := Load()
	require.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadClampsInvalidNumbers(t *testing.T) {
	t.Setenv("DB_MAX_CONCURRENT_TX", "0")
	t.Setenv("LIST_CACHE_TTL_SECONDS", "-5")

	cfg := Load()
	assert.Equal(t, 16, cfg.DBMaxConcurrentTx)
	assert.Equal(t, 30, cfg.ListCacheTTLSeconds)
}
