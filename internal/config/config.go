package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                string
	AllowedOrigin       string
	LogLevel            string
	LogConsole          bool
	DatabaseURL         string
	DBMaxConcurrentTx   int
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	ListCacheTTLSeconds int
	AuthSecret          string
	MinioEndpoint       string
	MinioAccessKey      string
	MinioSecretKey      string
	MinioBucket         string
	MinioUseSSL         bool
}

func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_CONSOLE", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONCURRENT_TX", 16)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LIST_CACHE_TTL_SECONDS", 30)
	v.SetDefault("AUTH_SECRET", "")
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "outbound-receipts")
	v.SetDefault("MINIO_USE_SSL", false)
	v.AutomaticEnv()

	maxTx := v.GetInt("DB_MAX_CONCURRENT_TX")
	if maxTx < 1 {
		maxTx = 16
	}
	ttl := v.GetInt("LIST_CACHE_TTL_SECONDS")
	if ttl < 1 {
		ttl = 30
	}

	return Config{
		Port:                v.GetString("PORT"),
		AllowedOrigin:       v.GetString("ALLOWED_ORIGIN"),
		LogLevel:            strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogConsole:          v.GetBool("LOG_CONSOLE"),
		DatabaseURL:         strings.TrimSpace(v.GetString("DATABASE_URL")),
		DBMaxConcurrentTx:   maxTx,
		RedisAddr:           strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		ListCacheTTLSeconds: ttl,
		AuthSecret:          strings.TrimSpace(v.GetString("AUTH_SECRET")),
		MinioEndpoint:       strings.TrimSpace(v.GetString("MINIO_ENDPOINT")),
		MinioAccessKey:      v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:      v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:         strings.TrimSpace(v.GetString("MINIO_BUCKET")),
		MinioUseSSL:         v.GetBool("MINIO_USE_SSL"),
	}
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
