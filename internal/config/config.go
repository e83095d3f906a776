// Package config reads service settings from the environment.
package config

import (
	"time"

	"github.com/spf13/viper"

	"ProductManager/internal/storage"
)

type Config struct {
	Port    string
	LogFile string
	Debug   bool

	Storage    storage.Options
	StorageKey string

	AMQPURL string

	IDStrategy    string
	SnowflakeNode int64

	JWTSecret string
	TokenTTL  time.Duration

	MetricsEnabled bool
	MetricsToken   string

	AddLimitPerMin int
}

// Load reads the process environment.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

func FromViper(v *viper.Viper) Config {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("DEBUG", false)
	v.SetDefault("STORAGE_BACKEND", storage.BackendBolt)
	v.SetDefault("STORAGE_KEY", "sx:products")
	v.SetDefault("BOLT_PATH", "products.db")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "products.sqlite")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("ID_STRATEGY", "uuid")
	v.SetDefault("SNOWFLAKE_NODE", 1)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_TOKEN", "")
	v.SetDefault("ADD_LIMIT_PER_MIN", 60)

	return Config{
		Port:    v.GetString("PORT"),
		LogFile: v.GetString("LOG_FILE"),
		Debug:   v.GetBool("DEBUG"),

		Storage: storage.Options{
			Backend:       v.GetString("STORAGE_BACKEND"),
			BoltPath:      v.GetString("BOLT_PATH"),
			DatabaseURL:   v.GetString("DATABASE_URL"),
			SQLitePath:    v.GetString("SQLITE_PATH"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
		StorageKey: v.GetString("STORAGE_KEY"),

		AMQPURL: v.GetString("AMQP_URL"),

		IDStrategy:    v.GetString("ID_STRATEGY"),
		SnowflakeNode: v.GetInt64("SNOWFLAKE_NODE"),

		JWTSecret: v.GetString("JWT_SECRET"),
		TokenTTL:  v.GetDuration("TOKEN_TTL"),

		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		MetricsToken:   v.GetString("METRICS_TOKEN"),

		AddLimitPerMin: v.GetInt("ADD_LIMIT_PER_MIN"),
	}
}
