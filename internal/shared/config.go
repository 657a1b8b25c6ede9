package shared

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"prod"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9100"`

	MySQLDSN  string `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/paidreviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"`
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	GatewayBase string `env:"GATEWAY_BASE_URL" envDefault:"http://localhost:5000"`
	GatewayKey  string `env:"GATEWAY_API_KEY" envDefault:""`
	GatewayRPS  int    `env:"GATEWAY_RPS" envDefault:"5"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaTopic   string   `env:"KAFKA_PAYMENTS_TOPIC" envDefault:"payments.invoice.settled"`
	KafkaGroup   string   `env:"KAFKA_GROUP_ID" envDefault:"paidreviews"`

	TributeAddress string `env:"TRIBUTE_ADDRESS" envDefault:"lnbits@nostr.com"`
	TagManifestURL string `env:"TAG_MANIFEST_URL" envDefault:""`

	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"30s"`
}

// Load reads .env when present (dev convenience), then the environment.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env loaded")
	}
	var c Config
	if err := env.Parse(&c); err != nil {
		log.Fatal().Err(err).Msg("parse config")
	}
	if c.GatewayKey == "" {
		log.Warn().Msg("GATEWAY_API_KEY is empty")
	}
	return c
}
