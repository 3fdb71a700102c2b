package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type key string

const (
	KeyLogger  = key("logger")
	KeyUUID    = key("uuid")
	KeyAccount = key("account")
	KeyMetrics = key("metrics")
)

const (
	TransportPostgres = "postgres"
	TransportREST     = "rest"
	TransportMemory   = "memory"
)

type Config struct {
	Service  Service
	Platform Platform
	Logger   Logger
	Metrics  Metrics
	Postgres Postgres
	Backend  Backend
	Auth     Auth
	Chat     Chat
}

type Service struct {
	Name string `env:"CHAT_SYNC_SERVICE_NAME" env-default:"chat-sync"`
	Port string `env:"CHAT_SYNC_SERVICE_PORT" env-default:"8080"`
}

type Platform struct {
	Env string `env:"ENV" env-default:"dev"`
}

type Logger struct {
	Host string `env:"LOGGER_SERVICE_HOST" env-default:"localhost"`
	Port string `env:"LOGGER_SERVICE_PORT" env-default:"9000"`
}

type Metrics struct {
	Host string `env:"GRAFANA_HOST" env-default:"localhost"`
	Port int    `env:"GRAFANA_PORT" env-default:"8125"`
}

type Postgres struct {
	User     string `env:"CHAT_SYNC_POSTGRES_USER"`
	Password string `env:"CHAT_SYNC_POSTGRES_PASSWORD"`
	Database string `env:"CHAT_SYNC_POSTGRES_DB"`
	Host     string `env:"CHAT_SYNC_POSTGRES_HOST" env-default:"localhost"`
	Port     string `env:"CHAT_SYNC_POSTGRES_PORT" env-default:"5432"`

	ListenerMinReconnect time.Duration `env:"CHAT_SYNC_LISTENER_MIN_RECONNECT" env-default:"1s"`
	ListenerMaxReconnect time.Duration `env:"CHAT_SYNC_LISTENER_MAX_RECONNECT" env-default:"10s"`
}

type Backend struct {
	Transport string        `env:"CHAT_SYNC_TRANSPORT" env-default:"postgres"`
	BaseURL   string        `env:"CHAT_SYNC_API_URL" env-default:"http://localhost:8080"`
	LiveURL   string        `env:"CHAT_SYNC_LIVE_URL" env-default:"ws://localhost:8080/connection/websocket"`
	Timeout   time.Duration `env:"CHAT_SYNC_API_TIMEOUT" env-default:"10s"`
}

type Auth struct {
	AccessToken string `env:"CHAT_SYNC_ACCESS_TOKEN"`
	JWTSecret   string `env:"CHAT_SYNC_JWT_SECRET"`
	UserID      string `env:"CHAT_SYNC_USER_ID"`
}

type Chat struct {
	ChatID       string `env:"CHAT_SYNC_CHAT_ID"`
	HistoryLimit uint64 `env:"CHAT_SYNC_HISTORY_LIMIT" env-default:"50"`
}

func MustLoad() *Config {
	cfg := &Config{}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		log.Fatalf("failed to read env variables: %v", err)
	}

	return cfg
}
