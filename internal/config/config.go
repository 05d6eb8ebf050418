package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every deploy-time knob. Values come from the environment
// (optionally seeded from a .env file by the caller).
type Config struct {
	HTTPPort    string `envconfig:"HTTP_PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`
	AdminSecret string `envconfig:"ADMIN_SECRET" required:"true"`

	MaxLoginAttempts      int `envconfig:"MAX_LOGIN_ATTEMPTS" default:"5"`
	SessionTimeoutMinutes int `envconfig:"SESSION_TIMEOUT_MINUTES" default:"30"`
	BlockTimeMinutes      int `envconfig:"BLOCK_TIME_MINUTES" default:"15"`
	DefaultManagerQuota   int `envconfig:"DEFAULT_MANAGER_QUOTA" default:"10"`

	// Local key-value store. RedisAddr, when set, takes precedence over the
	// sqlite file at KVPath.
	KVPath    string `envconfig:"KV_PATH" default:"keydesk.db"`
	RedisAddr string `envconfig:"REDIS_ADDR"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

func (c Config) BlockTime() time.Duration {
	return time.Duration(c.BlockTimeMinutes) * time.Minute
}
