package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL    string `env:"DATABASE_URL,required"`
	JWTSecret      string `env:"JWT_SECRET,required"`
	AdminTokenHash string `env:"ADMIN_TOKEN_HASH,required"`
	JWTExpiryMins  int    `env:"JWT_EXPIRY_MINS" envDefault:"60"`

	CurrencyDir     string `env:"CURRENCY_DIR" envDefault:"currencies"`
	DefaultCurrency string `env:"DEFAULT_CURRENCY" envDefault:"euro"`
	EnableTxLog     bool   `env:"ENABLE_TX_LOG" envDefault:"true"`

	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
	DBPingAttempts     int `env:"DB_PING_ATTEMPTS" envDefault:"30"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
