package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config — вся конфигурация сервиса из переменных окружения.
// Секреты (POSTGRES_CONN, JWT_SECRET) задаются только через env.
type Config struct {
	PostgresConn  string `env:"POSTGRES_CONN"`
	ServerAddress string `env:"SERVER_ADDRESS" env-default:"0.0.0.0:8080"`
	JWTSecret     string `env:"JWT_SECRET"`
	ExportDir     string `env:"EXPORT_DIR" env-default:"./exports"`
	MigrationsDir string `env:"MIGRATIONS_DIR" env-default:"./migrations"`
	Environment   string `env:"ENVIRONMENT" env-default:"production"`
}

func Load() (*Config, error) {
	// .env опционален, в проде конфиг приходит из окружения
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if cfg.PostgresConn == "" {
		return nil, fmt.Errorf("POSTGRES_CONN env variable is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET env variable is not set")
	}
	return &cfg, nil
}
