package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Game     GameConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Environment string // "development", "production", "test"
	Debug       bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type GameConfig struct {
	// CartelasPerShop is how many cartelas are provisioned per shop when
	// seeding is enabled.
	CartelasPerShop int
	SeedCartelas    bool
	// IdleTimeout ends active rounds that received no commands for this long.
	IdleTimeout time.Duration
	// ReaperInterval is how often idle rounds are checked.
	ReaperInterval time.Duration
	// OutboxSize is the per-subscriber event buffer; a subscriber that lags
	// past it loses its oldest events rather than stalling the round.
	OutboxSize int
	// WinPatterns selects which lines count as bingo: any of
	// "rows", "columns", "diagonals".
	WinPatterns []string
}

type AuthConfig struct {
	SessionTTL time.Duration
	// LoginRateLimit caps login attempts per IP within LoginRateWindow.
	LoginRateLimit  int64
	LoginRateWindow time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "bingo"),
			Password: getEnv("DB_PASSWORD", "bingo"),
			DBName:   getEnv("DB_NAME", "bingomaster"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Game: GameConfig{
			CartelasPerShop: getEnvInt("GAME_CARTELAS_PER_SHOP", 75),
			SeedCartelas:    getEnvBool("GAME_SEED_CARTELAS", false),
			IdleTimeout:     getEnvDuration("GAME_IDLE_TIMEOUT", 10*time.Minute),
			ReaperInterval:  getEnvDuration("GAME_REAPER_INTERVAL", 30*time.Second),
			OutboxSize:      getEnvInt("GAME_OUTBOX_SIZE", 64),
			WinPatterns:     getEnvList("GAME_WIN_PATTERNS", []string{"rows", "columns", "diagonals"}),
		},
		Auth: AuthConfig{
			SessionTTL:      getEnvDuration("AUTH_SESSION_TTL", 12*time.Hour),
			LoginRateLimit:  int64(getEnvInt("AUTH_LOGIN_RATE_LIMIT", 20)),
			LoginRateWindow: getEnvDuration("AUTH_LOGIN_RATE_WINDOW", time.Minute),
		},
	}

	if cfg.Game.CartelasPerShop < 1 {
		return nil, fmt.Errorf("GAME_CARTELAS_PER_SHOP must be positive")
	}
	if cfg.Game.OutboxSize < 1 {
		return nil, fmt.Errorf("GAME_OUTBOX_SIZE must be positive")
	}
	for _, p := range cfg.Game.WinPatterns {
		switch p {
		case "rows", "columns", "diagonals":
		default:
			return nil, fmt.Errorf("unknown win pattern %q", p)
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValues []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return defaultValues
		}
		parts := strings.Split(trimmed, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			item := strings.TrimSpace(part)
			if item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return defaultValues
}
