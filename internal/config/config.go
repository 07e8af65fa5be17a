package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config keeps runtime settings for the bot and the HTTP API.
type Config struct {
	DatabaseURL     string
	AutoMigrate     bool
	TelegramToken   string
	HTTPAddr        string
	JWTSecret       string
	CORSOrigins     []string
	RedisAddr       string
	RedisPassword   string
	DigestTime      string
	LeaderboardSize int
	HistoryDays     int
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:     getenv("DATABASE_URL", "questboard.db"),
		TelegramToken:   getenv("TELEGRAM_TOKEN", ""),
		HTTPAddr:        getenv("HTTP_ADDR", ""),
		JWTSecret:       getenv("JWT_SECRET", ""),
		CORSOrigins:     splitList(getenv("CORS_ORIGINS", "")),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		DigestTime:      getenv("DIGEST_TIME", "09:00"),
		LeaderboardSize: 10,
		HistoryDays:     30,
	}

	var err error
	if cfg.AutoMigrate, err = parseBool("AUTO_MIGRATE", true); err != nil {
		return cfg, err
	}
	if cfg.LeaderboardSize, err = parsePositive("LEADERBOARD_SIZE", cfg.LeaderboardSize); err != nil {
		return cfg, err
	}
	if cfg.HistoryDays, err = parsePositive("HISTORY_DAYS", cfg.HistoryDays); err != nil {
		return cfg, err
	}

	if cfg.TelegramToken == "" && cfg.HTTPAddr == "" {
		return cfg, fmt.Errorf("either TELEGRAM_TOKEN or HTTP_ADDR is required")
	}
	if cfg.HTTPAddr != "" && cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required when HTTP_ADDR is set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBool(key string, fallback bool) (bool, error) {
	raw := getenv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s must be a boolean, got %q", key, raw)
	}
	return v, nil
}

func parsePositive(key string, fallback int) (int, error) {
	raw := getenv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
