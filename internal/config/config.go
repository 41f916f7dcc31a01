package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, derived from environment variables.
type Config struct {
	Port     string
	NATSURL  string // empty disables the JetStream publisher
	LogLevel string

	ProblemsFile   string // empty falls back to the embedded catalog
	StartingPoints int

	CountdownSeconds int
	MatchSeconds     int
	HistorySize      int
	EvictAfter       time.Duration
}

// Load reads configuration from the environment, applying defaults.
func Load() Config {
	return Config{
		Port:             getEnv("PORT", "8080"),
		NATSURL:          getEnv("NATS_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ProblemsFile:     getEnv("PROBLEMS_FILE", ""),
		StartingPoints:   getEnvAsInt("STARTING_POINTS", 100),
		CountdownSeconds: getEnvAsInt("COUNTDOWN_SECONDS", 5),
		MatchSeconds:     getEnvAsInt("MATCH_SECONDS", 600),
		HistorySize:      getEnvAsInt("HISTORY_SIZE", 10),
		EvictAfter:       time.Duration(getEnvAsInt("EVICT_AFTER_MINUTES", 5)) * time.Minute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
