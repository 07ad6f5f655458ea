package dbconfig

import (
	"os"
	"strconv"
)

// Config holds SQLite connection settings.
type Config struct {
	Path          string
	BusyTimeoutMS int
}

// NewConfigFromEnv reads DB_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	busyTimeout, err := strconv.Atoi(getEnv("DB_BUSY_TIMEOUT_MS", "5000"))
	if err != nil {
		busyTimeout = 5000
	}

	return Config{
		Path:          getEnv("DB_PATH", "./gamenight.db"),
		BusyTimeoutMS: busyTimeout,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
