package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads environment variables from the given .env files (".env" in the
// working directory when none are given). A missing file returns an error
// that callers normally ignore, falling back to system env and defaults.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the environment variable named by key, or fallback when it
// is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by
// key, or fallback when it is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
