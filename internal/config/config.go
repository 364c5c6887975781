// Package config loads server configuration from environment variables
// (with an optional .env file), matching the teacher's params.LoadFromEnv
// priority: explicit ENV > .env file > default.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	PersistentDir  string // empty disables the opportunistic snapshot writer
	AdminToken     string
	LogFile        string // empty logs to stdout only
}

func Default() Config {
	return Config{
		Port: "8080",
	}
}

// LoadFromEnv loads an optional .env file and overrides Default() with
// whatever environment variables are set.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if dir := os.Getenv("PERSISTENT_DIR"); dir != "" {
		cfg.PersistentDir = dir
	}
	if tok := os.Getenv("ADMIN_TOKEN"); tok != "" {
		cfg.AdminToken = tok
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.LogFile = logFile
	}

	return cfg
}
