// Package config loads this service's bootstrap configuration from
// environment variables. Everything here is startup-only wiring — the
// sync engine, CalDAV client, and iCalendar codec take no dependency on it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the fully resolved bootstrap configuration.
type Config struct {
	ServerHost string
	ServerPort string
	DataDir    string

	// AuthUsername is empty when no basic-auth perimeter is configured.
	AuthUsername string
	// AuthPassword, if set, is compared directly. Mutually exclusive with
	// AuthPasswordHash; Load rejects both being set.
	AuthPassword string
	// AuthPasswordHash is a PHC-format argon2id hash, verified at the
	// perimeter without ever storing the plaintext password.
	AuthPasswordHash string

	HTTPTimeout time.Duration
}

// Load reads and validates configuration from the process environment.
// Password storage for sources/destinations is plaintext at rest by
// deliberate product decision — see DESIGN.md — and is unrelated to the
// AUTH_* variables here, which gate the API perimeter itself.
func Load() (Config, error) {
	cfg := Config{
		ServerHost:       getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		DataDir:          getEnv("DATA_DIR", "./data"),
		AuthUsername:     os.Getenv("AUTH_USERNAME"),
		AuthPassword:     os.Getenv("AUTH_PASSWORD"),
		AuthPasswordHash: os.Getenv("AUTH_PASSWORD_HASH"),
	}

	timeoutSecs := 30
	if raw := os.Getenv("HTTP_TIMEOUT_SECS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: HTTP_TIMEOUT_SECS must be a positive integer, got %q", raw)
		}
		timeoutSecs = n
	}
	cfg.HTTPTimeout = time.Duration(timeoutSecs) * time.Second

	if cfg.AuthUsername != "" {
		if cfg.AuthPassword == "" && cfg.AuthPasswordHash == "" {
			return Config{}, fmt.Errorf("config: AUTH_USERNAME set but neither AUTH_PASSWORD nor AUTH_PASSWORD_HASH is set")
		}
		if cfg.AuthPassword != "" && cfg.AuthPasswordHash != "" {
			return Config{}, fmt.Errorf("config: exactly one of AUTH_PASSWORD or AUTH_PASSWORD_HASH may be set")
		}
	}

	return cfg, nil
}

// AuthEnabled reports whether the API perimeter should require basic auth.
func (c Config) AuthEnabled() bool {
	return c.AuthUsername != ""
}

func (c Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
