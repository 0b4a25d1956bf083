package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries the environment-level settings for the console: where the
// agent backend lives and where the realtime room server listens.
type Config struct {
	// APIBaseURL is the base URL of the agent REST backend.
	APIBaseURL string

	// RealtimeURL is the websocket endpoint of the realtime room server.
	// http(s) schemes are accepted and normalized to ws(s).
	RealtimeURL string

	// ConnectTimeout bounds credential issuance and the room handshake.
	ConnectTimeout time.Duration

	// SettingsPath points at the local settings database. Empty means the
	// per-user default location.
	SettingsPath string

	// HistoryLimit is the default number of history entries requested when
	// no explicit limit is given.
	HistoryLimit int
}

// LoadFromEnv builds a Config from VOX_* environment variables.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		APIBaseURL:     envOr("VOX_API_BASE_URL", "http://localhost:8000"),
		RealtimeURL:    envOr("VOX_REALTIME_URL", "ws://localhost:7880"),
		ConnectTimeout: envDurationOr("VOX_CONNECT_TIMEOUT", 15*time.Second),
		SettingsPath:   os.Getenv("VOX_SETTINGS_PATH"),
		HistoryLimit:   envIntOr("VOX_HISTORY_LIMIT", 5),
	}

	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return Config{}, fmt.Errorf("VOX_API_BASE_URL must not be empty")
	}
	if _, err := url.Parse(cfg.APIBaseURL); err != nil {
		return Config{}, fmt.Errorf("VOX_API_BASE_URL is not a valid URL: %w", err)
	}

	normalized, err := normalizeWebSocketURL(cfg.RealtimeURL)
	if err != nil {
		return Config{}, fmt.Errorf("VOX_REALTIME_URL: %w", err)
	}
	cfg.RealtimeURL = normalized

	if cfg.ConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("VOX_CONNECT_TIMEOUT must be > 0")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("VOX_HISTORY_LIMIT must be > 0")
	}

	return cfg, nil
}

func normalizeWebSocketURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("not a valid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already websocket scheme.
	default:
		return "", fmt.Errorf("scheme must be http(s) or ws(s), got %q", u.Scheme)
	}
	return u.String(), nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
