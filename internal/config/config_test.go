package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Fatalf("APIBaseURL = %q, want default", cfg.APIBaseURL)
	}
	if cfg.RealtimeURL != "ws://localhost:7880" {
		t.Fatalf("RealtimeURL = %q, want default", cfg.RealtimeURL)
	}
	if cfg.ConnectTimeout != 15*time.Second {
		t.Fatalf("ConnectTimeout = %v, want 15s", cfg.ConnectTimeout)
	}
	if cfg.HistoryLimit != 5 {
		t.Fatalf("HistoryLimit = %d, want 5", cfg.HistoryLimit)
	}
}

func TestLoadFromEnv_NormalizesRealtimeScheme(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http://rooms.example.com", "ws://rooms.example.com"},
		{"https://rooms.example.com", "wss://rooms.example.com"},
		{"wss://rooms.example.com/rtc", "wss://rooms.example.com/rtc"},
	}
	for _, tt := range tests {
		t.Setenv("VOX_REALTIME_URL", tt.raw)
		cfg, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv(%q) error = %v", tt.raw, err)
		}
		if cfg.RealtimeURL != tt.want {
			t.Fatalf("RealtimeURL = %q, want %q", cfg.RealtimeURL, tt.want)
		}
	}
}

func TestLoadFromEnv_RejectsBadScheme(t *testing.T) {
	t.Setenv("VOX_REALTIME_URL", "ftp://rooms.example.com")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error for ftp scheme, got nil")
	}
}

func TestLoadFromEnv_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("VOX_CONNECT_TIMEOUT", "not-a-duration")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.ConnectTimeout != 15*time.Second {
		t.Fatalf("ConnectTimeout = %v, want fallback 15s", cfg.ConnectTimeout)
	}
}
