package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CORS_ORIGIN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.AIDailyLimit != 5 {
		t.Errorf("AIDailyLimit = %d, want 5", cfg.AIDailyLimit)
	}
	if cfg.TokenTTL != 720*time.Hour {
		t.Errorf("TokenTTL = %v, want 720h", cfg.TokenTTL)
	}
	if cfg.Location.String() != "Asia/Seoul" {
		t.Errorf("Location = %v, want Asia/Seoul", cfg.Location)
	}
	if cfg.CORSOrigin != "" {
		t.Errorf("CORSOrigin = %q, want CORS off by default", cfg.CORSOrigin)
	}
}

func TestLoadCORSOrigin(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("CORS_ORIGIN", "https://nbbang.example/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CORSOrigin != "https://nbbang.example" {
		t.Errorf("CORSOrigin = %q", cfg.CORSOrigin)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad ttl", map[string]string{"JWT_SECRET": "s", "TOKEN_TTL": "forever"}},
		{"zero limit", map[string]string{"JWT_SECRET": "s", "AI_DAILY_LIMIT": "0"}},
		{"bad capacity", map[string]string{"JWT_SECRET": "s", "AI_CAPACITY": "many"}},
		{"bad timezone", map[string]string{"JWT_SECRET": "s", "TIMEZONE": "Mars/Olympus"}},
		{"wildcard origin", map[string]string{"JWT_SECRET": "s", "CORS_ORIGIN": "*"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
