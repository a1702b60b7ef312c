// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string

	JWTSecret string
	TokenTTL  time.Duration

	// AnalyzerURL is the upstream receipt analyzer. Empty disables AI routes.
	AnalyzerURL string

	// AIDailyLimit is the per-user number of AI analyses per local day.
	AIDailyLimit int

	// AICapacity is the number of AI analyses the server runs at once.
	AICapacity int64

	// Location decides where a "day" starts for AIDailyLimit.
	Location *time.Location

	// CORSOrigin is the one browser origin allowed to call the API with
	// credentials. Empty disables CORS.
	CORSOrigin string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		DBPath:      getEnvOrDefault("DB_PATH", "./data/nbbang.db"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		AnalyzerURL: os.Getenv("AI_ANALYZER_URL"),
		CORSOrigin:  strings.TrimSuffix(os.Getenv("CORS_ORIGIN"), "/"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if cfg.CORSOrigin == "*" {
		return nil, fmt.Errorf("CORS_ORIGIN must name an origin, \"*\" cannot carry the auth cookie")
	}

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(getEnvOrDefault("TOKEN_TTL", "720h")); err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if cfg.AIDailyLimit, err = strconv.Atoi(getEnvOrDefault("AI_DAILY_LIMIT", "5")); err != nil || cfg.AIDailyLimit < 1 {
		return nil, fmt.Errorf("invalid AI_DAILY_LIMIT %q", os.Getenv("AI_DAILY_LIMIT"))
	}
	if cfg.AICapacity, err = strconv.ParseInt(getEnvOrDefault("AI_CAPACITY", "4"), 10, 64); err != nil || cfg.AICapacity < 1 {
		return nil, fmt.Errorf("invalid AI_CAPACITY %q", os.Getenv("AI_CAPACITY"))
	}
	if cfg.Location, err = time.LoadLocation(getEnvOrDefault("TIMEZONE", "Asia/Seoul")); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
