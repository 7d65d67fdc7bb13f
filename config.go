package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Tutortoise/inference-benchmark/benchmark"
	"github.com/Tutortoise/inference-benchmark/inference"
)

const (
	DefaultAddr        = "127.0.0.1:8080"
	DefaultModelsDir   = "./models"
	DefaultMaxSessions = 16
)

// Config is the server configuration, read from the environment.
type Config struct {
	Addr                 string
	ModelName            string
	ModelsDir            string
	LibraryPath          string
	Catalog              string
	MaxDisplayWidth      int
	MaxDisplayHeight     int
	TopK                 int
	MaxSessions          int
	AverageOverCompleted bool
	Debug                bool
	LogLevel             slog.Level
}

// loadConfig reads an optional .env file and then the process environment.
func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return configFromEnv(os.Getenv)
}

func configFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Addr:        envString(getenv, "ADDR", DefaultAddr),
		ModelName:   envString(getenv, "MODEL_NAME", benchmark.DefaultModelName),
		ModelsDir:   envString(getenv, "MODELS_DIR", DefaultModelsDir),
		LibraryPath: getenv("ONNXRUNTIME_LIB"),
		Catalog:     getenv("CATALOG"),
		Debug:       getenv("DEBUG") == "true",
	}

	var err error
	if cfg.MaxDisplayWidth, err = envInt(getenv, "MAX_DISPLAY_WIDTH", benchmark.DefaultMaxWidth); err != nil {
		return Config{}, err
	}
	if cfg.MaxDisplayHeight, err = envInt(getenv, "MAX_DISPLAY_HEIGHT", benchmark.DefaultMaxHeight); err != nil {
		return Config{}, err
	}
	if cfg.TopK, err = envInt(getenv, "TOP_K", inference.DefaultTopK); err != nil {
		return Config{}, err
	}
	if cfg.MaxSessions, err = envInt(getenv, "MAX_SESSIONS", DefaultMaxSessions); err != nil {
		return Config{}, err
	}
	if cfg.AverageOverCompleted, err = envBool(getenv, "AVERAGE_OVER_COMPLETED"); err != nil {
		return Config{}, err
	}

	cfg.LogLevel = slog.LevelInfo
	if cfg.Debug {
		cfg.LogLevel = slog.LevelDebug
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
	}

	if cfg.MaxDisplayWidth <= 0 || cfg.MaxDisplayHeight <= 0 {
		return Config{}, fmt.Errorf("display bounds must be positive, got %dx%d", cfg.MaxDisplayWidth, cfg.MaxDisplayHeight)
	}
	if cfg.TopK <= 0 {
		return Config{}, fmt.Errorf("TOP_K must be positive, got %d", cfg.TopK)
	}
	if cfg.MaxSessions <= 0 {
		return Config{}, fmt.Errorf("MAX_SESSIONS must be positive, got %d", cfg.MaxSessions)
	}
	return cfg, nil
}

func envString(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(getenv func(string) string, key string, fallback int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envBool(getenv func(string) string, key string) (bool, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
