// Package config builds the immutable game configuration from the embedded
// roster and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Game constants.
const (
	DefaultTotalTurns   = 8
	InitialFactionTrust = 50
	DefaultTemperature  = 0.7
)

// Providers understood by llm.NewProvider.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-3.5-turbo",
	ProviderGemini:    "gemini-2.5-flash-lite",
	ProviderAnthropic: "claude-haiku-4-5-20251001",
}

// Temperatures holds the sampling temperature of each generation task.
// Parsing-sensitive tasks run cold, creative ones run warm.
type Temperatures struct {
	FactionResponse float32
	Sentiment       float32
	Chronicle       float32
	Evolution       float32
	Prediction      float32
	Classification  float32
	StoryBeat       float32
	Review          float32
}

// DefaultTemperatures returns the tuned per-task temperatures.
func DefaultTemperatures() Temperatures {
	return Temperatures{
		FactionResponse: DefaultTemperature,
		Sentiment:       0.3,
		Chronicle:       DefaultTemperature,
		Evolution:       0.6,
		Prediction:      0.5,
		Classification:  0.3,
		StoryBeat:       DefaultTemperature,
		Review:          0.8,
	}
}

// Config is built once in main and passed by value. Nothing in it is
// modified after Load returns.
type Config struct {
	TotalTurns   int
	InitialTrust int

	Factions          []FactionSpec
	Categories        []string
	Decisions         map[int][]string
	FallbackDecisions []string

	Provider     string
	APIKey       string
	BaseURL      string
	Model        string
	Temperatures Temperatures

	StatePath   string
	HistoryPath string
	ArchivePath string // empty disables the reign archive

	LogLevel slog.Level
}

// Default returns the configuration with no environment applied.
func Default() (Config, error) {
	roster, err := parseRoster(rosterYAML)
	if err != nil {
		return Config{}, err
	}

	return Config{
		TotalTurns:        DefaultTotalTurns,
		InitialTrust:      InitialFactionTrust,
		Factions:          roster.Factions,
		Categories:        roster.Categories,
		Decisions:         roster.Decisions,
		FallbackDecisions: roster.FallbackDecisions,
		Provider:          ProviderOpenAI,
		Model:             defaultModels[ProviderOpenAI],
		Temperatures:      DefaultTemperatures(),
		StatePath:         "game_state.json",
		HistoryPath:       "kingdom_history.md",
		ArchivePath:       "data/reigns.db",
		LogLevel:          slog.LevelWarn,
	}, nil
}

// Load reads .env (when present) and the environment on top of Default.
// A credential for the chosen provider is required.
func Load() (Config, error) {
	cfg, err := LoadLocal()
	if err != nil {
		return Config{}, err
	}

	cfg.Provider = strings.ToLower(envOrDefault("KINGDOM_PROVIDER", ProviderOpenAI))
	model, ok := defaultModels[cfg.Provider]
	if !ok {
		return Config{}, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	cfg.Model = envOrDefault("KINGDOM_MODEL", model)

	switch cfg.Provider {
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	case ProviderGemini:
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	case ProviderAnthropic:
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("%s_API_KEY is required", strings.ToUpper(cfg.Provider))
	}

	return cfg, nil
}

// LoadLocal applies the settings that need no credentials: turns, file
// paths and log level.
func LoadLocal() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}

	cfg.TotalTurns = envIntOrDefault("KINGDOM_TURNS", cfg.TotalTurns)
	if cfg.TotalTurns < 1 {
		return Config{}, fmt.Errorf("KINGDOM_TURNS must be positive, got %d", cfg.TotalTurns)
	}

	cfg.StatePath = envOrDefault("KINGDOM_STATE_FILE", cfg.StatePath)
	cfg.HistoryPath = envOrDefault("KINGDOM_HISTORY_FILE", cfg.HistoryPath)
	if v, ok := os.LookupEnv("KINGDOM_ARCHIVE"); ok {
		cfg.ArchivePath = v
	}

	if v := os.Getenv("KINGDOM_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("KINGDOM_LOG_LEVEL: %w", err)
		}
	}

	return cfg, nil
}

// WithTotalTurns returns a copy with a different turn count.
func (c Config) WithTotalTurns(n int) Config {
	c.TotalTurns = n
	return c
}

// Faction looks up a roster entry by id.
func (c Config) Faction(id string) (FactionSpec, bool) {
	for _, f := range c.Factions {
		if f.ID == id {
			return f, true
		}
	}
	return FactionSpec{}, false
}

// Category returns the decision category shown for a turn.
func (c Config) Category(turn int) string {
	if len(c.Categories) == 0 || turn < 1 {
		return ""
	}
	return c.Categories[(turn-1)%len(c.Categories)]
}

// DecisionOptions returns the choices offered on a turn.
func (c Config) DecisionOptions(turn int) []string {
	if opts, ok := c.Decisions[turn]; ok && len(opts) > 0 {
		return opts
	}
	return c.FallbackDecisions
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("ignoring non-numeric environment value", "key", key, "value", v)
	}
	return defaultVal
}
