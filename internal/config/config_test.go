package config

import (
	"log/slog"
	"testing"
)

func TestDefaultRoster(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	want := []string{"merchants", "nobles", "clergy", "commoners"}
	if len(cfg.Factions) != len(want) {
		t.Fatalf("roster has %d factions, want %d", len(cfg.Factions), len(want))
	}
	for i, f := range cfg.Factions {
		if f.ID != want[i] {
			t.Fatalf("Factions[%d] = %q, want %q", i, f.ID, want[i])
		}
		if f.Icon == "" || f.Color == "" {
			t.Fatalf("%s has no icon or colour", f.ID)
		}
	}

	clergy, ok := cfg.Faction("clergy")
	if !ok {
		t.Fatal("Faction(clergy) not found")
	}
	if clergy.BasePersonality != "devout and moralistic" {
		t.Fatalf("clergy personality = %q", clergy.BasePersonality)
	}
	if cfg.TotalTurns != 8 || cfg.InitialTrust != 50 {
		t.Fatalf("turns/trust = %d/%d, want 8/50", cfg.TotalTurns, cfg.InitialTrust)
	}
}

func TestDecisionOptions(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}

	if got := cfg.DecisionOptions(8); got[0] != "A plague outbreak - quarantine the city" {
		t.Fatalf("DecisionOptions(8)[0] = %q", got[0])
	}
	if got := cfg.DecisionOptions(12); got[1] != "Make a bold, risky decision" {
		t.Fatalf("DecisionOptions(12) should fall back, got %v", got)
	}
	if got := cfg.DecisionOptions(1); len(got) != 3 {
		t.Fatalf("DecisionOptions(1) has %d options, want 3", len(got))
	}
}

func TestCategoryCycles(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		turn int
		want string
	}{
		{1, "Economic Policy"},
		{8, "Crisis Response"},
		{9, "Economic Policy"},
		{0, ""},
	}
	for _, tc := range tests {
		if got := cfg.Category(tc.turn); got != tc.want {
			t.Fatalf("Category(%d) = %q, want %q", tc.turn, got, tc.want)
		}
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KINGDOM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("KINGDOM_TURNS", "4")
	t.Setenv("KINGDOM_ARCHIVE", "")
	t.Setenv("KINGDOM_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != ProviderGemini || cfg.APIKey != "test-key" {
		t.Fatalf("provider/key = %q/%q", cfg.Provider, cfg.APIKey)
	}
	if cfg.Model != "gemini-2.5-flash-lite" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.TotalTurns != 4 {
		t.Fatalf("TotalTurns = %d, want 4", cfg.TotalTurns)
	}
	if cfg.ArchivePath != "" {
		t.Fatalf("ArchivePath = %q, want disabled", cfg.ArchivePath)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KINGDOM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() without OPENAI_API_KEY should fail")
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KINGDOM_PROVIDER", "oracle-of-delphi")

	if _, err := Load(); err == nil {
		t.Fatal("Load() with unknown provider should fail")
	}
}

func TestParseRosterRejectsDuplicates(t *testing.T) {
	data := []byte(`
factions:
  - id: a
    name: A
  - id: a
    name: B
fallbackDecisions: [x]
`)
	if _, err := parseRoster(data); err == nil {
		t.Fatal("parseRoster() accepted duplicate ids")
	}
}

func TestLoadLocalNeedsNoCredentials(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("KINGDOM_ARCHIVE", "reigns/test.db")
	t.Setenv("KINGDOM_HISTORY_FILE", "history.md")

	cfg, err := LoadLocal()
	if err != nil {
		t.Fatalf("LoadLocal() error = %v", err)
	}
	if cfg.ArchivePath != "reigns/test.db" || cfg.HistoryPath != "history.md" {
		t.Fatalf("paths = %q, %q", cfg.ArchivePath, cfg.HistoryPath)
	}
	if cfg.APIKey != "" {
		t.Fatalf("APIKey = %q, want empty", cfg.APIKey)
	}
}
