package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var rosterYAML []byte

// FactionSpec is the static definition of a faction. Trust and the current
// personality live in social.FactionState; this is only the starting point.
type FactionSpec struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	BasePersonality string `yaml:"basePersonality"`
	Color           string `yaml:"color"` // lipgloss colour (ANSI 256 index)
	Icon            string `yaml:"icon"`
}

// Roster is the embedded faction and decision data.
type Roster struct {
	Factions          []FactionSpec    `yaml:"factions"`
	Categories        []string         `yaml:"categories"`
	Decisions         map[int][]string `yaml:"decisions"`
	FallbackDecisions []string         `yaml:"fallbackDecisions"`
}

// parseRoster decodes and validates roster data.
func parseRoster(data []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("unmarshal roster: %w", err)
	}
	if len(r.Factions) == 0 {
		return Roster{}, fmt.Errorf("roster has no factions")
	}

	seen := make(map[string]bool, len(r.Factions))
	for _, f := range r.Factions {
		if f.ID == "" {
			return Roster{}, fmt.Errorf("roster faction %q has no id", f.Name)
		}
		if seen[f.ID] {
			return Roster{}, fmt.Errorf("duplicate faction id %q", f.ID)
		}
		seen[f.ID] = true
	}
	if len(r.FallbackDecisions) == 0 {
		return Roster{}, fmt.Errorf("roster has no fallback decisions")
	}
	return r, nil
}
