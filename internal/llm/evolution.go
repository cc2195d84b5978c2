// Personality evolution — the model digests a faction's memories into a new temperament.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talgya/evolving-kingdom/internal/social"
)

// PersonalityShift is the reply of the evolution task.
type PersonalityShift struct {
	NewPersonality string `json:"new_personality"`
	KeyChange      string `json:"key_change"`
}

const evolutionSystem = `You are a personality evolution engine. Based on a faction's experiences, describe how their personality has evolved.
Return ONLY a JSON object with this format:
{"new_personality": "brief personality description", "key_change": "what changed and why"}

The personality should be different but believable based on events.`

// EvolvePersonality asks how a faction changed given its recent memories.
// The fallback keeps the current personality, which callers treat as no change.
func (k *Kingdom) EvolvePersonality(ctx context.Context, f *social.FactionState, recent []social.MemoryEntry) PersonalityShift {
	user := fmt.Sprintf(`Faction: %s
Original Personality: %s
Current Personality: %s
Trust Score: %d/100

Recent Events and Their Reactions:
%s

How has this faction's personality evolved? Return JSON only:`,
		f.Name, f.BasePersonality, f.CurrentPersonality, f.TrustScore, toJSON(recent))

	raw := k.complete(ctx, TaskEvolution, Request{
		System:      evolutionSystem,
		User:        user,
		Temperature: k.temps.Evolution,
	})
	return parsePersonalityShift(raw, f.CurrentPersonality)
}

func parsePersonalityShift(raw, current string) PersonalityShift {
	body, ok := extractJSON(raw)
	if !ok {
		return PersonalityShift{NewPersonality: current, KeyChange: "No change"}
	}

	var shift PersonalityShift
	if err := json.Unmarshal([]byte(body), &shift); err != nil {
		return PersonalityShift{NewPersonality: current, KeyChange: "Parse error"}
	}

	shift.NewPersonality = strings.TrimSpace(shift.NewPersonality)
	if shift.NewPersonality == "" {
		return PersonalityShift{NewPersonality: current, KeyChange: "No change"}
	}
	return shift
}
