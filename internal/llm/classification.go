package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talgya/evolving-kingdom/internal/social"
)

// KingdomReading is the reply of the classification task.
type KingdomReading struct {
	State  social.KingdomState `json:"state"`
	Reason string              `json:"reason"`
}

const classificationSystem = `You are a kingdom analyst. Classify the kingdom's overall state.
Return ONLY a JSON object:
{"state": "prosperity" or "rebellion" or "stability" or "decline", "reason": "brief explanation"}`

// StableReading is returned whenever a classification reply cannot be used.
func StableReading() KingdomReading {
	return KingdomReading{State: social.StateStability, Reason: "Parse error"}
}

// ClassifyKingdom labels the realm from a context snapshot.
func (k *Kingdom) ClassifyKingdom(ctx context.Context, snap social.Snapshot) KingdomReading {
	chronicle := snap.LatestChronicle
	if chronicle == "" {
		chronicle = "Beginning of reign"
	}

	user := fmt.Sprintf(`Analyze this kingdom state:

Average Trust: %.1f/100
Faction States: %s
Recent Chronicle: %s

Classify the kingdom state (JSON only):`,
		snap.AverageTrust, toJSON(snap.Factions), chronicle)

	raw := k.complete(ctx, TaskClassification, Request{
		System:      classificationSystem,
		User:        user,
		Temperature: k.temps.Classification,
	})
	return parseKingdomReading(raw)
}

func parseKingdomReading(raw string) KingdomReading {
	body, ok := extractJSON(raw)
	if !ok {
		return StableReading()
	}

	var r KingdomReading
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return StableReading()
	}

	r.State = social.KingdomState(strings.ToLower(strings.TrimSpace(string(r.State))))
	if !r.State.Valid() {
		return StableReading()
	}
	return r
}
