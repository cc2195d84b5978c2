// Royal advisor — predicts how the factions will take each option before the monarch chooses.
package llm

import (
	"context"
	"fmt"
)

// FactionOutlook is what the advisor knows about a faction.
type FactionOutlook struct {
	Personality string `json:"personality"`
	Trust       int    `json:"trust"`
}

const predictionSystem = `You are a royal advisor. Predict how factions will likely react to each decision option.
Be brief but insightful. Consider each faction's current state.`

// PredictReactions forecasts faction reactions to every option.
func (k *Kingdom) PredictReactions(ctx context.Context, options []string, outlooks map[string]FactionOutlook) string {
	user := fmt.Sprintf(`Decision Options:
%s

Current Faction States:
%s

Provide a brief prediction for each option (1-2 sentences each):`,
		toJSON(options), toJSON(outlooks))

	return k.complete(ctx, TaskPrediction, Request{
		System:      predictionSystem,
		User:        user,
		Temperature: k.temps.Prediction,
	})
}
