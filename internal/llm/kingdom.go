package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/talgya/evolving-kingdom/internal/config"
)

// Task names, used in logs.
const (
	TaskFactionResponse = "faction_response"
	TaskSentiment       = "sentiment"
	TaskChronicle       = "chronicle"
	TaskEvolution       = "evolution"
	TaskPrediction      = "prediction"
	TaskClassification  = "classification"
	TaskStoryBeat       = "story_beat"
	TaskReview          = "review"
)

const reviewMaxTokens = 3000

// Kingdom runs the game's generation tasks against a Provider. No task ever
// returns an error: free-text tasks yield "" when the call fails and
// structured tasks yield their fallback value.
type Kingdom struct {
	provider Provider
	temps    config.Temperatures
}

// NewKingdom creates the generation client.
func NewKingdom(provider Provider, temps config.Temperatures) *Kingdom {
	return &Kingdom{provider: provider, temps: temps}
}

// complete is the single call boundary. Failures are logged here and
// nowhere else. Once ctx is cancelled no call is made; callers check
// ctx.Err() to tell an interruption from a failed call.
func (k *Kingdom) complete(ctx context.Context, task string, req Request) string {
	if ctx.Err() != nil {
		return ""
	}

	start := time.Now()
	out, err := k.provider.Complete(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("generation call cancelled", "task", task, "duration", time.Since(start))
			return ""
		}
		slog.Error("generation call failed",
			"task", task,
			"error", err,
			"duration", time.Since(start),
		)
		return ""
	}
	slog.Debug("generation call", "task", task, "duration", time.Since(start), "chars", len(out))
	return out
}

// extractJSON returns the text between the first '{' and the last '}'.
func extractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// toJSON renders prompt fragments the way the model sees them.
func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(data)
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
