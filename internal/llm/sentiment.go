package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talgya/evolving-kingdom/internal/social"
)

const sentimentSystem = `You are a sentiment analyzer. Analyze the sentiment of faction responses.
Return ONLY a JSON object with this exact format:
{"sentiment": "positive" or "negative" or "neutral", "intensity": 0.0 to 1.0, "reasoning": "brief explanation"}`

// NeutralSentiment is returned whenever a sentiment reply cannot be used.
func NeutralSentiment() social.Sentiment {
	return social.Sentiment{
		Label:     social.SentimentNeutral,
		Intensity: 0.5,
		Reasoning: "Parse error",
	}
}

// AnalyzeSentiment classifies a faction response.
func (k *Kingdom) AnalyzeSentiment(ctx context.Context, response string) social.Sentiment {
	user := fmt.Sprintf("Analyze the sentiment of this faction response:\n\n%q\n\nReturn JSON only:", response)

	raw := k.complete(ctx, TaskSentiment, Request{
		System:      sentimentSystem,
		User:        user,
		Temperature: k.temps.Sentiment,
	})
	return parseSentiment(raw)
}

func parseSentiment(raw string) social.Sentiment {
	body, ok := extractJSON(raw)
	if !ok {
		return NeutralSentiment()
	}

	var s social.Sentiment
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		return NeutralSentiment()
	}

	s.Label = strings.ToLower(strings.TrimSpace(s.Label))
	switch s.Label {
	case social.SentimentPositive, social.SentimentNegative, social.SentimentNeutral:
	default:
		return NeutralSentiment()
	}
	s.Intensity = clamp01(s.Intensity)
	return s
}
