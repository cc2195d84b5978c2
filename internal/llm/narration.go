// Free-text narration — faction voices, chronicles, story beats and the final review.
package llm

import (
	"context"
	"fmt"

	"github.com/talgya/evolving-kingdom/internal/social"
)

const (
	recentMemoryInPrompt = 3
	firstChronicle       = "This is the beginning of the reign."
)

const factionResponseSystem = `You are a faction in a medieval kingdom. Generate a response to the monarch's decision.
Your response should:
1. Be 2-3 sentences
2. Reflect your current personality and past experiences
3. Show emotion appropriate to the situation
4. Reference past events if they're relevant
Keep it dramatic and memorable!`

// FactionResponse voices a faction's reaction to the monarch's decision.
func (k *Kingdom) FactionResponse(ctx context.Context, f *social.FactionState, decision string, snap social.Snapshot) string {
	chronicle := snap.LatestChronicle
	if chronicle == "" {
		chronicle = firstChronicle
	}

	user := fmt.Sprintf(`Faction: %s
Current Personality: %s
Trust Score: %d/100
Recent Memory: %s

The Monarch's Decision: %s

Game Context:
Turn: %d
Previous Chronicle: %s

Generate this faction's response:`,
		f.Name, f.CurrentPersonality, f.TrustScore,
		toJSON(f.RecentMemory(recentMemoryInPrompt)),
		decision, snap.Turn, chronicle,
	)

	return k.complete(ctx, TaskFactionResponse, Request{
		System:      factionResponseSystem,
		User:        user,
		Temperature: k.temps.FactionResponse,
	})
}

const chronicleSystem = `You are the Royal Chronicler. Summarize the kingdom's recent history.
Write in a dramatic, historical narrative style (3-4 sentences).
Capture the key events and their emotional impact on the realm.`

// Chronicle summarizes turns from..to into a short narrative.
func (k *Kingdom) Chronicle(ctx context.Context, turns []social.TurnRecord, from, to int) string {
	user := fmt.Sprintf("Summarize turns %d-%d of the kingdom's history:\n\n%s\n\nWrite a dramatic chronicle entry:",
		from, to, toJSON(turns))

	return k.complete(ctx, TaskChronicle, Request{
		System:      chronicleSystem,
		User:        user,
		Temperature: k.temps.Chronicle,
	})
}

const storyBeatSystem = `You are a narrative generator. Create a dramatic story moment based on the kingdom's state.
Write 2-3 vivid sentences that capture the moment. Make it memorable!`

// StoryBeat writes a dramatic moment for a trust threshold trigger.
func (k *Kingdom) StoryBeat(ctx context.Context, snap social.Snapshot, trigger string) string {
	user := fmt.Sprintf("Trigger: %s\nGame Context: %s\n\nGenerate a dramatic story beat:",
		trigger, toJSON(snap))

	return k.complete(ctx, TaskStoryBeat, Request{
		System:      storyBeatSystem,
		User:        user,
		Temperature: k.temps.StoryBeat,
	})
}

const reviewSystem = `You are the Master Chronicler writing the definitive history of a monarch's reign.
Create an engaging, dramatic review that:
1. Shows how faction personalities evolved over time
2. Identifies key turning points
3. Rates the monarch's leadership style
4. Creates a narrative arc with dramatic flair
5. Includes memorable quotes from factions
6. Suggests an alternative timeline

Use markdown formatting with headers, bold text, and emojis. Make it enjoyable to read!`

// EpicReview digests the entire game document into the final history.
func (k *Kingdom) EpicReview(ctx context.Context, st *social.GameState) string {
	user := fmt.Sprintf("Create the Epic Kingdom History for this reign:\n\n%s\n\nWrite a comprehensive, dramatic review:",
		toJSON(st))

	return k.complete(ctx, TaskReview, Request{
		System:      reviewSystem,
		User:        user,
		Temperature: k.temps.Review,
		MaxTokens:   reviewMaxTokens,
	})
}
