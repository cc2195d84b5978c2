// Package social holds the state of a reign: factions, turns, chronicles and the
// labels the realm collects along the way.
package social

import (
	"fmt"
	"time"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Story beat triggers.
const (
	TriggerHighTrust     = "high_trust"
	TriggerRebellionRisk = "rebellion_risk"
)

// KingdomState is the coarse label given to the realm on even turns.
type KingdomState string

const (
	StateProsperity KingdomState = "prosperity"
	StateRebellion  KingdomState = "rebellion"
	StateStability  KingdomState = "stability"
	StateDecline    KingdomState = "decline"
)

// Valid reports whether s is one of the four known labels.
func (s KingdomState) Valid() bool {
	switch s {
	case StateProsperity, StateRebellion, StateStability, StateDecline:
		return true
	}
	return false
}

// Sentiment is the classified mood of a faction response.
type Sentiment struct {
	Label     string  `json:"sentiment"`
	Intensity float64 `json:"intensity"` // 0.0–1.0
	Reasoning string  `json:"reasoning,omitempty"`
}

// FactionTurn is one faction's part of a turn.
type FactionTurn struct {
	Response    string    `json:"response"`
	Sentiment   Sentiment `json:"sentiment"`
	TrustChange int       `json:"trust_change"`
}

// TurnRecord is a completed turn.
type TurnRecord struct {
	Turn      int                    `json:"turn"`
	Decision  string                 `json:"decision"`
	Responses map[string]FactionTurn `json:"responses"`
}

// Chronicle is a narrative summary of a span of turns.
type Chronicle struct {
	Turns     string    `json:"turns"` // "3-4"
	Text      string    `json:"chronicle"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnRange formats a chronicle key.
func TurnRange(from, to int) string {
	return fmt.Sprintf("%d-%d", from, to)
}

// StoryBeat is a dramatic moment fired by a trust threshold.
type StoryBeat struct {
	Turn    int    `json:"turn"`
	Beat    string `json:"beat"`
	Trigger string `json:"trigger"`
}

// Classification is one entry of the kingdom-state history.
type Classification struct {
	Turn   int          `json:"turn"`
	State  KingdomState `json:"state"`
	Reason string       `json:"reason"`
}

// GameState is the whole persisted document.
type GameState struct {
	GameID      string    `json:"game_id"`
	PlayerName  string    `json:"player_name"`
	CurrentTurn int       `json:"current_turn"`
	GameStarted time.Time `json:"game_started"`

	Factions map[string]*FactionState `json:"factions"`

	TurnHistory     []TurnRecord     `json:"turn_history"`
	Chronicles      []Chronicle      `json:"kingdom_chronicles"`
	StoryBeats      []StoryBeat      `json:"story_beats"`
	Classifications []Classification `json:"kingdom_state_history"`
}

// AverageTrust is the arithmetic mean of all faction trust scores.
func (st *GameState) AverageTrust() float64 {
	if len(st.Factions) == 0 {
		return 0
	}
	total := 0
	for _, f := range st.Factions {
		total += f.TrustScore
	}
	return float64(total) / float64(len(st.Factions))
}

// FactionSummary is the slice of a faction shown to the model as context.
type FactionSummary struct {
	Name        string `json:"name"`
	Personality string `json:"personality"`
	Trust       int    `json:"trust"`
}

// Snapshot is the game context handed to generation calls.
type Snapshot struct {
	Turn            int                       `json:"turn"`
	LatestChronicle string                    `json:"latest_chronicle,omitempty"`
	AverageTrust    float64                   `json:"average_trust"`
	Factions        map[string]FactionSummary `json:"faction_summary"`
}
