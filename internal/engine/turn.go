// Package engine provides the turn loop of a reign: the pure schedule of each
// turn and the Controller that sequences it against the store, the generation
// client and the player.
package engine

import (
	"math"

	"github.com/talgya/evolving-kingdom/internal/social"
)

// Phase is a stage of a turn.
type Phase string

const (
	PhaseAwaitingDecision Phase = "awaiting_decision"
	PhaseResponding       Phase = "responding"
	PhaseChronicling      Phase = "chronicling"
	PhaseEvolving         Phase = "evolving"
	PhaseClassifying      Phase = "classifying"
	PhaseNarrativeBeat    Phase = "narrative_beat"
	PhaseTurnComplete     Phase = "turn_complete"
)

// Turn schedule and thresholds.
const (
	ChroniclePeriod = 2 // chronicle, evolve and classify every 2nd turn
	ChronicleSpan   = 2 // turns summarized per chronicle
	EvolutionWindow = 4 // memories fed to an evolution
	MinEvolutionMem = 2 // memories needed before a faction can evolve

	TrustScale     = 15 // max trust swing per response
	HighTrust      = 80
	HighTrustAfter = 3 // high-trust beats only after this turn
	RebellionTrust = 30

	AdvisorFromTurn = 3
)

// PlanTurn returns the phases a turn runs through, in order. The narrative
// beat depends on trust after the responses and is not part of the plan; see
// BeatTrigger.
func PlanTurn(turn, total int) []Phase {
	phases := []Phase{PhaseAwaitingDecision, PhaseResponding}
	even := turn%ChroniclePeriod == 0
	if even && turn < total {
		phases = append(phases, PhaseChronicling, PhaseEvolving)
	}
	if even {
		phases = append(phases, PhaseClassifying)
	}
	return append(phases, PhaseTurnComplete)
}

// TrustDelta converts a sentiment into a trust change:
// round(intensity*15), signed by polarity, zero for neutral.
func TrustDelta(s social.Sentiment) int {
	magnitude := int(math.Round(s.Intensity * TrustScale))
	switch s.Label {
	case social.SentimentPositive:
		return magnitude
	case social.SentimentNegative:
		return -magnitude
	default:
		return 0
	}
}

// BeatTrigger decides whether the updated average trust warrants a story
// beat. High trust is checked first; the two never fire together.
func BeatTrigger(avgTrust float64, turn int) (string, bool) {
	switch {
	case avgTrust > HighTrust && turn > HighTrustAfter:
		return social.TriggerHighTrust, true
	case avgTrust < RebellionTrust:
		return social.TriggerRebellionRisk, true
	default:
		return "", false
	}
}

// AdvisorOffered reports whether the advisor may be consulted on turn.
func AdvisorOffered(turn int) bool {
	return turn >= AdvisorFromTurn
}
