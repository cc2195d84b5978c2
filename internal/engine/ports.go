package engine

import (
	"context"
	"errors"
	"time"

	"github.com/talgya/evolving-kingdom/internal/llm"
	"github.com/talgya/evolving-kingdom/internal/social"
)

// ErrInterrupted is returned when the player leaves mid-game: end of input or
// a cancelled context.
var ErrInterrupted = errors.New("game interrupted")

// DefaultPlayerName is used when the player gives no name.
const DefaultPlayerName = "Anonymous Monarch"

// Generator is the set of generation tasks the turn loop needs.
// *llm.Kingdom implements it.
type Generator interface {
	FactionResponse(ctx context.Context, f *social.FactionState, decision string, snap social.Snapshot) string
	AnalyzeSentiment(ctx context.Context, response string) social.Sentiment
	Chronicle(ctx context.Context, turns []social.TurnRecord, from, to int) string
	EvolvePersonality(ctx context.Context, f *social.FactionState, recent []social.MemoryEntry) llm.PersonalityShift
	PredictReactions(ctx context.Context, options []string, outlooks map[string]llm.FactionOutlook) string
	ClassifyKingdom(ctx context.Context, snap social.Snapshot) llm.KingdomReading
	StoryBeat(ctx context.Context, snap social.Snapshot, trigger string) string
	EpicReview(ctx context.Context, st *social.GameState) string
}

var _ Generator = (*llm.Kingdom)(nil)

// Menu is the decision put to the monarch at the start of a turn.
type Menu struct {
	Turn         int
	TotalTurns   int
	Category     string
	AverageTrust float64
	ShowTrust    bool // false on the first turn
	Options      []string
}

// Observer receives what happens during a reign. It only presents; it never
// changes game state.
type Observer interface {
	Welcome(totalTurns int)
	ReignBegins(player string)
	FactionStatus(factions []*social.FactionState)
	DecisionMenu(m Menu)
	Advice(prediction string)
	ResponsesBegin()
	FactionSpeaking(f *social.FactionState)
	FactionResponded(f *social.FactionState, ft social.FactionTurn)
	Chronicled(c social.Chronicle)
	EvolutionBegins()
	PersonalityEvolved(f *social.FactionState, e social.Evolution)
	Classified(c social.Classification)
	StoryBeat(b social.StoryBeat)
	ReviewBegins()
	ReviewFinished(review, path string)
}

// Decider supplies the monarch's input. Implementations return
// ErrInterrupted when input ends.
type Decider interface {
	AskName(ctx context.Context) (string, error)
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, question string) (bool, error)
	// Choose returns a 0-based index into n options, re-prompting until valid.
	Choose(ctx context.Context, n int) (int, error)
	Pause(ctx context.Context, prompt string) error
}

// Archiver keeps finished reigns. *persistence.Archive implements it.
type Archiver interface {
	SaveReign(st *social.GameState, review string, finished time.Time) error
}
