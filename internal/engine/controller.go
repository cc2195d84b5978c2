package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/talgya/evolving-kingdom/internal/config"
	"github.com/talgya/evolving-kingdom/internal/llm"
	"github.com/talgya/evolving-kingdom/internal/persistence"
	"github.com/talgya/evolving-kingdom/internal/social"
)

// Controller is the only writer of game state. It never formats text; the
// Observer does.
type Controller struct {
	cfg     config.Config
	store   *persistence.Store
	gen     Generator
	obs     Observer
	dec     Decider
	archive Archiver

	now func() time.Time
}

// NewController wires a turn loop.
func NewController(cfg config.Config, store *persistence.Store, gen Generator, obs Observer, dec Decider) *Controller {
	return &Controller{
		cfg:   cfg,
		store: store,
		gen:   gen,
		obs:   obs,
		dec:   dec,
		now:   time.Now,
	}
}

// SetArchive stores finished reigns in a. A nil archive disables it.
func (c *Controller) SetArchive(a Archiver) {
	c.archive = a
}

// Play runs a whole reign: a fresh game, every turn, then the review.
// A saved document is never resumed.
func (c *Controller) Play(ctx context.Context) error {
	c.obs.Welcome(c.cfg.TotalTurns)

	name, err := c.dec.AskName(ctx)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultPlayerName
	}

	if _, err := c.store.Initialize(name); err != nil {
		return fmt.Errorf("start game: %w", err)
	}

	c.obs.ReignBegins(name)
	if err := c.dec.Pause(ctx, "Press Enter to begin..."); err != nil {
		return err
	}

	for turn := 1; turn <= c.cfg.TotalTurns; turn++ {
		if err := interrupted(ctx); err != nil {
			return err
		}

		c.obs.FactionStatus(c.store.AllFactions())

		decision, err := c.decide(ctx, turn)
		if err != nil {
			return err
		}
		if _, err := c.PlayTurn(ctx, turn, decision); err != nil {
			if errors.Is(err, ErrInterrupted) {
				return err
			}
			return fmt.Errorf("turn %d: %w", turn, err)
		}
		if err := c.dec.Pause(ctx, "Press Enter to continue..."); err != nil {
			return err
		}
	}

	return c.Finish(ctx)
}

// decide shows the turn's options, offers the advisor and reads a choice.
func (c *Controller) decide(ctx context.Context, turn int) (string, error) {
	options := c.cfg.DecisionOptions(turn)
	c.obs.DecisionMenu(Menu{
		Turn:         turn,
		TotalTurns:   c.cfg.TotalTurns,
		Category:     c.cfg.Category(turn),
		AverageTrust: c.store.AverageTrust(),
		ShowTrust:    turn > 1,
		Options:      options,
	})

	if AdvisorOffered(turn) {
		consult, err := c.dec.Confirm(ctx, "Would you like to consult your advisor?")
		if err != nil {
			return "", err
		}
		if consult {
			advice := c.gen.PredictReactions(ctx, options, c.outlooks())
			if err := interrupted(ctx); err != nil {
				return "", err
			}
			c.obs.Advice(advice)
		}
	}

	i, err := c.dec.Choose(ctx, len(options))
	if err != nil {
		return "", err
	}
	return options[i], nil
}

func (c *Controller) outlooks() map[string]llm.FactionOutlook {
	out := make(map[string]llm.FactionOutlook)
	for _, f := range c.store.AllFactions() {
		out[f.ID] = llm.FactionOutlook{Personality: f.CurrentPersonality, Trust: f.TrustScore}
	}
	return out
}

// PlayTurn applies a decision: every faction responds, then the scheduled
// passes run, then the beat check on the updated average trust.
func (c *Controller) PlayTurn(ctx context.Context, turn int, decision string) (social.TurnRecord, error) {
	rec := social.TurnRecord{
		Turn:      turn,
		Decision:  decision,
		Responses: make(map[string]social.FactionTurn),
	}

	c.obs.ResponsesBegin()
	for _, f := range c.store.AllFactions() {
		ft, err := c.respond(ctx, f, turn, decision)
		if err != nil {
			return rec, err
		}
		rec.Responses[f.ID] = ft
	}

	if err := c.store.RecordTurn(rec); err != nil {
		return rec, fmt.Errorf("record turn: %w", err)
	}

	plan := PlanTurn(turn, c.cfg.TotalTurns)
	if slices.Contains(plan, PhaseChronicling) {
		if err := c.chronicle(ctx, turn); err != nil {
			return rec, err
		}
	}
	if slices.Contains(plan, PhaseEvolving) {
		if err := c.evolve(ctx, turn); err != nil {
			return rec, err
		}
	}
	if slices.Contains(plan, PhaseClassifying) {
		if err := c.classify(ctx, turn); err != nil {
			return rec, err
		}
	}

	if err := c.storyBeat(ctx, turn); err != nil {
		return rec, err
	}

	slog.Debug("turn complete", "turn", turn, "average_trust", c.store.AverageTrust())
	return rec, nil
}

func (c *Controller) respond(ctx context.Context, f *social.FactionState, turn int, decision string) (social.FactionTurn, error) {
	snap := c.store.ContextSnapshot()

	c.obs.FactionSpeaking(f)
	response := c.gen.FactionResponse(ctx, f, decision, snap)
	if err := interrupted(ctx); err != nil {
		return social.FactionTurn{}, err
	}
	sentiment := c.gen.AnalyzeSentiment(ctx, response)
	if err := interrupted(ctx); err != nil {
		return social.FactionTurn{}, err
	}
	delta := TrustDelta(sentiment)

	if delta != 0 {
		if _, err := c.store.UpdateTrust(f.ID, delta); err != nil {
			return social.FactionTurn{}, fmt.Errorf("update trust of %s: %w", f.ID, err)
		}
	}

	err := c.store.AddMemory(f.ID, social.MemoryEntry{
		Turn:        turn,
		Decision:    decision,
		Response:    response,
		Sentiment:   sentiment.Label,
		Intensity:   sentiment.Intensity,
		TrustChange: delta,
	})
	if err != nil {
		return social.FactionTurn{}, fmt.Errorf("remember turn for %s: %w", f.ID, err)
	}

	ft := social.FactionTurn{Response: response, Sentiment: sentiment, TrustChange: delta}
	c.obs.FactionResponded(f, ft)
	return ft, nil
}

func (c *Controller) chronicle(ctx context.Context, turn int) error {
	from := turn - ChronicleSpan + 1
	text := c.gen.Chronicle(ctx, c.store.RecentTurns(ChronicleSpan), from, turn)
	if err := interrupted(ctx); err != nil {
		return err
	}
	if err := c.store.AddChronicle(from, turn, text); err != nil {
		return fmt.Errorf("add chronicle: %w", err)
	}

	chronicles := c.store.FullState().Chronicles
	c.obs.Chronicled(chronicles[len(chronicles)-1])
	return nil
}

func (c *Controller) evolve(ctx context.Context, turn int) error {
	c.obs.EvolutionBegins()
	for _, f := range c.store.AllFactions() {
		if len(f.Memory) < MinEvolutionMem {
			continue
		}

		shift := c.gen.EvolvePersonality(ctx, f, f.RecentMemory(EvolutionWindow))
		if err := interrupted(ctx); err != nil {
			return err
		}
		if shift.NewPersonality == f.CurrentPersonality {
			continue
		}

		if err := c.store.UpdatePersonality(f.ID, turn, shift.NewPersonality, shift.KeyChange); err != nil {
			return fmt.Errorf("evolve %s: %w", f.ID, err)
		}
		e, _ := f.LastEvolution()
		c.obs.PersonalityEvolved(f, e)
		slog.Info("personality evolved", "faction", f.ID, "turn", turn)
	}
	return c.dec.Pause(ctx, "Press Enter to continue...")
}

func (c *Controller) classify(ctx context.Context, turn int) error {
	reading := c.gen.ClassifyKingdom(ctx, c.store.ContextSnapshot())
	if err := interrupted(ctx); err != nil {
		return err
	}
	cl := social.Classification{Turn: turn, State: reading.State, Reason: reading.Reason}
	if err := c.store.AddClassification(cl); err != nil {
		return fmt.Errorf("add classification: %w", err)
	}
	c.obs.Classified(cl)
	return nil
}

func (c *Controller) storyBeat(ctx context.Context, turn int) error {
	trigger, ok := BeatTrigger(c.store.AverageTrust(), turn)
	if !ok {
		return nil
	}

	beat := c.gen.StoryBeat(ctx, c.store.ContextSnapshot(), trigger)
	if err := interrupted(ctx); err != nil {
		return err
	}

	b := social.StoryBeat{Turn: turn, Beat: beat, Trigger: trigger}
	if err := c.store.AddStoryBeat(b); err != nil {
		return fmt.Errorf("add story beat: %w", err)
	}
	c.obs.StoryBeat(b)
	return nil
}

// Finish digests the whole document into the epic review, writes the history
// artifact and archives the reign.
func (c *Controller) Finish(ctx context.Context) error {
	c.obs.ReviewBegins()

	st := c.store.FullState()
	if st == nil {
		return persistence.ErrNoGame
	}
	review := c.gen.EpicReview(ctx, st)
	if err := interrupted(ctx); err != nil {
		return err
	}

	doc := fmt.Sprintf("# Kingdom History: %s\n\n%s", st.PlayerName, review)
	if err := os.WriteFile(c.cfg.HistoryPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	c.obs.ReviewFinished(review, c.cfg.HistoryPath)

	if c.archive != nil {
		if err := c.archive.SaveReign(st, review, c.now()); err != nil {
			slog.Error("archive reign", "game_id", st.GameID, "error", err)
		}
	}
	return nil
}

// interrupted maps a cancelled context to ErrInterrupted. A generation call
// cut short by cancellation returns a fallback, which must not be stored.
func interrupted(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	return nil
}
