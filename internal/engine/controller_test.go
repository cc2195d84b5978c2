package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/talgya/evolving-kingdom/internal/config"
	"github.com/talgya/evolving-kingdom/internal/llm"
	"github.com/talgya/evolving-kingdom/internal/persistence"
	"github.com/talgya/evolving-kingdom/internal/social"
)

// fakeGenerator answers every task deterministically and counts calls.
type fakeGenerator struct {
	sentiment   map[string]social.Sentiment // by faction response text
	personality string                      // evolution reply; "" keeps the current one
	reading     llm.KingdomReading
	calls       map[string]int
	beats       []string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		sentiment: make(map[string]social.Sentiment),
		reading:   llm.KingdomReading{State: social.StateStability, Reason: "calm"},
		calls:     make(map[string]int),
	}
}

func (g *fakeGenerator) FactionResponse(_ context.Context, f *social.FactionState, decision string, _ social.Snapshot) string {
	g.calls[llm.TaskFactionResponse]++
	return f.ID + " hears: " + decision
}

func (g *fakeGenerator) AnalyzeSentiment(_ context.Context, response string) social.Sentiment {
	g.calls[llm.TaskSentiment]++
	for prefix, s := range g.sentiment {
		if strings.HasPrefix(response, prefix) {
			return s
		}
	}
	return social.Sentiment{Label: social.SentimentNeutral, Intensity: 0.5}
}

func (g *fakeGenerator) Chronicle(_ context.Context, turns []social.TurnRecord, from, to int) string {
	g.calls[llm.TaskChronicle]++
	return social.TurnRange(from, to) + " chronicled"
}

func (g *fakeGenerator) EvolvePersonality(_ context.Context, f *social.FactionState, recent []social.MemoryEntry) llm.PersonalityShift {
	g.calls[llm.TaskEvolution]++
	if g.personality == "" {
		return llm.PersonalityShift{NewPersonality: f.CurrentPersonality, KeyChange: "No change"}
	}
	return llm.PersonalityShift{NewPersonality: g.personality, KeyChange: "hardened by events"}
}

func (g *fakeGenerator) PredictReactions(context.Context, []string, map[string]llm.FactionOutlook) string {
	g.calls[llm.TaskPrediction]++
	return "The clergy will frown."
}

func (g *fakeGenerator) ClassifyKingdom(context.Context, social.Snapshot) llm.KingdomReading {
	g.calls[llm.TaskClassification]++
	return g.reading
}

func (g *fakeGenerator) StoryBeat(_ context.Context, _ social.Snapshot, trigger string) string {
	g.calls[llm.TaskStoryBeat]++
	g.beats = append(g.beats, trigger)
	return "beat: " + trigger
}

func (g *fakeGenerator) EpicReview(_ context.Context, st *social.GameState) string {
	g.calls[llm.TaskReview]++
	return "## The reign of " + st.PlayerName
}

// scriptedUI plays the monarch and records what was shown.
type scriptedUI struct {
	name     string
	choices  []int
	consult  bool
	pauses   int
	menus    []Menu
	advice   []string
	evolved  []social.Evolution
	finished int
	failOn   int // return ErrInterrupted on this Choose call (1-based), 0 never

	chooseCalls int
}

func (u *scriptedUI) AskName(context.Context) (string, error) { return u.name, nil }

func (u *scriptedUI) Confirm(context.Context, string) (bool, error) { return u.consult, nil }

func (u *scriptedUI) Choose(_ context.Context, n int) (int, error) {
	u.chooseCalls++
	if u.failOn == u.chooseCalls {
		return 0, ErrInterrupted
	}
	if len(u.choices) == 0 {
		return 0, nil
	}
	c := u.choices[0]
	u.choices = u.choices[1:]
	return c % n, nil
}

func (u *scriptedUI) Pause(context.Context, string) error {
	u.pauses++
	return nil
}

func (u *scriptedUI) Welcome(int) {}
func (u *scriptedUI) ReignBegins(string) {}
func (u *scriptedUI) FactionStatus([]*social.FactionState) {}
func (u *scriptedUI) DecisionMenu(m Menu) { u.menus = append(u.menus, m) }
func (u *scriptedUI) Advice(p string) { u.advice = append(u.advice, p) }
func (u *scriptedUI) ResponsesBegin() {}
func (u *scriptedUI) FactionSpeaking(*social.FactionState) {}
func (u *scriptedUI) FactionResponded(*social.FactionState, social.FactionTurn) {}
func (u *scriptedUI) Chronicled(social.Chronicle) {}
func (u *scriptedUI) EvolutionBegins() {}
func (u *scriptedUI) PersonalityEvolved(_ *social.FactionState, e social.Evolution) {
	u.evolved = append(u.evolved, e)
}
func (u *scriptedUI) Classified(social.Classification) {}
func (u *scriptedUI) StoryBeat(social.StoryBeat) {}
func (u *scriptedUI) ReviewBegins() {}
func (u *scriptedUI) ReviewFinished(string, string) { u.finished++ }

type fakeArchive struct {
	saved []string
}

func (a *fakeArchive) SaveReign(st *social.GameState, _ string, _ time.Time) error {
	a.saved = append(a.saved, st.PlayerName)
	return nil
}

func newTestController(t *testing.T, gen Generator, ui *scriptedUI) (*Controller, *persistence.Store) {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default() error = %v", err)
	}
	dir := t.TempDir()
	cfg.HistoryPath = filepath.Join(dir, "kingdom_history.md")

	store := persistence.NewStore(filepath.Join(dir, "game_state.json"), cfg)
	return NewController(cfg, store, gen, ui, ui), store
}

func TestNeutralFirstTurnKeepsTrust(t *testing.T) {
	gen := newFakeGenerator()
	ui := &scriptedUI{name: "Test"}
	c, store := newTestController(t, gen, ui)

	st, err := store.Initialize("Test")
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range store.AllFactions() {
		if f.TrustScore != 50 || f.CurrentPersonality != f.BasePersonality {
			t.Fatalf("%s starts at trust %d with %q", f.ID, f.TrustScore, f.CurrentPersonality)
		}
	}

	rec, err := c.PlayTurn(context.Background(), 1, "Lower taxes to win the people's favor")
	if err != nil {
		t.Fatalf("PlayTurn() error = %v", err)
	}

	for _, f := range store.AllFactions() {
		if f.TrustScore != 50 {
			t.Errorf("%s trust = %d, want 50", f.ID, f.TrustScore)
		}
		if len(f.Memory) != 1 {
			t.Errorf("%s memory = %d entries, want 1", f.ID, len(f.Memory))
		}
	}
	if st.CurrentTurn != 2 {
		t.Errorf("current turn = %d, want 2", st.CurrentTurn)
	}
	if len(rec.Responses) != 4 {
		t.Errorf("turn record has %d responses, want 4", len(rec.Responses))
	}
	if len(st.Chronicles) != 0 || gen.calls[llm.TaskChronicle] != 0 {
		t.Error("chronicle ran on turn 1")
	}
	if gen.calls[llm.TaskEvolution] != 0 || gen.calls[llm.TaskClassification] != 0 {
		t.Errorf("scheduled passes ran on turn 1: %v", gen.calls)
	}
	if gen.calls[llm.TaskFactionResponse] != 4 || gen.calls[llm.TaskSentiment] != 4 {
		t.Errorf("calls = %v, want one response and one sentiment per faction", gen.calls)
	}
}

func TestPlayTurnAppliesDeltas(t *testing.T) {
	gen := newFakeGenerator()
	gen.sentiment["merchants"] = social.Sentiment{Label: social.SentimentPositive, Intensity: 1.0}
	gen.sentiment["nobles"] = social.Sentiment{Label: social.SentimentNegative, Intensity: 0.33}
	c, store := newTestController(t, gen, &scriptedUI{})

	if _, err := store.Initialize("Test"); err != nil {
		t.Fatal(err)
	}
	rec, err := c.PlayTurn(context.Background(), 1, "Build markets and trade roads")
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]int{}
	for _, f := range store.AllFactions() {
		got[f.ID] = f.TrustScore
	}
	want := map[string]int{"merchants": 65, "nobles": 45, "clergy": 50, "commoners": 50}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trust mismatch (-want +got):\n%s", diff)
	}
	if rec.Responses["nobles"].TrustChange != -5 {
		t.Errorf("nobles trust change = %d, want -5", rec.Responses["nobles"].TrustChange)
	}

	f, _ := store.Faction("merchants")
	wantMem := social.MemoryEntry{
		Turn:        1,
		Decision:    "Build markets and trade roads",
		Response:    "merchants hears: Build markets and trade roads",
		Sentiment:   social.SentimentPositive,
		Intensity:   1.0,
		TrustChange: 15,
	}
	if diff := cmp.Diff(wantMem, f.Memory[0]); diff != "" {
		t.Errorf("memory mismatch (-want +got):\n%s", diff)
	}
}

func TestTrustStaysClamped(t *testing.T) {
	gen := newFakeGenerator()
	for _, id := range []string{"merchants", "nobles", "clergy", "commoners"} {
		gen.sentiment[id] = social.Sentiment{Label: social.SentimentPositive, Intensity: 1.0}
	}
	c, store := newTestController(t, gen, &scriptedUI{})
	if _, err := store.Initialize("Test"); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for turn := 1; turn <= 5; turn++ {
		if _, err := c.PlayTurn(ctx, turn, "Declare a week-long tournament and feast"); err != nil {
			t.Fatal(err)
		}
		for _, f := range store.AllFactions() {
			if f.TrustScore < social.MinTrust || f.TrustScore > social.MaxTrust {
				t.Fatalf("turn %d: %s trust %d out of range", turn, f.ID, f.TrustScore)
			}
		}
	}
	if got := store.AverageTrust(); got != 100 {
		t.Errorf("average trust = %v, want 100", got)
	}
	// Turns 4 and 5 are past turn 3 with average trust above 80.
	if diff := cmp.Diff([]string{social.TriggerHighTrust, social.TriggerHighTrust}, gen.beats); diff != "" {
		t.Errorf("beats mismatch (-want +got):\n%s", diff)
	}
}

func TestRebellionBeat(t *testing.T) {
	gen := newFakeGenerator()
	for _, id := range []string{"merchants", "nobles", "clergy", "commoners"} {
		gen.sentiment[id] = social.Sentiment{Label: social.SentimentNegative, Intensity: 1.0}
	}
	c, store := newTestController(t, gen, &scriptedUI{})
	if _, err := store.Initialize("Test"); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for turn := 1; turn <= 2; turn++ {
		if _, err := c.PlayTurn(ctx, turn, "Ban public celebrations to save resources"); err != nil {
			t.Fatal(err)
		}
	}

	// 50 -> 35 -> 20: only the second turn drops below 30.
	st := store.FullState()
	want := []social.StoryBeat{{Turn: 2, Beat: "beat: rebellion_risk", Trigger: social.TriggerRebellionRisk}}
	if diff := cmp.Diff(want, st.StoryBeats); diff != "" {
		t.Errorf("story beats mismatch (-want +got):\n%s", diff)
	}
}

func TestEvenTurnPasses(t *testing.T) {
	gen := newFakeGenerator()
	gen.personality = "Wary and scheming"
	gen.reading = llm.KingdomReading{State: social.StateDecline, Reason: "taxes"}
	c, store := newTestController(t, gen, &scriptedUI{})
	if _, err := store.Initialize("Test"); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for turn := 1; turn <= 2; turn++ {
		if _, err := c.PlayTurn(ctx, turn, "Raise taxes to fund a grand festival"); err != nil {
			t.Fatal(err)
		}
	}

	st := store.FullState()
	if len(st.Chronicles) != 1 || st.Chronicles[0].Turns != "1-2" || st.Chronicles[0].Text != "1-2 chronicled" {
		t.Errorf("chronicles = %+v", st.Chronicles)
	}
	for _, f := range store.AllFactions() {
		if f.CurrentPersonality != "Wary and scheming" {
			t.Errorf("%s personality = %q", f.ID, f.CurrentPersonality)
		}
		e, ok := f.LastEvolution()
		if !ok || e.Turn != 2 || e.Old != f.BasePersonality || e.Reason != "hardened by events" {
			t.Errorf("%s evolution = %+v", f.ID, e)
		}
	}
	want := []social.Classification{{Turn: 2, State: social.StateDecline, Reason: "taxes"}}
	if diff := cmp.Diff(want, st.Classifications); diff != "" {
		t.Errorf("classifications mismatch (-want +got):\n%s", diff)
	}
	snap := store.ContextSnapshot()
	if snap.LatestChronicle != "1-2 chronicled" {
		t.Errorf("snapshot chronicle = %q", snap.LatestChronicle)
	}
}

func TestUnchangedPersonalityIsNotLogged(t *testing.T) {
	gen := newFakeGenerator()
	ui := &scriptedUI{}
	c, store := newTestController(t, gen, ui)
	if _, err := store.Initialize("Test"); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for turn := 1; turn <= 2; turn++ {
		if _, err := c.PlayTurn(ctx, turn, "Hire expensive mercenaries instead"); err != nil {
			t.Fatal(err)
		}
	}
	if gen.calls[llm.TaskEvolution] != 4 {
		t.Errorf("evolution calls = %d, want 4", gen.calls[llm.TaskEvolution])
	}
	for _, f := range store.AllFactions() {
		if len(f.EvolutionLog) != 0 {
			t.Errorf("%s logged %d evolutions", f.ID, len(f.EvolutionLog))
		}
	}
	if len(ui.evolved) != 0 {
		t.Errorf("observer saw %d evolutions", len(ui.evolved))
	}
}

func TestPlayFullReign(t *testing.T) {
	gen := newFakeGenerator()
	ui := &scriptedUI{name: "  ", consult: true, choices: []int{0, 1, 2, 0, 1, 2, 0, 1}}
	archive := &fakeArchive{}
	c, store := newTestController(t, gen, ui)
	c.SetArchive(archive)

	if err := c.Play(context.Background()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	st := store.FullState()
	if st.PlayerName != DefaultPlayerName {
		t.Errorf("player = %q, want %q", st.PlayerName, DefaultPlayerName)
	}
	if st.CurrentTurn != 9 || len(st.TurnHistory) != 8 {
		t.Errorf("current turn = %d with %d records, want 9 and 8", st.CurrentTurn, len(st.TurnHistory))
	}
	if gen.calls[llm.TaskReview] != 1 || ui.finished != 1 {
		t.Errorf("review ran %d times, finish shown %d times; want once", gen.calls[llm.TaskReview], ui.finished)
	}
	if gen.calls[llm.TaskChronicle] != 3 || gen.calls[llm.TaskClassification] != 4 {
		t.Errorf("calls = %v, want 3 chronicles and 4 classifications", gen.calls)
	}
	// The advisor is offered from turn 3: six consultations over eight turns.
	if len(ui.advice) != 6 || gen.calls[llm.TaskPrediction] != 6 {
		t.Errorf("advice given %d times, want 6", len(ui.advice))
	}
	if len(ui.menus) != 8 || ui.menus[0].ShowTrust || !ui.menus[1].ShowTrust {
		t.Errorf("menus = %+v", ui.menus)
	}
	if st.TurnHistory[1].Decision != ui.menus[1].Options[1] {
		t.Errorf("turn 2 decision = %q, want option 2", st.TurnHistory[1].Decision)
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(store.Path()), "kingdom_history.md"))
	if err != nil {
		t.Fatal(err)
	}
	wantDoc := "# Kingdom History: Anonymous Monarch\n\n## The reign of Anonymous Monarch"
	if string(data) != wantDoc {
		t.Errorf("history = %q, want %q", data, wantDoc)
	}
	if diff := cmp.Diff([]string{DefaultPlayerName}, archive.saved); diff != "" {
		t.Errorf("archive mismatch (-want +got):\n%s", diff)
	}
}

func TestPlayInterrupted(t *testing.T) {
	gen := newFakeGenerator()
	ui := &scriptedUI{name: "Test", failOn: 2}
	c, store := newTestController(t, gen, ui)

	err := c.Play(context.Background())
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("Play() error = %v, want ErrInterrupted", err)
	}
	if got := len(store.FullState().TurnHistory); got != 1 {
		t.Errorf("turns recorded = %d, want 1", got)
	}
	if gen.calls[llm.TaskReview] != 0 {
		t.Error("review ran after interruption")
	}
}

func TestPlayCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newTestController(t, newFakeGenerator(), &scriptedUI{name: "Test"})
	if err := c.Play(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("Play() error = %v, want ErrInterrupted", err)
	}
}

// cancellingProvider stands in for a model backend that honours its context.
// It cancels the game on call number cancelOn, as Ctrl-C during a request
// would, and fails every call made on a cancelled context.
type cancellingProvider struct {
	cancel   context.CancelFunc
	cancelOn int
	calls    int
}

func (p *cancellingProvider) Complete(ctx context.Context, _ llm.Request) (string, error) {
	p.calls++
	if p.calls == p.cancelOn {
		p.cancel()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return `{"sentiment":"positive","intensity":0.4,"reasoning":"fine"}`, nil
}

func newCancellingKingdom(cancelOn int) (context.Context, *cancellingProvider, *llm.Kingdom) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &cancellingProvider{cancel: cancel, cancelOn: cancelOn}
	return ctx, p, llm.NewKingdom(p, config.DefaultTemperatures())
}

func TestCancelMidTurnRecordsNothing(t *testing.T) {
	tests := []struct {
		name       string
		cancelOn   int
		remembered int // factions that finished responding before the cancel
	}{
		{"first response", 1, 0},
		{"first sentiment", 2, 0},
		{"second faction", 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, p, gen := newCancellingKingdom(tt.cancelOn)
			c, store := newTestController(t, gen, &scriptedUI{name: "Test"})
			st, err := store.Initialize("Test")
			if err != nil {
				t.Fatal(err)
			}

			_, err = c.PlayTurn(ctx, 1, "Lower taxes")
			if !errors.Is(err, ErrInterrupted) {
				t.Fatalf("PlayTurn() error = %v, want ErrInterrupted", err)
			}
			if p.calls != tt.cancelOn {
				t.Errorf("provider calls = %d, want %d", p.calls, tt.cancelOn)
			}
			if len(st.TurnHistory) != 0 || st.CurrentTurn != 1 {
				t.Errorf("turn recorded after cancel: history=%d current=%d", len(st.TurnHistory), st.CurrentTurn)
			}

			remembered := 0
			for _, f := range store.AllFactions() {
				for _, m := range f.Memory {
					if m.Response == "" || m.Sentiment != social.SentimentPositive {
						t.Errorf("%s remembers a fallback: %+v", f.ID, m)
					}
				}
				if len(f.Memory) > 0 {
					remembered++
				}
			}
			if remembered != tt.remembered {
				t.Errorf("factions with memories = %d, want %d", remembered, tt.remembered)
			}

			// The document on disk agrees with memory.
			reloaded := persistence.NewStore(store.Path(), c.cfg)
			if _, err := reloaded.Load(); err != nil {
				t.Fatal(err)
			}
			if n := len(reloaded.FullState().TurnHistory); n != 0 {
				t.Errorf("saved document holds %d turns, want 0", n)
			}
		})
	}
}

func TestPlayCancelledDuringGeneration(t *testing.T) {
	ctx, _, gen := newCancellingKingdom(1)
	ui := &scriptedUI{name: "Test"}
	c, store := newTestController(t, gen, ui)

	if err := c.Play(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("Play() error = %v, want ErrInterrupted", err)
	}
	if n := len(store.FullState().TurnHistory); n != 0 {
		t.Errorf("turns recorded = %d, want 0", n)
	}
	if ui.finished != 0 {
		t.Error("review shown after interruption")
	}
}

func TestFinishCancelledDuringReview(t *testing.T) {
	ctx, _, gen := newCancellingKingdom(1)
	ui := &scriptedUI{name: "Test"}
	c, store := newTestController(t, gen, ui)
	archive := &fakeArchive{}
	c.SetArchive(archive)
	if _, err := store.Initialize("Test"); err != nil {
		t.Fatal(err)
	}

	if err := c.Finish(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("Finish() error = %v, want ErrInterrupted", err)
	}
	if _, err := os.Stat(c.cfg.HistoryPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("history written after interruption: stat error = %v", err)
	}
	if len(archive.saved) != 0 {
		t.Errorf("archived %v after interruption", archive.saved)
	}
	if ui.finished != 0 {
		t.Error("review shown after interruption")
	}
}

func TestAdviceCancelledIsNotShown(t *testing.T) {
	ctx, _, gen := newCancellingKingdom(1)
	ui := &scriptedUI{name: "Test", consult: true}
	c, store := newTestController(t, gen, ui)
	if _, err := store.Initialize("Test"); err != nil {
		t.Fatal(err)
	}

	if _, err := c.decide(ctx, AdvisorFromTurn); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("decide() error = %v, want ErrInterrupted", err)
	}
	if len(ui.advice) != 0 || ui.chooseCalls != 0 {
		t.Errorf("advice=%v choose calls=%d after interruption", ui.advice, ui.chooseCalls)
	}
}
