package terminal

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/talgya/evolving-kingdom/internal/config"
	"github.com/talgya/evolving-kingdom/internal/engine"
	"github.com/talgya/evolving-kingdom/internal/persistence"
	"github.com/talgya/evolving-kingdom/internal/social"
)

// silence stands in for a generation call that returned nothing.
const silence = "(The messenger returns without a word.)"

var sentimentIcons = map[string]string{
	social.SentimentPositive: "😊",
	social.SentimentNegative: "😠",
	social.SentimentNeutral:  "😐",
}

func orSilence(text string) string {
	if strings.TrimSpace(text) == "" {
		return silence
	}
	return text
}

func quoted(text string) string {
	return "\"" + orSilence(text) + "\""
}

func (u *UI) println(a ...any) {
	fmt.Fprintln(u.out, a...)
}

func (u *UI) printf(format string, a ...any) {
	fmt.Fprintf(u.out, format, a...)
}

func (u *UI) header(title string) {
	u.println()
	u.println(u.st.panel.Render(u.st.header.Render(title)))
	u.println()
}

func (u *UI) rule(ch string) {
	u.println(u.st.rule.Render(strings.Repeat(ch, width)))
}

func (u *UI) spec(f *social.FactionState) config.FactionSpec {
	if spec, ok := u.cfg.Faction(f.ID); ok {
		return spec
	}
	return config.FactionSpec{ID: f.ID, Name: f.Name}
}

func trustBar(trust int) string {
	filled := social.ClampTrust(trust) / 5
	return strings.Repeat("█", filled) + strings.Repeat("░", 20-filled)
}

// Welcome prints the title screen.
func (u *UI) Welcome(totalTurns int) {
	u.header("🏰 THE EVOLVING KINGDOM 🏰")
	u.println("A Diplomacy Simulator with AI-Powered Faction Evolution")
	u.println()
	u.println("In this game, you are a monarch making crucial decisions.")
	u.println("Each decision affects your relationship with four factions.")
	u.println("But beware: factions REMEMBER and their personalities EVOLVE")
	u.println("based on how you treat them...")
	u.println()
	u.printf("You have %d turns to prove yourself as a leader.\n\n", totalTurns)
	u.rule("-")
	u.println()
}

// ReignBegins greets the monarch.
func (u *UI) ReignBegins(player string) {
	u.printf("\nWelcome, %s! Your reign begins now.\n", u.st.header.Render(player))
}

// FactionStatus prints one card per faction.
func (u *UI) FactionStatus(factions []*social.FactionState) {
	u.header("📊 FACTION STATUS")
	for _, f := range factions {
		spec := u.spec(f)

		var b strings.Builder
		fmt.Fprintf(&b, "%s\n", u.st.faction(spec).Render(spec.Icon+" "+f.Name))
		fmt.Fprintf(&b, "Personality: %s\n", f.CurrentPersonality)
		fmt.Fprintf(&b, "Trust: %s %d/100", trustBar(f.TrustScore), f.TrustScore)
		if e, ok := f.LastEvolution(); ok {
			fmt.Fprintf(&b, "\n%s", u.st.warning.Render("⚡ Recently evolved: "+e.Reason))
		}
		u.println(u.st.card.BorderForeground(u.st.faction(spec).GetForeground()).Render(b.String()))
	}
}

// DecisionMenu prints the turn header and the numbered options.
func (u *UI) DecisionMenu(m engine.Menu) {
	u.header(fmt.Sprintf("👑 TURN %d/%d", m.Turn, m.TotalTurns))
	if m.Category != "" {
		u.println(u.st.muted.Render(fmt.Sprintf("The %s matter of your reign: %s", humanize.Ordinal(m.Turn), m.Category)))
		u.println()
	}
	if m.ShowTrust {
		u.println(u.st.info.Render(fmt.Sprintf("Kingdom Average Trust: %.1f/100", m.AverageTrust)))
		u.println()
	}

	u.println("What is your decision, Your Majesty?")
	u.println()
	for i, opt := range m.Options {
		u.printf("%d. %s\n", i+1, opt)
	}
}

// Advice prints the advisor's prediction.
func (u *UI) Advice(prediction string) {
	u.println()
	u.println("💭 Your advisor whispers...")
	u.println()
	u.println(u.st.info.Render(orSilence(prediction)))
}

// ResponsesBegin opens the responses section.
func (u *UI) ResponsesBegin() {
	u.header("🗣️  FACTION RESPONSES")
}

// FactionSpeaking announces the next speaker.
func (u *UI) FactionSpeaking(f *social.FactionState) {
	spec := u.spec(f)
	u.println()
	u.println(u.st.faction(spec).Render(spec.Icon + " " + f.Name + " speaks:"))
}

// FactionResponded prints a response with its sentiment and trust change.
func (u *UI) FactionResponded(_ *social.FactionState, ft social.FactionTurn) {
	u.println(u.st.quote.Render(quoted(ft.Response)))

	icon, ok := sentimentIcons[ft.Sentiment.Label]
	if !ok {
		icon = sentimentIcons[social.SentimentNeutral]
	}
	label := fmt.Sprintf("%s Sentiment: %s (intensity: %.2f)", icon, ft.Sentiment.Label, ft.Sentiment.Intensity)
	switch ft.Sentiment.Label {
	case social.SentimentPositive:
		u.println(u.st.success.Render(label))
	case social.SentimentNegative:
		u.println(u.st.fail.Render(label))
	default:
		u.println(u.st.warning.Render(label))
	}

	if ft.TrustChange != 0 {
		u.println(u.st.info.Render(fmt.Sprintf("Trust changed: %+d", ft.TrustChange)))
	}
}

// Chronicled prints a new chronicle entry.
func (u *UI) Chronicled(c social.Chronicle) {
	u.println()
	u.rule("~")
	u.println(u.st.info.Bold(true).Render("📖 The Royal Chronicler writes..."))
	u.println(u.st.muted.Render(fmt.Sprintf("Turns %s, set down %s", c.Turns, humanize.Time(c.Timestamp))))
	u.println()
	u.println(u.st.quote.Render(quoted(c.Text)))
	u.rule("~")
}

// EvolutionBegins opens the evolution section.
func (u *UI) EvolutionBegins() {
	u.println()
	u.println(u.st.warning.Bold(true).Render("⚡ FACTION PERSONALITIES EVOLVING..."))
	u.println()
}

// PersonalityEvolved prints a personality change.
func (u *UI) PersonalityEvolved(f *social.FactionState, e social.Evolution) {
	spec := u.spec(f)
	u.println(spec.Icon + " " + f.Name + ":")
	u.println(u.st.warning.Render("   Was: " + e.Old))
	u.println(u.st.success.Render("   Now: " + e.New))
	u.println("   Why: " + e.Reason)
	u.println()
}

// Classified prints the kingdom-state panel.
func (u *UI) Classified(c social.Classification) {
	u.println()
	u.rule("-")
	u.println(u.st.header.Render("📜 Kingdom State: " + strings.ToUpper(string(c.State))))
	u.println(u.st.info.Render("   " + c.Reason))
	u.rule("-")
}

// StoryBeat prints a dramatic moment.
func (u *UI) StoryBeat(b social.StoryBeat) {
	u.println()
	text := orSilence(b.Beat)
	if b.Trigger == social.TriggerRebellionRisk {
		u.println(u.st.fail.Bold(true).Render("⚠️  " + text))
		return
	}
	u.println("✨ " + text)
}

// ReviewBegins opens the final section.
func (u *UI) ReviewBegins() {
	u.header("📜 THE EPIC KINGDOM HISTORY 📜")
	u.println("The Master Chronicler compiles the complete history of your reign...")
	u.println()
	u.println("This may take a moment...")
	u.println()
}

// ReviewFinished prints the review as rendered markdown.
func (u *UI) ReviewFinished(review, path string) {
	u.println(u.renderMarkdown(orSilence(review)))
	u.println()
	u.rule("=")
	u.println("Thank you for playing The Evolving Kingdom!")
	u.rule("=")
	u.println()
	u.println(u.st.success.Render("📄 Full history saved to " + path))
}

// renderMarkdown falls back to the raw text when glamour cannot render it.
func (u *UI) renderMarkdown(md string) string {
	style := glamour.WithStandardStyle(glamourstyles.NoTTYStyle)
	if u.color {
		style = glamour.WithAutoStyle()
	}

	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// PastReign is an archived reign with its final standings.
type PastReign struct {
	persistence.Reign
	Factions   []persistence.ReignFaction
	Chronicles int
}

// Reigns lists archived reigns, newest first.
func (u *UI) Reigns(reigns []PastReign) {
	u.header("🏛️  PAST REIGNS")
	if len(reigns) == 0 {
		u.println(u.st.muted.Render("No reign has been recorded yet."))
		return
	}
	for _, r := range reigns {
		state := r.KingdomState
		if state == "" {
			state = "unknown"
		}
		u.printf("%s  %s\n",
			u.st.header.Render(r.Player),
			u.st.muted.Render("ended "+humanize.Time(r.Finished())),
		)
		u.printf("   %s, %s, average trust %.1f/100, left in %s\n",
			english.Plural(r.Turns, "turn", ""), english.Plural(r.Chronicles, "chronicle", ""), r.AverageTrust, strings.ToUpper(state))
		for _, f := range u.rosterOrder(r.Factions) {
			spec, _ := u.cfg.Faction(f.FactionID)
			u.printf("   %s %s: %d/100, %s\n",
				spec.Icon, f.Name, f.Trust, english.Plural(f.Evolutions, "evolution", ""))
		}
		u.println()
	}
}

// rosterOrder sorts archived standings the way the roster lists factions.
// Factions no longer in the roster go last.
func (u *UI) rosterOrder(factions []persistence.ReignFaction) []persistence.ReignFaction {
	rank := make(map[string]int, len(u.cfg.Factions))
	for i, f := range u.cfg.Factions {
		rank[f.ID] = i
	}
	pos := func(id string) int {
		if i, ok := rank[id]; ok {
			return i
		}
		return len(rank)
	}

	out := slices.Clone(factions)
	slices.SortStableFunc(out, func(a, b persistence.ReignFaction) int {
		return cmp.Compare(pos(a.FactionID), pos(b.FactionID))
	})
	return out
}
