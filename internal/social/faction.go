// Factions — the four estates of the realm whose trust the monarch courts.
package social

// Trust bounds.
const (
	MinTrust = 0
	MaxTrust = 100
)

// FactionState is a faction as it stands in the current game.
type FactionState struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	BasePersonality    string `json:"base_personality"`
	CurrentPersonality string `json:"current_personality"`
	TrustScore         int    `json:"trust_score"` // 0–100

	// Memory is fed back into response and evolution prompts.
	Memory       []MemoryEntry `json:"memory"`
	EvolutionLog []Evolution   `json:"personality_evolution_log"`
}

// MemoryEntry is one turn as a faction remembers it.
type MemoryEntry struct {
	Turn        int     `json:"turn"`
	Decision    string  `json:"decision"`
	Response    string  `json:"response"`
	Sentiment   string  `json:"sentiment"`
	Intensity   float64 `json:"intensity"`
	TrustChange int     `json:"trust_change"`
}

// Evolution records a personality replacement.
type Evolution struct {
	Turn   int    `json:"turn"`
	Old    string `json:"old"`
	New    string `json:"new"`
	Reason string `json:"reason"`
}

// NewFactionState creates a faction with its base personality as the current one.
func NewFactionState(id, name, basePersonality string, trust int) *FactionState {
	return &FactionState{
		ID:                 id,
		Name:               name,
		BasePersonality:    basePersonality,
		CurrentPersonality: basePersonality,
		TrustScore:         ClampTrust(trust),
		Memory:             []MemoryEntry{},
		EvolutionLog:       []Evolution{},
	}
}

// ClampTrust bounds a trust score to [MinTrust, MaxTrust].
func ClampTrust(v int) int {
	return max(MinTrust, min(MaxTrust, v))
}

// AdjustTrust applies delta, clamps, and returns the new score.
func (f *FactionState) AdjustTrust(delta int) int {
	f.TrustScore = ClampTrust(f.TrustScore + delta)
	return f.TrustScore
}

// Evolve replaces the current personality and logs the change.
func (f *FactionState) Evolve(turn int, personality, reason string) Evolution {
	e := Evolution{
		Turn:   turn,
		Old:    f.CurrentPersonality,
		New:    personality,
		Reason: reason,
	}
	f.CurrentPersonality = personality
	f.EvolutionLog = append(f.EvolutionLog, e)
	return e
}

// LastEvolution returns the most recent personality change, if any.
func (f *FactionState) LastEvolution() (Evolution, bool) {
	if len(f.EvolutionLog) == 0 {
		return Evolution{}, false
	}
	return f.EvolutionLog[len(f.EvolutionLog)-1], true
}

// RecentMemory returns at most the last n memory entries.
func (f *FactionState) RecentMemory(n int) []MemoryEntry {
	if n <= 0 || len(f.Memory) == 0 {
		return []MemoryEntry{}
	}
	start := max(0, len(f.Memory)-n)
	return f.Memory[start:]
}
