// Agent journal: notable moments (claims, deliveries, pairings, abandoned
// targets) kept for the observer API.
package agents

const MaxMemories = 50

// Journal weights. When the journal is full the oldest entry of the lowest
// weight is dropped, so routine entries go first and deliveries last.
const (
	weightAbandon  float32 = 0.3
	weightPairing  float32 = 0.5
	weightClaim    float32 = 0.6
	weightDelivery float32 = 0.8
)

// Memory records a notable moment in an agent's run.
type Memory struct {
	Tick       uint64  `json:"tick"`
	Content    string  `json:"content"`
	Importance float32 `json:"importance"` // 0.0–1.0
}

// AddMemory appends to the agent's journal. Entries are kept in the order
// they happen; the new entry is always recorded.
func AddMemory(a *Agent, tick uint64, content string, importance float32) {
	m := Memory{Tick: tick, Content: content, Importance: importance}
	if len(a.Memories) >= MaxMemories {
		drop := 0
		for i, old := range a.Memories {
			if old.Importance < a.Memories[drop].Importance {
				drop = i
			}
		}
		a.Memories = append(a.Memories[:drop], a.Memories[drop+1:]...)
	}
	a.Memories = append(a.Memories, m)
}

// RecentMemories returns up to count entries, newest first.
func RecentMemories(a *Agent, count int) []Memory {
	if count > len(a.Memories) {
		count = len(a.Memories)
	}
	if count <= 0 {
		return nil
	}
	out := make([]Memory, 0, count)
	for i := len(a.Memories) - 1; len(out) < count; i-- {
		out = append(out, a.Memories[i])
	}
	return out
}
