// Package activity keeps the process-local community activity scores that
// bias price drift. Scores are never persisted; a restart starts from zero.
package activity

import (
	"sort"
	"sync"

	"team-stock-exchange/internal/config"
	"team-stock-exchange/internal/domain"
	"team-stock-exchange/internal/observability"
)

// Level labels reported by Snapshot.
const (
	LevelVeryHigh = "very_high"
	LevelHigh     = "high"
	LevelModerate = "moderate"
	LevelLow      = "low"
)

// Level is one symbol's score with its label.
type Level struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
	Level  string  `json:"level"`
}

// Tracker holds one score per configured symbol.
type Tracker struct {
	mu      sync.Mutex
	symbols []string
	scores  map[string]float64
	decay   float64
}

// NewTracker creates a tracker for the given symbols with per-tick decay factor d.
func NewTracker(symbols []string, decay float64) *Tracker {
	t := &Tracker{
		symbols: make([]string, 0, len(symbols)),
		scores:  make(map[string]float64, len(symbols)),
		decay:   decay,
	}
	for _, s := range symbols {
		s = domain.NormalizeSymbol(s)
		if _, dup := t.scores[s]; dup {
			continue
		}
		t.symbols = append(t.symbols, s)
		t.scores[s] = 0
	}
	return t
}

// Increment adds one signal. Unknown symbols are ignored; the return value
// reports whether the signal was counted.
func (t *Tracker) Increment(symbol string) bool {
	symbol = domain.NormalizeSymbol(symbol)

	t.mu.Lock()
	_, ok := t.scores[symbol]
	if ok {
		t.scores[symbol]++
	}
	t.mu.Unlock()

	if ok {
		observability.RecordActivitySignal(symbol)
	}
	return ok
}

// Get returns the score, or 0 for unknown symbols.
func (t *Tracker) Get(symbol string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.scores[domain.NormalizeSymbol(symbol)]
}

// Decay multiplies every score by the decay factor.
func (t *Tracker) Decay() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for s, v := range t.scores {
		t.scores[s] = v * t.decay
	}
}

// ResetAll zeroes every score.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for s := range t.scores {
		t.scores[s] = 0
	}
}

// Apply runs the per-tick activity policy.
func (t *Tracker) Apply(policy string) {
	if policy == config.ActivityPolicyReset {
		t.ResetAll()
		return
	}
	t.Decay()
}

// Snapshot returns every score, highest first, ties in configuration order.
func (t *Tracker) Snapshot() []Level {
	t.mu.Lock()
	levels := make([]Level, 0, len(t.symbols))
	for _, s := range t.symbols {
		levels = append(levels, Level{Symbol: s, Score: t.scores[s]})
	}
	t.mu.Unlock()

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Score > levels[j].Score
	})
	for i := range levels {
		levels[i].Level = LevelFor(levels[i].Score)
	}
	return levels
}

// LevelFor classifies a score.
func LevelFor(score float64) string {
	switch {
	case score > 50:
		return LevelVeryHigh
	case score > 20:
		return LevelHigh
	case score > 5:
		return LevelModerate
	default:
		return LevelLow
	}
}
