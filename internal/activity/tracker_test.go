package activity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"team-stock-exchange/internal/config"
)

func TestTracker_IncrementCounts(t *testing.T) {
	tr := NewTracker([]string{"STMP", "GEAR"}, 0.5)

	for i := 0; i < 7; i++ {
		assert.True(t, tr.Increment("stmp"))
	}
	assert.Equal(t, 7.0, tr.Get("STMP"))
	assert.Equal(t, 0.0, tr.Get("GEAR"))
}

func TestTracker_DecayMultiplies(t *testing.T) {
	tr := NewTracker([]string{"STMP"}, 0.8)
	for i := 0; i < 10; i++ {
		tr.Increment("STMP")
	}

	tr.Decay()
	assert.InDelta(t, 8.0, tr.Get("STMP"), 1e-9)

	tr.Decay()
	assert.InDelta(t, 6.4, tr.Get("STMP"), 1e-9)
}

func TestTracker_ZeroDecayClears(t *testing.T) {
	tr := NewTracker([]string{"STMP"}, 0)
	tr.Increment("STMP")
	tr.Decay()
	assert.Equal(t, 0.0, tr.Get("STMP"))
}

func TestTracker_UnknownSymbolIgnored(t *testing.T) {
	tr := NewTracker([]string{"STMP"}, 0.5)

	assert.False(t, tr.Increment("NOPE"))
	assert.Equal(t, 0.0, tr.Get("NOPE"))
	for _, lvl := range tr.Snapshot() {
		assert.NotEqual(t, "NOPE", lvl.Symbol)
	}
}

func TestTracker_ApplyPolicy(t *testing.T) {
	tr := NewTracker([]string{"STMP"}, 0.5)
	for i := 0; i < 4; i++ {
		tr.Increment("STMP")
	}

	tr.Apply(config.ActivityPolicyDecay)
	assert.InDelta(t, 2.0, tr.Get("STMP"), 1e-9)

	tr.Apply(config.ActivityPolicyReset)
	assert.Equal(t, 0.0, tr.Get("STMP"))
}

func TestTracker_ResetAll(t *testing.T) {
	tr := NewTracker([]string{"STMP", "GEAR"}, 0.5)
	tr.Increment("STMP")
	tr.Increment("GEAR")

	tr.ResetAll()
	for _, lvl := range tr.Snapshot() {
		assert.Equal(t, 0.0, lvl.Score, lvl.Symbol)
	}
}

func TestTracker_Snapshot(t *testing.T) {
	tr := NewTracker([]string{"LOW", "MOD", "HIGH", "VERY"}, 0.5)
	bump := func(symbol string, n int) {
		for i := 0; i < n; i++ {
			tr.Increment(symbol)
		}
	}
	bump("MOD", 6)
	bump("HIGH", 21)
	bump("VERY", 51)

	snap := tr.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, Level{Symbol: "VERY", Score: 51, Level: LevelVeryHigh}, snap[0])
	assert.Equal(t, Level{Symbol: "HIGH", Score: 21, Level: LevelHigh}, snap[1])
	assert.Equal(t, Level{Symbol: "MOD", Score: 6, Level: LevelModerate}, snap[2])
	assert.Equal(t, Level{Symbol: "LOW", Score: 0, Level: LevelLow}, snap[3])
}

func TestLevelFor_Boundaries(t *testing.T) {
	assert.Equal(t, LevelLow, LevelFor(5))
	assert.Equal(t, LevelModerate, LevelFor(20))
	assert.Equal(t, LevelHigh, LevelFor(50))
	assert.Equal(t, LevelVeryHigh, LevelFor(50.5))
}

func TestTracker_ConcurrentIncrements(t *testing.T) {
	tr := NewTracker([]string{"STMP"}, 0.5)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tr.Increment("STMP")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000.0, tr.Get("STMP"))
}
