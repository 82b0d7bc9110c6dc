package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
market:
  tick_interval: 90s
  history_cap: 5
  decay_factor: 0.8
  min_price: 2
instruments:
  - symbol: stmp
    name: Steam Punks
    starting_price: 100
    volatility: 0.1
    tags: ["[SP]", "STEAM"]
  - symbol: GEAR
    name: Gearheads
    starting_price: 64
    volatility: 0.05
`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Market.TickInterval)
	assert.Equal(t, 5, cfg.Market.HistoryCap)
	require.NotNil(t, cfg.Market.DecayFactor)
	assert.InDelta(t, 0.8, *cfg.Market.DecayFactor, 1e-12)
	assert.Equal(t, int64(2), cfg.Market.MinPrice)
	assert.Equal(t, ActivityPolicyDecay, cfg.Market.ActivityPolicy)
	assert.InDelta(t, DefaultActivityBias, cfg.Market.ActivityBias, 1e-12)
	require.NotNil(t, cfg.Market.RecordUnchanged)
	assert.True(t, *cfg.Market.RecordUnchanged)
	assert.Equal(t, "STMP", cfg.Instruments[0].Symbol)
}

func TestParse_DecayFactorDefault(t *testing.T) {
	cfg, err := Parse([]byte("instruments:\n  - {symbol: A, name: A, starting_price: 10, volatility: 0.1}\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Market.DecayFactor)
	assert.InDelta(t, DefaultDecayFactor, *cfg.Market.DecayFactor, 1e-12)

	// an explicit zero is kept
	cfg, err = Parse([]byte("market:\n  decay_factor: 0\ninstruments:\n  - {symbol: A, name: A, starting_price: 10, volatility: 0.1}\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, *cfg.Market.DecayFactor)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"no instruments": "market:\n  history_cap: 5\n",
		"bad decay": `
market:
  decay_factor: 1.0
instruments:
  - {symbol: A, name: A, starting_price: 10, volatility: 0.1}
`,
		"duplicate symbol": `
instruments:
  - {symbol: A, name: A, starting_price: 10, volatility: 0.1}
  - {symbol: a, name: B, starting_price: 10, volatility: 0.1}
`,
		"price below floor": `
market:
  min_price: 5
instruments:
  - {symbol: A, name: A, starting_price: 4, volatility: 0.1}
`,
		"negative volatility": `
instruments:
  - {symbol: A, name: A, starting_price: 10, volatility: -1}
`,
		"unknown policy": `
market:
  activity_policy: freeze
instruments:
  - {symbol: A, name: A, starting_price: 10, volatility: 0.1}
`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Instruments, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalog_Lookups(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	cat := cfg.Catalog()

	assert.Equal(t, []string{"STMP", "GEAR"}, cat.Symbols())
	assert.True(t, cat.Valid("stmp"))
	assert.False(t, cat.Valid("NOPE"))
	gear, ok := cat.Lookup("gear")
	require.True(t, ok)
	assert.Equal(t, "Gearheads", gear.Name)
	_, ok = cat.Lookup("NOPE")
	assert.False(t, ok)

	inst, ok := cat.Lookup(" Stmp ")
	require.True(t, ok)
	assert.Equal(t, int64(100), inst.StartingPrice)

	for _, tag := range []string{"SP", "[SP]", "[[sp]]", "steam"} {
		symbol, ok := cat.SymbolForTag(tag)
		assert.True(t, ok, tag)
		assert.Equal(t, "STMP", symbol, tag)
	}

	symbol, ok := cat.Resolve("gear")
	assert.True(t, ok)
	assert.Equal(t, "GEAR", symbol)
	symbol, ok = cat.Resolve("[SP]")
	assert.True(t, ok)
	assert.Equal(t, "STMP", symbol)
	_, ok = cat.Resolve("[XX]")
	assert.False(t, ok)
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "market.yaml"))
	require.NoError(t, err)

	catalog := cfg.Catalog()
	assert.NotEmpty(t, catalog.Symbols())
	for _, symbol := range catalog.Symbols() {
		inst, ok := catalog.Lookup(symbol)
		require.True(t, ok)
		assert.GreaterOrEqual(t, inst.StartingPrice, cfg.Market.MinPrice, symbol)
	}
}
