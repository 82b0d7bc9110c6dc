package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstrument_Seeded(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	inst := NewInstrument(" stmp ", "Steam Punks", 100, 0.1, now)

	assert.Equal(t, "STMP", inst.Symbol)
	assert.Equal(t, int64(100), inst.CurrentPrice)
	require.Len(t, inst.PriceHistory, 1)
	assert.Equal(t, PriceSample{Timestamp: now, Price: 100}, inst.PriceHistory[0])
	assert.True(t, inst.Validate())
}

func TestInstrument_AppendPriceTrims(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inst := NewInstrument("STMP", "Steam Punks", 100, 0.1, base)

	prices := []int64{101, 99, 102, 103, 98}
	for i, p := range prices {
		inst.AppendPrice(p, base.Add(time.Duration(i+1)*time.Minute), 5)
		assert.LessOrEqual(t, len(inst.PriceHistory), 5)
		assert.Equal(t, p, inst.CurrentPrice)
	}

	got := make([]int64, 0, len(inst.PriceHistory))
	for _, s := range inst.PriceHistory {
		got = append(got, s.Price)
	}
	assert.Equal(t, prices, got)
}

func TestInstrument_AppendPriceKeepsTimestampsOrdered(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	inst := NewInstrument("STMP", "Steam Punks", 100, 0.1, base)

	inst.AppendPrice(110, base.Add(-time.Hour), 10)

	last, ok := inst.LastSample()
	require.True(t, ok)
	assert.Equal(t, base, last.Timestamp)
	assert.Equal(t, int64(110), last.Price)
}

func TestInstrument_CloneIsDeep(t *testing.T) {
	inst := NewInstrument("STMP", "Steam Punks", 100, 0.1, time.Now())
	c := inst.Clone()
	c.PriceHistory[0].Price = 1

	assert.Equal(t, int64(100), inst.PriceHistory[0].Price)
}

func TestInstrument_Validate(t *testing.T) {
	var nilInst *Instrument
	assert.False(t, nilInst.Validate())
	assert.False(t, (&Instrument{Symbol: "X"}).Validate(), "empty history")
	assert.False(t, (&Instrument{Symbol: "X", CurrentPrice: -1, PriceHistory: []PriceSample{{}}}).Validate())
}

func TestFormatCogs(t *testing.T) {
	assert.Equal(t, "1.00", FormatCogs(64))
	assert.Equal(t, "1.56", FormatCogs(100))
	assert.Equal(t, "0.00", FormatCogs(0))
}

func TestPriceDelta(t *testing.T) {
	d := PriceDelta{Symbol: "STMP", OldPrice: 100, NewPrice: 110}
	assert.True(t, d.Changed())
	assert.InDelta(t, 10.0, d.PercentChange(), 1e-9)
	assert.Zero(t, PriceDelta{}.PercentChange())
}
