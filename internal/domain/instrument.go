package domain

import (
	"strings"
	"time"
)

// PriceSample is one retained point of an instrument's price history.
type PriceSample struct {
	Timestamp time.Time `json:"timestamp"` // UTC, serialized as RFC3339Nano
	Price     int64     `json:"price"`     // price in spurs
}

// Instrument is the persisted document of one tradable team stock.
// Exactly one document exists per configured symbol.
type Instrument struct {
	DisplayName   string        `json:"display_name"`
	Symbol        string        `json:"symbol"`         // uppercase, immutable
	StartingPrice int64         `json:"starting_price"` // used only by market reset
	CurrentPrice  int64         `json:"current_price"`  // equals last history price after any update
	Volatility    float64       `json:"volatility"`     // scales the spread of the tick drift
	PriceHistory  []PriceSample `json:"price_history"`  // oldest-first, at most H entries
}

// NewInstrument creates a seeded document with a single history sample at the starting price.
func NewInstrument(symbol, displayName string, startingPrice int64, volatility float64, now time.Time) *Instrument {
	return &Instrument{
		DisplayName:   displayName,
		Symbol:        NormalizeSymbol(symbol),
		StartingPrice: startingPrice,
		CurrentPrice:  startingPrice,
		Volatility:    volatility,
		PriceHistory: []PriceSample{
			{Timestamp: now.UTC(), Price: startingPrice},
		},
	}
}

// AppendPrice sets the current price, appends a sample and trims the history
// to the most recent maxHistory entries. maxHistory <= 0 disables trimming.
//
// A timestamp earlier than the last retained sample is raised to it so the
// history stays non-decreasing even if the wall clock steps backwards.
func (i *Instrument) AppendPrice(price int64, at time.Time, maxHistory int) {
	at = at.UTC()
	if n := len(i.PriceHistory); n > 0 && at.Before(i.PriceHistory[n-1].Timestamp) {
		at = i.PriceHistory[n-1].Timestamp
	}

	i.CurrentPrice = price
	i.PriceHistory = append(i.PriceHistory, PriceSample{Timestamp: at, Price: price})

	if maxHistory > 0 && len(i.PriceHistory) > maxHistory {
		trimmed := make([]PriceSample, maxHistory)
		copy(trimmed, i.PriceHistory[len(i.PriceHistory)-maxHistory:])
		i.PriceHistory = trimmed
	}
}

// LastSample returns the most recent history sample.
func (i *Instrument) LastSample() (PriceSample, bool) {
	if len(i.PriceHistory) == 0 {
		return PriceSample{}, false
	}
	return i.PriceHistory[len(i.PriceHistory)-1], true
}

// Validate reports whether the document is well-formed.
func (i *Instrument) Validate() bool {
	if i == nil || i.Symbol == "" || i.CurrentPrice < 0 || i.Volatility < 0 {
		return false
	}
	return len(i.PriceHistory) > 0
}

// Clone returns a deep copy so callers never share history slices with the store.
func (i *Instrument) Clone() *Instrument {
	if i == nil {
		return nil
	}
	c := *i
	c.PriceHistory = make([]PriceSample, len(i.PriceHistory))
	copy(c.PriceHistory, i.PriceHistory)
	return &c
}

// NormalizeSymbol returns the canonical (trimmed, uppercase) form of a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
