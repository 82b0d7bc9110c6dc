package engine

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"team-stock-exchange/internal/config"
)

// zClip bounds the standard normal draw so one tick can never move a price
// by more than bias + 3 * volatility.
const zClip = 3.0

// PriceModel computes the next price of an instrument from its current price,
// volatility and activity score:
//
//	bias = ActivityBias * score / (score + ActivitySaturation)
//	pct  = bias + volatility * z,  z ~ N(0, 1) clipped to [-3, 3]
//	next = max(MinPrice, round(current * (1 + pct)))
//
// The bias is 0 without activity and approaches ActivityBias as activity grows.
type PriceModel struct {
	activityBias       float64
	activitySaturation float64
	minPrice           int64

	mu  sync.Mutex
	rng *rand.Rand
}

// ModelOptions contains configuration for creating a PriceModel.
type ModelOptions struct {
	ActivityBias       float64    // Default: config.DefaultActivityBias
	ActivitySaturation float64    // Default: config.DefaultActivitySaturation
	MinPrice           int64      // Default: config.DefaultMinPrice; values below 1 are raised to 1
	Rand               *rand.Rand // Default: time-seeded source
}

// NewPriceModel creates a new price model.
func NewPriceModel(opts ModelOptions) *PriceModel {
	bias := opts.ActivityBias
	if bias <= 0 {
		bias = config.DefaultActivityBias
	}

	saturation := opts.ActivitySaturation
	if saturation <= 0 {
		saturation = config.DefaultActivitySaturation
	}

	minPrice := opts.MinPrice
	if minPrice < 1 {
		minPrice = config.DefaultMinPrice
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &PriceModel{
		activityBias:       bias,
		activitySaturation: saturation,
		minPrice:           minPrice,
		rng:                rng,
	}
}

// MinPrice returns the price floor.
func (m *PriceModel) MinPrice() int64 {
	return m.minPrice
}

// Bias returns the activity-driven upward drift for a score.
func (m *PriceModel) Bias(score float64) float64 {
	if score <= 0 || math.IsNaN(score) {
		return 0
	}
	if math.IsInf(score, 1) {
		return m.activityBias
	}
	return m.activityBias * score / (score + m.activitySaturation)
}

// Next draws the next price.
func (m *PriceModel) Next(current int64, volatility, score float64) int64 {
	return m.next(current, volatility, score, m.draw())
}

// next is the deterministic part of Next for a given draw z.
func (m *PriceModel) next(current int64, volatility, score, z float64) int64 {
	if current < 0 {
		current = 0
	}
	if volatility < 0 || math.IsNaN(volatility) {
		volatility = 0
	}
	z = math.Max(-zClip, math.Min(zClip, z))

	pct := m.Bias(score) + volatility*z
	raw := math.Round(float64(current) * (1 + pct))

	if math.IsNaN(raw) || raw < float64(m.minPrice) {
		return m.minPrice
	}
	if raw >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(raw)
}

func (m *PriceModel) draw() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.NormFloat64()
}
