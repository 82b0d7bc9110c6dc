// Package config loads the market catalog: the configured instruments and the
// constants the price engine runs with.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"team-stock-exchange/internal/domain"
)

// Activity policies applied once per tick after prices are written.
const (
	ActivityPolicyDecay = "decay"
	ActivityPolicyReset = "reset"
)

// Defaults used when the YAML omits a value.
const (
	DefaultTickInterval       = 3 * time.Minute
	DefaultHistoryCap         = 500
	DefaultMinPrice           = 1
	DefaultActivityBias       = 0.03
	DefaultActivitySaturation = 10.0
	DefaultDecayFactor        = 0.95
)

// InstrumentConfig describes one team stock.
type InstrumentConfig struct {
	Symbol        string   `yaml:"symbol"`
	Name          string   `yaml:"name"`
	StartingPrice int64    `yaml:"starting_price"`
	Volatility    float64  `yaml:"volatility"`
	Tags          []string `yaml:"tags"` // message tags such as "[L]" that map to this symbol
}

// MarketConfig holds the engine constants.
type MarketConfig struct {
	TickInterval       time.Duration `yaml:"tick_interval"`
	HistoryCap         int           `yaml:"history_cap"`
	DecayFactor        *float64      `yaml:"decay_factor"` // explicit 0 clears activity every tick
	ActivityPolicy     string        `yaml:"activity_policy"`
	MinPrice           int64         `yaml:"min_price"`
	ActivityBias       float64       `yaml:"activity_bias"`
	ActivitySaturation float64       `yaml:"activity_saturation"`
	RecordUnchanged    *bool         `yaml:"record_unchanged"`
}

// Config is the root of configs/market.yaml.
type Config struct {
	Market      MarketConfig       `yaml:"market"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

// Load reads, defaults and validates the market configuration file.
func Load(filename string) (*Config, error) {
	input, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filename, err)
	}
	return Parse(input)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(input []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	m := &c.Market
	if m.TickInterval == 0 {
		m.TickInterval = DefaultTickInterval
	}
	if m.HistoryCap == 0 {
		m.HistoryCap = DefaultHistoryCap
	}
	if m.ActivityPolicy == "" {
		m.ActivityPolicy = ActivityPolicyDecay
	}
	if m.MinPrice == 0 {
		m.MinPrice = DefaultMinPrice
	}
	if m.ActivityBias == 0 {
		m.ActivityBias = DefaultActivityBias
	}
	if m.ActivitySaturation == 0 {
		m.ActivitySaturation = DefaultActivitySaturation
	}
	if m.DecayFactor == nil {
		d := DefaultDecayFactor
		m.DecayFactor = &d
	}
	if m.RecordUnchanged == nil {
		v := true
		m.RecordUnchanged = &v
	}

	for i := range c.Instruments {
		c.Instruments[i].Symbol = domain.NormalizeSymbol(c.Instruments[i].Symbol)
	}
}

// Validate checks the invariants the store and engine rely on.
func (c *Config) Validate() error {
	m := c.Market
	if m.TickInterval < 0 {
		return fmt.Errorf("tick_interval=%s must be positive", m.TickInterval)
	}
	if m.HistoryCap < 1 {
		return fmt.Errorf("history_cap=%d must be at least 1", m.HistoryCap)
	}
	if m.DecayFactor == nil {
		return fmt.Errorf("decay_factor is not set")
	}
	if d := *m.DecayFactor; d < 0 || d >= 1 {
		return fmt.Errorf("decay_factor=%v must be in [0, 1)", d)
	}
	if m.ActivityPolicy != ActivityPolicyDecay && m.ActivityPolicy != ActivityPolicyReset {
		return fmt.Errorf("unknown activity_policy %q", m.ActivityPolicy)
	}
	if m.MinPrice < 1 {
		return fmt.Errorf("min_price=%d must be at least 1", m.MinPrice)
	}
	if m.ActivityBias < 0 || m.ActivitySaturation <= 0 {
		return fmt.Errorf("activity_bias must be >= 0 and activity_saturation > 0")
	}

	if len(c.Instruments) == 0 {
		return fmt.Errorf("empty instruments")
	}

	seen := make(map[string]struct{}, len(c.Instruments))
	for _, inst := range c.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("instrument %q: empty symbol", inst.Name)
		}
		if _, dup := seen[inst.Symbol]; dup {
			return fmt.Errorf("instrument %s: duplicate symbol", inst.Symbol)
		}
		seen[inst.Symbol] = struct{}{}

		if inst.StartingPrice < m.MinPrice {
			return fmt.Errorf("instrument %s: starting_price=%d below min_price=%d", inst.Symbol, inst.StartingPrice, m.MinPrice)
		}
		if inst.Volatility < 0 {
			return fmt.Errorf("instrument %s: negative volatility", inst.Symbol)
		}
	}
	return nil
}

// Catalog builds the static symbol lookup for this configuration.
func (c *Config) Catalog() *Catalog {
	return NewCatalog(c.Instruments)
}
