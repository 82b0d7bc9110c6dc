package config

import (
	"strings"

	"team-stock-exchange/internal/domain"
)

// Catalog is the precomputed, read-only view of the configured instruments.
// The key set is fixed at load time, so lookups need no locking.
type Catalog struct {
	instruments []InstrumentConfig
	bySymbol    map[string]InstrumentConfig
	byTag       map[string]string
}

// NewCatalog indexes instruments by normalized symbol and by tag.
func NewCatalog(instruments []InstrumentConfig) *Catalog {
	c := &Catalog{
		instruments: make([]InstrumentConfig, 0, len(instruments)),
		bySymbol:    make(map[string]InstrumentConfig, len(instruments)),
		byTag:       make(map[string]string),
	}

	for _, inst := range instruments {
		inst.Symbol = domain.NormalizeSymbol(inst.Symbol)
		c.instruments = append(c.instruments, inst)
		c.bySymbol[inst.Symbol] = inst
		for _, tag := range inst.Tags {
			c.byTag[normalizeTag(tag)] = inst.Symbol
		}
	}
	return c
}

// Symbols returns the configured symbols in configuration order.
func (c *Catalog) Symbols() []string {
	symbols := make([]string, len(c.instruments))
	for i, inst := range c.instruments {
		symbols[i] = inst.Symbol
	}
	return symbols
}

// Instruments returns the configured instruments in configuration order.
func (c *Catalog) Instruments() []InstrumentConfig {
	out := make([]InstrumentConfig, len(c.instruments))
	copy(out, c.instruments)
	return out
}

// Lookup returns the configuration for a symbol in any case.
func (c *Catalog) Lookup(symbol string) (InstrumentConfig, bool) {
	inst, ok := c.bySymbol[domain.NormalizeSymbol(symbol)]
	return inst, ok
}

// Valid reports whether the symbol is configured.
func (c *Catalog) Valid(symbol string) bool {
	_, ok := c.bySymbol[domain.NormalizeSymbol(symbol)]
	return ok
}

// SymbolForTag resolves a message tag ("L", "[L]" or "[[L]]") to its symbol.
func (c *Catalog) SymbolForTag(tag string) (string, bool) {
	symbol, ok := c.byTag[normalizeTag(tag)]
	return symbol, ok
}

// Resolve accepts either a symbol or a tag.
func (c *Catalog) Resolve(key string) (string, bool) {
	if c.Valid(key) {
		return domain.NormalizeSymbol(key), true
	}
	return c.SymbolForTag(key)
}

func normalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	for strings.HasPrefix(tag, "[") && strings.HasSuffix(tag, "]") && len(tag) >= 2 {
		tag = strings.TrimSpace(tag[1 : len(tag)-1])
	}
	return strings.ToUpper(tag)
}
