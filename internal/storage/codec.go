package storage

import (
	"encoding/json"
	"fmt"

	"team-stock-exchange/internal/domain"
)

// EncodeDocument serializes an instrument in the persisted document shape.
func EncodeDocument(inst *domain.Instrument) ([]byte, error) {
	if !inst.Validate() {
		return nil, fmt.Errorf("encode %s: %w", symbolOf(inst), ErrInvalidInput)
	}
	data, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", inst.Symbol, err)
	}
	return data, nil
}

// DecodeDocument parses and validates a persisted document.
// Any failure wraps ErrCorruptDocument.
func DecodeDocument(symbol string, data []byte) (*domain.Instrument, error) {
	var inst domain.Instrument
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", symbol, ErrCorruptDocument, err)
	}
	if !inst.Validate() {
		return nil, fmt.Errorf("decode %s: %w: invalid fields", symbol, ErrCorruptDocument)
	}
	if inst.Symbol != symbol {
		return nil, fmt.Errorf("decode %s: %w: symbol mismatch %q", symbol, ErrCorruptDocument, inst.Symbol)
	}
	return &inst, nil
}

func symbolOf(inst *domain.Instrument) string {
	if inst == nil {
		return "<nil>"
	}
	return inst.Symbol
}
