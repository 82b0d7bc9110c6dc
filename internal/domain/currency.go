package domain

import "github.com/shopspring/decimal"

// SpursPerCog is the exchange rate between the display unit (cog) and the
// integer price unit (spur).
const SpursPerCog = 64

var spursPerCog = decimal.NewFromInt(SpursPerCog)

// ToCogs converts an integer spur price into cogs.
func ToCogs(spurs int64) decimal.Decimal {
	return decimal.NewFromInt(spurs).Div(spursPerCog)
}

// FormatCogs renders a spur price as cogs with two decimals, e.g. 100 -> "1.56".
func FormatCogs(spurs int64) string {
	return ToCogs(spurs).StringFixed(2)
}
