package rates

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with its currency's display symbol,
// e.g. ฿1,234.56 or NT$89.00. Codes without a known symbol render as
// "CODE 1,234.56".
func FormatAmount(amount decimal.Decimal, code string) string {
	grouped := amountPrinter.Sprint(number.Decimal(
		amount.InexactFloat64(),
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
	if symbol, ok := currencySymbols[code]; ok {
		return symbol + grouped
	}
	return code + " " + grouped
}

// Symbol returns the display symbol for a currency code, or the code
// itself when no symbol is known.
func Symbol(code string) string {
	if symbol, ok := currencySymbols[code]; ok {
		return symbol
	}
	return code
}
