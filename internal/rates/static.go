package rates

import "github.com/shopspring/decimal"

// BaseCurrency is the currency the Bank of Thailand quotes against.
// All stored rates are THB per one unit of foreign currency.
const BaseCurrency = "THB"

// SupportedCurrencies lists the currencies the BOT daily feed covers.
var SupportedCurrencies = []string{
	"THB", "USD", "EUR", "GBP", "JPY", "CNY", "HKD", "SGD",
	"AUD", "NZD", "CHF", "CAD", "MYR", "KRW", "INR", "TWD",
	"SAR", "AED", "DKK", "SEK", "NOK",
}

var currencySymbols = map[string]string{
	"THB": "฿", "USD": "$", "EUR": "€", "GBP": "£", "JPY": "¥",
	"CNY": "¥", "HKD": "HK$", "SGD": "S$", "AUD": "A$", "NZD": "NZ$",
	"CHF": "CHF", "CAD": "C$", "MYR": "RM", "KRW": "₩", "INR": "₹",
	"TWD": "NT$", "SAR": "﷼", "AED": "د.إ", "DKK": "kr", "SEK": "kr", "NOK": "kr",
}

// staticRates is the last-resort rate table used when both the API and
// the cache are unavailable.
var staticRates = map[string]decimal.Decimal{
	"THB": decimal.RequireFromString("1.0"),
	"USD": decimal.RequireFromString("35.50"),
	"EUR": decimal.RequireFromString("38.80"),
	"GBP": decimal.RequireFromString("45.20"),
	"JPY": decimal.RequireFromString("0.24"),
	"CNY": decimal.RequireFromString("4.95"),
	"HKD": decimal.RequireFromString("4.55"),
	"SGD": decimal.RequireFromString("26.50"),
	"AUD": decimal.RequireFromString("23.50"),
	"NZD": decimal.RequireFromString("21.50"),
	"CHF": decimal.RequireFromString("40.00"),
	"CAD": decimal.RequireFromString("26.00"),
	"MYR": decimal.RequireFromString("7.80"),
	"KRW": decimal.RequireFromString("0.027"),
	"INR": decimal.RequireFromString("0.43"),
}

// StaticRates returns a copy of the built-in fallback table.
func StaticRates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(staticRates))
	for k, v := range staticRates {
		out[k] = v
	}
	return out
}

// IsSupported reports whether the currency code is on the BOT feed.
func IsSupported(code string) bool {
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}
