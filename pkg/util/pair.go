package util

import (
	"errors"
	"regexp"
	"strings"
)

// ErrUnknownInstrument is returned when no instrument can be read from a query.
var ErrUnknownInstrument = errors.New("unknown instrument")

// knownCurrencies lists the ISO-style codes accepted when a query carries no separator.
var knownCurrencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "JPY": {}, "AUD": {}, "NZD": {}, "CAD": {}, "CHF": {},
	"CNY": {}, "CNH": {}, "HKD": {}, "SGD": {}, "SEK": {}, "NOK": {}, "DKK": {}, "PLN": {},
	"MXN": {}, "ZAR": {}, "TRY": {}, "INR": {}, "XAU": {}, "XAG": {}, "BTC": {}, "ETH": {},
}

// instrumentAliases maps common names to their quoted pair.
var instrumentAliases = map[string]string{
	"GOLD":     "XAU/USD",
	"SILVER":   "XAG/USD",
	"BITCOIN":  "BTC/USD",
	"ETHEREUM": "ETH/USD",
	"CABLE":    "GBP/USD",
	"FIBER":    "EUR/USD",
	"EURO":     "EUR/USD",
	"POUND":    "GBP/USD",
	"YEN":      "USD/JPY",
	"AUSSIE":   "AUD/USD",
	"KIWI":     "NZD/USD",
	"LOONIE":   "USD/CAD",
	"SWISSY":   "USD/CHF",
}

var (
	separatedPair = regexp.MustCompile(`\b([A-Z]{3})\s*[/\-_:]\s*([A-Z]{3})\b`)
	compactPair   = regexp.MustCompile(`\b([A-Z]{6})\b`)
	words         = regexp.MustCompile(`[A-Z]+`)
)

// ParsePair extracts a BASE/QUOTE pair from free text such as "EUR/USD", "eurusd",
// "analyze gold" or "GBP-JPY outlook".
func ParsePair(query string) (string, error) {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return "", ErrUnknownInstrument
	}

	if m := separatedPair.FindStringSubmatch(q); m != nil {
		return m[1] + "/" + m[2], nil
	}

	for _, m := range compactPair.FindAllStringSubmatch(q, -1) {
		base, quote := m[1][:3], m[1][3:]
		if isKnown(base) && isKnown(quote) {
			return base + "/" + quote, nil
		}
	}

	tokens := words.FindAllString(q, -1)
	for _, tok := range tokens {
		if pair, ok := instrumentAliases[tok]; ok {
			return pair, nil
		}
	}

	// "EUR USD" style: two consecutive known codes.
	for i := 0; i+1 < len(tokens); i++ {
		if len(tokens[i]) == 3 && len(tokens[i+1]) == 3 && isKnown(tokens[i]) && isKnown(tokens[i+1]) {
			return tokens[i] + "/" + tokens[i+1], nil
		}
	}

	return "", ErrUnknownInstrument
}

// SplitPair returns the base and quote currencies of a pair.
func SplitPair(pair string) (string, string, bool) {
	base, quote, ok := strings.Cut(pair, "/")
	if !ok || base == "" || quote == "" {
		return "", "", false
	}
	return strings.ToUpper(base), strings.ToUpper(quote), true
}

func isKnown(code string) bool {
	_, ok := knownCurrencies[code]
	return ok
}
