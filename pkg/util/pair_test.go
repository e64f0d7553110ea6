package util

import (
	"errors"
	"testing"
)

func TestParsePair(t *testing.T) {
	cases := map[string]string{
		"EUR/USD":                  "EUR/USD",
		"eurusd":                   "EUR/USD",
		"gbp-jpy outlook":          "GBP/JPY",
		"Analyze the EUR/USD pair": "EUR/USD",
		"analyze gold trading":     "XAU/USD",
		"what about the yen":       "USD/JPY",
		"aud usd":                  "AUD/USD",
	}
	for in, want := range cases {
		got, err := ParsePair(in)
		if err != nil {
			t.Fatalf("ParsePair(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("ParsePair(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParsePairUnknown(t *testing.T) {
	for _, in := range []string{"", "   ", "analyze the market", "abcdef"} {
		if _, err := ParsePair(in); !errors.Is(err, ErrUnknownInstrument) {
			t.Fatalf("ParsePair(%q): expected ErrUnknownInstrument, got %v", in, err)
		}
	}
}

func TestSplitPair(t *testing.T) {
	base, quote, ok := SplitPair("eur/usd")
	if !ok || base != "EUR" || quote != "USD" {
		t.Fatalf("unexpected split %q %q %v", base, quote, ok)
	}
	if _, _, ok := SplitPair("EURUSD"); ok {
		t.Fatalf("expected split failure without separator")
	}
}

func TestRound(t *testing.T) {
	if got := Round((1.0850-1.0840)*10000, 1); got != 10.0 {
		t.Fatalf("expected 10.0, got %v", got)
	}
	if got := Round(0.125, 2); got != 0.13 {
		t.Fatalf("expected 0.13, got %v", got)
	}
	if got := Clamp(1.7, 0, 1); got != 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
}
