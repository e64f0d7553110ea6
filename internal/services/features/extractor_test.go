package features

import (
	"math"
	"testing"
)

func approx(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestComputeLogReturns(t *testing.T) {
	rets := ComputeLogReturns([]float64{100, 110, 0, 121})
	if len(rets) != 3 {
		t.Fatalf("expected 3 returns, got %d", len(rets))
	}
	if !approx(rets[0], math.Log(1.1), 1e-12) {
		t.Fatalf("unexpected first return %v", rets[0])
	}
	if rets[1] != 0 || rets[2] != 0 {
		t.Fatalf("expected zero returns around a non-positive price, got %v", rets)
	}
	if ComputeLogReturns([]float64{1}) != nil {
		t.Fatalf("expected nil for a single close")
	}
}

func TestRealizedVolatilityConstantSeries(t *testing.T) {
	rets := []float64{0.01, 0.01, 0.01, 0.01}
	if v := RealizedVolatility(rets, 4, 252); !approx(v, 0, 1e-6) {
		t.Fatalf("expected zero vol, got %v", v)
	}
	if v := RealizedVolatility(rets, 10, 252); v != 0 {
		t.Fatalf("expected zero with short series, got %v", v)
	}
}

func TestSMAAndEMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	if got := SMA(closes, 5); got != 3 {
		t.Fatalf("expected SMA 3, got %v", got)
	}
	ema := EMA(closes, 3)
	if len(ema) != 3 || ema[0] != 2 {
		t.Fatalf("unexpected EMA %v", ema)
	}
	if !approx(ema[2], 4, 1e-12) {
		t.Fatalf("expected EMA to track a linear series, got %v", ema)
	}
}

func TestRSIExtremes(t *testing.T) {
	up := make([]float64, 30)
	down := make([]float64, 30)
	for i := range up {
		up[i] = float64(i + 1)
		down[i] = float64(30 - i)
	}
	if got := RSI(up, 14); got != 100 {
		t.Fatalf("expected RSI 100 on a rising series, got %v", got)
	}
	if got := RSI(down, 14); got != 0 {
		t.Fatalf("expected RSI 0 on a falling series, got %v", got)
	}
	if got := RSI([]float64{1, 2}, 14); got != 50 {
		t.Fatalf("expected neutral RSI without data, got %v", got)
	}
}

func TestMACDSign(t *testing.T) {
	up := make([]float64, 60)
	for i := range up {
		up[i] = 1 + float64(i)*0.001
	}
	line, _ := MACD(up, 12, 26, 9)
	if line <= 0 {
		t.Fatalf("expected positive MACD on a rising series, got %v", line)
	}
}

func TestBollingerBracketsMean(t *testing.T) {
	closes := []float64{1.0, 1.1, 0.9, 1.05, 0.95}
	upper, lower := Bollinger(closes, 5, 2)
	mid := SMA(closes, 5)
	if !(upper > mid && lower < mid) {
		t.Fatalf("bands %v/%v do not bracket %v", upper, lower, mid)
	}
}
