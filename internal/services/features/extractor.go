package features

import "math"

// ComputeLogReturns computes r_t = ln(C_t / C_{t-1}) over a close series.
// Non-positive prices contribute a zero return. Returns nil with fewer than two closes.
func ComputeLogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility is the annualized sample standard deviation of the last
// window returns.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum, sum2 := 0.0, 0.0
	for _, r := range logReturns[len(logReturns)-window:] {
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// BarsPerYear returns the approximate number of bars per year for a timeframe.
func BarsPerYear(tf string) float64 {
	switch tf {
	case "1m":
		return 365 * 24 * 60
	case "5m":
		return 365 * 24 * 12
	case "1h":
		return 365 * 24
	case "1d":
		return 252
	default:
		return 365 * 24
	}
}
