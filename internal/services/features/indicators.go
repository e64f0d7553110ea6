package features

import "math"

// SMA is the simple mean of the last period closes, or 0 without enough data.
func SMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average series seeded with the SMA of
// the first period values. The result is aligned with closes[period-1:].
func EMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, 0, len(closes)-period+1)
	prev := SMA(closes[:period], period)
	out = append(out, prev)
	for _, c := range closes[period:] {
		prev = c*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

// RSI is Wilder's relative strength index over period bars.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) <= period {
		return 50
	}
	gain, loss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain, avgLoss := gain/float64(period), loss/float64(period)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the latest MACD line (fast EMA - slow EMA) and its signal EMA.
func MACD(closes []float64, fast, slow, signal int) (float64, float64) {
	slowEMA := EMA(closes, slow)
	fastEMA := EMA(closes, fast)
	if len(slowEMA) == 0 || len(fastEMA) == 0 {
		return 0, 0
	}
	// Align the fast series with the slow one.
	offset := len(fastEMA) - len(slowEMA)
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}
	sig := EMA(line, signal)
	if len(sig) == 0 {
		return line[len(line)-1], 0
	}
	return line[len(line)-1], sig[len(sig)-1]
}

// Bollinger returns the upper and lower bands at k standard deviations
// around the period SMA.
func Bollinger(closes []float64, period int, k float64) (float64, float64) {
	mid := SMA(closes, period)
	if mid == 0 {
		return 0, 0
	}
	sum2 := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum2 += (c - mid) * (c - mid)
	}
	sd := math.Sqrt(sum2 / float64(period))
	return mid + k*sd, mid - k*sd
}
