package indicator

import "math"

// RSISeries returns the per-candle RSI used by Compute.
func RSISeries(closes []float64) []float64 {
	return rsiSeries(closes, rsiPeriod)
}

// MACDSeries returns the MACD and signal lines used by Compute.
func MACDSeries(closes []float64) ([]float64, []float64) {
	return macdSeries(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
}

// BollingerSeries returns the rolling middle, upper and lower bands. Points
// before a full window are NaN.
func BollingerSeries(closes []float64) (mid, upper, lower []float64) {
	mid = make([]float64, len(closes))
	upper = make([]float64, len(closes))
	lower = make([]float64, len(closes))
	for i := range closes {
		if i < bollingerPeriod-1 {
			mid[i], upper[i], lower[i] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		window := closes[i-bollingerPeriod+1 : i+1]
		m := mean(window)
		s := sampleStd(window)
		mid[i] = m
		upper[i] = m + bollingerStdDevs*s
		lower[i] = m - bollingerStdDevs*s
	}
	return mid, upper, lower
}
