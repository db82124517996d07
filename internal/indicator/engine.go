package indicator

import (
	"math"

	"market-pulse/internal/domain"
)

const (
	minCandles       = 50
	rsiPeriod        = 14
	smaPeriod        = 20
	emaPeriod        = 50
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	bollingerPeriod  = 20
	bollingerStdDevs = 2.0

	DefaultAnomalyWindow   = 24
	DefaultAnomalyMultiple = 3.0
)

type Options struct {
	AnomalyWindow   int
	AnomalyMultiple float64
	Outlier         OutlierOptions
}

type Engine struct {
	anomalyWindow   int
	anomalyMultiple float64
	outlier         OutlierOptions
}

func NewEngine(opts Options) *Engine {
	if opts.AnomalyWindow <= 0 {
		opts.AnomalyWindow = DefaultAnomalyWindow
	}
	if opts.AnomalyMultiple <= 0 {
		opts.AnomalyMultiple = DefaultAnomalyMultiple
	}
	return &Engine{
		anomalyWindow:   opts.AnomalyWindow,
		anomalyMultiple: opts.AnomalyMultiple,
		outlier:         opts.Outlier.withDefaults(),
	}
}

func (e *Engine) Compute(series domain.Series) domain.IndicatorSnapshot {
	return Compute(series)
}

func (e *Engine) DetectVolumeAnomaly(series domain.Series) domain.AnomalyFlag {
	return DetectVolumeAnomaly(series, e.anomalyWindow, e.anomalyMultiple)
}

func (e *Engine) OutlierScore(series domain.Series) domain.Reading {
	return OutlierScore(series, e.outlier)
}

// Compute derives the latest indicator readings over the full series.
// Series of minCandles or fewer yield an all-absent snapshot.
func Compute(series domain.Series) domain.IndicatorSnapshot {
	if len(series) <= minCandles {
		return domain.IndicatorSnapshot{}
	}
	closes := series.Closes()

	var snap domain.IndicatorSnapshot
	sma := mean(closes[len(closes)-smaPeriod:])
	snap.SMA20 = reading(sma)
	snap.EMA50 = reading(last(emaSeries(closes, emaPeriod)))
	snap.RSI = reading(last(rsiSeries(closes, rsiPeriod)))

	macdLine, signalLine := macdSeries(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	snap.MACD = reading(last(macdLine))
	snap.MACDSignal = reading(last(signalLine))

	std := sampleStd(closes[len(closes)-bollingerPeriod:])
	snap.BBUpper = reading(sma + bollingerStdDevs*std)
	snap.BBLower = reading(sma - bollingerStdDevs*std)

	return snap
}

// DetectVolumeAnomaly compares the last volume with the mean of the trailing
// window, the last candle included.
func DetectVolumeAnomaly(series domain.Series, window int, multiple float64) domain.AnomalyFlag {
	if len(series) == 0 || window <= 0 {
		return domain.AnomalyFlag{}
	}
	volumes := series.Volumes()
	start := len(volumes) - window
	if start < 0 {
		start = 0
	}
	avg := mean(volumes[start:])
	if avg <= 0 || math.IsNaN(avg) {
		return domain.AnomalyFlag{}
	}
	lastVolume := volumes[len(volumes)-1]
	if lastVolume <= avg*multiple {
		return domain.AnomalyFlag{}
	}
	return domain.AnomalyFlag{Triggered: true, Ratio: lastVolume / avg}
}

func reading(v float64) domain.Reading {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return domain.Reading{}
	}
	return domain.Some(v)
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// rsiSeries smooths gains and losses with alpha 1/period, both seeded at
// zero for the first point which has no prior close.
func rsiSeries(closes []float64, period int) []float64 {
	if len(closes) == 0 {
		return nil
	}
	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}
	alpha := 1.0 / float64(period)
	avgGain := smooth(gains, alpha)
	avgLoss := smooth(losses, alpha)

	out := make([]float64, len(closes))
	for i := range out {
		out[i] = rsiFromAvg(avgGain[i], avgLoss[i])
	}
	return out
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func macdSeries(values []float64, fast, slow, signal int) ([]float64, []float64) {
	fastEMA := emaSeries(values, fast)
	slowEMA := emaSeries(values, slow)
	macdLine := make([]float64, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := emaSeries(macdLine, signal)
	return macdLine, signalLine
}

func emaSeries(values []float64, period int) []float64 {
	return smooth(values, 2.0/(float64(period)+1.0))
}

func smooth(values []float64, alpha float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
