package indicator

import (
	"math"
	"testing"
	"time"

	"market-pulse/internal/domain"
)

func makeSeries(closes []float64, volumes []float64) domain.Series {
	base := time.Unix(0, 0).UTC()
	out := make(domain.Series, len(closes))
	for i := range closes {
		vol := 100.0
		if volumes != nil {
			vol = volumes[i]
		}
		out[i] = domain.Candle{
			Symbol:   "BTCUSDT",
			Interval: "1h",
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     closes[i],
			High:     closes[i] + 1,
			Low:      closes[i] - 1,
			Close:    closes[i],
			Volume:   vol,
		}
	}
	return out
}

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 5*math.Sin(float64(i)/3) + float64(i%7)*0.3
	}
	return out
}

func TestComputeRequiresMoreThanFiftyCandles(t *testing.T) {
	snap := Compute(makeSeries(wave(50), nil))
	if snap.RSI.Valid || snap.SMA20.Valid || snap.EMA50.Valid || snap.MACD.Valid ||
		snap.MACDSignal.Valid || snap.BBUpper.Valid || snap.BBLower.Valid {
		t.Fatalf("expected all-absent snapshot for 50 candles, got %+v", snap)
	}

	snap = Compute(makeSeries(wave(51), nil))
	if !snap.Complete() {
		t.Fatalf("expected complete snapshot for 51 candles, got %+v", snap)
	}
}

func TestComputeRSIAllGainsIsHundred(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	snap := Compute(makeSeries(closes, nil))
	if !snap.RSI.Valid || snap.RSI.Value != 100 {
		t.Fatalf("expected RSI 100 on linear rise, got %+v", snap.RSI)
	}
}

func TestComputeRSIWithinBounds(t *testing.T) {
	for _, n := range []int{51, 80, 200} {
		snap := Compute(makeSeries(wave(n), nil))
		if snap.RSI.Value < 0 || snap.RSI.Value > 100 {
			t.Fatalf("rsi out of bounds for n=%d: %.4f", n, snap.RSI.Value)
		}
	}
}

func TestRSIMatchesWilderRecurrence(t *testing.T) {
	closes := []float64{10, 11, 10, 12}
	got := rsiSeries(closes, 14)
	alpha := 1.0 / 14
	// gains: 0,1,0,2 losses: 0,0,1,0
	g := 0.0
	l := 0.0
	g = alpha*1 + (1-alpha)*g
	g = (1 - alpha) * g
	l = alpha*1 + (1-alpha)*l
	g = alpha*2 + (1-alpha)*g
	l = (1 - alpha) * l
	want := 100 - 100/(1+g/l)
	if math.Abs(got[3]-want) > 1e-9 {
		t.Fatalf("expected %.9f, got %.9f", want, got[3])
	}
}

func TestEMAOfConstantSeriesIsConstant(t *testing.T) {
	values := make([]float64, 300)
	for i := range values {
		values[i] = 42
	}
	for _, period := range []int{5, 50, 200} {
		if got := last(emaSeries(values, period)); math.Abs(got-42) > 1e-9 {
			t.Fatalf("period %d: expected 42, got %.12f", period, got)
		}
	}
}

func TestBollingerBandsBracketSMA(t *testing.T) {
	for _, n := range []int{51, 120} {
		snap := Compute(makeSeries(wave(n), nil))
		if !(snap.BBUpper.Value >= snap.SMA20.Value && snap.SMA20.Value >= snap.BBLower.Value) {
			t.Fatalf("bands do not bracket sma: %+v", snap)
		}
	}
}

func TestBollingerUsesSampleStd(t *testing.T) {
	closes := wave(60)
	snap := Compute(makeSeries(closes, nil))
	window := closes[len(closes)-20:]
	m := mean(window)
	var ss float64
	for _, v := range window {
		ss += (v - m) * (v - m)
	}
	want := m + 2*math.Sqrt(ss/19)
	if math.Abs(snap.BBUpper.Value-want) > 1e-9 {
		t.Fatalf("expected upper %.9f, got %.9f", want, snap.BBUpper.Value)
	}
}

func TestMACDSignalIsEMAOfMACD(t *testing.T) {
	closes := wave(80)
	macdLine, signalLine := macdSeries(closes, 12, 26, 9)
	want := last(emaSeries(macdLine, 9))
	if math.Abs(last(signalLine)-want) > 1e-12 {
		t.Fatalf("signal mismatch: %.12f vs %.12f", last(signalLine), want)
	}
	fast := emaSeries(closes, 12)
	slow := emaSeries(closes, 26)
	if math.Abs(last(macdLine)-(last(fast)-last(slow))) > 1e-12 {
		t.Fatal("macd line must equal ema12-ema26")
	}
}

func TestDetectVolumeAnomaly(t *testing.T) {
	volumes := make([]float64, 30)
	for i := range volumes {
		volumes[i] = 100
	}
	volumes[len(volumes)-1] = 1000
	series := makeSeries(wave(30), volumes)

	flag := DetectVolumeAnomaly(series, 24, 3)
	if !flag.Triggered {
		t.Fatal("expected anomaly")
	}
	// trailing mean includes the spike: (23*100+1000)/24
	want := 1000 / (3300.0 / 24)
	if math.Abs(flag.Ratio-want) > 1e-9 {
		t.Fatalf("expected ratio %.6f, got %.6f", want, flag.Ratio)
	}
}

func TestDetectVolumeAnomalyQuietSeries(t *testing.T) {
	series := makeSeries(wave(30), nil)
	if flag := DetectVolumeAnomaly(series, 24, 3); flag.Triggered || flag.Ratio != 0 {
		t.Fatalf("expected no anomaly, got %+v", flag)
	}
	if flag := DetectVolumeAnomaly(nil, 24, 3); flag.Triggered {
		t.Fatal("expected no anomaly on empty series")
	}
	zero := makeSeries(wave(5), []float64{0, 0, 0, 0, 0})
	if flag := DetectVolumeAnomaly(zero, 24, 3); flag.Triggered {
		t.Fatal("expected no anomaly on zero volume")
	}
}

func TestEngineUsesConfiguredThresholds(t *testing.T) {
	volumes := make([]float64, 30)
	for i := range volumes {
		volumes[i] = 100
	}
	volumes[29] = 250
	series := makeSeries(wave(30), volumes)

	if flag := NewEngine(Options{}).DetectVolumeAnomaly(series); flag.Triggered {
		t.Fatal("default multiple should not trigger on 2.5x")
	}
	if flag := NewEngine(Options{AnomalyMultiple: 2}).DetectVolumeAnomaly(series); !flag.Triggered {
		t.Fatal("expected trigger with multiple 2")
	}
}

func TestOutlierScore(t *testing.T) {
	if score := OutlierScore(makeSeries(wave(20), nil), OutlierOptions{}); score.Valid {
		t.Fatal("expected absent score on short series")
	}

	volumes := make([]float64, 120)
	for i := range volumes {
		volumes[i] = 100 + float64(i%5)
	}
	volumes[119] = 5000
	score := NewEngine(Options{Outlier: OutlierOptions{NumTrees: 50, SampleSize: 64}}).OutlierScore(makeSeries(wave(120), volumes))
	if !score.Valid || score.Value < 0 || score.Value > 1 {
		t.Fatalf("expected score in [0,1], got %+v", score)
	}
}

func TestBollingerSeriesMatchesSnapshot(t *testing.T) {
	series := make(domain.Series, 60)
	for i := range series {
		series[i] = domain.Candle{Close: 100 + float64(i%7), Volume: 1}
	}
	snap := Compute(series)
	_, upper, lower := BollingerSeries(series.Closes())

	if !math.IsNaN(upper[18]) || math.IsNaN(upper[19]) {
		t.Fatalf("expected bands to start at index 19, got %v %v", upper[18], upper[19])
	}
	if math.Abs(upper[59]-snap.BBUpper.Value) > 1e-9 || math.Abs(lower[59]-snap.BBLower.Value) > 1e-9 {
		t.Fatalf("expected last band to match snapshot, got %v/%v vs %+v", upper[59], lower[59], snap)
	}
	if got := RSISeries(series.Closes()); math.Abs(got[59]-snap.RSI.Value) > 1e-9 {
		t.Fatalf("expected RSI series to match snapshot, got %v vs %v", got[59], snap.RSI.Value)
	}
}
