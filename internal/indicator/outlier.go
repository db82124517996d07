package indicator

import (
	"math"

	goiforest "github.com/narumiruna/go-iforest/pkg/iforest"

	"market-pulse/internal/domain"
)

type OutlierOptions struct {
	NumTrees   int
	SampleSize int
}

func (o OutlierOptions) withDefaults() OutlierOptions {
	if o.NumTrees <= 0 {
		o.NumTrees = 100
	}
	if o.SampleSize <= 0 {
		o.SampleSize = 128
	}
	return o
}

// OutlierScore fits an isolation forest on per-candle (volume ratio, absolute
// return) features and scores the latest candle in [0,1].
func OutlierScore(series domain.Series, opts OutlierOptions) domain.Reading {
	if len(series) <= minCandles {
		return domain.Reading{}
	}
	opts = opts.withDefaults()

	samples := outlierFeatures(series)
	if len(samples) == 0 {
		return domain.Reading{}
	}
	means, stds := fitNormalizer(samples)
	normalized := make([][]float64, len(samples))
	for i := range samples {
		normalized[i] = normalize(samples[i], means, stds)
	}

	sampleSize := opts.SampleSize
	if sampleSize > len(normalized) {
		sampleSize = len(normalized)
	}
	forest := goiforest.NewWithOptions(goiforest.Options{
		DetectionType: goiforest.DetectionTypeThreshold,
		Threshold:     0.6,
		NumTrees:      opts.NumTrees,
		SampleSize:    sampleSize,
	})
	forest.Fit(normalized)

	scores := forest.Score([][]float64{normalized[len(normalized)-1]})
	if len(scores) == 0 {
		return domain.Reading{}
	}
	score := scores[0]
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return domain.Reading{}
	}
	return domain.Some(math.Min(math.Max(score, 0), 1))
}

func outlierFeatures(series domain.Series) [][]float64 {
	volumes := series.Volumes()
	avgVolume := mean(volumes)
	if avgVolume <= 0 || math.IsNaN(avgVolume) {
		return nil
	}
	out := make([][]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Close
		if prev <= 0 {
			continue
		}
		ret := math.Abs(series[i].Close/prev - 1)
		volRatio := math.Log1p(volumes[i] / avgVolume)
		out = append(out, []float64{volRatio, ret})
	}
	return out
}

func fitNormalizer(samples [][]float64) ([]float64, []float64) {
	featureCount := len(samples[0])
	means := make([]float64, featureCount)
	stds := make([]float64, featureCount)
	for j := 0; j < featureCount; j++ {
		for i := range samples {
			means[j] += samples[i][j]
		}
		means[j] /= float64(len(samples))
		for i := range samples {
			d := samples[i][j] - means[j]
			stds[j] += d * d
		}
		stds[j] = math.Sqrt(stds[j] / float64(len(samples)))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}

func normalize(in, means, stds []float64) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		out[i] = (in[i] - means[i]) / stds[i]
	}
	return out
}
