package training

import (
	"math"
	"sort"
)

// FitConfig controls gradient descent. Defaults are deliberately
// conservative; with a few hundred samples there is nothing to gain
// from aggressive learning rates.
type FitConfig struct {
	Epochs       int
	LearningRate float64
	L2           float64
}

func DefaultFitConfig() FitConfig {
	return FitConfig{
		Epochs:       300,
		LearningRate: 0.05,
		L2:           0.001,
	}
}

// Fitted is a trained logistic model together with the feature
// standardization recorded from its training set.
type Fitted struct {
	Weights []float64
	Bias    float64
	Means   []float64
	Scales  []float64
}

// Fit trains L2-regularized logistic regression by full-batch
// gradient descent over standardized features. Deterministic: no
// shuffling, fixed initialization at zero.
func Fit(ds *Dataset, cfg FitConfig) *Fitted {
	n := ds.Len()
	d := len(ds.FeatureNames)

	f := &Fitted{
		Weights: make([]float64, d),
		Means:   make([]float64, d),
		Scales:  make([]float64, d),
	}
	if n == 0 || d == 0 {
		for j := range f.Scales {
			f.Scales[j] = 1
		}
		return f
	}

	for j := 0; j < d; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += ds.X[i][j]
		}
		f.Means[j] = sum / float64(n)

		var ss float64
		for i := 0; i < n; i++ {
			diff := ds.X[i][j] - f.Means[j]
			ss += diff * diff
		}
		f.Scales[j] = math.Sqrt(ss / float64(n))
		if f.Scales[j] < 1e-9 {
			f.Scales[j] = 1
		}
	}

	std := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		for j := 0; j < d; j++ {
			row[j] = (ds.X[i][j] - f.Means[j]) / f.Scales[j]
		}
		std[i] = row
	}

	gradW := make([]float64, d)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for j := range gradW {
			gradW[j] = 0
		}
		var gradB float64

		for i := 0; i < n; i++ {
			err := sigmoid(dot(f.Weights, std[i])+f.Bias) - ds.Y[i]
			for j := 0; j < d; j++ {
				gradW[j] += err * std[i][j]
			}
			gradB += err
		}

		for j := 0; j < d; j++ {
			gradW[j] = gradW[j]/float64(n) + cfg.L2*f.Weights[j]
			f.Weights[j] -= cfg.LearningRate * gradW[j]
		}
		f.Bias -= cfg.LearningRate * gradB / float64(n)
	}

	return f
}

// Prob returns the win probability for one raw (unstandardized) row.
func (f *Fitted) Prob(row []float64) float64 {
	var z float64
	for j, w := range f.Weights {
		z += w * (row[j] - f.Means[j]) / f.Scales[j]
	}
	return sigmoid(z + f.Bias)
}

// Accuracy at the 0.5 decision threshold.
func Accuracy(f *Fitted, ds *Dataset) float64 {
	if ds.Len() == 0 {
		return 0
	}

	correct := 0
	for i := 0; i < ds.Len(); i++ {
		pred := 0.0
		if f.Prob(ds.X[i]) >= 0.5 {
			pred = 1.0
		}
		if pred == ds.Y[i] {
			correct++
		}
	}
	return float64(correct) / float64(ds.Len())
}

// AUC computes the area under the ROC curve by the rank statistic.
// Returns 0.5 when either class is absent.
func AUC(f *Fitted, ds *Dataset) float64 {
	type scored struct {
		prob float64
		pos  bool
	}

	var nPos, nNeg int
	items := make([]scored, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		pos := ds.Y[i] > 0.5
		if pos {
			nPos++
		} else {
			nNeg++
		}
		items = append(items, scored{prob: f.Prob(ds.X[i]), pos: pos})
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}

	sort.Slice(items, func(i, j int) bool { return items[i].prob < items[j].prob })

	// Average ranks across probability ties.
	ranks := make([]float64, len(items))
	for i := 0; i < len(items); {
		j := i
		for j < len(items) && items[j].prob == items[i].prob {
			j++
		}
		avg := float64(i+j-1)/2 + 1
		for k := i; k < j; k++ {
			ranks[k] = avg
		}
		i = j
	}

	var posRankSum float64
	for i, it := range items {
		if it.pos {
			posRankSum += ranks[i]
		}
	}

	return (posRankSum - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
