package ml

import (
	"math"
	"testing"
)

// separableSet builds a clearly separable training set: positives cluster at
// low values with the first indicator set, negatives at high values with the
// second indicator set.
func separableSet(n int) (inputs [][]float64, labels []float64) {
	for i := 0; i < n; i++ {
		pos := []float64{0.1, 0.4, 0.4, 0.3, 0.8, 0.3, 0.9, 1, 0, 0}
		neg := []float64{0.9, 0.1, 0.1, 0.1, 0.2, 0.05, 0.2, 0, 1, 0}
		// nudge each sample so the set is not degenerate
		jitter := 0.01 * float64(i%4)
		pos[0] += jitter
		neg[0] -= jitter

		inputs = append(inputs, pos, neg)
		labels = append(labels, 1, 0)
	}
	return inputs, labels
}

func TestFit_SeparatesClasses(t *testing.T) {
	inputs, labels := separableSet(10)

	net := New(DefaultConfig(10, 42))
	hist, err := net.Fit(inputs, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hist.Loss) != 100 {
		t.Fatalf("expected 100 epochs of history, got %d", len(hist.Loss))
	}
	if hist.FinalLoss() >= hist.Loss[0] {
		t.Errorf("loss did not decrease: first=%v final=%v", hist.Loss[0], hist.FinalLoss())
	}

	preds := net.Predict(inputs)
	var posSum, negSum float64
	var posN, negN int
	for i, p := range preds {
		if p <= 0 || p >= 1 {
			t.Fatalf("prediction %d out of (0,1): %v", i, p)
		}
		if labels[i] == 1 {
			posSum += p
			posN++
		} else {
			negSum += p
			negN++
		}
	}
	if posSum/float64(posN) <= negSum/float64(negN) {
		t.Errorf("liked examples should score above disliked: pos=%v neg=%v",
			posSum/float64(posN), negSum/float64(negN))
	}
}

func TestFit_DeterministicUnderSeed(t *testing.T) {
	inputs, labels := separableSet(8)

	a := New(DefaultConfig(10, 7))
	b := New(DefaultConfig(10, 7))
	if _, err := a.Fit(inputs, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Fit(inputs, labels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pa := a.Predict(inputs)
	pb := b.Predict(inputs)
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("prediction %d differs across identical seeds: %v vs %v", i, pa[i], pb[i])
		}
	}
}

func TestFit_RejectsBadInput(t *testing.T) {
	net := New(DefaultConfig(10, 1))

	if _, err := net.Fit(nil, nil); err == nil {
		t.Error("expected error for empty training set")
	}
	if _, err := net.Fit([][]float64{{1, 2}}, []float64{1}); err == nil {
		t.Error("expected error for input width mismatch")
	}
	if _, err := net.Fit([][]float64{make([]float64, 10)}, []float64{1, 0}); err == nil {
		t.Error("expected error for length mismatch")
	}
}

func TestFit_TinySetSkipsValidation(t *testing.T) {
	// Four examples: 20% split would hold out zero; history must stay consistent.
	inputs, labels := separableSet(2)

	net := New(DefaultConfig(10, 3))
	hist, err := net.Fit(inputs, labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(hist.FinalLoss()) {
		t.Errorf("final loss is NaN")
	}
	if acc := hist.FinalAccuracy(); acc < 0 || acc > 1 {
		t.Errorf("final accuracy out of range: %v", acc)
	}
}

func TestHistory_EmptyFinals(t *testing.T) {
	var h History
	if h.FinalLoss() != 0 || h.FinalAccuracy() != 0 {
		t.Error("empty history should report zero finals")
	}
}
