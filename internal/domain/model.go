package domain

import "time"

// Scorer is the trained-classifier handle stored in the model cache: a
// batched forward pass producing one score per feature vector.
type Scorer interface {
	Predict(inputs [][]float64) []float64
}

// ModelEntry is the per-user model slot. Replaced wholesale on retraining;
// never expires while the process lives.
type ModelEntry struct {
	Model             Scorer
	TrainedAt         time.Time
	Accuracy          float64
	Loss              float64
	InputShape        int
	LastSwipeCount    int
	TrainingExamples  int
	FeatureImportance map[string]float64
}
