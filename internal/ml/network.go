// Package ml implements the small feed-forward binary classifier used for
// per-user preference models. The architecture and hyperparameters are fixed:
// input -> 32 ReLU (L2 1e-3) -> dropout 0.2 -> 16 ReLU (L2 1e-3) -> 1 sigmoid,
// binary cross-entropy loss, Adam at lr 1e-3.
package ml

import (
	"errors"
	"math"
	"math/rand"
)

// Config holds training hyperparameters.
type Config struct {
	InputSize       int
	HiddenSizes     []int
	L2              float64
	DropoutRate     float64
	LearningRate    float64
	Epochs          int
	BatchSize       int
	ValidationSplit float64
	Seed            int64
}

// DefaultConfig returns the fixed hyperparameters for preference models.
func DefaultConfig(inputSize int, seed int64) Config {
	return Config{
		InputSize:       inputSize,
		HiddenSizes:     []int{32, 16},
		L2:              0.001,
		DropoutRate:     0.2,
		LearningRate:    0.001,
		Epochs:          100,
		BatchSize:       8,
		ValidationSplit: 0.2,
		Seed:            seed,
	}
}

// History records per-epoch training metrics.
type History struct {
	Loss        []float64
	Accuracy    []float64
	ValLoss     []float64
	ValAccuracy []float64
}

// FinalLoss returns the last epoch's training loss.
func (h History) FinalLoss() float64 {
	if len(h.Loss) == 0 {
		return 0
	}
	return h.Loss[len(h.Loss)-1]
}

// FinalAccuracy returns the last epoch's training accuracy.
func (h History) FinalAccuracy() float64 {
	if len(h.Accuracy) == 0 {
		return 0
	}
	return h.Accuracy[len(h.Accuracy)-1]
}

// layer is one dense layer: weights are [out][in], plus Adam moment buffers.
type layer struct {
	w  [][]float64
	b  []float64
	mW [][]float64
	vW [][]float64
	mB []float64
	vB []float64
	in int
}

// Network is a feed-forward binary classifier.
type Network struct {
	cfg    Config
	layers []*layer
	rng    *rand.Rand
	step   int // Adam timestep
}

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-7
	lossEps   = 1e-7
)

// New builds a network with Glorot-uniform weights and zero biases.
func New(cfg Config) *Network {
	rng := rand.New(rand.NewSource(cfg.Seed))

	sizes := make([]int, 0, len(cfg.HiddenSizes)+2)
	sizes = append(sizes, cfg.InputSize)
	sizes = append(sizes, cfg.HiddenSizes...)
	sizes = append(sizes, 1)

	n := &Network{cfg: cfg, rng: rng}
	for i := 1; i < len(sizes); i++ {
		n.layers = append(n.layers, newLayer(sizes[i-1], sizes[i], rng))
	}
	return n
}

func newLayer(in, out int, rng *rand.Rand) *layer {
	l := &layer{
		w:  make([][]float64, out),
		b:  make([]float64, out),
		mW: make([][]float64, out),
		vW: make([][]float64, out),
		mB: make([]float64, out),
		vB: make([]float64, out),
		in: in,
	}
	limit := math.Sqrt(6.0 / float64(in+out))
	for o := 0; o < out; o++ {
		l.w[o] = make([]float64, in)
		l.mW[o] = make([]float64, in)
		l.vW[o] = make([]float64, in)
		for i := 0; i < in; i++ {
			l.w[o][i] = (rng.Float64()*2 - 1) * limit
		}
	}
	return l
}

// Fit trains the network. The tail ValidationSplit fraction of the examples
// is held out for validation; the rest is shuffled every epoch and processed
// in mini-batches.
func (n *Network) Fit(inputs [][]float64, labels []float64) (History, error) {
	if len(inputs) == 0 || len(inputs) != len(labels) {
		return History{}, errors.New("ml: inputs and labels must be non-empty and equal length")
	}
	for _, x := range inputs {
		if len(x) != n.cfg.InputSize {
			return History{}, errors.New("ml: input width does not match network input size")
		}
	}

	valCount := int(float64(len(inputs)) * n.cfg.ValidationSplit)
	trainCount := len(inputs) - valCount
	if trainCount < 1 {
		trainCount = len(inputs)
		valCount = 0
	}

	trainX, trainY := inputs[:trainCount], labels[:trainCount]
	valX, valY := inputs[trainCount:], labels[trainCount:]

	hist := History{}
	order := make([]int, trainCount)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < n.cfg.Epochs; epoch++ {
		n.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		var epochLoss float64
		var correct int

		for start := 0; start < trainCount; start += n.cfg.BatchSize {
			end := start + n.cfg.BatchSize
			if end > trainCount {
				end = trainCount
			}

			batchLoss, batchCorrect := n.trainBatch(trainX, trainY, order[start:end])
			epochLoss += batchLoss * float64(end-start)
			correct += batchCorrect
		}

		hist.Loss = append(hist.Loss, epochLoss/float64(trainCount))
		hist.Accuracy = append(hist.Accuracy, float64(correct)/float64(trainCount))

		if valCount > 0 {
			vl, va := n.evaluate(valX, valY)
			hist.ValLoss = append(hist.ValLoss, vl)
			hist.ValAccuracy = append(hist.ValAccuracy, va)
		}
	}

	return hist, nil
}

// Predict runs a batched forward pass without dropout.
func (n *Network) Predict(inputs [][]float64) []float64 {
	out := make([]float64, len(inputs))
	for i, x := range inputs {
		acts, _ := n.forward(x, false)
		out[i] = acts[len(acts)-1][0]
	}
	return out
}

// trainBatch accumulates mean gradients over the batch and applies one Adam
// update. Returns mean batch loss and the number of correct predictions.
func (n *Network) trainBatch(x [][]float64, y []float64, idx []int) (float64, int) {
	gradW := make([][][]float64, len(n.layers))
	gradB := make([][]float64, len(n.layers))
	for li, l := range n.layers {
		gradW[li] = make([][]float64, len(l.w))
		gradB[li] = make([]float64, len(l.b))
		for o := range l.w {
			gradW[li][o] = make([]float64, l.in)
		}
	}

	var loss float64
	var correct int

	for _, i := range idx {
		acts, masks := n.forward(x[i], true)
		p := acts[len(acts)-1][0]

		loss += bceLoss(p, y[i])
		if (p >= 0.5) == (y[i] >= 0.5) {
			correct++
		}

		n.backprop(x[i], y[i], acts, masks, gradW, gradB)
	}

	scale := 1.0 / float64(len(idx))
	for li, l := range n.layers {
		withL2 := li < len(n.layers)-1 // output layer carries no regularizer
		for o := range l.w {
			for in := range l.w[o] {
				g := gradW[li][o][in] * scale
				if withL2 {
					g += n.cfg.L2 * l.w[o][in]
				}
				gradW[li][o][in] = g
			}
			gradB[li][o] *= scale
		}
	}

	n.step++
	n.adamUpdate(gradW, gradB)

	return loss * scale, correct
}

// forward runs one sample through the network. acts[li] holds layer li's
// activation; the final entry is the sigmoid output. When training, the
// inverted-dropout mask applied after the first hidden layer is returned so
// backprop can reuse it.
func (n *Network) forward(x []float64, training bool) (acts, masks [][]float64) {
	acts = make([][]float64, len(n.layers))
	masks = make([][]float64, len(n.layers))

	cur := x
	for li, l := range n.layers {
		out := make([]float64, len(l.w))
		last := li == len(n.layers)-1
		for o := range l.w {
			sum := l.b[o]
			for in, w := range l.w[o] {
				sum += w * cur[in]
			}
			if last {
				out[o] = sigmoid(sum)
			} else {
				out[o] = relu(sum)
			}
		}

		// Dropout sits between the two hidden layers.
		if li == 0 && n.cfg.DropoutRate > 0 && training {
			keep := 1 - n.cfg.DropoutRate
			mask := make([]float64, len(out))
			for o := range out {
				if n.rng.Float64() < keep {
					mask[o] = 1 / keep
				}
				out[o] *= mask[o]
			}
			masks[li] = mask
		}

		acts[li] = out
		cur = out
	}
	return acts, masks
}

// backprop accumulates gradients for one sample into gradW/gradB.
func (n *Network) backprop(x []float64, y float64, acts, masks [][]float64, gradW [][][]float64, gradB [][]float64) {
	last := len(n.layers) - 1

	// Sigmoid + BCE collapses to p - y at the output pre-activation.
	delta := []float64{acts[last][0] - y}

	for li := last; li >= 0; li-- {
		l := n.layers[li]

		prev := x
		if li > 0 {
			prev = acts[li-1]
		}

		for o := range l.w {
			gradB[li][o] += delta[o]
			for in := range l.w[o] {
				gradW[li][o][in] += delta[o] * prev[in]
			}
		}

		if li == 0 {
			break
		}

		next := make([]float64, l.in)
		for in := range next {
			var sum float64
			for o := range l.w {
				sum += l.w[o][in] * delta[o]
			}
			if masks[li-1] != nil {
				sum *= masks[li-1][in]
			}
			if acts[li-1][in] <= 0 {
				sum = 0 // ReLU gradient
			}
			next[in] = sum
		}
		delta = next
	}
}

func (n *Network) adamUpdate(gradW [][][]float64, gradB [][]float64) {
	t := float64(n.step)
	c1 := 1 - math.Pow(adamBeta1, t)
	c2 := 1 - math.Pow(adamBeta2, t)
	lr := n.cfg.LearningRate

	for li, l := range n.layers {
		for o := range l.w {
			for in := range l.w[o] {
				g := gradW[li][o][in]
				l.mW[o][in] = adamBeta1*l.mW[o][in] + (1-adamBeta1)*g
				l.vW[o][in] = adamBeta2*l.vW[o][in] + (1-adamBeta2)*g*g
				l.w[o][in] -= lr * (l.mW[o][in] / c1) / (math.Sqrt(l.vW[o][in]/c2) + adamEps)
			}
			g := gradB[li][o]
			l.mB[o] = adamBeta1*l.mB[o] + (1-adamBeta1)*g
			l.vB[o] = adamBeta2*l.vB[o] + (1-adamBeta2)*g*g
			l.b[o] -= lr * (l.mB[o] / c1) / (math.Sqrt(l.vB[o]/c2) + adamEps)
		}
	}
}

func (n *Network) evaluate(x [][]float64, y []float64) (loss, acc float64) {
	if len(x) == 0 {
		return 0, 0
	}
	var correct int
	for i := range x {
		acts, _ := n.forward(x[i], false)
		p := acts[len(acts)-1][0]
		loss += bceLoss(p, y[i])
		if (p >= 0.5) == (y[i] >= 0.5) {
			correct++
		}
	}
	return loss / float64(len(x)), float64(correct) / float64(len(x))
}

func bceLoss(p, y float64) float64 {
	p = clampProb(p)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

func clampProb(p float64) float64 {
	if p < lossEps {
		return lossEps
	}
	if p > 1-lossEps {
		return 1 - lossEps
	}
	return p
}

func relu(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
