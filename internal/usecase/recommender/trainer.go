package recommender

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/homeswipe/homeswipe/internal/domain"
	"github.com/homeswipe/homeswipe/internal/logger"
	"github.com/homeswipe/homeswipe/internal/metrics"
	"github.com/homeswipe/homeswipe/internal/ml"
)

// trainingWindow caps how much of the ledger one training run reads.
const trainingWindow = 500

// Trainer builds a per-user preference model from the swipe ledger.
type Trainer struct {
	listings  ListingRepository
	swipes    SwipeRepository
	minSwipes int
	seed      func() int64
}

// NewTrainer creates a trainer. minSwipes is the cold-start threshold.
func NewTrainer(listings ListingRepository, swipes SwipeRepository, minSwipes int) *Trainer {
	return &Trainer{
		listings:  listings,
		swipes:    swipes,
		minSwipes: minSwipes,
		seed:      func() int64 { return time.Now().UnixNano() },
	}
}

// Train fits a fresh model on the user's swipe history. Swipes whose listing
// cannot be resolved are dropped from the training set; if either the raw
// swipe count or the surviving example count is below the threshold, an
// insufficient-data error carries both numbers.
func (t *Trainer) Train(ctx context.Context, userID string) (*domain.ModelEntry, error) {
	start := time.Now()
	entry, err := t.train(ctx, userID)
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.TrainingRunsTotal.WithLabelValues("trained").Inc()
	case errors.Is(err, domain.ErrInsufficientData):
		metrics.TrainingRunsTotal.WithLabelValues("insufficient_data").Inc()
	default:
		metrics.TrainingRunsTotal.WithLabelValues("error").Inc()
	}
	return entry, err
}

func (t *Trainer) train(ctx context.Context, userID string) (*domain.ModelEntry, error) {
	swipes, err := t.swipes.ByUser(ctx, userID, trainingWindow)
	if err != nil {
		return nil, fmt.Errorf("load swipes: %w", err)
	}
	if len(swipes) < t.minSwipes {
		return nil, domain.NewInsufficientData(len(swipes))
	}

	ids := make([]string, 0, len(swipes))
	for _, s := range swipes {
		ids = append(ids, s.HomeID)
	}

	listings, err := t.listings.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve swiped listings: %w", err)
	}
	byID := indexListings(listings)

	features := make([][]float64, 0, len(swipes))
	labels := make([]float64, 0, len(swipes))
	for _, s := range swipes {
		l, ok := byID[s.HomeID]
		if !ok {
			continue
		}
		features = append(features, domain.ExtractFeatures(l))
		labels = append(labels, s.Label())
	}

	if len(features) < t.minSwipes {
		return nil, domain.NewInsufficientValidData(len(swipes), len(features))
	}

	net := ml.New(ml.DefaultConfig(domain.NumFeatures, t.seed()))
	hist, err := net.Fit(features, labels)
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	logger.FromContext(ctx).Info("trained preference model",
		zap.String("user_id", userID),
		zap.Int("swipes", len(swipes)),
		zap.Int("examples", len(features)),
		zap.Float64("loss", hist.FinalLoss()),
		zap.Float64("accuracy", hist.FinalAccuracy()),
	)

	return &domain.ModelEntry{
		Model:             net,
		TrainedAt:         time.Now().UTC(),
		Accuracy:          hist.FinalAccuracy(),
		Loss:              hist.FinalLoss(),
		InputShape:        domain.NumFeatures,
		LastSwipeCount:    len(swipes),
		TrainingExamples:  len(features),
		FeatureImportance: featureImportance(net, features),
	}, nil
}

// featureImportance estimates leave-one-out importance: each feature column
// is zeroed in turn and the mean absolute shift in prediction is recorded,
// then the scores are normalized to sum to 1.
func featureImportance(model domain.Scorer, features [][]float64) map[string]float64 {
	base := model.Predict(features)

	raw := make([]float64, domain.NumFeatures)
	for col := 0; col < domain.NumFeatures; col++ {
		ablated := make([][]float64, len(features))
		for i, row := range features {
			cp := make([]float64, len(row))
			copy(cp, row)
			cp[col] = 0
			ablated[i] = cp
		}

		preds := model.Predict(ablated)
		var shift float64
		for i := range preds {
			d := preds[i] - base[i]
			if d < 0 {
				d = -d
			}
			shift += d
		}
		raw[col] = shift / float64(len(features))
	}

	var total float64
	for _, v := range raw {
		total += v
	}

	out := make(map[string]float64, domain.NumFeatures)
	for i, name := range domain.FeatureNames {
		if total > 0 {
			out[name] = raw[i] / total
		} else {
			out[name] = 0
		}
	}
	return out
}

// indexListings keys listings by both identities so swipes can resolve
// against either one.
func indexListings(listings []domain.Listing) map[string]domain.Listing {
	byID := make(map[string]domain.Listing, len(listings)*2)
	for _, l := range listings {
		if l.ID != "" {
			byID[l.ID] = l
		}
		if l.HomeID != "" {
			if _, ok := byID[l.HomeID]; !ok {
				byID[l.HomeID] = l
			}
		}
	}
	return byID
}
