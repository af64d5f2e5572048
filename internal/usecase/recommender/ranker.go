package recommender

import (
	"sort"

	"github.com/homeswipe/homeswipe/internal/domain"
)

// Recommendation is one scored candidate listing.
type Recommendation struct {
	Listing    domain.Listing
	Score      float64
	Confidence float64
}

// rank scores candidates with the model and returns the top listings by
// score. Candidates whose id is excluded are skipped. Confidence measures
// distance from the 0.5 decision boundary, scaled to [0,1].
func rank(model domain.Scorer, candidates []domain.Listing, exclude map[string]struct{}, limit int) []Recommendation {
	pool := make([]domain.Listing, 0, len(candidates))
	for _, l := range candidates {
		if _, skip := exclude[l.ID]; skip {
			continue
		}
		if _, skip := exclude[l.HomeID]; skip {
			continue
		}
		pool = append(pool, l)
	}
	if len(pool) == 0 {
		return nil
	}

	features := make([][]float64, len(pool))
	for i, l := range pool {
		features[i] = domain.ExtractFeatures(l)
	}

	scores := model.Predict(features)

	recs := make([]Recommendation, len(pool))
	for i, l := range pool {
		recs[i] = Recommendation{
			Listing:    l,
			Score:      scores[i],
			Confidence: confidence(scores[i]),
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

func confidence(score float64) float64 {
	d := score - 0.5
	if d < 0 {
		d = -d
	}
	return d * 2
}

// dedupeListings drops repeated listings, keeping first occurrence order.
func dedupeListings(listings []domain.Listing) []domain.Listing {
	seen := make(map[string]struct{}, len(listings))
	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		out = append(out, l)
	}
	return out
}
