package domain

// NumFeatures is the fixed length of a listing feature vector.
const NumFeatures = 10

// FeatureNames lists the vector dimensions in extraction order. The names
// key the feature-importance map reported by the trainer.
var FeatureNames = [NumFeatures]string{
	"price",
	"beds",
	"baths",
	"area",
	"yearBuilt",
	"lotSize",
	"walkScore",
	"SINGLE_FAMILY",
	"CONDO",
	"TOWNHOUSE",
}

// featureRange bounds used for min-max normalization.
type featureRange struct {
	min, max float64
}

var (
	priceRange     = featureRange{50000, 2000000}
	bedsRange      = featureRange{0, 7}
	bathsRange     = featureRange{0, 5}
	areaRange      = featureRange{500, 6000}
	yearBuiltRange = featureRange{1900, 2024}
	lotSizeRange   = featureRange{0, 20000}
)

// ExtractFeatures maps a listing to its fixed-order feature vector. It is
// total: every listing yields a finite vector with all values in [0, 1].
//
// Missing numerics contribute 0 -- unknown is deliberately penalized toward
// the low end, not mean-imputed. walkScore is the one exception: absent
// scores default to a neutral 0.5. An unrecognized home type leaves all
// three type indicators at 0.
func ExtractFeatures(l Listing) []float64 {
	return []float64{
		normalize(l.Price, priceRange),
		normalize(l.Beds, bedsRange),
		normalize(l.Baths, bathsRange),
		normalize(l.Area, areaRange),
		normalize(l.YearBuilt, yearBuiltRange),
		normalize(l.LotSize, lotSizeRange),
		walkScoreFeature(l.WalkScore),
		indicator(l.HomeType == "SINGLE_FAMILY"),
		indicator(l.HomeType == "CONDO"),
		indicator(l.HomeType == "TOWNHOUSE"),
	}
}

// normalize scales v into [0, 1] over the given range, clamping out-of-range
// values. A nil value contributes 0.
func normalize(v *float64, r featureRange) float64 {
	if v == nil {
		return 0
	}
	scaled := (*v - r.min) / (r.max - r.min)
	return clamp01(scaled)
}

func walkScoreFeature(v *float64) float64 {
	if v == nil {
		return 0.5
	}
	return clamp01(*v / 100)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
