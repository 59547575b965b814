package scoring

import (
	"math"

	"github.com/veriface/veriface/pkg/features"
)

// Criterion weights of the heuristic strategy. They sum to 100. A criterion
// is skipped entirely when either record lacks the needed optional field,
// and the weights are NOT renormalized on skips, so records with sparse
// optional data cannot reach a full score.
const (
	weightBoxSize      = 20.0
	weightPitch        = 15.0
	weightYaw          = 15.0
	weightRoll         = 10.0
	weightLeftEyeOpen  = 10.0
	weightRightEyeOpen = 10.0
	weightSmiling      = 10.0
	weightAspect       = 10.0
)

// HeuristicScorer compares records by a weighted sum of independently
// normalized sub-scores over box size, pose angles, expression
// probabilities, and aspect ratio.
type HeuristicScorer struct{}

// Score returns the weighted similarity of a and b in [0, 1].
// Symmetric: Score(a, b) == Score(b, a).
func (HeuristicScorer) Score(a, b features.Record) float64 {
	var total float64

	if a.BoxSize > 0 && b.BoxSize > 0 {
		total += weightBoxSize * (math.Min(a.BoxSize, b.BoxSize) / math.Max(a.BoxSize, b.BoxSize))
	}

	total += angleCloseness(a.Pitch, b.Pitch, weightPitch)
	total += angleCloseness(a.Yaw, b.Yaw, weightYaw)
	total += angleCloseness(a.Roll, b.Roll, weightRoll)

	total += probabilityCloseness(a.LeftEyeOpen, b.LeftEyeOpen, weightLeftEyeOpen)
	total += probabilityCloseness(a.RightEyeOpen, b.RightEyeOpen, weightRightEyeOpen)
	total += probabilityCloseness(a.Smiling, b.Smiling, weightSmiling)

	total += weightAspect * math.Max(0, 1-math.Abs(a.AspectRatio-b.AspectRatio))

	return total / 100
}

// angleCloseness maps an angle difference over the [-90, 90] range onto a
// weighted sub-score, skipping absent angles.
func angleCloseness(a, b *float64, weight float64) float64 {
	if a == nil || b == nil {
		return 0
	}
	return weight * math.Max(0, 1-math.Abs(*a-*b)/90)
}

// probabilityCloseness scores two probabilities by their absolute
// difference, skipping absent ones.
func probabilityCloseness(a, b *float64, weight float64) float64 {
	if a == nil || b == nil {
		return 0
	}
	return weight * (1 - math.Abs(*a-*b))
}

// Relative weights of the geometry-only variant.
const (
	geoWeightDistances = 0.50
	geoWeightAspect    = 0.20
	geoWeightLandmarks = 0.30
)

// GeometryScorer compares records by landmark geometry alone: normalized
// inter-landmark distances, aspect ratio, and landmark positions. Pose and
// expression play no part, which makes it the right variant for scoring a
// probe against stored enrollment records.
type GeometryScorer struct{}

// Score returns the geometric similarity of a and b in [0, 1].
func (GeometryScorer) Score(a, b features.Record) float64 {
	var total float64

	if sim, ok := distanceSimilarity(a, b); ok {
		total += geoWeightDistances * sim
	}

	total += geoWeightAspect * math.Max(0, 1-math.Abs(a.AspectRatio-b.AspectRatio)*2)

	if sim, ok := landmarkSimilarity(a, b); ok {
		total += geoWeightLandmarks * sim
	}

	return total
}

// distanceSimilarity averages per-pair closeness over the distance pairs
// present in both records. Reports false when no pair is shared.
func distanceSimilarity(a, b features.Record) (float64, bool) {
	var sum float64
	n := 0
	for pair, da := range a.Distances {
		db, ok := b.Distances[pair]
		if !ok {
			continue
		}
		sum += math.Max(0, 1-math.Abs(da-db)*5)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// landmarkSimilarity averages positional closeness over the landmark kinds
// present in both records. Reports false when no kind is shared.
func landmarkSimilarity(a, b features.Record) (float64, bool) {
	var sum float64
	n := 0
	for kind, pa := range a.Landmarks {
		pb, ok := b.Landmarks[kind]
		if !ok {
			continue
		}
		sum += math.Max(0, 1-pa.Distance(pb)*3)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
