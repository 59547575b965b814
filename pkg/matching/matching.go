// Package matching compares probe observations against the enrolled gallery
// of a single identity and classifies the resulting score. Matching is pure:
// the gallery is read-only for the duration of a call and no state is kept
// between calls.
package matching

import (
	"time"

	"github.com/veriface/veriface/pkg/embedding"
	"github.com/veriface/veriface/pkg/features"
	"github.com/veriface/veriface/pkg/scoring"
)

// Default acceptance thresholds. General matching tolerates more distance
// than a verification decision.
const (
	DefaultMatchThreshold  = 0.60
	DefaultVerifyThreshold = 0.70
)

// ConfidenceLevel buckets a match score for reporting, independent of the
// accept threshold.
type ConfidenceLevel string

const (
	ConfidenceVeryHigh ConfidenceLevel = "very high"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceVeryLow  ConfidenceLevel = "very low"
)

// Classify maps a score onto its confidence band. Bands are closed at the
// lower edge, so exactly 0.85 is still very high.
func Classify(score float64) ConfidenceLevel {
	switch {
	case score >= 0.85:
		return ConfidenceVeryHigh
	case score >= 0.75:
		return ConfidenceHigh
	case score >= 0.65:
		return ConfidenceMedium
	case score >= 0.55:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// EnrolledSample is one gallery entry captured during enrollment.
type EnrolledSample struct {
	Identity   string           `json:"identity"`
	Label      string           `json:"label,omitempty"`
	Record     features.Record  `json:"record"`
	Embedding  embedding.Vector `json:"embedding,omitempty"`
	CapturedAt time.Time        `json:"captured_at"`
}

// Gallery is the ordered sequence of enrolled samples for one identity.
type Gallery []EnrolledSample

// Records returns the feature records of all samples in gallery order.
func (g Gallery) Records() []features.Record {
	recs := make([]features.Record, len(g))
	for i, s := range g {
		recs[i] = s.Record
	}
	return recs
}

// MatchResult reports the outcome of matching one probe against a gallery.
type MatchResult struct {
	Matched         bool            `json:"matched"`
	Score           float64         `json:"score"`
	BestSampleIndex int             `json:"best_sample_index"`
	Confidence      ConfidenceLevel `json:"confidence"`
}

// Matcher runs best-of-N comparisons with a configurable scorer.
type Matcher struct {
	scorer scoring.RecordScorer
}

// NewMatcher creates a Matcher using the given record scorer.
func NewMatcher(scorer scoring.RecordScorer) *Matcher {
	return &Matcher{scorer: scorer}
}

// Match scores probe against every gallery sample, keeps the maximum, and
// classifies it. Ties keep the first-seen index. An empty gallery is not an
// error; it yields score 0, no match, and index -1.
func (m *Matcher) Match(probe features.Record, gallery Gallery, threshold float64) MatchResult {
	if len(gallery) == 0 {
		return MatchResult{
			Matched:         false,
			Score:           0,
			BestSampleIndex: -1,
			Confidence:      Classify(0),
		}
	}

	bestIdx := -1
	bestScore := -1.0
	for i, sample := range gallery {
		if score := m.scorer.Score(probe, sample.Record); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return MatchResult{
		Matched:         bestScore >= threshold,
		Score:           bestScore,
		BestSampleIndex: bestIdx,
		Confidence:      Classify(bestScore),
	}
}

// MatchEmbedding scores an embedding probe against the stored sample
// embeddings with cosine similarity. A sample whose embedding length differs
// from the probe scores 0 for that sample; the comparison never fails.
func (m *Matcher) MatchEmbedding(probe embedding.Vector, gallery Gallery, threshold float64) MatchResult {
	if len(gallery) == 0 {
		return MatchResult{
			Matched:         false,
			Score:           0,
			BestSampleIndex: -1,
			Confidence:      Classify(0),
		}
	}

	cos := scoring.CosineScorer{}
	bestIdx := -1
	bestScore := -1.0
	for i, sample := range gallery {
		score, err := cos.Score(probe, sample.Embedding)
		if err != nil {
			score = 0
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return MatchResult{
		Matched:         bestScore >= threshold,
		Score:           bestScore,
		BestSampleIndex: bestIdx,
		Confidence:      Classify(bestScore),
	}
}
