package scoring

import (
	"errors"
	"fmt"

	"github.com/veriface/veriface/pkg/embedding"
	"github.com/veriface/veriface/pkg/features"
	"github.com/veriface/veriface/pkg/geometry"
)

// ErrDimensionMismatch is returned when embeddings of different lengths are
// compared. Callers are expected to treat the comparison as score 0 and may
// log a warning; it must never crash a verification flow.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// CosineScorer compares embeddings by cosine similarity affine-mapped from
// [-1, 1] to [0, 1].
type CosineScorer struct{}

// Score returns (cos(a, b) + 1) / 2. A zero-magnitude input scores 0 rather
// than NaN. Comparing vectors of different lengths returns 0 and
// ErrDimensionMismatch.
func (CosineScorer) Score(a, b embedding.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	na := geometry.Norm(a)
	nb := geometry.Norm(b)
	if na == 0 || nb == 0 {
		return 0, nil
	}

	cos := geometry.Dot(a, b) / (na * nb)
	cos = geometry.Clamp(cos, -1, 1)
	return (cos + 1) / 2, nil
}

// EmbeddingRecordScorer adapts cosine scoring to feature records by building
// both embeddings under a fixed configuration. Records that cannot be
// flattened score 0.
type EmbeddingRecordScorer struct {
	Config embedding.Config
}

// Score flattens both records and returns their cosine score.
func (s EmbeddingRecordScorer) Score(a, b features.Record) float64 {
	va, err := embedding.Build(a, s.Config)
	if err != nil {
		return 0
	}
	vb, err := embedding.Build(b, s.Config)
	if err != nil {
		return 0
	}
	score, err := CosineScorer{}.Score(va, vb)
	if err != nil {
		return 0
	}
	return score
}
