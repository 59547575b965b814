// Package embedding flattens feature records into fixed-order numeric
// vectors for distance-based comparison. For a given Config the layout and
// length are stable across every embedding ever produced:
//
//	slots  0-19  normalized landmark positions, two scalars (x, y) per kind
//	              in face.AllLandmarkKinds order, 0.0 per missing kind
//	slots 20-22  box-relative distances: eye distance / box width,
//	              nose-to-left-eye / box height, mouth width / box width,
//	              0.0 when an endpoint is missing
//	slot  23     aspect ratio
//	slots 24-31  appearance block (mean, stddev per region in
//	              features.AllRegionNames order), only when IncludeAppearance
//	last 3       expression scalars: smiling, left-eye-open, right-eye-open,
//	              0.5 each when absent
//
// Missing source features never shorten the vector; they contribute the
// documented sentinel instead.
package embedding

import (
	"errors"
	"fmt"
	"math"

	"github.com/veriface/veriface/pkg/face"
	"github.com/veriface/veriface/pkg/features"
	"github.com/veriface/veriface/pkg/geometry"
)

// Sentinel values substituted for missing optional features.
const (
	MissingPosition    = 0.0
	MissingDistance    = 0.0
	MissingAppearance  = 0.0
	MissingProbability = 0.5
)

// ErrMalformedRecord is returned when a record carries non-finite values.
var ErrMalformedRecord = errors.New("malformed feature record")

// Vector is a fixed-order numeric face representation.
type Vector []float64

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Config controls which feature blocks are flattened. Embeddings built under
// different configurations have different lengths and must not be compared.
type Config struct {
	IncludeAppearance bool `yaml:"include_appearance"`
}

// Length returns the embedding length produced under this configuration:
// 27 without the appearance block, 35 with it.
func (c Config) Length() int {
	n := len(face.AllLandmarkKinds)*2 + 3 + 1 + 3
	if c.IncludeAppearance {
		n += 2 * len(features.AllRegionNames)
	}
	return n
}

// Build flattens rec into a Vector of exactly cfg.Length() values.
// Missing optional features become sentinels; the only failure mode is a
// record carrying non-finite values, reported as ErrMalformedRecord.
func Build(rec features.Record, cfg Config) (Vector, error) {
	vec := make(Vector, 0, cfg.Length())

	for _, kind := range face.AllLandmarkKinds {
		if p, ok := rec.Landmarks[kind]; ok {
			vec = append(vec, p.X, p.Y)
		} else {
			vec = append(vec, MissingPosition, MissingPosition)
		}
	}

	vec = append(vec,
		boxDistance(rec, face.LeftEye, face.RightEye, rec.BoxWidth),
		boxDistance(rec, face.NoseBase, face.LeftEye, rec.BoxHeight),
		boxDistance(rec, face.MouthLeft, face.MouthRight, rec.BoxWidth),
	)

	vec = append(vec, rec.AspectRatio)

	if cfg.IncludeAppearance {
		for _, name := range features.AllRegionNames {
			if stats, ok := rec.Appearance[name]; ok {
				vec = append(vec, stats.MeanLuma, stats.StdDevLuma)
			} else {
				vec = append(vec, MissingAppearance, MissingAppearance)
			}
		}
	}

	vec = append(vec,
		probability(rec.Smiling),
		probability(rec.LeftEyeOpen),
		probability(rec.RightEyeOpen),
	)

	for i, v := range vec {
		if !geometry.IsFinite(v) {
			return nil, fmt.Errorf("%w: non-finite value at slot %d", ErrMalformedRecord, i)
		}
	}
	return vec, nil
}

// boxDistance reconstructs the pixel distance between two landmarks from
// their normalized positions and divides it by the given box dimension.
// Returns the missing-distance sentinel when either landmark is absent.
func boxDistance(rec features.Record, a, b face.LandmarkKind, dim float64) float64 {
	pa, aok := rec.Landmarks[a]
	pb, bok := rec.Landmarks[b]
	if !aok || !bok {
		return MissingDistance
	}
	dx := (pa.X - pb.X) * rec.BoxWidth
	dy := (pa.Y - pb.Y) * rec.BoxHeight
	return math.Hypot(dx, dy) / dim
}

func probability(p *float64) float64 {
	if p == nil {
		return MissingProbability
	}
	return *p
}
