// Package geometry provides the point and vector math primitives used by
// feature extraction and similarity scoring.
package geometry

import "math"

// Point represents a 2D point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns the component-wise difference p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Magnitude returns the distance from the origin.
func (p Point) Magnitude() float64 {
	return math.Hypot(p.X, p.Y)
}

// Clamp limits v to the range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to the unit interval.
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Dot returns the dot product of a and b, computed over the shorter of the
// two lengths.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the Euclidean (L2) norm of a.
func Norm(a []float64) float64 {
	var sum float64
	for _, v := range a {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Normalize returns a copy of a scaled to unit length.
// A zero vector is returned as an unscaled copy.
func Normalize(a []float64) []float64 {
	out := make([]float64, len(a))
	n := Norm(a)
	if n == 0 {
		copy(out, a)
		return out
	}
	for i, v := range a {
		out[i] = v / n
	}
	return out
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
