package scoring

import (
	"math"
	"testing"

	"github.com/veriface/veriface/pkg/embedding"
	"github.com/veriface/veriface/pkg/face"
	"github.com/veriface/veriface/pkg/features"
	"github.com/veriface/veriface/pkg/geometry"
)

const epsilon = 1e-6

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// completeRecord carries a value for every scoring criterion.
func completeRecord() features.Record {
	return features.Record{
		BoxWidth:     100,
		BoxHeight:    120,
		BoxSize:      12000,
		AspectRatio:  100.0 / 120.0,
		Pitch:        face.Float64(10),
		Yaw:          face.Float64(5),
		Roll:         face.Float64(0),
		LeftEyeOpen:  face.Float64(1.0),
		RightEyeOpen: face.Float64(1.0),
		Smiling:      face.Float64(0.2),
	}
}

func TestHeuristicScore_Symmetric(t *testing.T) {
	a := completeRecord()
	b := completeRecord()
	b.BoxSize = 10000
	b.Pitch = face.Float64(4)
	b.Smiling = face.Float64(0.7)

	sparse := features.Record{BoxSize: 8000, AspectRatio: 1.2}

	pairs := []struct {
		name string
		x, y features.Record
	}{
		{"complete vs complete", a, b},
		{"complete vs sparse", a, sparse},
		{"sparse vs sparse", sparse, features.Record{BoxSize: 400, AspectRatio: 0.9}},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			s := HeuristicScorer{}
			if xy, yx := s.Score(tt.x, tt.y), s.Score(tt.y, tt.x); !almostEqual(xy, yx) {
				t.Errorf("score not symmetric: %f vs %f", xy, yx)
			}
		})
	}
}

func TestHeuristicScore_SelfIsOne(t *testing.T) {
	rec := completeRecord()
	if got := (HeuristicScorer{}).Score(rec, rec); !almostEqual(got, 1.0) {
		t.Errorf("expected self score 1.0 for a complete record, got %f", got)
	}
}

func TestHeuristicScore_HandComputed(t *testing.T) {
	a := completeRecord()
	b := features.Record{
		BoxWidth:     100,
		BoxHeight:    100,
		BoxSize:      10000,
		AspectRatio:  1.0,
		Pitch:        face.Float64(4),
		Yaw:          face.Float64(5),
		Roll:         face.Float64(9),
		LeftEyeOpen:  face.Float64(0.8),
		RightEyeOpen: face.Float64(1.0),
		Smiling:      face.Float64(0.7),
	}

	// size 10000/12000, pitch delta 6, yaw delta 0, roll delta 9,
	// eye deltas 0.2 and 0, smile delta 0.5, aspect delta 1/6.
	expected := (20*(10000.0/12000.0) +
		15*(1-6.0/90.0) +
		15*1.0 +
		10*(1-9.0/90.0) +
		10*(1-0.2) +
		10*1.0 +
		10*(1-0.5) +
		10*(1-1.0/6.0)) / 100

	if got := (HeuristicScorer{}).Score(a, b); !almostEqual(got, expected) {
		t.Errorf("expected %f, got %f", expected, got)
	}
}

func TestHeuristicScore_SkipsWithoutRenormalizing(t *testing.T) {
	// Two identical box-only records: pose and expression criteria are
	// skipped and their weight is simply lost, leaving size and aspect.
	rec := features.Record{BoxSize: 5000, AspectRatio: 0.5}

	if got := (HeuristicScorer{}).Score(rec, rec); !almostEqual(got, 0.30) {
		t.Errorf("expected 0.30 for box-only self comparison, got %f", got)
	}
}

func TestHeuristicScore_LargeAngleDelta(t *testing.T) {
	a := completeRecord()
	b := completeRecord()
	a.Pitch = face.Float64(-90)
	b.Pitch = face.Float64(90)

	// A 180 degree delta clamps the pitch sub-score at zero instead of
	// going negative.
	expected := (20 + 0 + 15 + 10 + 10 + 10 + 10 + 10) / 100.0
	if got := (HeuristicScorer{}).Score(a, b); !almostEqual(got, expected) {
		t.Errorf("expected %f, got %f", expected, got)
	}
}

func geometryObservation() face.DetectedFace {
	return face.DetectedFace{
		Box: face.Box{Left: 0, Top: 0, Width: 100, Height: 120},
		Landmarks: map[face.LandmarkKind]geometry.Point{
			face.LeftEye:    {X: 30, Y: 50},
			face.RightEye:   {X: 70, Y: 50},
			face.NoseBase:   {X: 50, Y: 70},
			face.MouthLeft:  {X: 35, Y: 90},
			face.MouthRight: {X: 65, Y: 90},
		},
	}
}

func TestGeometryScore_IdenticalObservations(t *testing.T) {
	recA, err := features.Extract(geometryObservation(), nil)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	recB, err := features.Extract(geometryObservation(), nil)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if got := (GeometryScorer{}).Score(recA, recB); !almostEqual(got, 1.0) {
		t.Errorf("expected 1.0 for identical observations, got %f", got)
	}
}

func TestGeometryScore_HandComputed(t *testing.T) {
	a := features.Record{
		AspectRatio: 0.8,
		Distances: map[features.DistancePair]float64{
			features.EyeToEye:   1.0,
			features.MouthWidth: 0.75,
		},
		Landmarks: map[face.LandmarkKind]geometry.Point{
			face.LeftEye: {X: 0.30, Y: 0.40},
		},
	}
	b := features.Record{
		AspectRatio: 0.8,
		Distances: map[features.DistancePair]float64{
			features.EyeToEye:   1.0,
			features.MouthWidth: 0.70,
		},
		Landmarks: map[face.LandmarkKind]geometry.Point{
			face.LeftEye: {X: 0.32, Y: 0.44},
		},
	}

	distancePart := 0.5 * ((1.0 + (1 - 0.05*5)) / 2)
	aspectPart := 0.2 * 1.0
	landmarkPart := 0.3 * (1 - math.Sqrt(0.02*0.02+0.04*0.04)*3)
	expected := distancePart + aspectPart + landmarkPart

	if got := (GeometryScorer{}).Score(a, b); !almostEqual(got, expected) {
		t.Errorf("expected %f, got %f", expected, got)
	}
}

func TestGeometryScore_NoSharedGeometry(t *testing.T) {
	// Without shared distances or landmarks only the aspect block scores.
	a := features.Record{AspectRatio: 1.0}
	b := features.Record{AspectRatio: 1.0}

	if got := (GeometryScorer{}).Score(a, b); !almostEqual(got, 0.2) {
		t.Errorf("expected 0.2 from the aspect block alone, got %f", got)
	}
}

func TestForStrategy(t *testing.T) {
	for _, s := range []Strategy{StrategyHeuristic, StrategyGeometry, StrategyCosine} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
		scorer, err := ForStrategy(s, embedding.Config{})
		if err != nil {
			t.Errorf("%s: unexpected error %v", s, err)
		}
		if scorer == nil {
			t.Errorf("%s: nil scorer", s)
		}
	}

	if Strategy("nearest").Valid() {
		t.Error("unknown strategy should not be valid")
	}
	if _, err := ForStrategy("nearest", embedding.Config{}); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
