// Package face defines the detected-face observation model shared between
// the external detector and the matching engine. A DetectedFace is produced
// once per detector invocation and is read-only to the engine; every optional
// field may be absent, including all of them at once.
package face

import "github.com/veriface/veriface/pkg/geometry"

// LandmarkKind identifies one of the fixed facial landmark positions a
// detector can report.
type LandmarkKind string

const (
	LeftEye     LandmarkKind = "left_eye"
	RightEye    LandmarkKind = "right_eye"
	NoseBase    LandmarkKind = "nose_base"
	MouthLeft   LandmarkKind = "mouth_left"
	MouthRight  LandmarkKind = "mouth_right"
	MouthBottom LandmarkKind = "mouth_bottom"
	LeftEar     LandmarkKind = "left_ear"
	RightEar    LandmarkKind = "right_ear"
	LeftCheek   LandmarkKind = "left_cheek"
	RightCheek  LandmarkKind = "right_cheek"
)

// AllLandmarkKinds lists every landmark kind in canonical order.
// Embeddings place their landmark slots in exactly this sequence, so the
// order must never change between releases.
var AllLandmarkKinds = []LandmarkKind{
	LeftEye,
	RightEye,
	NoseBase,
	MouthLeft,
	MouthRight,
	MouthBottom,
	LeftEar,
	RightEar,
	LeftCheek,
	RightCheek,
}

// Box is an axis-aligned bounding box in image coordinates.
type Box struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Valid reports whether the box has positive dimensions.
func (b Box) Valid() bool {
	return b.Width > 0 && b.Height > 0
}

// Size returns the box area.
func (b Box) Size() float64 {
	return b.Width * b.Height
}

// AspectRatio returns width divided by height, or 0 for a zero height.
func (b Box) AspectRatio() float64 {
	if b.Height == 0 {
		return 0
	}
	return b.Width / b.Height
}

// Center returns the center point of the box.
func (b Box) Center() geometry.Point {
	return geometry.Point{X: b.Left + b.Width/2, Y: b.Top + b.Height/2}
}

// DetectedFace is one face observation as reported by the external detector.
// Pose angles are in degrees (roughly [-90, 90]) and classification
// probabilities in [0, 1]; a nil pointer means the detector did not report
// the value. Landmark absence is equally legal, down to a box-only detection.
type DetectedFace struct {
	Box Box

	Pitch *float64
	Yaw   *float64
	Roll  *float64

	LeftEyeOpen  *float64
	RightEyeOpen *float64
	Smiling      *float64

	Landmarks map[LandmarkKind]geometry.Point

	// Confidence is the detector's own confidence in the detection,
	// 0 when the detector does not report one.
	Confidence float64
}

// Landmark returns the position reported for kind and whether it is present.
func (f *DetectedFace) Landmark(kind LandmarkKind) (geometry.Point, bool) {
	p, ok := f.Landmarks[kind]
	return p, ok
}

// Float64 returns a pointer to v, for building observations with optional
// fields.
func Float64(v float64) *float64 {
	return &v
}
