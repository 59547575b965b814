// Package features derives structured, comparable feature records from
// detected-face observations. Extraction is pure: no I/O, no logging, and a
// record is never mutated after it is built.
package features

import (
	"errors"
	"fmt"
	"image"

	"github.com/veriface/veriface/pkg/face"
	"github.com/veriface/veriface/pkg/geometry"
)

// DistancePair names a normalized inter-landmark distance.
type DistancePair string

const (
	EyeToEye       DistancePair = "eye_to_eye"
	NoseToLeftEye  DistancePair = "nose_to_left_eye"
	NoseToRightEye DistancePair = "nose_to_right_eye"
	MouthWidth     DistancePair = "mouth_width"
	NoseToMouth    DistancePair = "nose_to_mouth"
)

// EyeDistanceFallback is the normalization baseline used when the
// eye-to-eye distance is unavailable.
const EyeDistanceFallback = 100.0

// ErrInvalidObservation is returned for observations whose bounding box has
// zero or negative dimensions.
var ErrInvalidObservation = errors.New("invalid observation")

// Record is an immutable snapshot of the measurable attributes of one
// detection. All stored quantities are finite.
type Record struct {
	BoxWidth    float64 `json:"box_width"`
	BoxHeight   float64 `json:"box_height"`
	BoxSize     float64 `json:"box_size"`
	AspectRatio float64 `json:"aspect_ratio"`

	// Landmarks holds box-normalized landmark positions, nominally in
	// [0, 1] but not clamped. Kinds the detector did not report are absent.
	Landmarks map[face.LandmarkKind]geometry.Point `json:"landmarks,omitempty"`

	// Distances holds inter-landmark distances divided by the eye-to-eye
	// distance (EyeDistanceFallback when unavailable). Pairs with a missing
	// endpoint are omitted, not zero-filled.
	Distances map[DistancePair]float64 `json:"distances,omitempty"`

	Pitch *float64 `json:"pitch,omitempty"`
	Yaw   *float64 `json:"yaw,omitempty"`
	Roll  *float64 `json:"roll,omitempty"`

	LeftEyeOpen  *float64 `json:"left_eye_open,omitempty"`
	RightEyeOpen *float64 `json:"right_eye_open,omitempty"`
	Smiling      *float64 `json:"smiling,omitempty"`

	// Appearance holds per-region brightness statistics, present only when
	// an image was supplied at extraction time.
	Appearance map[RegionName]RegionStats `json:"appearance,omitempty"`
}

// distancePairs defines which landmarks form each measured distance.
var distancePairs = []struct {
	pair DistancePair
	a, b face.LandmarkKind
}{
	{EyeToEye, face.LeftEye, face.RightEye},
	{NoseToLeftEye, face.NoseBase, face.LeftEye},
	{NoseToRightEye, face.NoseBase, face.RightEye},
	{MouthWidth, face.MouthLeft, face.MouthRight},
	{NoseToMouth, face.NoseBase, face.MouthLeft},
}

// Extract derives a Record from one detector observation. The image is
// optional: when non-nil, per-region appearance statistics are sampled from
// it; when nil, the appearance block is omitted.
//
// Observations with a degenerate bounding box are rejected with
// ErrInvalidObservation. Non-finite optional inputs are treated as absent so
// the record never carries NaN or infinite values.
func Extract(obs face.DetectedFace, img image.Image) (Record, error) {
	box := obs.Box
	if !box.Valid() || !geometry.IsFinite(box.Width) || !geometry.IsFinite(box.Height) ||
		!geometry.IsFinite(box.Left) || !geometry.IsFinite(box.Top) {
		return Record{}, fmt.Errorf("%w: bounding box %.1fx%.1f", ErrInvalidObservation, box.Width, box.Height)
	}

	rec := Record{
		BoxWidth:    box.Width,
		BoxHeight:   box.Height,
		BoxSize:     box.Size(),
		AspectRatio: box.AspectRatio(),
	}

	if len(obs.Landmarks) > 0 {
		rec.Landmarks = make(map[face.LandmarkKind]geometry.Point, len(obs.Landmarks))
		for kind, p := range obs.Landmarks {
			if !geometry.IsFinite(p.X) || !geometry.IsFinite(p.Y) {
				continue
			}
			rec.Landmarks[kind] = geometry.Point{
				X: (p.X - box.Left) / box.Width,
				Y: (p.Y - box.Top) / box.Height,
			}
		}
		if len(rec.Landmarks) == 0 {
			rec.Landmarks = nil
		}
	}

	rec.Distances = extractDistances(obs, rec.Landmarks)

	rec.Pitch = cloneAngle(obs.Pitch)
	rec.Yaw = cloneAngle(obs.Yaw)
	rec.Roll = cloneAngle(obs.Roll)
	rec.LeftEyeOpen = cloneAngle(obs.LeftEyeOpen)
	rec.RightEyeOpen = cloneAngle(obs.RightEyeOpen)
	rec.Smiling = cloneAngle(obs.Smiling)

	if img != nil {
		rec.Appearance = sampleRegions(img, box)
	}

	return rec, nil
}

// extractDistances measures the raw inter-landmark distances and normalizes
// them by the eye-to-eye baseline. Only landmarks that survived the finite
// check participate.
func extractDistances(obs face.DetectedFace, kept map[face.LandmarkKind]geometry.Point) map[DistancePair]float64 {
	raw := make(map[DistancePair]float64, len(distancePairs))
	for _, dp := range distancePairs {
		if _, ok := kept[dp.a]; !ok {
			continue
		}
		if _, ok := kept[dp.b]; !ok {
			continue
		}
		a := obs.Landmarks[dp.a]
		b := obs.Landmarks[dp.b]
		raw[dp.pair] = a.Distance(b)
	}
	if len(raw) == 0 {
		return nil
	}

	baseline, ok := raw[EyeToEye]
	if !ok || baseline <= 0 {
		baseline = EyeDistanceFallback
	}

	out := make(map[DistancePair]float64, len(raw))
	for pair, d := range raw {
		out[pair] = d / baseline
	}
	return out
}

// cloneAngle copies an optional scalar, dropping non-finite values.
func cloneAngle(p *float64) *float64 {
	if p == nil || !geometry.IsFinite(*p) {
		return nil
	}
	v := *p
	return &v
}
