// Package detector adapts dlib face detection (via go-face) to the engine's
// observation type. Detection is a boundary collaborator: everything past
// this package works on face.DetectedFace values and never sees dlib.
package detector

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	goface "github.com/Kagami/go-face"

	"github.com/veriface/veriface/pkg/face"
	"github.com/veriface/veriface/pkg/geometry"
	"github.com/veriface/veriface/pkg/logging"
)

// ErrNoFaceDetected is returned when no face is found in the image.
var ErrNoFaceDetected = errors.New("no face detected")

// ErrMultipleFaces is returned when multiple faces are detected.
var ErrMultipleFaces = errors.New("multiple faces detected")

// ErrModelNotLoaded is returned when models are not loaded.
var ErrModelNotLoaded = errors.New("detector models not loaded")

// Dlib detects faces using dlib via go-face.
type Dlib struct {
	rec           *goface.Recognizer
	modelDir      string
	loaded        bool
	mu            sync.RWMutex
	minConfidence float64
}

// NewDlib creates a detector; models load separately via LoadModels.
// Detections whose confidence falls below minConfidence are dropped.
func NewDlib(minConfidence float64) *Dlib {
	return &Dlib{minConfidence: minConfidence}
}

// LoadModels loads the dlib model files from the specified directory.
// The directory should contain:
// - shape_predictor_5_face_landmarks.dat
// - dlib_face_recognition_resnet_model_v1.dat
// - mmod_human_face_detector.dat (optional, for CNN detection)
func (d *Dlib) LoadModels(modelDir string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		return nil
	}

	logging.Infof("Loading face detection models from: %s", modelDir)

	rec, err := goface.NewRecognizer(modelDir)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	d.rec = rec
	d.modelDir = modelDir
	d.loaded = true

	logging.Info("Face detection models loaded successfully")
	return nil
}

// IsLoaded returns true if models are loaded.
func (d *Dlib) IsLoaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// Close releases the detector resources.
func (d *Dlib) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rec != nil {
		d.rec.Close()
		d.rec = nil
	}
	d.loaded = false
	return nil
}

// DetectFaces detects all faces in a JPEG image.
func (d *Dlib) DetectFaces(imageData []byte) ([]face.DetectedFace, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.loaded {
		return nil, ErrModelNotLoaded
	}

	faces, err := d.rec.Recognize(imageData)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	var observations []face.DetectedFace
	for _, f := range faces {
		obs := convert(f)
		if obs.Confidence < d.minConfidence {
			continue
		}
		observations = append(observations, obs)
	}

	if len(observations) == 0 {
		return nil, ErrNoFaceDetected
	}

	logging.Debugf("Detected %d face(s) in image", len(observations))
	return observations, nil
}

// DetectSingleFace detects exactly one face in the image.
// Returns an error if no face or multiple faces are detected.
func (d *Dlib) DetectSingleFace(imageData []byte) (face.DetectedFace, error) {
	observations, err := d.DetectFaces(imageData)
	if err != nil {
		return face.DetectedFace{}, err
	}

	if len(observations) > 1 {
		return face.DetectedFace{}, ErrMultipleFaces
	}

	return observations[0], nil
}

// convert maps a dlib detection onto the engine's observation type. The
// 5-point shape predictor yields two corner points per eye and one nose
// point; eye centers are the corner midpoints, assigned left/right by image
// position.
func convert(f goface.Face) face.DetectedFace {
	obs := face.DetectedFace{
		Box: face.Box{
			Left:   float64(f.Rectangle.Min.X),
			Top:    float64(f.Rectangle.Min.Y),
			Width:  float64(f.Rectangle.Dx()),
			Height: float64(f.Rectangle.Dy()),
		},
		// go-face doesn't provide confidence, assume high
		Confidence: 1.0,
	}

	if len(f.Shapes) != 5 {
		return obs
	}

	eyeA := midpoint(f.Shapes[0], f.Shapes[1])
	eyeB := midpoint(f.Shapes[2], f.Shapes[3])
	left, right := eyeA, eyeB
	if right.X < left.X {
		left, right = right, left
	}

	obs.Landmarks = map[face.LandmarkKind]geometry.Point{
		face.LeftEye:  left,
		face.RightEye: right,
		face.NoseBase: {
			X: float64(f.Shapes[4].X),
			Y: float64(f.Shapes[4].Y),
		},
	}

	// The eye-line tilt approximates head roll.
	roll := math.Atan2(right.Y-left.Y, right.X-left.X) * 180 / math.Pi
	obs.Roll = &roll

	return obs
}

func midpoint(a, b image.Point) geometry.Point {
	return geometry.Point{
		X: (float64(a.X) + float64(b.X)) / 2,
		Y: (float64(a.Y) + float64(b.Y)) / 2,
	}
}
