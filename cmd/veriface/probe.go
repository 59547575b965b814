package main

import (
	"fmt"

	"github.com/veriface/veriface"
	"github.com/veriface/veriface/pkg/detector"
	"github.com/veriface/veriface/pkg/features"
	"github.com/veriface/veriface/pkg/imageio"
)

const (
	// maxDetectDim bounds the longer image side before detection. dlib's
	// HOG detector gets slow past this without finding more faces.
	maxDetectDim = 1280
	jpegQuality  = 90
)

// newDetector loads the dlib models from the configured directory.
func newDetector() (*detector.Dlib, error) {
	det := detector.NewDlib(cfg.Detector.MinConfidence)
	if err := det.LoadModels(cfg.Detector.ModelDir); err != nil {
		return nil, fmt.Errorf("failed to load detector models from %s: %w", cfg.Detector.ModelDir, err)
	}
	return det, nil
}

// extractRecord runs the full image pipeline for one file: load, downscale,
// detect the single face, and extract its feature record. Detection and
// extraction see the same image so box coordinates stay consistent.
func extractRecord(engine *veriface.Engine, det *detector.Dlib, path string) (features.Record, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return features.Record{}, err
	}
	img = imageio.Downscale(img, maxDetectDim)

	data, err := imageio.EncodeJPEG(img, jpegQuality)
	if err != nil {
		return features.Record{}, err
	}

	obs, err := det.DetectSingleFace(data)
	if err != nil {
		return features.Record{}, err
	}

	return engine.ExtractFeatures(obs, img)
}
