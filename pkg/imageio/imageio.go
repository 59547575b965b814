// Package imageio loads probe images for the detector and the appearance
// sampler. JPEG and PNG come through the registered decoders; WebP is
// handled by an explicit fallback.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Load loads an image from a file path with WebP support.
func Load(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if img, err := webp.Decode(f); err == nil {
		return img, nil
	}
	if _, err := f.Seek(0, 0); err == nil {
		if img, _, err := image.Decode(f); err == nil {
			return img, nil
		}
	}

	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// EncodeJPEG re-encodes an image as JPEG bytes. The dlib detector only
// accepts JPEG input, so non-JPEG probes pass through here.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// IsJPEGPath reports whether the path names a JPEG file by extension.
func IsJPEGPath(path string) bool {
	low := strings.ToLower(path)
	return strings.HasSuffix(low, ".jpg") || strings.HasSuffix(low, ".jpeg")
}

// Downscale bounds an image's largest dimension to maxDim, preserving the
// aspect ratio. Images already within the bound are returned unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	if w >= h {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}
