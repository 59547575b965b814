package features

import (
	"image"
	"math"

	"github.com/veriface/veriface/pkg/face"
)

// RegionName identifies one of the fixed appearance sampling regions.
type RegionName string

const (
	RegionLeftEye  RegionName = "left_eye"
	RegionRightEye RegionName = "right_eye"
	RegionNose     RegionName = "nose"
	RegionMouth    RegionName = "mouth"
)

// AllRegionNames lists the appearance regions in canonical order. Embeddings
// place their appearance slots in exactly this sequence.
var AllRegionNames = []RegionName{
	RegionLeftEye,
	RegionRightEye,
	RegionNose,
	RegionMouth,
}

// RegionStats holds brightness statistics for one sampled region.
// MeanLuma is in [0, 1]; StdDevLuma is its standard deviation.
type RegionStats struct {
	MeanLuma   float64 `json:"mean_luma"`
	StdDevLuma float64 `json:"std_dev_luma"`
}

// regionFraction places a sampling region inside the bounding box as
// fractions of its width and height. Changing these breaks embedding
// compatibility with previously enrolled samples.
type regionFraction struct {
	left, top, right, bottom float64
}

var regionFractions = map[RegionName]regionFraction{
	RegionLeftEye:  {0.15, 0.25, 0.40, 0.40},
	RegionRightEye: {0.60, 0.25, 0.85, 0.40},
	RegionNose:     {0.35, 0.40, 0.65, 0.65},
	RegionMouth:    {0.30, 0.65, 0.70, 0.85},
}

// sampleRegions computes mean and standard deviation of luma for each fixed
// region of the box. Regions that fall entirely outside the image are
// omitted.
func sampleRegions(img image.Image, box face.Box) map[RegionName]RegionStats {
	stats := make(map[RegionName]RegionStats, len(regionFractions))
	for name, fr := range regionFractions {
		if s, ok := sampleRegion(img, box, fr); ok {
			stats[name] = s
		}
	}
	if len(stats) == 0 {
		return nil
	}
	return stats
}

func sampleRegion(img image.Image, box face.Box, fr regionFraction) (RegionStats, bool) {
	x0 := int(box.Left + fr.left*box.Width)
	y0 := int(box.Top + fr.top*box.Height)
	x1 := int(box.Left + fr.right*box.Width)
	y1 := int(box.Top + fr.bottom*box.Height)

	bounds := img.Bounds()
	if x0 < bounds.Min.X {
		x0 = bounds.Min.X
	}
	if y0 < bounds.Min.Y {
		y0 = bounds.Min.Y
	}
	if x1 > bounds.Max.X {
		x1 = bounds.Max.X
	}
	if y1 > bounds.Max.Y {
		y1 = bounds.Max.Y
	}

	var sum, sumSq float64
	count := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			luma := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			sum += luma
			sumSq += luma * luma
			count++
		}
	}
	if count == 0 {
		return RegionStats{}, false
	}

	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return RegionStats{MeanLuma: mean, StdDevLuma: math.Sqrt(variance)}, true
}
