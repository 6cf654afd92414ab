// Package tracer converts binarized raster line art into an SVG of
// stroked vector paths.
package tracer

import (
	"bytes"
	"errors"
	"image"

	_ "image/jpeg"
	_ "image/png"
)

// Options tunes the vectorization pipeline.
type Options struct {
	// LineThreshold is the max deviation, in pixels, tolerated when
	// collapsing boundary points into a straight segment.
	LineThreshold float64
	// CurveThreshold is the same tolerance for quadratic segments.
	CurveThreshold float64
	// NoiseFloor drops contours with fewer boundary points than this.
	NoiseFloor int
	// StrokeWidth is the emitted stroke width in SVG units.
	StrokeWidth float64
}

// DefaultOptions matches the tuning used for architectural line art:
// tight fitting tolerances, two-color sampling, small speckles dropped.
func DefaultOptions() Options {
	return Options{
		LineThreshold:  0.1,
		CurveThreshold: 0.1,
		NoiseFloor:     8,
		StrokeWidth:    1,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.LineThreshold <= 0 {
		o.LineThreshold = d.LineThreshold
	}
	if o.CurveThreshold <= 0 {
		o.CurveThreshold = d.CurveThreshold
	}
	if o.NoiseFloor <= 0 {
		o.NoiseFloor = d.NoiseFloor
	}
	if o.StrokeWidth <= 0 {
		o.StrokeWidth = d.StrokeWidth
	}
	return o
}

// Decode parses PNG or JPEG bytes.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// Trace vectorizes the image: threshold to two colors, walk region
// boundaries, fit lines and quadratics, emit SVG. The same image and
// options always produce byte-identical output.
func Trace(img image.Image, opts Options) (string, error) {
	if img == nil {
		return "", errors.New("tracer: nil image")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return "", errors.New("tracer: empty image")
	}
	opts = opts.normalized()

	bmp := rasterize(img)
	var (
		fitted [][]pathSegment
		starts []point
	)
	for _, contour := range findContours(bmp) {
		if len(contour) < opts.NoiseFloor {
			continue
		}
		fitted = append(fitted, fitContour(contour, opts.LineThreshold, opts.CurveThreshold))
		starts = append(starts, contour[0])
	}
	return renderSVG(bmp.w, bmp.h, fitted, starts, opts.StrokeWidth), nil
}
