package process

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// BoundaryRatio is the fraction of the ROI radius a contour must stay inside.
// Contours reaching it are treated as artifacts of the ROI edge or of objects
// leaving the frame.
const BoundaryRatio = 0.99

var colorROI = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// ROI is a circular region of interest in absolute pixel coordinates.
type ROI struct {
	Center image.Point
	Radius int
}

// NewROI scales a normalized center and radius to a frame of the given size.
// The radius is relative to the frame width.
func NewROI(x, y, radius float64, size image.Point) ROI {
	return ROI{
		Center: image.Point{X: int(x * float64(size.X)), Y: int(y * float64(size.Y))},
		Radius: int(radius * float64(size.X)),
	}
}

// Contains reports whether every point lies strictly inside BoundaryRatio of
// the radius. An empty contour is never contained.
func (r ROI) Contains(points []image.Point) bool {
	if r.Radius <= 0 || len(points) == 0 {
		return false
	}
	for _, p := range points {
		dx := float64(p.X - r.Center.X)
		dy := float64(p.Y - r.Center.Y)
		if math.Hypot(dx, dy)/float64(r.Radius) >= BoundaryRatio {
			return false
		}
	}
	return true
}

// Mask returns a single channel image of the given size, 255 inside the
// circle and 0 elsewhere. The caller owns the Mat.
func (r ROI) Mask(size image.Point) gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8U)
	gocv.Circle(&m, r.Center, r.Radius, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	return m
}

// Draw outlines the ROI on img.
func (r ROI) Draw(img *gocv.Mat) {
	gocv.Circle(img, r.Center, r.Radius, colorROI, 2)
}
