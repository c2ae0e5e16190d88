package process

import (
	"image"
)

// Centroid returns the center of mass of the polygon described by contour,
// using the same contour moments OpenCV computes for a point vector. ok is
// false when the polygon has no area (a point, a line, an empty contour).
func Centroid(contour []image.Point) (c image.Point, ok bool) {
	n := len(contour)
	if n < 3 {
		return image.Point{}, false
	}

	var m00, m10, m01 float64
	prev := contour[n-1]
	for _, p := range contour {
		xp, yp := float64(prev.X), float64(prev.Y)
		x, y := float64(p.X), float64(p.Y)
		cross := xp*y - x*yp
		m00 += cross
		m10 += cross * (xp + x)
		m01 += cross * (yp + y)
		prev = p
	}
	if m00 == 0 {
		return image.Point{}, false
	}
	// m00 is twice the signed area; m10 and m01 are six times the signed first
	// moments. Orientation cancels out in the ratio.
	m00 /= 2
	m10 /= 6
	m01 /= 6
	return image.Point{X: int(m10 / m00), Y: int(m01 / m00)}, true
}
