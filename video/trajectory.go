package video

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var colorTrail = color.RGBA{R: 255, G: 255, B: 0, A: 0}

// Trajectory keeps the most recent centroids, oldest first.
type Trajectory struct {
	max    int
	points []image.Point
}

func NewTrajectory(max int) *Trajectory {
	if max < 1 {
		max = 1
	}
	return &Trajectory{
		max:    max,
		points: make([]image.Point, 0, max),
	}
}

// Add appends p, evicting the oldest point once the window is full.
func (t *Trajectory) Add(p image.Point) {
	if len(t.points) == t.max {
		copy(t.points, t.points[1:])
		t.points = t.points[:t.max-1]
	}
	t.points = append(t.points, p)
}

func (t *Trajectory) Len() int {
	return len(t.points)
}

// Points returns a copy of the window.
func (t *Trajectory) Points() []image.Point {
	return append([]image.Point(nil), t.points...)
}

// Draw connects consecutive points on img.
func (t *Trajectory) Draw(img *gocv.Mat) {
	for i := 0; i+1 < len(t.points); i++ {
		gocv.Line(img, t.points[i], t.points[i+1], colorTrail, 1)
	}
}
