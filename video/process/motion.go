package process

import (
	"image"
	"image/color"
	"sort"

	"gocv.io/x/gocv"
)

var colorContour = color.RGBA{R: 255, G: 0, B: 0, A: 0}

type DetectorOptions struct {
	// Minimum per-pixel difference from the background to count as motion.
	Threshold float32
	// Gaussian kernel size, odd.
	BlurSize int
	// Number of 3x3 dilation passes used to merge fragments of one object.
	Dilations int
	// Outline the ROI on every analyzed frame.
	DrawROI bool
}

func DefaultDetectorOptions() DetectorOptions {
	return DetectorOptions{
		Threshold: 20,
		BlurSize:  11,
		Dilations: 10,
		DrawROI:   true,
	}
}

// Detector finds the largest moving object inside the ROI by differencing
// against a fixed background. All state is read-only after construction, so
// Detect may be called from many goroutines at once.
type Detector struct {
	opts DetectorOptions
	roi  ROI

	background gocv.Mat
	mask       gocv.Mat
	kernel     gocv.Mat
}

// NewDetector builds a detector from a color background frame. The frame is
// not retained.
func NewDetector(frame gocv.Mat, roi ROI, opts DetectorOptions) *Detector {
	d := &Detector{
		opts:       opts,
		roi:        roi,
		background: gocv.NewMat(),
		kernel:     gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3}),
	}
	d.prepare(frame, &d.background)
	d.mask = roi.Mask(image.Point{X: frame.Cols(), Y: frame.Rows()})
	return d
}

func (d *Detector) ROI() ROI {
	return d.roi
}

// prepare converts to blurred grayscale.
func (d *Detector) prepare(src gocv.Mat, dst *gocv.Mat) {
	gocv.CvtColor(src, dst, gocv.ColorBGRToGray)
	k := image.Point{X: d.opts.BlurSize, Y: d.opts.BlurSize}
	gocv.GaussianBlur(*dst, dst, k, 0, 0, gocv.BorderDefault)
}

// Detect analyzes frame, annotates it in place, and returns the outline of
// the accepted contour, or nil if nothing qualified.
func (d *Detector) Detect(frame *gocv.Mat) []image.Point {
	diff := gocv.NewMat()
	defer diff.Close()

	d.prepare(*frame, &diff)
	gocv.AbsDiff(diff, d.background, &diff)
	gocv.Threshold(diff, &diff, d.opts.Threshold, 255, gocv.ThresholdBinary)
	for i := 0; i < d.opts.Dilations; i++ {
		gocv.Dilate(diff, &diff, d.kernel)
	}
	gocv.BitwiseAnd(diff, d.mask, &diff)

	contours := gocv.FindContours(diff, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	idx := make([]int, contours.Size())
	areas := make([]float64, contours.Size())
	for i := range idx {
		idx[i] = i
		areas[i] = gocv.ContourArea(contours.At(i))
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return areas[idx[a]] > areas[idx[b]]
	})

	var accepted []image.Point
	for _, i := range idx {
		points := contours.At(i).ToPoints()
		if d.roi.Contains(points) {
			gocv.DrawContours(frame, contours, i, colorContour, 2)
			accepted = points
			break
		}
	}

	if d.opts.DrawROI {
		d.roi.Draw(frame)
	}
	return accepted
}

func (d *Detector) Close() {
	d.background.Close()
	d.mask.Close()
	d.kernel.Close()
}
