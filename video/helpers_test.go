package video

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"tracker/config"
	"tracker/video/sink"
	"tracker/video/source"
)

// recordSink remembers the order of written frames and keeps a copy of the
// last one.
type recordSink struct {
	mu      sync.Mutex
	indices []int
	closes  int
	last    gocv.Mat
}

func newRecordSink() *recordSink {
	return &recordSink{last: gocv.NewMat()}
}

func (r *recordSink) Put(input source.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closes > 0 {
		return errors.New("write after close")
	}
	r.indices = append(r.indices, input.Index)
	input.Mat.CopyTo(&r.last)
	return nil
}

func (r *recordSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	return nil
}

func (r *recordSink) Indices() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.indices...)
}

func (r *recordSink) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}

type previewRecorder struct {
	mu      sync.Mutex
	seconds []int
}

func (p *previewRecorder) Put(second int, frame gocv.Mat) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seconds = append(p.seconds, second)
}

// squareDecoder yields a black clip with a white square moving right by step
// pixels per frame. Frame 0 is empty so it serves as the background.
type squareDecoder struct {
	size   image.Point
	frames int
	fps    float64
	side   int
	step   int
	y      int

	mu     sync.Mutex
	pos    int
	closed bool
}

func (d *squareDecoder) squareAt(frame int) image.Rectangle {
	x := 20 + d.step*frame
	return image.Rect(x, d.y, x+d.side, d.y+d.side)
}

func (d *squareDecoder) Read(m *gocv.Mat) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pos >= d.frames {
		return false
	}
	f := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), d.size.Y, d.size.X, gocv.MatTypeCV8UC3)
	defer f.Close()
	if d.pos > 0 {
		gocv.Rectangle(&f, d.squareAt(d.pos), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	}
	f.CopyTo(m)
	d.pos++
	return true
}

func (d *squareDecoder) Seek(frame int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = frame
	return nil
}

func (d *squareDecoder) FPS() float64      { return d.fps }
func (d *squareDecoder) Size() image.Point { return d.size }

func (d *squareDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func newSquareDecoder(frames int) *squareDecoder {
	return &squareDecoder{
		size:   image.Pt(160, 120),
		frames: frames,
		fps:    10,
		side:   8,
		step:   8,
		y:      56,
	}
}

func testOpener(dec source.Decoder, out sink.Sink) Opener {
	return Opener{
		Input: func(string) (source.Decoder, error) {
			return dec, nil
		},
		Output: func(*config.Config, float64, image.Point) (sink.Sink, error) {
			return out, nil
		},
	}
}

// wholeFrameConfig covers every pixel of a 160x120 frame with the ROI.
func wholeFrameConfig() config.Config {
	c := config.Default()
	c.Input = "synthetic"
	c.Output = "recorded"
	c.Width, c.Height = 0, 0
	c.StartSec = 0
	c.EndSec = 0.9
	c.ROI = config.ROI{X: 0.5, Y: 0.5, Radius: 0.625}
	c.DrawROI = false
	c.Workers = 2
	return c
}

func testImage(index int) source.Image {
	return source.Image{
		Mat:   gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 60, 80, gocv.MatTypeCV8UC3),
		Index: index,
	}
}

// square returns a closed contour of a square centered at c.
func square(c image.Point, half int) []image.Point {
	return []image.Point{
		{c.X - half, c.Y - half},
		{c.X + half, c.Y - half},
		{c.X + half, c.Y + half},
		{c.X - half, c.Y + half},
	}
}
