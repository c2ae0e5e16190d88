package source

import (
	"image"
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Window is the inclusive time range of the input to dispatch, in seconds.
type Window struct {
	Start, End float64
}

// FrameSource hands out decoded frames to any number of goroutines. Decode
// and index assignment happen under one lock, so index order is decode order.
type FrameSource struct {
	dec    Decoder
	pool   *MatPool
	size   image.Point
	window Window
	fps    float64

	l    sync.Mutex
	raw  gocv.Mat
	next int
	done bool
}

// NewFrameSource wraps dec. Frames are resized to size unless it is zero.
func NewFrameSource(dec Decoder, pool *MatPool, size image.Point, w Window) *FrameSource {
	if size == (image.Point{}) {
		size = dec.Size()
	}
	return &FrameSource{
		dec:    dec,
		pool:   pool,
		size:   size,
		window: w,
		fps:    dec.FPS(),
		raw:    gocv.NewMat(),
	}
}

func (s *FrameSource) FPS() float64 {
	return s.fps
}

func (s *FrameSource) Size() image.Point {
	return s.size
}

func (s *FrameSource) Window() Window {
	return s.window
}

// Background reads the very first frame of the input, resized, and moves the
// read position to the start of the window. It must be called before any
// call to Next. The caller owns the returned Mat.
func (s *FrameSource) Background() (gocv.Mat, error) {
	s.l.Lock()
	defer s.l.Unlock()

	if !s.dec.Read(&s.raw) {
		return gocv.Mat{}, ErrNoFrames
	}
	bg := gocv.NewMat()
	s.resize(&bg)

	if err := s.dec.Seek(int(math.Round(s.fps * s.window.Start))); err != nil {
		bg.Close()
		return gocv.Mat{}, err
	}
	return bg, nil
}

// offset returns the clip time of the frame with the given dispatch index.
// Derived from the index rather than accumulated to avoid float drift.
func (s *FrameSource) offset(index int) float64 {
	return s.window.Start + float64(index)/s.fps
}

// Next decodes the next frame in the window. It returns false once the window
// has elapsed or the decoder fails; every later call returns false as well.
func (s *FrameSource) Next() (Image, bool) {
	s.l.Lock()
	defer s.l.Unlock()

	if s.done {
		return Image{}, false
	}
	offset := s.offset(s.next)
	if offset > s.window.End {
		s.done = true
		return Image{}, false
	}
	if !s.dec.Read(&s.raw) {
		s.done = true
		return Image{}, false
	}

	img := s.pool.NewImage()
	s.resize(&img.Mat)
	img.Index = s.next
	img.Offset = time.Duration(offset * float64(time.Second))
	s.next++
	return img, true
}

// Dispatched returns how many frames have been handed out.
func (s *FrameSource) Dispatched() int {
	s.l.Lock()
	defer s.l.Unlock()
	return s.next
}

func (s *FrameSource) resize(dst *gocv.Mat) {
	if s.raw.Cols() == s.size.X && s.raw.Rows() == s.size.Y {
		s.raw.CopyTo(dst)
		return
	}
	gocv.Resize(s.raw, dst, s.size, 0, 0, gocv.InterpolationLinear)
}

// Close frees the decode buffer. The decoder is owned by the caller.
func (s *FrameSource) Close() {
	s.l.Lock()
	defer s.l.Unlock()
	s.done = true
	s.raw.Close()
}
