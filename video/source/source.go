package source

import (
	"errors"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// ErrNoFrames is returned when a decoder cannot produce even a single frame.
var ErrNoFrames = errors.New("no frames available")

// Image is a single decoded frame together with its position in the clip.
type Image struct {
	Mat gocv.Mat

	// Index is the dispatch index assigned by FrameSource, starting at zero.
	Index int
	// Offset is the position of the frame relative to the start of the input.
	Offset time.Duration

	pool *MatPool
}

// Release hands the underlying Mat back to its pool, or frees it if the image
// was not pooled. The image must not be used afterwards.
func (i Image) Release() {
	if i.pool != nil {
		i.pool.ReleaseMat(i.Mat)
		return
	}
	i.Mat.Close()
}

func (i *Image) Clone() Image {
	n := Image{
		Mat:    gocv.NewMat(),
		Index:  i.Index,
		Offset: i.Offset,
	}
	i.Mat.CopyTo(&n.Mat)
	return n
}

// Decoder is a sequential frame supplier, such as a video file.
type Decoder interface {
	// Read decodes the next frame into m. It returns false at end of stream or
	// on any decode failure.
	Read(m *gocv.Mat) bool

	// Seek moves the read position to the given frame number.
	Seek(frame int) error

	// FPS returns the nominal frame rate of the stream.
	FPS() float64

	// Size returns the native frame size.
	Size() image.Point

	// Close releases the underlying capture.
	Close() error
}
