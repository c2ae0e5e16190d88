package sink

import (
	"errors"

	"gocv.io/x/gocv"

	"tracker/video/source"
)

// ErrClosed is returned by Put after the sink has been closed.
var ErrClosed = errors.New("sink closed")

// Sink defines a destination for an ordered stream of images, such as a
// video file.
type Sink interface {
	// Put appends an image to the sink. The caller keeps ownership of the
	// image; the sink must not hold any references to the underlying Mat.
	Put(input source.Image) error

	// Close finalizes the Sink.
	Close() error
}

// Preview receives committed frames for live display. Implementations must
// return promptly; frames they cannot keep up with should be dropped. The
// frame is only valid for the duration of the call.
type Preview interface {
	Put(second int, frame gocv.Mat)
}

// Previews fans a frame out to several previews.
type Previews []Preview

func (p Previews) Put(second int, frame gocv.Mat) {
	for _, v := range p {
		v.Put(second, frame)
	}
}
