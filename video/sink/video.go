package sink

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"tracker/video/source"
)

// Video provides a sink that wraps opencv's VideoWriter. Frames must match
// the size the writer was opened with.
type Video struct {
	Path string

	writer *gocv.VideoWriter
	size   image.Point
}

func NewVideo(path, codec string, fps float64, size image.Point) (*Video, error) {
	w, err := gocv.VideoWriterFile(path, codec, fps, size.X, size.Y, true)
	if err != nil {
		return nil, fmt.Errorf("opening %v: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("opening %v: writer for codec %v not opened", path, codec)
	}
	return &Video{
		Path:   path,
		writer: w,
		size:   size,
	}, nil
}

func (v *Video) Close() error {
	return v.writer.Close()
}

func (v *Video) Put(input source.Image) error {
	if input.Mat.Cols() != v.size.X || input.Mat.Rows() != v.size.Y {
		return fmt.Errorf("frame %d is %dx%d, writer expects %dx%d", input.Index, input.Mat.Cols(), input.Mat.Rows(), v.size.X, v.size.Y)
	}
	return v.writer.Write(input.Mat)
}
