package source

import (
	"fmt"
	"image"
	"strings"

	"github.com/pillash/mp4util"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// VideoCapture decodes a video file with OpenCV.
type VideoCapture struct {
	URI string

	cap *gocv.VideoCapture
	fps float64
}

func OpenVideoCapture(uri string) (*VideoCapture, error) {
	cap, err := gocv.VideoCaptureFile(uri)
	if err != nil {
		return nil, fmt.Errorf("opening %v: %w", uri, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("opening %v: capture not opened", uri)
	}
	fps := cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		cap.Close()
		return nil, fmt.Errorf("opening %v: invalid frame rate %v", uri, fps)
	}
	return &VideoCapture{
		URI: uri,
		cap: cap,
		fps: fps,
	}, nil
}

func (v *VideoCapture) Read(m *gocv.Mat) bool {
	return v.cap.Read(m) && !m.Empty()
}

func (v *VideoCapture) Seek(frame int) error {
	v.cap.Set(gocv.VideoCapturePosFrames, float64(frame))
	return nil
}

func (v *VideoCapture) FPS() float64 {
	return v.fps
}

func (v *VideoCapture) Size() image.Point {
	return image.Point{
		X: int(v.cap.Get(gocv.VideoCaptureFrameWidth)),
		Y: int(v.cap.Get(gocv.VideoCaptureFrameHeight)),
	}
}

// Duration returns the approximate clip length in seconds, or zero if
// unknown. MP4 containers are read directly since OpenCV frame counts are
// unreliable for them; that length is truncated to whole seconds.
func (v *VideoCapture) Duration() float64 {
	if strings.HasSuffix(strings.ToLower(v.URI), ".mp4") {
		d, err := mp4util.Duration(v.URI)
		if err == nil && d > 0 {
			return float64(d)
		}
		log.Debugf("mp4 duration unavailable for %v: %v", v.URI, err)
	}
	frames := v.cap.Get(gocv.VideoCaptureFrameCount)
	if frames <= 0 {
		return 0
	}
	return frames / v.fps
}

func (v *VideoCapture) Close() error {
	return v.cap.Close()
}
