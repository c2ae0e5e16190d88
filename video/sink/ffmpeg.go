package sink

import (
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"sync"

	log "github.com/sirupsen/logrus"

	"tracker/video/source"
)

type FFmpegOptions struct {
	// Binary is the ffmpeg executable.
	Binary string
	Size   image.Point
	FPS    float64
}

// FFmpeg pipes raw BGR frames into an ffmpeg process encoding H.264.
type FFmpeg struct {
	b     chan []byte
	close chan chan error

	l   sync.Mutex
	err error
}

func (o FFmpegOptions) args(path string) []string {
	return []string{
		"-y",
		// Configure ffmpeg to read from the opencv pipe.
		"-f", "rawvideo",
		"-pixel_format", "bgr24",
		"-video_size", fmt.Sprintf("%dx%d", o.Size.X, o.Size.Y),
		"-framerate", fmt.Sprintf("%g", o.FPS),
		"-i", "-", // Read from stdin.
		// Use h264 encoding with reasonable quality and speed. Note that
		// "preset" can be adjusted if the system is too slow to handle encoding.
		"-c:v", "libx264",
		"-preset", "superfast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		path,
	}
}

// NewFFmpeg starts ffmpeg writing to path.
func NewFFmpeg(path string, o FFmpegOptions) (*FFmpeg, error) {
	c := exec.Command(o.Binary, o.args(path)...)
	c.Stderr = os.Stderr

	pipe, err := c.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	f := &FFmpeg{
		b:     make(chan []byte, 4),
		close: make(chan chan error),
	}
	go f.loop(c, pipe)
	return f, nil
}

func (f *FFmpeg) loop(c *exec.Cmd, pipe io.WriteCloser) {
	var closer chan error
loop:
	for {
		select {
		case closer = <-f.close:
			break loop
		case b := <-f.b:
			if f.failed() {
				continue
			}
			if _, err := pipe.Write(b); err != nil {
				log.Errorf("Error writing to ffmpeg: %v", err)
				f.fail(err)
			}
		}
	}
	// Flush anything queued before close.
	for done := false; !done; {
		select {
		case b := <-f.b:
			if !f.failed() {
				if _, err := pipe.Write(b); err != nil {
					f.fail(err)
				}
			}
		default:
			done = true
		}
	}
	pipe.Close()

	log.Debugf("Waiting for ffmpeg shutdown.")
	err := c.Wait()
	log.Debugf("ffmpeg exit with status %v", err)
	if err != nil {
		f.fail(err)
	}
	f.l.Lock()
	closer <- f.err
	f.l.Unlock()
}

func (f *FFmpeg) fail(err error) {
	f.l.Lock()
	defer f.l.Unlock()
	if f.err == nil {
		f.err = err
	}
}

func (f *FFmpeg) failed() bool {
	f.l.Lock()
	defer f.l.Unlock()
	return f.err != nil
}

// Put queues a frame for encoding. Errors surface on a later Put or on Close.
func (f *FFmpeg) Put(input source.Image) error {
	f.l.Lock()
	err := f.err
	f.l.Unlock()
	if err != nil {
		return err
	}
	f.b <- input.Mat.ToBytes()
	return nil
}

// Close waits for ffmpeg to finish writing the file. It must be called once;
// wrap in a Guard for idempotence.
func (f *FFmpeg) Close() error {
	c := make(chan error, 1)
	f.close <- c
	return <-c
}
