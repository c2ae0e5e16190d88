package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

const (
	ExtTemp = ".temp"
)

type workItem struct {
	src, dst string
	donec    chan error
}

// Transcoder converts finished outputs into browser friendly H.264 MP4 files,
// one at a time, in the background.
type Transcoder struct {
	FFmpeg string

	c     chan *workItem
	close chan chan bool
}

func NewTranscoder(ffmpeg string) *Transcoder {
	f := &Transcoder{
		FFmpeg: ffmpeg,
		c:      make(chan *workItem, 16),
		close:  make(chan chan bool, 1),
	}
	go f.loop()
	return f
}

func (f *Transcoder) command(ctx context.Context, w *workItem) *exec.Cmd {
	return exec.CommandContext(ctx,
		f.FFmpeg,
		"-y",
		// Configure input from source file.
		"-i", w.src,
		// Output format as libx264
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		// Allow playback on a wider range of devices.
		"-pix_fmt", "yuv420p",
		// Enable fast-start so videos can be displayed in the browser without
		// full download.
		"-movflags", "+faststart",
		// Explicit format.
		"-f", "mp4",
		w.dst+ExtTemp,
	)
}

func (f *Transcoder) loop() {
	for {
		var w *workItem
		select {
		case cc := <-f.close:
			cc <- true
			return
		case w = <-f.c:
		}

		ctx, cancel := context.WithCancel(context.Background())
		c := f.command(ctx, w)
		c.Stderr = os.Stderr

		if err := c.Start(); err != nil {
			cancel()
			log.Errorf("Failed to start transcode for %v: %v", w.src, err)
			w.donec <- err
			continue
		}

		wait := make(chan error, 1)
		go func() {
			wait <- c.Wait()
		}()

		select {
		case cc := <-f.close:
			cancel()
			<-wait
			os.Remove(w.dst + ExtTemp)
			w.donec <- fmt.Errorf("transcoder closed")
			cc <- true
			return
		case err := <-wait:
			cancel()
			if err == nil {
				err = os.Rename(w.dst+ExtTemp, w.dst)
			}
			if err != nil {
				log.Errorf("Transcode failed for %v: %v", w.src, err)
			} else {
				log.Infof("Transcoded %v to %v", w.src, w.dst)
			}
			w.donec <- err
		}
	}
}

// Process queues src for conversion to dst. The returned channel receives the
// result exactly once. Returns nil if the queue is full.
func (f *Transcoder) Process(src, dst string) <-chan error {
	w := &workItem{
		src:   src,
		dst:   dst,
		donec: make(chan error, 1),
	}
	select {
	case f.c <- w:
	default:
		log.Warnf("Transcode of %v dropped due to backlog", src)
		return nil
	}
	return w.donec
}

func (f *Transcoder) Close() {
	c := make(chan bool)
	f.close <- c
	<-c
}
