package serve

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"tracker/config"
	"tracker/video"
	"tracker/video/sink"
	"tracker/video/source"
)

// gatedDecoder yields blank frames. Every read after the background frame
// waits until the gate opens, which keeps a session running for as long as
// a test needs.
type gatedDecoder struct {
	gate chan struct{}
	once sync.Once

	mu    sync.Mutex
	reads int
}

func newGatedDecoder() *gatedDecoder {
	return &gatedDecoder{gate: make(chan struct{})}
}

func (d *gatedDecoder) Open() {
	d.once.Do(func() { close(d.gate) })
}

func (d *gatedDecoder) Read(m *gocv.Mat) bool {
	d.mu.Lock()
	d.reads++
	first := d.reads == 1
	d.mu.Unlock()
	if !first {
		<-d.gate
	}
	f := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 24, 32, gocv.MatTypeCV8UC3)
	defer f.Close()
	f.CopyTo(m)
	return true
}

func (d *gatedDecoder) Seek(int) error    { return nil }
func (d *gatedDecoder) FPS() float64      { return 10 }
func (d *gatedDecoder) Size() image.Point { return image.Pt(32, 24) }
func (d *gatedDecoder) Close() error      { return nil }

type discardSink struct{}

func (discardSink) Put(source.Image) error { return nil }
func (discardSink) Close() error           { return nil }

func testTracker(dec source.Decoder) *video.Tracker {
	return &video.Tracker{
		Open: video.Opener{
			Input: func(string) (source.Decoder, error) {
				return dec, nil
			},
			Output: func(*config.Config, float64, image.Point) (sink.Sink, error) {
				return discardSink{}, nil
			},
		},
	}
}

func testConfig() config.Config {
	c := config.Default()
	c.Input = "synthetic"
	c.Output = "discarded"
	c.Width, c.Height = 0, 0
	c.EndSec = 1
	c.Workers = 1
	return c
}
