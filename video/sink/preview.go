package sink

import (
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var previewDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tracker_preview_dropped_total",
	Help: "Preview frames dropped because the consumer was not ready.",
}, []string{"preview"})

// PreviewFrame is a committed frame and the output second it belongs to. The
// receiver owns Mat and must Close it.
type PreviewFrame struct {
	Second int
	Mat    gocv.Mat
}

// PreviewChan is a bounded preview queue for an external consumer. Frames
// that do not fit are dropped rather than stalling the producer.
type PreviewChan struct {
	Name string

	c       chan PreviewFrame
	l       sync.Mutex
	closed  bool
	dropped int
}

func NewPreviewChan(name string, capacity int) *PreviewChan {
	if capacity < 1 {
		capacity = 1
	}
	return &PreviewChan{
		Name: name,
		c:    make(chan PreviewFrame, capacity),
	}
}

// C returns the receive side of the queue. It is closed by Close.
func (p *PreviewChan) C() <-chan PreviewFrame {
	return p.c
}

func (p *PreviewChan) Put(second int, frame gocv.Mat) {
	p.l.Lock()
	defer p.l.Unlock()
	if p.closed {
		return
	}
	f := PreviewFrame{Second: second, Mat: frame.Clone()}
	select {
	case p.c <- f:
	default:
		f.Mat.Close()
		p.dropped++
		previewDropped.WithLabelValues(p.Name).Inc()
	}
}

// Dropped returns the number of frames discarded so far.
func (p *PreviewChan) Dropped() int {
	p.l.Lock()
	defer p.l.Unlock()
	return p.dropped
}

// Close stops accepting frames and closes the channel. Frames still queued
// remain readable. Safe to call more than once.
func (p *PreviewChan) Close() {
	p.l.Lock()
	defer p.l.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.c)
}

// Async runs a slow Preview, such as an encoder or a window, on its own
// goroutine behind a PreviewChan. The goroutine is locked to its OS thread.
// If the wrapped preview has a Close() error method, it is called from that
// same goroutine once the queue is drained.
type Async struct {
	*PreviewChan
	done chan bool
}

func NewAsync(name string, p Preview, capacity int) *Async {
	a := &Async{
		PreviewChan: NewPreviewChan(name, capacity),
		done:        make(chan bool),
	}
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(a.done)
		for f := range a.C() {
			p.Put(f.Second, f.Mat)
			f.Mat.Close()
		}
		if c, ok := p.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				log.Errorf("Failed to close preview %v: %v", name, err)
			}
		}
	}()
	return a
}

// Close drains queued frames into the wrapped preview and waits for it.
func (a *Async) Close() {
	a.PreviewChan.Close()
	<-a.done
}
