package video

import (
	"errors"
	"image"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"tracker/video/process"
	"tracker/video/sink"
	"tracker/video/source"
)

// Commit describes one frame as it is written to the output.
type Commit struct {
	Index  int
	Offset time.Duration
	// Second is the output second reported to the preview.
	Second int

	Point    image.Point
	Detected bool
}

type ReassemblyOptions struct {
	Out     sink.Sink
	Preview sink.Preview

	FPS float64
	// Start is the clip second of the first frame.
	Start float64

	TrailLength int

	// OnCommit is called for every committed frame, in order, with the
	// buffer lock held. It must not call back into the buffer.
	OnCommit func(Commit)
}

type pendingFrame struct {
	img     source.Image
	contour []image.Point
}

// ReassemblyBuffer accepts analyzed frames in any order and commits them to
// the output strictly by index, with no gaps and no repeats.
type ReassemblyBuffer struct {
	opts ReassemblyOptions

	l       sync.Mutex
	pending map[int]pendingFrame
	next    int
	trail   *Trajectory
}

func NewReassemblyBuffer(o ReassemblyOptions) *ReassemblyBuffer {
	return &ReassemblyBuffer{
		opts:    o,
		pending: make(map[int]pendingFrame),
		trail:   NewTrajectory(o.TrailLength),
	}
}

// Submit hands over an analyzed frame; the buffer takes ownership of img.
// Every frame that became committable is written before Submit returns.
func (b *ReassemblyBuffer) Submit(img source.Image, contour []image.Point) {
	b.l.Lock()
	defer b.l.Unlock()

	if _, dup := b.pending[img.Index]; dup || img.Index < b.next {
		log.Errorf("Dropping duplicate frame %d (next expected %d)", img.Index, b.next)
		img.Release()
		return
	}
	b.pending[img.Index] = pendingFrame{img: img, contour: contour}

	for {
		p, ok := b.pending[b.next]
		if !ok {
			break
		}
		delete(b.pending, b.next)
		b.commit(p)
		b.next++
	}
	pendingFrames.Set(float64(len(b.pending)))
}

func (b *ReassemblyBuffer) commit(p pendingFrame) {
	defer p.img.Release()

	c := Commit{
		Index:  p.img.Index,
		Offset: p.img.Offset,
		Second: int(b.opts.Start + float64(b.next)/b.opts.FPS),
	}
	if p.contour != nil {
		c.Point, c.Detected = process.Centroid(p.contour)
	}
	if c.Detected {
		b.trail.Add(c.Point)
		detectionsTotal.Inc()
	}
	b.trail.Draw(&p.img.Mat)

	if err := b.opts.Out.Put(p.img); err != nil {
		if !errors.Is(err, sink.ErrClosed) {
			log.Errorf("Failed to write frame %d: %v", p.img.Index, err)
		}
		return
	}
	framesCommitted.Inc()

	if b.opts.Preview != nil {
		b.opts.Preview.Put(c.Second, p.img.Mat)
	}
	if b.opts.OnCommit != nil {
		b.opts.OnCommit(c)
	}
}

// Committed returns the number of frames committed so far, which is also the
// next expected index.
func (b *ReassemblyBuffer) Committed() int {
	b.l.Lock()
	defer b.l.Unlock()
	return b.next
}

func (b *ReassemblyBuffer) Pending() int {
	b.l.Lock()
	defer b.l.Unlock()
	return len(b.pending)
}

// Trajectory returns a copy of the current trail window.
func (b *ReassemblyBuffer) Trajectory() []image.Point {
	b.l.Lock()
	defer b.l.Unlock()
	return b.trail.Points()
}

// Discard releases frames that can no longer be committed, such as those
// stranded behind a gap after a stop. Returns how many were dropped.
func (b *ReassemblyBuffer) Discard() int {
	b.l.Lock()
	defer b.l.Unlock()
	n := len(b.pending)
	for i, p := range b.pending {
		p.img.Release()
		delete(b.pending, i)
	}
	pendingFrames.Set(0)
	return n
}
