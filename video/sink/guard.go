package sink

import (
	"sync"

	"tracker/util"
	"tracker/video/source"
)

// Guard serializes access to a Sink and makes closing it idempotent. Put and
// Close may race from different goroutines; the wrapped sink sees every Put
// strictly before its single Close.
type Guard struct {
	sink   Sink
	closed *util.Event

	l   sync.Mutex
	err error
}

func NewGuard(s Sink) *Guard {
	return &Guard{
		sink:   s,
		closed: util.NewEvent(),
	}
}

func (g *Guard) Put(input source.Image) error {
	g.l.Lock()
	defer g.l.Unlock()
	if g.closed.HasBeenNotified() {
		return ErrClosed
	}
	return g.sink.Put(input)
}

// Close closes the wrapped sink on the first call. Later calls return the
// same result without touching the sink.
func (g *Guard) Close() error {
	g.l.Lock()
	defer g.l.Unlock()
	if g.closed.Notify() {
		g.err = g.sink.Close()
	}
	return g.err
}

func (g *Guard) Closed() bool {
	return g.closed.HasBeenNotified()
}

// Done is closed once Close has been called.
func (g *Guard) Done() <-chan struct{} {
	return g.closed.Done()
}
