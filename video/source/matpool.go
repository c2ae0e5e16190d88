package source

import (
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// allocWarn is the allocation count past which the pool complains; a frame
// is probably not being released.
const allocWarn = 500

// MatPool recycles Mats between decode and commit so a session allocates
// roughly one Mat per in-flight frame instead of one per frame.
type MatPool struct {
	new   chan chan gocv.Mat
	free  chan gocv.Mat
	close chan chan bool
	done  chan struct{}

	allocated int
	available []gocv.Mat
}

func NewMatPool() *MatPool {
	p := &MatPool{
		new:   make(chan chan gocv.Mat),
		free:  make(chan gocv.Mat),
		close: make(chan chan bool),
		done:  make(chan struct{}),
	}
	go func() {
		warned := false
		for {
			select {
			case c := <-p.close:
				for _, m := range p.available {
					m.Close()
				}
				p.available = nil
				close(p.done)
				c <- true
				return
			case m := <-p.free:
				p.available = append(p.available, m)
			case r := <-p.new:
				var m gocv.Mat
				if len(p.available) > 0 {
					last := len(p.available) - 1
					m, p.available = p.available[last], p.available[:last]
				} else {
					m = gocv.NewMat()
					p.allocated += 1
					if p.allocated > allocWarn && !warned {
						log.Warnf("MatPool has allocated %d mats. Perhaps an Image isn't being released?", p.allocated)
						warned = true
					}
				}
				r <- m
			}
		}
	}()
	return p
}

func (p *MatPool) NewMat() gocv.Mat {
	r := make(chan gocv.Mat)
	select {
	case p.new <- r:
		return <-r
	case <-p.done:
		return gocv.NewMat()
	}
}

// NewImage returns an empty pooled image.
func (p *MatPool) NewImage() Image {
	return Image{
		Mat:  p.NewMat(),
		pool: p,
	}
}

func (p *MatPool) ReleaseMat(m gocv.Mat) {
	select {
	case p.free <- m:
	case <-p.done:
		m.Close()
	}
}

// Close frees all idle Mats. Mats released afterwards are closed directly.
func (p *MatPool) Close() {
	c := make(chan bool)
	select {
	case p.close <- c:
		<-c
	case <-p.done:
	}
}
