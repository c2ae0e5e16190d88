package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tracker/config"
	"tracker/util"
	"tracker/video/process"
	"tracker/video/sink"
	"tracker/video/source"
)

var (
	ErrStarted = errors.New("session already started")
	ErrRunning = errors.New("a session is already running")
)

type SessionOptions struct {
	Open       Opener
	Preview    sink.Preview
	Archive    Archive
	Listener   Listener
	Transcoder *process.Transcoder
}

// Session runs one input clip through the tracking pipeline:
// Idle → BackgroundCaptured → Running → Draining → Stopped.
type Session struct {
	ID string

	cfg  config.Config
	opts SessionOptions
	log  *log.Entry

	l        sync.Mutex
	state    State
	err      error
	started  time.Time
	finished time.Time

	dec source.Decoder
	src *source.FrameSource
	mp  *source.MatPool
	det *process.Detector
	out *sink.Guard
	buf *ReassemblyBuffer
	wg  *sync.WaitGroup

	// Guarded by pl; written from the commit path.
	pl         sync.Mutex
	points     []TrackPoint
	detections int
	second     int

	stopReq *util.Event
	done    *util.Event
	tick    chan struct{}
	// Serializes listener calls so updates arrive in state order.
	pubMu sync.Mutex
}

func NewSession(cfg config.Config, opts SessionOptions) *Session {
	if opts.Open.Input == nil || opts.Open.Output == nil {
		opts.Open = DefaultOpener()
	}
	id := uuid.NewString()
	return &Session{
		ID:      id,
		cfg:     cfg,
		opts:    opts,
		log:     log.WithField("session", id[:8]),
		stopReq: util.NewEvent(),
		done:    util.NewEvent(),
		tick:    make(chan struct{}, 1),
	}
}

func (s *Session) Config() config.Config {
	return s.cfg
}

// Start opens the input and output, captures the background and starts the
// workers. Any failure leaves the session Stopped with nothing running.
// Cancelling ctx stops the session.
func (s *Session) Start(ctx context.Context) error {
	s.l.Lock()
	if s.state != Idle {
		s.l.Unlock()
		return ErrStarted
	}
	s.started = time.Now()
	if err := s.open(); err != nil {
		s.err = err
		s.state = Stopped
		s.finished = time.Now()
		s.l.Unlock()
		sessionsTotal.WithLabelValues("failed").Inc()
		s.log.Errorf("Failed to start: %v", err)
		s.publish()
		s.done.Notify()
		return err
	}
	s.state = Running
	s.wg = runWorkers(s.cfg.Workers, s.work)
	s.l.Unlock()

	s.log.Infof("Tracking %v → %v with %d workers", s.cfg.Input, s.cfg.Output, s.cfg.Workers)
	s.publish()

	go s.notifyLoop()
	go s.finish()
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done.Done():
		}
	}()
	return nil
}

// open builds the pipeline. Called with s.l held.
func (s *Session) open() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	dec, err := s.opts.Open.Input(s.cfg.Input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}

	// The window is never narrowed to the reported clip length; decode failure
	// ends the stream. The length is only a hint, whole seconds for mp4.
	window := source.Window{Start: s.cfg.StartSec, End: s.cfg.EndSec}
	if d, ok := dec.(interface{ Duration() float64 }); ok {
		if total := d.Duration(); total > 0 && window.Start >= total+1 {
			s.log.Warnf("Start second %v is past the clip length of about %vs", window.Start, total)
		}
	}

	size := s.cfg.Size()
	if size == (image.Point{}) {
		size = dec.Size()
	}

	out, err := s.opts.Open.Output(&s.cfg, dec.FPS(), size)
	if err != nil {
		dec.Close()
		return fmt.Errorf("opening output: %w", err)
	}

	mp := source.NewMatPool()
	src := source.NewFrameSource(dec, mp, size, window)
	bg, err := src.Background()
	if err != nil {
		out.Close()
		src.Close()
		mp.Close()
		dec.Close()
		return fmt.Errorf("capturing background: %w", err)
	}
	defer bg.Close()
	s.state = BackgroundCaptured

	roi := process.NewROI(s.cfg.ROI.X, s.cfg.ROI.Y, s.cfg.ROI.Radius, size)
	s.det = process.NewDetector(bg, roi, process.DetectorOptions{
		Threshold: float32(s.cfg.Threshold),
		BlurSize:  s.cfg.BlurSize,
		Dilations: s.cfg.Dilations,
		DrawROI:   s.cfg.DrawROI,
	})
	if s.cfg.SnapshotPath != "" {
		if err := process.WriteSnapshot(s.cfg.SnapshotPath, bg, roi); err != nil {
			s.log.Errorf("Failed to write snapshot: %v", err)
		}
	}

	s.dec, s.src, s.mp = dec, src, mp
	s.out = sink.NewGuard(out)
	s.buf = NewReassemblyBuffer(ReassemblyOptions{
		Out:         s.out,
		Preview:     s.opts.Preview,
		FPS:         src.FPS(),
		Start:       window.Start,
		TrailLength: s.cfg.TrailLength,
		OnCommit:    s.committed,
	})
	s.log.Infof("Background captured at %dx%d, %.2f fps, ROI %v r=%d", size.X, size.Y, src.FPS(), roi.Center, roi.Radius)
	return nil
}

func (s *Session) work(id int) {
	for !s.out.Closed() {
		img, ok := s.src.Next()
		if !ok {
			return
		}
		framesDispatched.Inc()

		start := time.Now()
		contour := s.det.Detect(&img.Mat)
		detectDuration.Observe(time.Since(start).Seconds())

		if s.cfg.Label != "" {
			process.DrawOffset(&img.Mat, s.cfg.Label, img.Offset)
		}
		s.buf.Submit(img, contour)
	}
	s.log.Debugf("Worker %d saw closed output", id)
}

// committed runs on the commit path with the buffer lock held.
func (s *Session) committed(c Commit) {
	s.pl.Lock()
	if c.Detected {
		s.detections++
		s.points = append(s.points, TrackPoint{Frame: c.Index, Offset: c.Offset, X: c.Point.X, Y: c.Point.Y})
	}
	changed := c.Second != s.second
	s.second = c.Second
	s.pl.Unlock()

	if changed {
		s.changed()
	}
}

func (s *Session) finish() {
	s.wg.Wait()
	s.setState(Draining)

	if err := s.out.Close(); err != nil {
		s.log.Errorf("Failed to close output: %v", err)
		s.l.Lock()
		s.err = err
		s.l.Unlock()
	}
	if n := s.buf.Discard(); n > 0 {
		s.log.Infof("Discarded %d frames stranded by stop", n)
	}
	s.src.Close()
	s.det.Close()
	s.mp.Close()
	if err := s.dec.Close(); err != nil {
		s.log.Warnf("Failed to close input: %v", err)
	}

	s.l.Lock()
	s.finished = time.Now()
	err := s.err
	s.l.Unlock()

	summary := s.summary()
	result := "completed"
	switch {
	case err != nil:
		result = "failed"
	case summary.Stopped:
		result = "stopped"
	}
	sessionsTotal.WithLabelValues(result).Inc()
	s.log.Infof("Session %s: %d frames, %d detections in %v", result, summary.Frames, summary.Detections, summary.Finished.Sub(summary.Started).Round(time.Millisecond))

	if s.opts.Archive != nil {
		if err := s.opts.Archive.Save(summary); err != nil {
			s.log.Errorf("Failed to archive session: %v", err)
		}
	}
	if s.opts.Transcoder != nil && s.cfg.TranscodePath != "" && err == nil {
		if c := s.opts.Transcoder.Process(s.cfg.Output, s.cfg.TranscodePath); c != nil {
			go func() {
				if err := <-c; err == nil {
					s.log.Infof("Web copy ready at %v", s.cfg.TranscodePath)
				}
			}()
		}
	}

	s.setState(Stopped)
	s.done.Notify()
}

func (s *Session) summary() *Summary {
	s.l.Lock()
	sum := &Summary{
		ID:       s.ID,
		Config:   s.cfg,
		Started:  s.started,
		Finished: s.finished,
		Stopped:  s.stopReq.HasBeenNotified(),
	}
	if s.err != nil {
		sum.Error = s.err.Error()
	}
	s.l.Unlock()

	sum.Frames = s.buf.Committed()
	s.pl.Lock()
	sum.Detections = s.detections
	sum.Points = append([]TrackPoint(nil), s.points...)
	s.pl.Unlock()
	return sum
}

// Stop asks the session to end. Workers finish the frame in hand and exit;
// the output is closed exactly once. Safe to call any number of times, from
// any goroutine, in any state.
func (s *Session) Stop() {
	s.l.Lock()
	switch s.state {
	case Idle:
		s.state = Stopped
		s.finished = time.Now()
		s.l.Unlock()
		s.stopReq.Notify()
		s.done.Notify()
		return
	case Stopped:
		s.l.Unlock()
		return
	}
	out := s.out
	s.l.Unlock()

	if s.stopReq.Notify() {
		s.log.Infof("Stop requested")
	}
	if err := out.Close(); err != nil {
		s.log.Errorf("Failed to close output: %v", err)
	}
}

// Wait blocks until the session is Stopped.
func (s *Session) Wait() {
	s.done.Wait()
}

func (s *Session) Done() <-chan struct{} {
	return s.done.Done()
}

func (s *Session) State() State {
	s.l.Lock()
	defer s.l.Unlock()
	return s.state
}

// Err returns the error that ended the session, if any.
func (s *Session) Err() error {
	s.l.Lock()
	defer s.l.Unlock()
	return s.err
}

func (s *Session) Status() Status {
	s.l.Lock()
	st := Status{
		ID:       s.ID,
		State:    s.state.String(),
		Input:    s.cfg.Input,
		Output:   s.cfg.Output,
		Started:  s.started,
		Finished: s.finished,
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	src, buf := s.src, s.buf
	s.l.Unlock()

	if src != nil {
		st.Dispatched = src.Dispatched()
	}
	if buf != nil {
		st.Committed = buf.Committed()
		st.Pending = buf.Pending()
	}
	s.pl.Lock()
	st.Detections = s.detections
	st.Second = s.second
	s.pl.Unlock()
	return st
}

func (s *Session) setState(state State) {
	s.l.Lock()
	s.state = state
	s.l.Unlock()
	s.publish()
}

// changed schedules a status update without blocking the caller.
func (s *Session) changed() {
	select {
	case s.tick <- struct{}{}:
	default:
	}
}

func (s *Session) notifyLoop() {
	for {
		select {
		case <-s.tick:
			s.publish()
		case <-s.done.Done():
			return
		}
	}
}

func (s *Session) publish() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if s.opts.Listener != nil {
		s.opts.Listener.SessionUpdated(s.Status())
	}
}
