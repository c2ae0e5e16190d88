package video

import (
	"context"
	"sync"

	"tracker/config"
	"tracker/video/process"
	"tracker/video/sink"
)

// Tracker is the control surface: it runs at most one Session at a time.
type Tracker struct {
	Open       Opener
	Preview    sink.Preview
	Archive    Archive
	Transcoder *process.Transcoder
	Listeners  []Listener

	l   sync.Mutex
	cur *Session
}

// Start begins a new session with cfg. It fails with ErrRunning if the
// previous session has not stopped yet. The session stops when ctx is done.
func (t *Tracker) Start(ctx context.Context, cfg config.Config) (*Session, error) {
	t.l.Lock()
	defer t.l.Unlock()

	if t.cur != nil && t.cur.State() != Stopped {
		return nil, ErrRunning
	}
	s := NewSession(cfg, SessionOptions{
		Open:       t.Open,
		Preview:    t.Preview,
		Archive:    t.Archive,
		Listener:   t,
		Transcoder: t.Transcoder,
	})
	t.cur = s
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Restart stops the current session, waits for it to drain, and starts a new
// one with cfg.
func (t *Tracker) Restart(ctx context.Context, cfg config.Config) (*Session, error) {
	if s := t.Current(); s != nil {
		s.Stop()
		s.Wait()
	}
	return t.Start(ctx, cfg)
}

// Stop stops the current session, if any. It does not wait for it to drain.
func (t *Tracker) Stop() {
	if s := t.Current(); s != nil {
		s.Stop()
	}
}

func (t *Tracker) Current() *Session {
	t.l.Lock()
	defer t.l.Unlock()
	return t.cur
}

// Status reports on the current or most recent session.
func (t *Tracker) Status() (Status, bool) {
	s := t.Current()
	if s == nil {
		return Status{State: Idle.String()}, false
	}
	return s.Status(), true
}

func (t *Tracker) SessionUpdated(st Status) {
	for _, l := range t.Listeners {
		l.SessionUpdated(st)
	}
}
