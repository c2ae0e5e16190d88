package video

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/config"
	"tracker/video/sink"
	"tracker/video/source"
)

type memArchive struct {
	mu        sync.Mutex
	summaries []*Summary
}

func (a *memArchive) Save(s *Summary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summaries = append(a.summaries, s)
	return nil
}

type statusLog struct {
	mu     sync.Mutex
	states []string
}

func (l *statusLog) SessionUpdated(st Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.states); n == 0 || l.states[n-1] != st.State {
		l.states = append(l.states, st.State)
	}
}

func waitStopped(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("session did not stop")
	}
}

func TestSessionEndToEnd(t *testing.T) {
	dec := newSquareDecoder(12)
	out := newRecordSink()
	defer out.last.Close()
	archive := &memArchive{}
	preview := &previewRecorder{}
	states := &statusLog{}

	s := NewSession(wholeFrameConfig(), SessionOptions{
		Open:     testOpener(dec, out),
		Preview:  preview,
		Archive:  archive,
		Listener: states,
	})
	require.NoError(t, s.Start(context.Background()))
	waitStopped(t, s)

	assert.NoError(t, s.Err())
	assert.Equal(t, Stopped, s.State())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, out.Indices())
	assert.Equal(t, 1, out.Closes())
	assert.True(t, dec.closed)
	assert.Len(t, preview.seconds, 10)

	require.Len(t, archive.summaries, 1)
	sum := archive.summaries[0]
	assert.Equal(t, 10, sum.Frames)
	assert.False(t, sum.Stopped)
	// Frame 0 is the background itself; every later frame has the square.
	require.Equal(t, 9, sum.Detections)
	require.Len(t, sum.Points, 9)
	for i, p := range sum.Points {
		assert.Equal(t, i+1, p.Frame)
		want := dec.squareAt(p.Frame)
		center := image.Pt((want.Min.X+want.Max.X)/2, (want.Min.Y+want.Max.Y)/2)
		assert.InDelta(t, center.X, p.X, 2)
		assert.InDelta(t, center.Y, p.Y, 2)
		if i > 0 {
			assert.Greater(t, p.X, sum.Points[i-1].X)
		}
	}

	// The last frame carries the trail between the last two centroids.
	a, b := sum.Points[7], sum.Points[8]
	midX := (a.X + b.X) / 2
	found := false
	for y := a.Y - 1; y <= b.Y+1 && !found; y++ {
		v := out.last.GetVecbAt(y, midX)
		found = v[0] == 0 && v[1] == 255 && v[2] == 255
	}
	assert.True(t, found, "trail segment not drawn on final frame")

	st := s.Status()
	assert.Equal(t, "stopped", st.State)
	assert.Equal(t, 10, st.Committed)
	assert.Equal(t, 10, st.Dispatched)
	assert.Equal(t, 9, st.Detections)

	states.mu.Lock()
	assert.Equal(t, "running", states.states[0])
	assert.Equal(t, "stopped", states.states[len(states.states)-1])
	states.mu.Unlock()
}

func TestSessionStopIsIdempotent(t *testing.T) {
	dec := newSquareDecoder(10000)
	out := newRecordSink()
	defer out.last.Close()
	archive := &memArchive{}

	cfg := wholeFrameConfig()
	cfg.EndSec = 1000
	cfg.Workers = 8
	s := NewSession(cfg, SessionOptions{Open: testOpener(dec, out), Archive: archive})
	require.NoError(t, s.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()
	waitStopped(t, s)
	s.Stop()

	assert.Equal(t, 1, out.Closes())
	assert.Less(t, len(out.Indices()), 10000)
	indices := out.Indices()
	for i, idx := range indices {
		assert.Equal(t, i, idx)
	}
	require.Len(t, archive.summaries, 1)
	assert.True(t, archive.summaries[0].Stopped)
}

func TestSessionStopAfterCompletion(t *testing.T) {
	out := newRecordSink()
	defer out.last.Close()
	s := NewSession(wholeFrameConfig(), SessionOptions{Open: testOpener(newSquareDecoder(12), out)})
	require.NoError(t, s.Start(context.Background()))
	waitStopped(t, s)

	s.Stop()
	s.Stop()
	assert.Equal(t, 1, out.Closes())
	assert.Equal(t, Stopped, s.State())
}

func TestSessionStopBeforeStart(t *testing.T) {
	out := newRecordSink()
	defer out.last.Close()
	s := NewSession(wholeFrameConfig(), SessionOptions{Open: testOpener(newSquareDecoder(12), out)})
	s.Stop()
	waitStopped(t, s)

	assert.ErrorIs(t, s.Start(context.Background()), ErrStarted)
	assert.Equal(t, 0, out.Closes())
}

func TestSessionContextCancelStops(t *testing.T) {
	out := newRecordSink()
	defer out.last.Close()
	cfg := wholeFrameConfig()
	cfg.EndSec = 1000
	s := NewSession(cfg, SessionOptions{Open: testOpener(newSquareDecoder(10000), out)})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	waitStopped(t, s)
	assert.Equal(t, 1, out.Closes())
}

func TestSessionInputFailure(t *testing.T) {
	outOpened := false
	s := NewSession(wholeFrameConfig(), SessionOptions{Open: Opener{
		Input: func(string) (source.Decoder, error) {
			return nil, errors.New("no such file")
		},
		Output: func(*config.Config, float64, image.Point) (sink.Sink, error) {
			outOpened = true
			return newRecordSink(), nil
		},
	}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening input")
	assert.False(t, outOpened)
	assert.Equal(t, Stopped, s.State())
	assert.Equal(t, "stopped", s.Status().State)
	waitStopped(t, s)
}

func TestSessionOutputFailureClosesInput(t *testing.T) {
	dec := newSquareDecoder(12)
	s := NewSession(wholeFrameConfig(), SessionOptions{Open: Opener{
		Input: func(string) (source.Decoder, error) {
			return dec, nil
		},
		Output: func(*config.Config, float64, image.Point) (sink.Sink, error) {
			return nil, errors.New("read-only filesystem")
		},
	}})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening output")
	assert.True(t, dec.closed)
}

func TestSessionEmptyInput(t *testing.T) {
	dec := newSquareDecoder(0)
	out := newRecordSink()
	defer out.last.Close()
	s := NewSession(wholeFrameConfig(), SessionOptions{Open: testOpener(dec, out)})

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, source.ErrNoFrames)
	assert.True(t, dec.closed)
	assert.Equal(t, 1, out.Closes())
}

func TestSessionInvalidConfig(t *testing.T) {
	cfg := wholeFrameConfig()
	cfg.Workers = 0
	s := NewSession(cfg, SessionOptions{Open: testOpener(newSquareDecoder(12), newRecordSink())})
	assert.Error(t, s.Start(context.Background()))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "background-captured", BackgroundCaptured.String())
	assert.Equal(t, "draining", Draining.String())
	assert.Equal(t, "unknown", State(42).String())
}

// truncatedDecoder reports its length in whole seconds, the way mp4
// containers do.
type truncatedDecoder struct {
	*squareDecoder
}

func (d truncatedDecoder) Duration() float64 {
	return float64(int(float64(d.frames) / d.fps))
}

func TestSessionWindowNotNarrowedByReportedLength(t *testing.T) {
	dec := truncatedDecoder{newSquareDecoder(12)}
	require.Equal(t, 1.0, dec.Duration())
	out := newRecordSink()
	defer out.last.Close()

	cfg := wholeFrameConfig()
	cfg.StartSec = 0.2
	cfg.EndSec = 1.15
	s := NewSession(cfg, SessionOptions{Open: testOpener(dec, out)})
	require.NoError(t, s.Start(context.Background()))
	waitStopped(t, s)

	// Frames at 0.2s through 1.1s, all past the reported one second length
	// after 1.0s, are still written.
	assert.NoError(t, s.Err())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, out.Indices())
}

func TestSessionStartPastReportedLength(t *testing.T) {
	// The clip is 1.2s long but reports 1s; a window inside the last partial
	// second still yields its frames.
	dec := truncatedDecoder{newSquareDecoder(12)}
	out := newRecordSink()
	defer out.last.Close()

	cfg := wholeFrameConfig()
	cfg.StartSec = 1.0
	cfg.EndSec = 1.15
	s := NewSession(cfg, SessionOptions{Open: testOpener(dec, out)})
	require.NoError(t, s.Start(context.Background()))
	waitStopped(t, s)

	assert.Equal(t, []int{0, 1}, out.Indices())
}
