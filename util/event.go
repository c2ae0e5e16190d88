package util

import (
	"sync"
)

// Event is a one-shot latch. Once notified it stays notified.
type Event struct {
	once sync.Once
	c    chan struct{}
}

func NewEvent() *Event {
	return &Event{
		c: make(chan struct{}),
	}
}

// Notify marks the event. Only the first call has any effect, so it is safe
// to call from racing goroutines.
func (e *Event) Notify() bool {
	first := false
	e.once.Do(func() {
		first = true
		close(e.c)
	})
	return first
}

func (e *Event) Wait() {
	<-e.c
}

// Done returns a channel that is closed once the event has been notified.
func (e *Event) Done() <-chan struct{} {
	return e.c
}

func (e *Event) HasBeenNotified() bool {
	select {
	case <-e.c:
		return true
	default:
		return false
	}
}
