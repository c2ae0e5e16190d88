package video

import (
	"time"

	"tracker/config"
)

type State int

const (
	Idle State = iota
	BackgroundCaptured
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BackgroundCaptured:
		return "background-captured"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Status is a point in time view of a session.
type Status struct {
	ID     string
	State  string
	Input  string
	Output string

	Dispatched int
	Committed  int
	Pending    int
	Detections int
	// Second is the clip second of the last committed frame.
	Second int

	Started  time.Time
	Finished time.Time
	Error    string `json:",omitempty"`
}

// TrackPoint is a committed detection.
type TrackPoint struct {
	Frame  int
	Offset time.Duration
	X, Y   int
}

// Summary is handed to the Archive when a session stops.
type Summary struct {
	ID     string
	Config config.Config

	Started  time.Time
	Finished time.Time

	Frames     int
	Detections int
	// Stopped is true when the run was cut short by a stop request.
	Stopped bool
	Error   string

	Points []TrackPoint
}

// Archive persists finished sessions.
type Archive interface {
	Save(s *Summary) error
}

// Listener is told about session progress. Calls never come from the commit
// path, so implementations may take their time, but should not block forever.
type Listener interface {
	SessionUpdated(st Status)
}
