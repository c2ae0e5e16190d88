package sink

import (
	"gocv.io/x/gocv"
)

// Window shows committed frames in a desktop window. HighGUI calls must stay on one OS thread, so the window is only
// touched by the goroutine calling Put and Close; run it behind Async, which
// pins its goroutine to a thread.
type Window struct {
	name   string
	window *gocv.Window
}

// NewWindow does not open anything yet; the window appears on the first Put.
func NewWindow(name string) *Window {
	return &Window{name: name}
}

func (w *Window) Put(second int, frame gocv.Mat) {
	if w.window == nil {
		w.window = gocv.NewWindow(w.name)
		w.window.ResizeWindow(frame.Cols(), frame.Rows())
	}
	w.window.IMShow(frame)
	w.window.WaitKey(1)
}

// Close closes the window if it was ever opened.
func (w *Window) Close() error {
	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}
