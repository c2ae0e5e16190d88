package serve

import (
	"net/http"
	"os"

	"tracker/config"
	"tracker/video"
)

// FileServer serves a file belonging to the current session.
type FileServer struct {
	Tracker     *video.Tracker
	PathFunc    func(cfg config.Config) string
	ContentType string
}

func NewOutputServer(t *video.Tracker) *FileServer {
	return &FileServer{
		Tracker: t,
		PathFunc: func(cfg config.Config) string {
			if cfg.TranscodePath != "" {
				if _, err := os.Stat(cfg.TranscodePath); err == nil {
					return cfg.TranscodePath
				}
			}
			return cfg.Output
		},
	}
}

func NewSnapshotServer(t *video.Tracker) *FileServer {
	return &FileServer{
		Tracker: t,
		PathFunc: func(cfg config.Config) string {
			return cfg.SnapshotPath
		},
		ContentType: "image/jpeg",
	}
}

func (s *FileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := s.Tracker.Current()
	if sess == nil {
		http.Error(w, "No session", http.StatusNotFound)
		return
	}
	if sess.State() != video.Stopped {
		// The writer has not finalized the file yet.
		http.Error(w, "Session still running", http.StatusConflict)
		return
	}
	path := s.PathFunc(sess.Config())
	if path == "" {
		http.Error(w, "Not configured", http.StatusNotFound)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}
