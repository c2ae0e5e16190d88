package serve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"tracker/config"
	"tracker/video"
)

// StatusResponse is served by /status and pushed over /statusws.
type StatusResponse struct {
	video.Status
	// Active is false until the first session has been started.
	Active bool
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}

type StatusServer struct {
	Tracker *video.Tracker
}

func (s *StatusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st, ok := s.Tracker.Status()
	writeJSON(w, &StatusResponse{Status: st, Active: ok})
}

// RunParams are the fields a /start body may override. File paths always
// come from the server's own configuration.
type RunParams struct {
	StartSec *float64
	EndSec   *float64
	Width    *int
	Height   *int
	ROI      *config.ROI
	Label    *string
}

func (p *RunParams) apply(cfg *config.Config) {
	if p.StartSec != nil {
		cfg.StartSec = *p.StartSec
	}
	if p.EndSec != nil {
		cfg.EndSec = *p.EndSec
	}
	if p.Width != nil {
		cfg.Width = *p.Width
	}
	if p.Height != nil {
		cfg.Height = *p.Height
	}
	if p.ROI != nil {
		cfg.ROI = *p.ROI
	}
	if p.Label != nil {
		cfg.Label = *p.Label
	}
}

// ControlServer starts and stops sessions. Sessions outlive the request
// that started them and stop when Context is done.
type ControlServer struct {
	Tracker *video.Tracker
	Context context.Context
	// Base returns the config that request bodies are applied over.
	Base func() (config.Config, error)
	// Token, if set, is required on every control request.
	Token string
}

func (s *ControlServer) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/start", RequireToken(s.Token, http.HandlerFunc(s.handleStart)))
	mux.Handle("/stop", RequireToken(s.Token, http.HandlerFunc(s.handleStop)))
}

func (s *ControlServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	cfg := config.Default()
	if s.Base != nil {
		var err error
		if cfg, err = s.Base(); err != nil {
			log.Errorf("Refusing to start with broken server config: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if r.ContentLength != 0 {
		var p RunParams
		dec := json.NewDecoder(r.Body)
		// Unknown fields include every path; those are never taken from a request.
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.apply(&cfg)
	}

	ctx := s.Context
	if ctx == nil {
		ctx = context.Background()
	}
	sess, err := s.Tracker.Start(ctx, cfg)
	switch {
	case errors.Is(err, video.ErrRunning):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.WithField("addr", r.RemoteAddr).Infof("Started session %v", sess.ID)
	writeJSON(w, &StatusResponse{Status: sess.Status(), Active: true})
}

func (s *ControlServer) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}
	s.Tracker.Stop()
	st, ok := s.Tracker.Status()
	writeJSON(w, &StatusResponse{Status: st, Active: ok})
}
