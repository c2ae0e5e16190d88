package serve

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"tracker/store"
)

const defaultRunsLimit = 50

type RunsResponse struct {
	Items      []*store.Run
	ItemsCount int
}

// RunsServer lists archived runs, or returns one run with its points when
// an id is given.
type RunsServer struct {
	Store *store.Store
}

func (s *RunsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if v := r.Form.Get("id"); v != "" {
		id, err := parseID(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		run, err := s.Store.Run(id)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, fmt.Sprintf("No run found for id %v", id), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, run)
		return
	}

	limit := defaultRunsLimit
	if v := r.Form.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, fmt.Sprintf("invalid limit %q", v), http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.Store.Runs(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, &RunsResponse{Items: runs, ItemsCount: len(runs)})
}
