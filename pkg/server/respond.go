package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"iter"
	"net/http"

	"github.com/charmbracelet/log"

	"colorshift/pkg/lib"
	"colorshift/pkg/utils"
)

// Respond sends any results from the worker to the client.
// Clients that support flushing receive server-sent events, everyone else a JSON array.
func Respond[P ~*T, T any](w http.ResponseWriter, r *http.Request, worker iter.Seq[P]) {
	enc := json.NewEncoder(w)
	if flusher, ok := w.(http.Flusher); ok {
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		for res := range worker {
			if res == nil {
				continue
			}
			if r.Context().Err() != nil {
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				log.Error("error writing data:", "err", err)
				return
			}
			if err := enc.Encode(res); err != nil {
				log.Error("error writing data:", "err", err)
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				log.Error("error writing data:", "err", err)
				return
			}
			flusher.Flush()
		}
		if _, err := w.Write([]byte("event: exit\ndata: exit\n\n")); err != nil {
			log.Error("error sending exit event", "err", err)
		}
		return
	}

	allResults := []P{}
	for res := range worker {
		if res == nil {
			continue
		}
		if r.Context().Err() != nil {
			return
		}
		allResults = append(allResults, res)
	}
	writeJSON(w, allResults)
}

func writeJSON[T any](w http.ResponseWriter, t T) {
	w.Header().Set("Content-Type", "application/json")
	if err := utils.Encode(w, t); err != nil {
		log.Error("error writing data:", "err", err)
	}
}

// Status maps an error to an HTTP status code: a missing file is 404, an unreadable
// image 422 and invalid input 400.
func Status(err error) int {
	var loadErr *lib.LoadError
	switch {
	case errors.As(err, &loadErr):
		if errors.Is(loadErr.Err, fs.ErrNotExist) {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case lib.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := Status(err)
	if code == http.StatusInternalServerError {
		log.Error("Request failed", "err", err)
	} else {
		log.Warn("Request rejected", "status", code, "err", err)
	}
	http.Error(w, err.Error(), code)
}
