package server

import (
	"iter"
	"net/http"
	"os"
	"strconv"

	"github.com/charmbracelet/log"

	"colorshift/pkg/composition"
	"colorshift/pkg/lib"
	"colorshift/pkg/utils"
	"colorshift/pkg/walker"
)

// Entry is one streamed result of a folder walk.
type Entry struct {
	Path        string                   `json:"path"`
	Composition *composition.Composition `json:"composition,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// WalkHandler analyzes every image under ?folder=, up to ?max= files, and streams the
// compositions back as they finish.
func (s *Server) WalkHandler(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	maxStr := r.URL.Query().Get("max")

	if folder == "" {
		writeError(w, lib.NewValidationError("folder", "parameter is required"))
		return
	}

	maxFiles := -1
	if maxStr != "" {
		m, err := strconv.Atoi(maxStr)
		if err != nil || m < 1 {
			writeError(w, lib.NewValidationError("max", "%q is not a positive integer", maxStr))
			return
		}
		maxFiles = m
	}

	info, err := os.Stat(folder)
	if err != nil {
		writeError(w, lib.NewLoadError(folder, err))
		return
	}
	if !info.IsDir() {
		writeError(w, lib.NewValidationError("folder", "%s is not a directory", folder))
		return
	}

	results := make(chan walker.Result[composition.Composition])
	go func() {
		err := walker.WalkDir(r.Context(), folder, results, walker.Config[composition.Composition, *Server]{
			Max:     maxFiles,
			Skipper: walker.Skippers(utils.NotImage, utils.IsMask),
			Do:      analyzeFile,
			Args:    s,
		})
		if err != nil {
			log.Error("Walk failed", "folder", folder, "err", err)
		}
	}()

	Respond(w, r, entries(results))
	log.Info("Finished processing results for", "folder", folder)
}

func analyzeFile(args walker.Args[*Server]) (composition.Composition, error) {
	return args.Args.analyze(args.Path)
}

func entries(results <-chan walker.Result[composition.Composition]) iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for res := range utils.Iter(results) {
			entry := &Entry{Path: res.Path}
			if res.Err != nil {
				entry.Error = res.Err.Error()
			} else {
				c := res.Result
				entry.Composition = &c
			}
			if !yield(entry) {
				return
			}
		}
	}
}
