// Package server exposes the analyzer and change detector over HTTP.
package server

import (
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"colorshift/pkg/change"
	"colorshift/pkg/composition"
	"colorshift/pkg/config"
	"colorshift/pkg/imageio"
	"colorshift/pkg/lib"
	"colorshift/pkg/mask"
)

// Server answers analysis requests for image paths readable by the process.
type Server struct {
	Analyzer composition.Analyzer
	Options  change.Options
	MaxDim   int
}

// New builds a Server from cfg, reading its ranges file if one is set.
func New(cfg config.Config) (*Server, error) {
	analyzer, err := cfg.Analyzer()
	if err != nil {
		return nil, fmt.Errorf("error loading color ranges: %w", err)
	}
	return &Server{Analyzer: analyzer, Options: cfg.Options(), MaxDim: cfg.MaxDim}, nil
}

// Handler registers every endpoint on a new mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /analyze", s.AnalyzeHandler)
	mux.HandleFunc("GET /compare", s.CompareHandler)
	mux.HandleFunc("GET /mask", s.MaskHandler)
	mux.HandleFunc("GET /walk", s.WalkHandler)
	return mux
}

func (s *Server) ranges() composition.Ranges {
	if len(s.Analyzer.Ranges) == 0 {
		return composition.DefaultRanges()
	}
	return s.Analyzer.Ranges
}

func (s *Server) analyze(path string) (composition.Composition, error) {
	img, err := imageio.LoadScaled(path, s.MaxDim)
	if err != nil {
		return composition.Composition{}, err
	}
	return s.Analyzer.Analyze(img)
}

// AnalyzeHandler returns the composition of the image at ?path=.
func (s *Server) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, lib.NewValidationError("path", "parameter is required"))
		return
	}
	c, err := s.analyze(path)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info("Analyzed", "path", path, "dominant", dominant(c))
	writeJSON(w, c)
}

// CompareHandler returns the verdict for ?before= and ?after=, with an optional ?threshold=.
func (s *Server) CompareHandler(w http.ResponseWriter, r *http.Request) {
	before := r.URL.Query().Get("before")
	after := r.URL.Query().Get("after")
	if before == "" || after == "" {
		writeError(w, lib.NewValidationError("before/after", "both parameters are required"))
		return
	}

	opts := s.Options
	if opts == (change.Options{}) {
		opts = change.DefaultOptions()
	}
	if thresholdStr := r.URL.Query().Get("threshold"); thresholdStr != "" {
		threshold, err := strconv.ParseFloat(thresholdStr, 64)
		if err != nil {
			writeError(w, lib.NewValidationError("threshold", "%q is not a number", thresholdStr))
			return
		}
		opts = opts.WithThreshold(threshold)
	}

	b, err := s.analyze(before)
	if err != nil {
		writeError(w, fmt.Errorf("before image: %w", err))
		return
	}
	a, err := s.analyze(after)
	if err != nil {
		writeError(w, fmt.Errorf("after image: %w", err))
		return
	}
	verdict, err := change.Compare(b, a, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info("Compared", "before", before, "after", after, "ratio_of_ratios", verdict.RatioOfRatios, "detected", verdict.Detected)
	writeJSON(w, verdict)
}

// MaskHandler writes the mask of range ?color= over the image at ?path= as a PNG.
func (s *Server) MaskHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	name := r.URL.Query().Get("color")
	if path == "" || name == "" {
		writeError(w, lib.NewValidationError("path/color", "both parameters are required"))
		return
	}
	cr, ok := s.ranges().Get(name)
	if !ok {
		writeError(w, lib.NewValidationError("color", "unknown range %q, use one of %v", name, s.ranges().Names()))
		return
	}
	img, err := imageio.LoadScaled(path, s.MaxDim)
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := mask.New(img, cr.Bounds, s.Analyzer.Order)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, m.Image()); err != nil {
		log.Error("error writing mask", "path", path, "err", err)
	}
}

func dominant(c composition.Composition) string {
	if share, ok := c.Dominant(); ok {
		return share.Name
	}
	return ""
}
