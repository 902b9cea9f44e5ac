package composition

import (
	"fmt"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"colorshift/pkg/lib"
	"colorshift/pkg/mask"
	"colorshift/pkg/utils"
)

const (
	Blue  = "blue"
	Green = "green"
	Red   = "red"
)

// ColorRange names one bound pair. Display is only used when presenting results.
type ColorRange struct {
	Name    string         `json:"name"`
	Bounds  mask.Bounds    `json:"bounds"`
	Display colorful.Color `json:"-"`
}

// Ranges is an ordered color table. Names must be unique.
type Ranges []ColorRange

// DefaultRanges returns the reference blue, green and red bounds, authored in BGR order.
func DefaultRanges() Ranges {
	return Ranges{
		{Name: Blue, Bounds: mask.Bounds{Lower: mask.Pixel{50, 0, 0}, Upper: mask.Pixel{255, 100, 100}}, Display: colorful.Color{R: 0, G: 0, B: 1}},
		{Name: Green, Bounds: mask.Bounds{Lower: mask.Pixel{0, 40, 0}, Upper: mask.Pixel{100, 255, 100}}, Display: colorful.Color{R: 0, G: 1, B: 0}},
		{Name: Red, Bounds: mask.Bounds{Lower: mask.Pixel{0, 0, 40}, Upper: mask.Pixel{100, 100, 255}}, Display: colorful.Color{R: 1, G: 0, B: 0}},
	}
}

// Validate checks that the table is non-empty, names are unique and every bound pair is ordered.
func (r Ranges) Validate() error {
	if len(r) == 0 {
		return lib.NewValidationError("ranges", "no color ranges configured")
	}
	seen := make(map[string]struct{}, len(r))
	for _, cr := range r {
		if cr.Name == "" {
			return lib.NewValidationError("ranges", "color range without a name")
		}
		if _, ok := seen[cr.Name]; ok {
			return lib.NewValidationError("ranges", "duplicate color range %q", cr.Name)
		}
		seen[cr.Name] = struct{}{}
		if err := cr.Bounds.Validate(); err != nil {
			return fmt.Errorf("color range %q: %w", cr.Name, err)
		}
	}
	return nil
}

// Get returns the range called name.
func (r Ranges) Get(name string) (ColorRange, bool) {
	for _, cr := range r {
		if cr.Name == name {
			return cr, true
		}
	}
	return ColorRange{}, false
}

// Names lists the range names in table order.
func (r Ranges) Names() []string {
	names := make([]string, len(r))
	for i, cr := range r {
		names[i] = cr.Name
	}
	return names
}

// rangeFile is the on-disk form of a ColorRange.
type rangeFile struct {
	Name    string     `json:"name"`
	Lower   mask.Pixel `json:"lower"`
	Upper   mask.Pixel `json:"upper"`
	Display string     `json:"display,omitempty"`
}

// LoadRanges reads a JSON array of {"name", "lower", "upper", "display"} objects.
// Bounds are in the analyzer's channel order, display is a "#rrggbb" hex color.
func LoadRanges(path string) (Ranges, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening ranges file: %w", err)
	}
	entries, err := utils.DecodeAndClose[[]rangeFile](f)
	if err != nil {
		return nil, lib.NewValidationError("ranges", "error decoding %s: %v", path, err)
	}
	return fromFile(entries)
}

func fromFile(entries []rangeFile) (Ranges, error) {
	defaults := DefaultRanges()
	ranges := make(Ranges, 0, len(entries))
	for _, e := range entries {
		cr := ColorRange{
			Name:   strings.ToLower(strings.TrimSpace(e.Name)),
			Bounds: mask.Bounds{Lower: e.Lower, Upper: e.Upper},
		}
		switch {
		case e.Display != "":
			display, err := colorful.Hex(e.Display)
			if err != nil {
				return nil, lib.NewValidationError("ranges", "invalid display color %q for %q; use hex (e.g. #ff0000)", e.Display, cr.Name)
			}
			cr.Display = display
		default:
			if def, ok := defaults.Get(cr.Name); ok {
				cr.Display = def.Display
			} else {
				cr.Display = colorful.Color{R: 0.5, G: 0.5, B: 0.5}
			}
		}
		ranges = append(ranges, cr)
	}
	return ranges, ranges.Validate()
}
