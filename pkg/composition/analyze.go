// Package composition measures how much of an image falls inside each configured color range.
package composition

import (
	"fmt"
	"image"

	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"

	"colorshift/pkg/mask"
)

// Share is the result for a single color range.
type Share struct {
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
	// Mean is the average color of the matched pixels, empty when nothing matched.
	Mean string `json:"mean,omitempty"`
}

// Composition is the per-range share of one image. Shares follow the order of Ranges
// and need not sum to 1.
type Composition struct {
	Ranges Ranges  `json:"ranges"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Total  int     `json:"total"`
	Shares []Share `json:"shares"`
}

// Fraction returns the share of the range called name.
func (c Composition) Fraction(name string) (float64, bool) {
	for _, s := range c.Shares {
		if s.Name == name {
			return s.Fraction, true
		}
	}
	return 0, false
}

func (c Composition) Blue() float64  { f, _ := c.Fraction(Blue); return f }
func (c Composition) Green() float64 { f, _ := c.Fraction(Green); return f }
func (c Composition) Red() float64   { f, _ := c.Fraction(Red); return f }

// Dominant returns the range with the largest fraction, the first in table order on ties.
func (c Composition) Dominant() (Share, bool) {
	if len(c.Shares) == 0 {
		return Share{}, false
	}
	best := c.Shares[0]
	for _, s := range c.Shares[1:] {
		if s.Fraction > best.Fraction {
			best = s
		}
	}
	return best, true
}

// Analyzer holds the color table and channel order used for every analysis.
// The zero value uses DefaultRanges in BGR order.
type Analyzer struct {
	Ranges Ranges
	Order  mask.ChannelOrder
}

// Analyze runs the analyzer's configuration over img.
func (a Analyzer) Analyze(img image.Image) (Composition, error) {
	return Analyze(img, a.Ranges, a.Order)
}

// Analyze masks img with every range and divides each masked count by the pixel count.
// An empty ranges table means DefaultRanges.
func Analyze(img image.Image, ranges Ranges, order mask.ChannelOrder) (Composition, error) {
	if len(ranges) == 0 {
		ranges = DefaultRanges()
	}
	if err := ranges.Validate(); err != nil {
		return Composition{}, err
	}
	if err := mask.CheckArea(img); err != nil {
		return Composition{}, err
	}

	b := img.Bounds()
	total := b.Dx() * b.Dy()
	result := Composition{
		Ranges: ranges,
		Width:  b.Dx(),
		Height: b.Dy(),
		Total:  total,
		Shares: make([]Share, len(ranges)),
	}
	for i, cr := range ranges {
		m, err := mask.New(img, cr.Bounds, order)
		if err != nil {
			return Composition{}, fmt.Errorf("color range %q: %w", cr.Name, err)
		}
		count := m.Count()
		result.Shares[i] = Share{
			Name:     cr.Name,
			Count:    count,
			Fraction: float64(count) / float64(total),
			Mean:     meanColor(img, m),
		}
	}
	log.Debug("Analyzed image", "width", result.Width, "height", result.Height, "shares", result.Shares)
	return result, nil
}

// meanColor averages the masked pixels in RGB space.
func meanColor(img image.Image, m *mask.Mask) string {
	var (
		r, g, b float64
		n       int
	)
	for pt, p := range mask.Pixels(img, mask.RGB) {
		if !m.At(pt.X, pt.Y) {
			continue
		}
		r += float64(p[0])
		g += float64(p[1])
		b += float64(p[2])
		n++
	}
	if n == 0 {
		return ""
	}
	div := float64(n) * 255
	return colorful.Color{R: r / div, G: g / div, B: b / div}.Clamped().Hex()
}
