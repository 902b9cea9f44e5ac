// Package change compares two compositions of the same scene and flags a rise of one
// color relative to another.
package change

import (
	"encoding/json"
	"fmt"
	"image"
	"math"

	"github.com/charmbracelet/log"

	"colorshift/pkg/composition"
	"colorshift/pkg/lib"
)

// Epsilon keeps the denominator of a ratio away from zero.
const Epsilon = 1e-6

// DefaultThreshold is the ratio-of-ratios a change must exceed.
const DefaultThreshold = 1.5

type Options struct {
	Numerator   string
	Denominator string
	Threshold   float64
}

func DefaultOptions() Options {
	return Options{
		Numerator:   composition.Blue,
		Denominator: composition.Green,
		Threshold:   DefaultThreshold,
	}
}

// WithThreshold returns a copy of opts using threshold.
func (opts Options) WithThreshold(threshold float64) Options {
	opts.Threshold = threshold
	return opts
}

// Verdict is the outcome of comparing a before and an after composition.
type Verdict struct {
	Detected      bool                    `json:"detected"`
	Before        composition.Composition `json:"before"`
	After         composition.Composition `json:"after"`
	RatioBefore   float64                 `json:"ratio_before"`
	RatioAfter    float64                 `json:"ratio_after"`
	RatioOfRatios float64                 `json:"ratio_of_ratios"`
	Threshold     float64                 `json:"threshold"`
	Numerator     string                  `json:"numerator"`
	Denominator   string                  `json:"denominator"`
}

// MarshalJSON writes an infinite ratio of ratios as "+Inf".
func (v Verdict) MarshalJSON() ([]byte, error) {
	type plain Verdict
	if !math.IsInf(v.RatioOfRatios, 0) {
		return json.Marshal(plain(v))
	}
	return json.Marshal(struct {
		plain
		RatioOfRatios string `json:"ratio_of_ratios"`
	}{plain(v), fmt.Sprintf("%+v", v.RatioOfRatios)})
}

// Ratio returns fraction(numerator) / (fraction(denominator) + Epsilon).
func Ratio(c composition.Composition, numerator, denominator string) (float64, error) {
	num, ok := c.Fraction(numerator)
	if !ok {
		return 0, lib.NewValidationError("numerator", "composition has no %q range", numerator)
	}
	den, ok := c.Fraction(denominator)
	if !ok {
		return 0, lib.NewValidationError("denominator", "composition has no %q range", denominator)
	}
	return num / (den + Epsilon), nil
}

// Compare reports a change when the after ratio divided by the before ratio is strictly
// greater than the threshold. A falling ratio is never a change.
func Compare(before, after composition.Composition, opts Options) (Verdict, error) {
	if opts.Numerator == "" && opts.Denominator == "" && opts.Threshold == 0 {
		opts = DefaultOptions()
	}
	if opts.Threshold <= 0 || math.IsNaN(opts.Threshold) {
		return Verdict{}, lib.NewValidationError("threshold", "must be > 0 (got %v)", opts.Threshold)
	}
	rb, err := Ratio(before, opts.Numerator, opts.Denominator)
	if err != nil {
		return Verdict{}, fmt.Errorf("before: %w", err)
	}
	ra, err := Ratio(after, opts.Numerator, opts.Denominator)
	if err != nil {
		return Verdict{}, fmt.Errorf("after: %w", err)
	}

	var ror float64
	switch {
	case rb > 0:
		ror = ra / rb
	case ra > 0:
		ror = math.Inf(1)
	default:
		ror = 1
	}

	v := Verdict{
		Detected:      ror > opts.Threshold,
		Before:        before,
		After:         after,
		RatioBefore:   rb,
		RatioAfter:    ra,
		RatioOfRatios: ror,
		Threshold:     opts.Threshold,
		Numerator:     opts.Numerator,
		Denominator:   opts.Denominator,
	}
	log.Debug("Compared compositions", "before", rb, "after", ra, "ratio_of_ratios", ror, "detected", v.Detected)
	return v, nil
}

// Detect analyzes both images with the same analyzer and compares them.
func Detect(before, after image.Image, analyzer composition.Analyzer, opts Options) (Verdict, error) {
	b, err := analyzer.Analyze(before)
	if err != nil {
		return Verdict{}, fmt.Errorf("before image: %w", err)
	}
	a, err := analyzer.Analyze(after)
	if err != nil {
		return Verdict{}, fmt.Errorf("after image: %w", err)
	}
	return Compare(b, a, opts)
}
