// Package report prints compositions and verdicts for people reading a terminal.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"colorshift/pkg/change"
	"colorshift/pkg/composition"
)

// Percent formats a fraction on the percentage scale, rounded to 2 decimals.
func Percent(f float64) string {
	return strconv.FormatFloat(math.Round(f*10000)/100, 'f', -1, 64) + "%"
}

func swatch(out *termenv.Output, c composition.ColorRange) string {
	return out.String("■").Foreground(out.Color(c.Display.Hex())).String()
}

// Composition prints one percentage line per color range.
func Composition(w io.Writer, c composition.Composition) {
	out := termenv.NewOutput(w)
	for i, s := range c.Shares {
		fmt.Fprintf(w, "%s The percentage of %s is %s\n", swatch(out, c.Ranges[i]), s.Name, Percent(s.Fraction))
	}
}

// Summary is a one line description such as "Blue: 10%, Green: 40%".
func Summary(c composition.Composition, names ...string) string {
	if len(names) == 0 {
		names = c.Ranges.Names()
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		f, ok := c.Fraction(name)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", title(name), Percent(f)))
	}
	return strings.Join(parts, ", ")
}

// Comparison prints the two compositions and the verdict line.
func Comparison(w io.Writer, v change.Verdict) {
	fmt.Fprintf(w, "Image 1 - %s\n", Summary(v.Before, v.Numerator, v.Denominator))
	fmt.Fprintf(w, "Image 2 - %s\n", Summary(v.After, v.Numerator, v.Denominator))
	fmt.Fprintln(w, Headline(v))
}

// Headline is the verdict sentence, also used as the caption of published alerts.
func Headline(v change.Verdict) string {
	if v.Detected {
		return fmt.Sprintf("Tsunami detected: Significant increase in %s relative to %s (x%s, threshold x%s).",
			v.Numerator, v.Denominator, ratio(v.RatioOfRatios), ratio(v.Threshold))
	}
	return fmt.Sprintf("No tsunami detected (x%s, threshold x%s).", ratio(v.RatioOfRatios), ratio(v.Threshold))
}

func ratio(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
