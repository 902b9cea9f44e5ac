// Package notify publishes change verdicts. Publishing never panics or retries; every
// failed delivery is returned to the caller as a typed *lib.PublishError.
package notify

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/telebot.v4"

	"colorshift/pkg/change"
	"colorshift/pkg/lib"
	"colorshift/pkg/report"
)

// Alert is one verdict together with the captures it was computed from.
type Alert struct {
	Verdict    change.Verdict
	BeforePath string
	AfterPath  string
	At         time.Time
}

// Caption is the text sent along with an alert.
func (a Alert) Caption() string {
	var sb strings.Builder
	sb.WriteString(report.Headline(a.Verdict))
	sb.WriteString("\nBefore: ")
	sb.WriteString(report.Summary(a.Verdict.Before, a.Verdict.Numerator, a.Verdict.Denominator))
	sb.WriteString("\nAfter: ")
	sb.WriteString(report.Summary(a.Verdict.After, a.Verdict.Numerator, a.Verdict.Denominator))
	if !a.At.IsZero() {
		sb.WriteString("\n")
		sb.WriteString(a.At.Format(time.DateTime))
	}
	return sb.String()
}

// Outcome summarizes a publish attempt.
type Outcome struct {
	Delivered int
	Failures  []*lib.PublishError
}

// OK reports whether nothing failed.
func (o Outcome) OK() bool { return len(o.Failures) == 0 }

// Err joins every failure, nil when OK.
func (o Outcome) Err() error {
	errs := make([]error, len(o.Failures))
	for i, f := range o.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

type Publisher interface {
	Publish(ctx context.Context, alert Alert) Outcome
}

// Log writes alerts to a logger. It is used when no remote publisher is configured.
type Log struct {
	Logger *log.Logger
}

func (l Log) Publish(_ context.Context, alert Alert) Outcome {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Warn(report.Headline(alert.Verdict),
		"before", alert.BeforePath,
		"after", alert.AfterPath,
		"ratio_of_ratios", alert.Verdict.RatioOfRatios,
	)
	return Outcome{Delivered: 1}
}

// Classify maps a delivery error to a PublishKind.
func Classify(err error) lib.PublishKind {
	var apiErr *telebot.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401:
			return lib.PublishAuth
		case 400, 403:
			return lib.PublishRecipient
		case 429:
			return lib.PublishRateLimited
		}
	}

	var (
		netErr net.Error
		urlErr *url.Error
	)
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return lib.PublishIO
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return lib.PublishNetwork
	case errors.As(err, &netErr), errors.As(err, &urlErr):
		return lib.PublishNetwork
	case err != nil && strings.Contains(err.Error(), "Too Many Requests"):
		return lib.PublishRateLimited
	case err != nil && strings.Contains(err.Error(), "Unauthorized"):
		return lib.PublishAuth
	}
	return lib.PublishUnknown
}
