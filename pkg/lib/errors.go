package lib

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrLoad       = errors.New("load error")
	ErrValidation = errors.New("validation error")
	ErrPublish    = errors.New("publish error")
)

// LoadError reports an image file that is missing, unreadable or could not be decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("unable to load image %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// NewLoadError wraps err as a LoadError for path.
func NewLoadError(path string, err error) *LoadError {
	return &LoadError{Path: path, Err: err}
}

// ValidationError reports input that can never be analyzed, such as an inverted bound pair
// or an image without pixels.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError formats a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PublishKind is the category of a failed publish attempt.
type PublishKind string

const (
	PublishNetwork     PublishKind = "network"
	PublishAuth        PublishKind = "auth"
	PublishRateLimited PublishKind = "rate_limited"
	PublishRecipient   PublishKind = "recipient"
	PublishIO          PublishKind = "io"
	PublishUnknown     PublishKind = "unknown"
)

// PublishError is a single failed delivery to one recipient.
type PublishError struct {
	Kind      PublishKind
	Recipient string
	Err       error
}

func (e *PublishError) Error() string {
	if e.Recipient == "" {
		return fmt.Sprintf("publish failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("publish to %s failed (%s): %v", e.Recipient, e.Kind, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

func (e *PublishError) Is(target error) bool { return target == ErrPublish }

// IsLoad reports whether err is or wraps a LoadError.
func IsLoad(err error) bool { return errors.Is(err, ErrLoad) }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
