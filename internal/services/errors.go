package services

import (
	"errors"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// ErrorKind names the marker family of a service error for structured logging.
type ErrorKind string

const (
	KindExternalTool  ErrorKind = "external_tool"
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindTransient     ErrorKind = "transient"
)

// ServiceError carries the stage context of a failure together with its marker.
type ServiceError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	marker := ErrTransient
	if e.Marker != nil {
		marker = e.Marker
	}
	if e.Cause != nil {
		return marker.Error() + ": " + detail + ": " + e.Cause.Error()
	}
	return marker.Error() + ": " + detail
}

func (e *ServiceError) Unwrap() []error {
	errs := []error{e.Marker}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// WithHint attaches an operator hint to a service error. Other errors are
// returned unchanged.
func WithHint(err error, hint string) error {
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return err
	}
	clone := *svcErr
	clone.Hint = strings.TrimSpace(hint)
	return &clone
}

// ErrorDetails is the flattened view of a failure used by job records and logs.
type ErrorDetails struct {
	Kind      ErrorKind
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts the structured context of err. Plain errors yield their
// text as the message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		message := svcErr.Message
		if message == "" && svcErr.Cause != nil {
			message = strings.TrimSpace(svcErr.Cause.Error())
		}
		return ErrorDetails{
			Kind:      kindOf(svcErr.Marker),
			Stage:     svcErr.Stage,
			Operation: svcErr.Operation,
			Message:   message,
			Hint:      svcErr.Hint,
			Cause:     svcErr.Cause,
		}
	}
	return ErrorDetails{Kind: kindOf(err), Message: strings.TrimSpace(err.Error())}
}

func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	default:
		return KindTransient
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
