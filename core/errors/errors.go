// Package errors provides the typed errors shared by the songbook packages.
//
// Parse failures carry a Kind that maps onto a sentinel error, so callers can
// branch with errors.Is without inspecting messages:
//
//	song, err := song.Parse(text)
//	if errors.Is(err, errors.ErrMissingField) {
//		...
//	}
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a song, revision or file was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")

	// ErrMissingField indicates a required header field (title or category) is absent.
	ErrMissingField = errors.New("missing field")
	// ErrUnknownDirective indicates a '#' line with an unrecognized keyword,
	// or content before the first directive.
	ErrUnknownDirective = errors.New("unknown directive")
	// ErrMalformedSection indicates a block whose body has an impossible shape.
	ErrMalformedSection = errors.New("malformed section")
)

// Kind classifies a ParseError.
type Kind string

const (
	KindMissingField     Kind = "missing field"
	KindUnknownDirective Kind = "unknown directive"
	KindMalformedSection Kind = "malformed section"
)

func (k Kind) sentinel() error {
	switch k {
	case KindMissingField:
		return ErrMissingField
	case KindUnknownDirective:
		return ErrUnknownDirective
	case KindMalformedSection:
		return ErrMalformedSection
	}
	return nil
}

// ParseError reports why a document could not be turned into a song.
type ParseError struct {
	Format  string // Format being parsed (e.g., "sng", "json", "openlyrics")
	Path    string // File path, if known
	Line    int    // 1-based line number, 0 when not tied to a line
	Kind    Kind
	Message string
	Err     error // Underlying error, if any
}

func (e *ParseError) Error() string {
	where := e.Format
	if e.Path != "" {
		where = fmt.Sprintf("%s at %s", e.Format, e.Path)
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s line %d", where, e.Line)
	}
	if e.Kind != "" {
		return fmt.Sprintf("failed to parse %s: %s: %s", where, e.Kind, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", where, e.Message)
}

// Unwrap exposes the kind sentinel, ErrInvalidInput and the cause.
func (e *ParseError) Unwrap() []error {
	errs := make([]error, 0, 3)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	errs = append(errs, ErrInvalidInput)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// WithPath returns a copy of e annotated with the file it came from.
func (e *ParseError) WithPath(path string) *ParseError {
	cp := *e
	cp.Path = path
	return &cp
}

// ValidationError represents a song value the format cannot represent.
type ValidationError struct {
	Field   string // Field name, e.g. "title" or "sections[2].lyrics"
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid song: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError represents a missing song, revision or bundle entry.
type NotFoundError struct {
	Resource string // "song", "revision", "format"
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "lock")
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// UnsupportedError represents an operation a format or archive cannot perform.
type UnsupportedError struct {
	Feature string
	Reason  string
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}

// NewParse creates a ParseError of the given kind for a line of input.
func NewParse(format string, line int, kind Kind, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Line:    line,
		Kind:    kind,
		Message: message,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, key string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Key:      key,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target any) bool {
	return errors.As(err, target)
}
