package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ParseError
		wantMsg  string
		wantKind error
	}{
		{
			name:     "missing field",
			err:      NewParse("sng", 0, KindMissingField, "title"),
			wantMsg:  "failed to parse sng: missing field: title",
			wantKind: ErrMissingField,
		},
		{
			name:     "unknown directive with line",
			err:      NewParse("sng", 4, KindUnknownDirective, `"#bridge"`),
			wantMsg:  `failed to parse sng line 4: unknown directive: "#bridge"`,
			wantKind: ErrUnknownDirective,
		},
		{
			name:     "malformed with path",
			err:      NewParse("sng", 2, KindMalformedSection, "extra text").WithPath("Rock/a.sng"),
			wantMsg:  "failed to parse sng at Rock/a.sng line 2: malformed section: extra text",
			wantKind: ErrMalformedSection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, tt.wantKind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.wantKind)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Errorf("parse errors should match ErrInvalidInput")
			}
		})
	}
}

func TestParseErrorKindsAreDistinct(t *testing.T) {
	err := NewParse("sng", 1, KindUnknownDirective, "x")
	if errors.Is(err, ErrMissingField) {
		t.Error("unknown directive should not match ErrMissingField")
	}
	if errors.Is(err, ErrMalformedSection) {
		t.Error("unknown directive should not match ErrMalformedSection")
	}
}

func TestParseErrorCause(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := &ParseError{Format: "json", Message: "decode", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if got := err.Error(); got != "failed to parse json: decode" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWithPathDoesNotMutate(t *testing.T) {
	orig := NewParse("sng", 1, KindMissingField, "category")
	_ = orig.WithPath("x.sng")
	if orig.Path != "" {
		t.Errorf("WithPath mutated the receiver: %q", orig.Path)
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     NewValidation("title", " x", "must not have surrounding whitespace"),
			wantMsg: "invalid title: must not have surrounding whitespace",
		},
		{
			name:    "without field",
			err:     &ValidationError{Message: "empty"},
			wantMsg: "invalid song: empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Error("validation errors should match ErrInvalidInput")
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFound("song", "Rock/Test Song")
	if got := err.Error(); got != "song not found: Rock/Test Song" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("should match ErrNotFound")
	}
	if got := (&NotFoundError{Resource: "revision"}).Error(); got != "revision not found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIOError(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewIO("write", "/data/Rock/a.sng", cause)
	if got := err.Error(); got != "failed to write /data/Rock/a.sng: permission denied" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("should unwrap to cause")
	}
	if got := NewIO("lock", "", cause).Error(); got != "failed to lock: permission denied" {
		t.Errorf("Error() = %q", got)
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("encode", "openlyrics is import-only")
	if got := err.Error(); got != "unsupported encode: openlyrics is import-only" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Error("should match ErrUnsupported")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
	base := NewNotFound("song", "a/b")
	wrapped := Wrapf(base, "load %s", "a/b")
	if wrapped.Error() != "load a/b: song not found: a/b" {
		t.Errorf("Wrapf() = %q", wrapped.Error())
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("Is should see through Wrapf")
	}
	var nf *NotFoundError
	if !As(Wrap(base, "ctx"), &nf) || nf.Key != "a/b" {
		t.Error("As should find the NotFoundError")
	}
}
