// Package apperr defines the error kinds the assessment pipeline can terminate with
// and their mapping onto transport status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind uint8

const (
	// KindUnknown is for errors raised outside the pipeline.
	KindUnknown Kind = iota
	// KindDecode is for unreadable, truncated or unsupported image bytes.
	KindDecode
	// KindImageTooSmall is for images below the minimum usable resolution.
	KindImageTooSmall
	// KindSegmentation is for degenerate buffers and extractor failures.
	KindSegmentation
	// KindConfig is for malformed weight sources.
	KindConfig
)

// String returns the stable identifier of the kind.
func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode_error"
	case KindImageTooSmall:
		return "image_too_small"
	case KindSegmentation:
		return "segmentation_error"
	case KindConfig:
		return "config_error"
	default:
		return "unknown_error"
	}
}

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Sentinels match any *Error of the same kind through errors.Is.
var (
	ErrDecode        = &Error{Kind: KindDecode}
	ErrImageTooSmall = &Error{Kind: KindImageTooSmall}
	ErrSegmentation  = &Error{Kind: KindSegmentation}
	ErrConfig        = &Error{Kind: KindConfig}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// New returns an *Error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf returns an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, a ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from anywhere in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps err onto a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindDecode:
		return http.StatusBadRequest
	case KindImageTooSmall, KindSegmentation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to return to callers.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindDecode:
		return "unable to decode image"
	case KindImageTooSmall:
		return "image resolution is too small for assessment"
	case KindSegmentation:
		return "unable to locate a usable image region"
	default:
		return "internal error"
	}
}

// ParseKind is the inverse of Kind.String. Unrecognized names give KindUnknown.
func ParseKind(name string) Kind {
	for _, k := range []Kind{KindDecode, KindImageTooSmall, KindSegmentation, KindConfig} {
		if k.String() == name {
			return k
		}
	}
	return KindUnknown
}
