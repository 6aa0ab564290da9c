package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	ProjectNotFound    Code = "PROJECT_NOT_FOUND"
	AlbumNotFound      Code = "ALBUM_NOT_FOUND"
	PhotoNotFound      Code = "PHOTO_NOT_FOUND"
	TemplateNotFound   Code = "TEMPLATE_NOT_FOUND"
	GenerationNotFound Code = "GENERATION_NOT_FOUND"

	InvalidName       Code = "INVALID_NAME"
	InvalidColor      Code = "INVALID_COLOR"
	InvalidURL        Code = "INVALID_URL"
	InvalidPrompt     Code = "INVALID_PROMPT"
	InvalidModel      Code = "INVALID_MODEL"
	InvalidDimensions Code = "INVALID_DIMENSIONS"
	InvalidParameters Code = "INVALID_PARAMETERS"
	InvalidRequest    Code = "INVALID_REQUEST"

	DuplicateOrder Code = "DUPLICATE_ORDER"
	DuplicateName  Code = "DUPLICATE_NAME"

	InvalidReference Code = "INVALID_REFERENCE"

	QuotaExceeded      Code = "QUOTA_EXCEEDED"
	ServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	GenerationFailed   Code = "GENERATION_FAILED"

	Unauthorized Code = "UNAUTHORIZED"
	Internal     Code = "INTERNAL"
)

// Kind groups codes by how a caller is expected to react.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindIntegrity
	KindExternal
	KindUnauthorized
)

// ParamError describes a single failed template or model parameter.
type ParamError struct {
	Parameter string `json:"parameter"`
	Message   string `json:"message"`
}

type Error struct {
	Code             Code
	Kind             Kind
	Message          string
	Field            string
	ValidationErrors []ParamError
	Details          map[string]any
	Err              error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithField returns a copy of e pointing at the offending request field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// WithDetail returns a copy of e carrying an extra detail entry.
func (e *Error) WithDetail(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func New(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code Code, format string, args ...any) *Error {
	return New(KindNotFound, code, format, args...)
}

func Validation(code Code, field, format string, args ...any) *Error {
	e := New(KindValidation, code, format, args...)
	e.Field = field
	return e
}

func Conflict(code Code, field, format string, args ...any) *Error {
	e := New(KindConflict, code, format, args...)
	e.Field = field
	return e
}

func Integrity(code Code, field, format string, args ...any) *Error {
	e := New(KindIntegrity, code, format, args...)
	e.Field = field
	return e
}

func External(code Code, err error, format string, args ...any) *Error {
	e := New(KindExternal, code, format, args...)
	e.Err = err
	return e
}

func Wrap(err error, format string, args ...any) *Error {
	e := New(KindInternal, Internal, format, args...)
	e.Err = err
	return e
}

// Parameters builds an INVALID_PARAMETERS error whose message names the
// first failing parameter.
func Parameters(errs []ParamError) *Error {
	if len(errs) == 0 {
		return nil
	}
	e := Validation(InvalidParameters, errs[0].Parameter, "invalid parameter %q: %s", errs[0].Parameter, errs[0].Message)
	e.ValidationErrors = errs
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code carried by err or Internal.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return Internal
}
