package httpx

import (
	"errors"
	"log/slog"
	"net/http"
)

// Kind classifies an error for the client.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindToken
	KindUpstream
)

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict, KindToken:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindToken:
		return "token"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is a classified failure. Msg is safe to show to clients; Err is for logs.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + ": " + e.Msg
	}
	return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Msg: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Msg: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Msg: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Msg: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Token(msg string) *Error        { return &Error{Kind: KindToken, Msg: msg} }

// Upstream wraps a failed collaborator call (mail, conversion, transcription).
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

const internalMsg = "Internal server error"

// WriteError renders err as {"error": ...}. Unclassified errors become a 500 with a
// generic message and are logged under event; server-side kinds are logged too.
func WriteError(w http.ResponseWriter, log *slog.Logger, event string, err error) {
	var e *Error
	if !errors.As(err, &e) {
		if log != nil {
			log.Error(event, "err", err)
		}
		WriteJSON(w, http.StatusInternalServerError, ErrorBody{Error: internalMsg})
		return
	}

	status := e.Kind.Status()
	msg := e.Msg
	if msg == "" {
		msg = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError && log != nil {
		log.Error(event, "kind", e.Kind.String(), "err", e.Err)
	}
	WriteJSON(w, status, ErrorBody{Error: msg})
}
