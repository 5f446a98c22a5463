package model

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is against any error returned by this service.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthExchange   = errors.New("auth exchange failed")
	ErrRefresh        = errors.New("token refresh failed")
	ErrReauthRequired = errors.New("re-authorization required")
	ErrAuthExpired    = errors.New("auth expired")
	ErrUpstream       = errors.New("upstream error")
	ErrUpload         = errors.New("upload failed")
	ErrNotSupported   = errors.New("not supported")
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid oauth state")
	ErrStateExpired   = errors.New("oauth state expired")
	ErrDenied         = errors.New("authorization denied")
)

// Error carries a kind plus the platform/operation it happened in.
// Msg holds provider text verbatim when there is any.
type Error struct {
	Kind     error
	Platform Platform
	Op       string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	prefix := e.Kind.Error()
	if e.Platform != "" {
		prefix = fmt.Sprintf("%s: %s", e.Platform, prefix)
	}
	if e.Op != "" {
		prefix = fmt.Sprintf("%s (%s)", prefix, e.Op)
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", prefix, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind error, platform Platform, op, msg string) *Error {
	return &Error{Kind: kind, Platform: platform, Op: op, Msg: msg}
}

func WrapError(kind error, platform Platform, op string, err error) *Error {
	return &Error{Kind: kind, Platform: platform, Op: op, Err: err}
}

func ValidationError(msg string) *Error {
	return &Error{Kind: ErrValidation, Msg: msg}
}
