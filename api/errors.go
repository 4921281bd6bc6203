// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and the failure taxonomy of a placement run.

package api

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common errors used across the module.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotSupported    = errors.New("operation not supported")
	ErrAborted         = errors.New("run aborted by coordinator")
	ErrUnexpectedFrame = errors.New("unexpected frame")
	ErrLengthMismatch  = errors.New("payload length does not match layout")
	ErrNoLayout        = errors.New("layout table not planned")
)

// ErrorCode classifies a fatal run failure.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeConfig
	ErrCodeBootstrap
	ErrCodeAllocation
	ErrCodeProbe
	ErrCodeCollective
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeConfig:
		return "config"
	case ErrCodeBootstrap:
		return "bootstrap"
	case ErrCodeAllocation:
		return "allocation"
	case ErrCodeProbe:
		return "probe"
	case ErrCodeCollective:
		return "collective"
	default:
		return "internal"
	}
}

// Error represents a structured error with code, context and an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface. Context keys are printed in sorted
// order so the same failure always reads the same way.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.String())
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Context[k])
		}
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// ExitCode maps the error class to a process exit status.
func (e *Error) ExitCode() int {
	switch e.Code {
	case ErrCodeOK:
		return 0
	case ErrCodeConfig:
		return 2
	case ErrCodeBootstrap:
		return 3
	case ErrCodeAllocation:
		return 4
	case ErrCodeProbe:
		return 5
	case ErrCodeCollective:
		return 6
	default:
		return 1
	}
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap creates a structured error around cause.
func Wrap(code ErrorCode, cause error, message string) *Error {
	e := NewError(code, message)
	e.Cause = cause
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
