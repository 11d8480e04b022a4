/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Typed error condition carrying a taxonomy code, an optional client-facing
detail, a structured payload for logging and the wrapped cause. Errors compare by code
so callers can use errors.Is against the exported sentinels.
*/

package apperr

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Sentinels for errors.Is comparisons
var (
	ErrNoPatternMatch     = &Error{Code: NoPatternMatch}
	ErrDeviceNotFound     = &Error{Code: DeviceNotFound}
	ErrDeviceUnauthorized = &Error{Code: DeviceUnauthorized}
	ErrMissingArtifact    = &Error{Code: MissingArtifact}
	ErrUnparseableOutput  = &Error{Code: UnparseableOutput}
	ErrResourceMissing    = &Error{Code: ResourceMissing}
	ErrResourceMalformed  = &Error{Code: ResourceMalformed}
	ErrInvalidRegex       = &Error{Code: InvalidRegex}
	ErrCommandNotFound    = &Error{Code: CommandNotFound}
	ErrCommandTimeout     = &Error{Code: CommandTimeout}
	ErrScanNotFound       = &Error{Code: ScanNotFound}
)

// Error is a structured condition from the taxonomy
type Error struct {
	Code    Code
	Detail  string // overrides the client message when set
	Payload map[string]interface{}
	Err     error
}

// Response is the JSON body sent to API clients
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Number  int    `json:"error_number"`
	Output  string `json:"output,omitempty"`
}

// New creates an error for code with an optional payload
func New(code Code, payload map[string]interface{}) *Error {
	return &Error{Code: code, Payload: payload}
}

// Wrap creates an error for code around cause
func Wrap(code Code, cause error, payload map[string]interface{}) *Error {
	return &Error{Code: code, Payload: payload, Err: cause}
}

// WithDetail sets the client-facing message and returns e
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

func (e *Error) Error() string {
	info := e.Code.Info()
	msg := fmt.Sprintf("%s (%d): %s", e.Code, info.Number, info.InternalMessage)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Status returns the HTTP status for the code
func (e *Error) Status() int {
	return e.Code.Info().Status
}

// ClientMessage returns the localized text shown to API clients
func (e *Error) ClientMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Code.Info().ClientMessage
}

// Response builds the client body. Unparseable output carries the normalized text.
func (e *Error) Response() Response {
	resp := Response{
		Success: false,
		Error:   e.ClientMessage(),
		Code:    string(e.Code),
		Number:  e.Code.Info().Number,
	}
	if out, ok := e.Payload["output"].(string); ok {
		resp.Output = out
	}
	return resp
}

// Fields returns the structured log view of the error
func (e *Error) Fields() logrus.Fields {
	fields := logrus.Fields{
		"status":  e.Status(),
		"code":    string(e.Code),
		"message": e.Code.Info().InternalMessage,
	}
	if len(e.Payload) > 0 {
		fields["payload"] = e.Payload
	}
	if e.Err != nil {
		fields["cause"] = e.Err.Error()
	}
	return fields
}

// As extracts an *Error from err's chain
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// From converts any error into an *Error, wrapping unknown errors as INTERNAL_SERVER_ERROR
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return Wrap(InternalServerError, err, nil)
}
