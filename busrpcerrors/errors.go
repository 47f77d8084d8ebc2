// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package busrpcerrors

import (
	"bytes"
	"errors"
	"fmt"
)

// Newf returns a new Status.
//
// The Code should never be CodeOK, if it is, this will return nil.
func Newf(code Code, format string, args ...interface{}) *Status {
	if code == CodeOK {
		return nil
	}

	var err error
	if len(args) == 0 {
		err = errors.New(format)
	} else {
		err = fmt.Errorf(format, args...)
	}

	return &Status{
		code: code,
		err:  err,
	}
}

// Wrap returns a new Status with the given code wrapping the given error.
//
// This is used to carry bus transport failures through the call path
// without losing the underlying error for errors.Is/As inspection. A nil
// err or a CodeOK code returns nil.
func Wrap(code Code, err error) *Status {
	if err == nil || code == CodeOK {
		return nil
	}
	return &Status{
		code: code,
		err:  &wrapError{err: err},
	}
}

// FromError returns the Status for the provided error.
//
// If the error:
//   - is nil, return nil
//   - is a 'Status', return the 'Status'
//
// Otherwise, return a wrapped error with code 'CodeUnknown'.
func FromError(err error) *Status {
	if err == nil {
		return nil
	}

	var st *Status
	if errors.As(err, &st) {
		return st
	}

	return &Status{
		code: CodeUnknown,
		err:  &wrapError{err: err},
	}
}

// wrapError does what it says on the tin.
type wrapError struct {
	err error
}

// Error returns the inner error message.
func (e *wrapError) Error() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.Error()
}

// Unwrap returns the inner error.
func (e *wrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Status represents a busrpc error.
type Status struct {
	code Code
	err  error
}

// Code returns the error code for this Status.
func (s *Status) Code() Code {
	if s == nil {
		return CodeOK
	}
	return s.code
}

// Message returns the error message for this Status.
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return s.err.Error()
}

// Unwrap supports errors.Unwrap.
func (s *Status) Unwrap() error {
	if s == nil {
		return nil
	}
	return errors.Unwrap(s.err)
}

// Error implements the error interface.
func (s *Status) Error() string {
	buffer := bytes.NewBuffer(nil)
	_, _ = buffer.WriteString(`code:`)
	_, _ = buffer.WriteString(s.code.String())
	if s.err != nil && s.err.Error() != "" {
		_, _ = buffer.WriteString(` message:`)
		_, _ = buffer.WriteString(s.err.Error())
	}
	return buffer.String()
}

// CallTimeoutErrorf returns a new Status with code CodeCallTimeout
// by calling Newf(CodeCallTimeout, format, args...).
func CallTimeoutErrorf(format string, args ...interface{}) error {
	return Newf(CodeCallTimeout, format, args...)
}

// NoAvailableServerErrorf returns a new Status with code CodeNoAvailableServer
// by calling Newf(CodeNoAvailableServer, format, args...).
func NoAvailableServerErrorf(format string, args ...interface{}) error {
	return Newf(CodeNoAvailableServer, format, args...)
}

// TransportErrorf returns a new Status with code CodeTransport
// by calling Newf(CodeTransport, format, args...).
func TransportErrorf(format string, args ...interface{}) error {
	return Newf(CodeTransport, format, args...)
}

// ClientClosedErrorf returns a new Status with code CodeClientClosed
// by calling Newf(CodeClientClosed, format, args...).
func ClientClosedErrorf(format string, args ...interface{}) error {
	return Newf(CodeClientClosed, format, args...)
}

// InvalidArgumentErrorf returns a new Status with code CodeInvalidArgument
// by calling Newf(CodeInvalidArgument, format, args...).
func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return Newf(CodeInvalidArgument, format, args...)
}

// UnknownErrorf returns a new Status with code CodeUnknown
// by calling Newf(CodeUnknown, format, args...).
func UnknownErrorf(format string, args ...interface{}) error {
	return Newf(CodeUnknown, format, args...)
}

// IsCallTimeout returns true if FromError(err).Code() == CodeCallTimeout.
func IsCallTimeout(err error) bool {
	return FromError(err).Code() == CodeCallTimeout
}

// IsNoAvailableServer returns true if FromError(err).Code() == CodeNoAvailableServer.
func IsNoAvailableServer(err error) bool {
	return FromError(err).Code() == CodeNoAvailableServer
}

// IsTransport returns true if FromError(err).Code() == CodeTransport.
func IsTransport(err error) bool {
	return FromError(err).Code() == CodeTransport
}

// IsClientClosed returns true if FromError(err).Code() == CodeClientClosed.
func IsClientClosed(err error) bool {
	return FromError(err).Code() == CodeClientClosed
}

// IsInvalidArgument returns true if FromError(err).Code() == CodeInvalidArgument.
func IsInvalidArgument(err error) bool {
	return FromError(err).Code() == CodeInvalidArgument
}

// IsUnknown returns true if FromError(err).Code() == CodeUnknown.
func IsUnknown(err error) bool {
	return FromError(err).Code() == CodeUnknown
}

// ErrorCode returns the Code for the given error, CodeOK if the error is
// nil, or CodeUnknown if the given error is not a busrpc error.
func ErrorCode(err error) Code {
	return FromError(err).Code()
}
