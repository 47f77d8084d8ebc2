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
	"fmt"
	"strconv"
	"strings"
)

const (
	// CodeOK means no error; returned on success.
	CodeOK Code = 0

	// CodeUnknown means an unknown error. Errors raised by APIs that do not
	// return enough error information may be converted to this error.
	CodeUnknown Code = 1

	// CodeCallTimeout means no matching result envelope arrived within the
	// configured per-call timeout of dispatch. The call may still have
	// executed remotely; only the local wait was abandoned.
	CodeCallTimeout Code = 2

	// CodeNoAvailableServer means discovery produced an empty server list
	// for the requested service name. No timer is involved; calls with this
	// code failed fast.
	CodeNoAvailableServer Code = 3

	// CodeTransport means the message bus itself reported a failure on a
	// publish, scan, increment, or delete. The underlying bus error is
	// retained and can be unwrapped.
	CodeTransport Code = 4

	// CodeClientClosed means the client was stopped while the call was
	// still outstanding.
	CodeClientClosed Code = 5

	// CodeInvalidArgument means the caller specified an invalid argument,
	// such as an empty service name.
	CodeInvalidArgument Code = 6
)

var (
	_codeToString = map[Code]string{
		CodeOK:                "ok",
		CodeUnknown:           "unknown",
		CodeCallTimeout:       "call-timeout",
		CodeNoAvailableServer: "no-available-server",
		CodeTransport:         "transport",
		CodeClientClosed:      "client-closed",
		CodeInvalidArgument:   "invalid-argument",
	}
	_stringToCode = map[string]Code{
		"ok":                  CodeOK,
		"unknown":             CodeUnknown,
		"call-timeout":        CodeCallTimeout,
		"no-available-server": CodeNoAvailableServer,
		"transport":           CodeTransport,
		"client-closed":       CodeClientClosed,
		"invalid-argument":    CodeInvalidArgument,
	}
)

// Code represents the kind of failure for a dispatched call.
//
// Retry layers switch on the Code, never on message text.
type Code int

// String returns the string representation of the Code.
func (c Code) String() string {
	s, ok := _codeToString[c]
	if ok {
		return s
	}
	return strconv.Itoa(int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	s, ok := _codeToString[c]
	if !ok {
		return nil, fmt.Errorf("unknown code: %d", c)
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	i, ok := _stringToCode[strings.ToLower(string(text))]
	if !ok {
		return fmt.Errorf("unknown code string: %s", string(text))
	}
	*c = i
	return nil
}
