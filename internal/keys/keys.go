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

// Package keys derives process-unique client identities and builds the
// colon-joined bus keys used both as pub/sub channel names and as
// key-value entries representing server registrations.
//
// Key shapes, with an optional tenant prefix:
//
//	<prefix>:L:<clientID>            listen channel
//	<prefix>:S:<serviceName>:<serverID>  service registration key
package keys

import (
	"strings"

	"github.com/google/uuid"
)

const (
	listenSegment = "L"
	serverSegment = "S"
)

// NewIdentity returns a fresh process-unique client identity. The
// identity doubles as the client's listen channel suffix and as the
// owner segment of any registration keys the process creates.
func NewIdentity() string {
	return uuid.NewString()
}

// ListenChannel builds the pub/sub channel a client with the given
// identity listens on.
func ListenChannel(prefix, clientID string) string {
	return join(prefix, listenSegment, clientID)
}

// ServerKey builds the registration key for one server of a service.
// Presence of the key, not its value, denotes registration.
func ServerKey(prefix, service, serverID string) string {
	return join(prefix, serverSegment, service, serverID)
}

// ServerPattern builds the glob pattern matching every registration key
// for a service.
func ServerPattern(prefix, service string) string {
	return join(prefix, serverSegment, service, "*")
}

// ServerIDFromKey extracts the server identifier from a registration key
// previously built by ServerKey. The second return is false if the key
// does not have the registration shape.
func ServerIDFromKey(key string) (string, bool) {
	segments := strings.Split(key, ":")
	if len(segments) < 4 || segments[len(segments)-1] == "" {
		return "", false
	}
	return segments[len(segments)-1], true
}

func join(segments ...string) string {
	return strings.Join(segments, ":")
}
