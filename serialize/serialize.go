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

// Package serialize defines the wire envelope exchanged over the message
// bus and the codec used to encode and decode it.
package serialize

import (
	"encoding/json"
	"errors"
)

// Envelope types.
const (
	// TypeCall marks an envelope carrying a request to a server.
	TypeCall = "call"
	// TypeResult marks an envelope carrying a response to a caller.
	TypeResult = "result"
)

// Envelope is the wire-level unit exchanged over the bus. One envelope of
// type "call" is published to a server's listen channel per dispatched
// call; the server answers with one envelope of type "result" on the
// caller's listen channel, echoing the correlation ID.
type Envelope struct {
	// ID is the correlation id, globally unique per call, generated by
	// the caller.
	ID string `json:"id"`

	// Sender is the identity of the publishing client. Servers use it to
	// address the result envelope; it is not otherwise interpreted here.
	Sender string `json:"sender,omitempty"`

	// Type is TypeCall or TypeResult.
	Type string `json:"type"`

	// Name is the service name. Call envelopes only.
	Name string `json:"name,omitempty"`

	// Args carries the ordered call arguments (call) or result values
	// (result).
	Args []interface{} `json:"args"`

	// Error describes a remote failure. Result envelopes only.
	Error *ErrorDescriptor `json:"error,omitempty"`
}

// ErrorDescriptor is the wire representation of a remote error.
type ErrorDescriptor struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Codec encodes and decodes envelopes. Implementations must be safe for
// concurrent use.
type Codec interface {
	Encode(e *Envelope) ([]byte, error)
	Decode(data []byte) (*Envelope, error)
}

// JSONCodec is the default Codec, matching the JSON wire format spoken
// by the server peers.
type JSONCodec struct{}

var _ Codec = JSONCodec{}

// Encode marshals an envelope to JSON.
func (JSONCodec) Encode(e *Envelope) ([]byte, error) {
	if e == nil {
		return nil, errors.New("cannot encode nil envelope")
	}
	return json.Marshal(e)
}

// Decode unmarshals an envelope from JSON.
func (JSONCodec) Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		return nil, errors.New("envelope is missing an id")
	}
	return &e, nil
}
