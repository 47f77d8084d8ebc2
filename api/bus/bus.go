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

// Package bus defines the message bus capability consumed by the busrpc
// client: pub/sub delivery plus a small key-value surface used for
// service discovery. Implementations own the underlying transport
// connections; the client owns exactly one Bus and must Close it.
package bus

import "context"

// Message is a single delivery from a subscription: the channel it was
// published on and the raw payload.
type Message struct {
	Channel string
	Payload []byte
}

// Bus is the subset of message bus operations used by the client.
//
// Implementations MUST keep command calls (Publish, ScanKeys, Increment,
// Delete) from blocking subscription delivery; the redis implementation
// does this with two separate connections.
type Bus interface {
	// Publish sends a payload to a channel. Fire-and-forget: a nil error
	// means the bus accepted the payload, not that anybody received it.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe returns a stream of messages for the given channel. The
	// returned channel MUST be closed when the Bus is closed. Subscribe
	// returns once the subscription is established.
	Subscribe(ctx context.Context, channel string) (<-chan Message, error)

	// ScanKeys returns all keys matching a glob-style pattern.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// Increment atomically increments the counter at key, creating it at
	// zero first if absent, and returns the new value.
	Increment(ctx context.Context, key string) (int64, error)

	// Delete removes the given keys. Deleting absent keys is not an error.
	Delete(ctx context.Context, keys ...string) error

	// Close tears down all connections owned by the Bus and closes any
	// subscription streams.
	Close() error
}
