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

// Package bustest provides an in-memory bus.Bus for testing busrpc
// clients and servers without a running redis.
package bustest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/busrpc/api/bus"
)

const subscribeBacklog = 128

// Bus is an in-memory implementation of bus.Bus. Publishes are
// delivered synchronously to every stream subscribed to the channel.
// The zero value is not usable; use New.
type Bus struct {
	mu     sync.Mutex
	keys   map[string]int64
	subs   map[string][]chan bus.Message
	closed bool

	publishErr error
	scanErr    error
}

var _ bus.Bus = (*Bus)(nil)

// New creates an empty in-memory bus.
func New() *Bus {
	return &Bus{
		keys: make(map[string]int64),
		subs: make(map[string][]chan bus.Message),
	}
}

// FailPublish makes every subsequent Publish return err. Pass nil to
// restore normal behavior.
func (b *Bus) FailPublish(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishErr = err
}

// FailScan makes every subsequent ScanKeys return err. Pass nil to
// restore normal behavior.
func (b *Bus) FailScan(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scanErr = err
}

// Publish delivers the payload to every subscriber of the channel.
func (b *Bus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("bus is closed")
	}
	if b.publishErr != nil {
		return b.publishErr
	}
	b.deliver(channel, bus.Message{Channel: channel, Payload: payload})
	return nil
}

// Inject delivers an arbitrary message to the subscribers of a channel,
// regardless of the message's own Channel field. This exists to test
// defensive handling of buses that mis-scope delivery.
func (b *Bus) Inject(subscribedChannel string, msg bus.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliver(subscribedChannel, msg)
}

// deliver must be called with b.mu held.
func (b *Bus) deliver(channel string, msg bus.Message) {
	for _, sub := range b.subs[channel] {
		select {
		case sub <- msg:
		default:
			// Subscriber backlog full; drop, as a real bus would.
		}
	}
}

// Subscribe returns a stream of messages published to the channel.
func (b *Bus) Subscribe(_ context.Context, channel string) (<-chan bus.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("bus is closed")
	}
	ch := make(chan bus.Message, subscribeBacklog)
	b.subs[channel] = append(b.subs[channel], ch)
	return ch, nil
}

// ScanKeys returns all keys matching the pattern. Only the trailing-*
// glob shape used by registration patterns is supported.
func (b *Bus) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scanErr != nil {
		return nil, b.scanErr
	}
	var matched []string
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		for key := range b.keys {
			if strings.HasPrefix(key, prefix) {
				matched = append(matched, key)
			}
		}
	} else if _, ok := b.keys[pattern]; ok {
		matched = append(matched, pattern)
	}
	return matched, nil
}

// Increment bumps the counter at key, creating it at zero first.
func (b *Bus) Increment(_ context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys[key]++
	return b.keys[key], nil
}

// Delete removes the given keys.
func (b *Bus) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range keys {
		delete(b.keys, key)
	}
	return nil
}

// HasKey reports whether the key currently exists.
func (b *Bus) HasKey(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.keys[key]
	return ok
}

// Close closes every subscription stream. Further operations fail.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			close(sub)
		}
	}
	b.subs = make(map[string][]chan bus.Message)
	return nil
}
