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

package busrpc

import (
	"math/rand"
	"time"

	"go.uber.org/busrpc/clock"
	"go.uber.org/busrpc/serialize"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds the wait for each dispatched call.
	DefaultTimeout = 60 * time.Second

	// DefaultServerMaxAge bounds the freshness of cached server lists.
	// The eviction sweep runs at half this period.
	DefaultServerMaxAge = 60 * time.Second

	// DefaultPrefix is the tenant prefix of every channel and key this
	// client touches.
	DefaultPrefix = "busrpc"
)

// Option customizes the behavior of a Client.
type Option interface {
	apply(*clientOptions)
}

type optionFunc func(*clientOptions)

func (f optionFunc) apply(opts *clientOptions) { f(opts) }

type clientOptions struct {
	prefix               string
	timeout              time.Duration
	serverMaxAge         time.Duration
	disableRemoteCleanup bool
	codec                serialize.Codec
	clock                clock.Clock
	logger               *zap.Logger
	randomSource         rand.Source
}

var defaultOptions = clientOptions{
	prefix:       DefaultPrefix,
	timeout:      DefaultTimeout,
	serverMaxAge: DefaultServerMaxAge,
	codec:        serialize.JSONCodec{},
	clock:        clock.NewReal(),
	logger:       zap.NewNop(),
}

// Prefix sets the tenant prefix used for every channel name and
// registration key.
func Prefix(prefix string) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.prefix = prefix
	})
}

// Timeout sets the per-call wait bound. A call with no matching result
// within this window fails with CodeCallTimeout.
func Timeout(d time.Duration) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.timeout = d
	})
}

// ServerMaxAge sets the cache freshness bound for discovered server
// lists. It also drives the sweep period, at half this value.
func ServerMaxAge(d time.Duration) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.serverMaxAge = d
	})
}

// DisableAutoRemoteCleanup stops the client from deleting a server's
// remote registration key when evicting it after a timeout.
func DisableAutoRemoteCleanup() Option {
	return optionFunc(func(opts *clientOptions) {
		opts.disableRemoteCleanup = true
	})
}

// WithCodec overrides the envelope codec. The default is the JSON codec.
func WithCodec(codec serialize.Codec) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.codec = codec
	})
}

// WithClock overrides the time source used for call timeouts and the
// eviction sweep, for tests.
func WithClock(c clock.Clock) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.clock = c
	})
}

// Logger sets a zap Logger for diagnostics. The default is a no-op
// logger.
func Logger(logger *zap.Logger) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.logger = logger
	})
}

// RandomSource overrides the randomness used for server selection, for
// tests.
func RandomSource(source rand.Source) Option {
	return optionFunc(func(opts *clientOptions) {
		opts.randomSource = source
	})
}
