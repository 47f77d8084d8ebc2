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

// Package registrar maintains a server process's registration keys on
// the bus so that clients can discover it. It is the presence half of a
// server; executing incoming calls is out of scope here.
package registrar

import (
	"context"
	"sync"

	"go.uber.org/busrpc/api/bus"
	"go.uber.org/busrpc/internal/keys"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Registrar registers and deregisters the services one server process
// offers. The registration key's value is a hit counter bumped on every
// Register; presence of the key, not its value, is what clients use.
type Registrar struct {
	bus    bus.Bus
	prefix string
	id     string
	logger *zap.Logger

	mu       sync.Mutex
	services map[string]struct{}
}

// Option configures a Registrar.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) { f(opts) }

type options struct {
	prefix string
	logger *zap.Logger
}

// Prefix sets the tenant prefix for registration keys. It must match
// the prefix clients are configured with.
func Prefix(prefix string) Option {
	return optionFunc(func(opts *options) {
		opts.prefix = prefix
	})
}

// Logger specifies a logger.
func Logger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

// New creates a Registrar with a fresh server identity.
func New(b bus.Bus, opts ...Option) *Registrar {
	options := options{
		prefix: "busrpc",
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt.apply(&options)
	}
	return &Registrar{
		bus:      b,
		prefix:   options.prefix,
		id:       keys.NewIdentity(),
		logger:   options.logger,
		services: make(map[string]struct{}),
	}
}

// Identity returns the server identity under which services are
// registered. Clients route call envelopes to the listen channel
// derived from this identity.
func (r *Registrar) Identity() string {
	return r.id
}

// ListenChannel returns the channel a server with this identity should
// subscribe to for incoming call envelopes.
func (r *Registrar) ListenChannel() string {
	return keys.ListenChannel(r.prefix, r.id)
}

// Register announces that this server offers the service.
func (r *Registrar) Register(ctx context.Context, service string) error {
	if _, err := r.bus.Increment(ctx, keys.ServerKey(r.prefix, service, r.id)); err != nil {
		return err
	}
	r.mu.Lock()
	r.services[service] = struct{}{}
	r.mu.Unlock()
	r.logger.Debug("registered service",
		zap.String("service", service),
		zap.String("server", r.id))
	return nil
}

// Deregister withdraws this server's registration for the service.
// Deregistering a service that was never registered is a no-op.
func (r *Registrar) Deregister(ctx context.Context, service string) error {
	r.mu.Lock()
	delete(r.services, service)
	r.mu.Unlock()
	return r.bus.Delete(ctx, keys.ServerKey(r.prefix, service, r.id))
}

// DeregisterAll withdraws every registration made through this
// Registrar, typically on shutdown.
func (r *Registrar) DeregisterAll(ctx context.Context) error {
	r.mu.Lock()
	services := make([]string, 0, len(r.services))
	for service := range r.services {
		services = append(services, service)
	}
	r.services = make(map[string]struct{})
	r.mu.Unlock()

	var err error
	for _, service := range services {
		err = multierr.Append(err, r.bus.Delete(ctx, keys.ServerKey(r.prefix, service, r.id)))
	}
	return err
}
