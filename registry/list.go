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

// Package registry maintains a locally cached, time-bounded view of the
// servers registered for each service name, and picks one uniformly at
// random per call.
//
// Entries are populated lazily from a bus key scan on first lookup,
// refreshed when found empty or stale, and evicted by a periodic sweep
// so that service names looked up once do not pin memory forever.
package registry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/busrpc/api/bus"
	"go.uber.org/busrpc/busrpcerrors"
	"go.uber.org/busrpc/clock"
	"go.uber.org/busrpc/internal/keys"
	"go.uber.org/zap"
)

type entry struct {
	servers     []string
	refreshedAt time.Time
}

// List is the per-client server registry cache and load balancer.
type List struct {
	bus    bus.Bus
	prefix string
	maxAge time.Duration
	clock  clock.Clock
	logger *zap.Logger

	disableRemoteCleanup bool

	mu         sync.Mutex
	entries    map[string]*entry
	random     *rand.Rand
	sweepTimer clock.Timer
	stopped    bool
}

// Option configures a List.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) { f(opts) }

type options struct {
	clock                clock.Clock
	logger               *zap.Logger
	source               rand.Source
	disableRemoteCleanup bool
}

// Clock overrides the time source, for tests.
func Clock(c clock.Clock) Option {
	return optionFunc(func(opts *options) {
		opts.clock = c
	})
}

// Logger specifies a logger.
func Logger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

// RandomSource overrides the randomness used for server selection, for
// tests. Any uniform source suffices; there is no cryptographic
// requirement.
func RandomSource(source rand.Source) Option {
	return optionFunc(func(opts *options) {
		opts.source = source
	})
}

// DisableRemoteCleanup stops Remove from also deleting the server's
// remote registration key.
func DisableRemoteCleanup() Option {
	return optionFunc(func(opts *options) {
		opts.disableRemoteCleanup = true
	})
}

// New creates a List over the given bus and key prefix, and starts the
// background eviction sweep. Entries older than maxAge are swept every
// maxAge/2; cached membership is therefore at most ~1.5x maxAge stale.
// The caller must Stop the List to release the sweep.
func New(b bus.Bus, prefix string, maxAge time.Duration, opts ...Option) *List {
	options := options{
		clock:  clock.NewReal(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt.apply(&options)
	}
	if options.source == nil {
		options.source = rand.NewSource(time.Now().UnixNano())
	}

	l := &List{
		bus:                  b,
		prefix:               prefix,
		maxAge:               maxAge,
		clock:                options.clock,
		logger:               options.logger,
		disableRemoteCleanup: options.disableRemoteCleanup,
		entries:              make(map[string]*entry),
		random:               rand.New(options.source),
	}
	l.sweepTimer = l.clock.AfterFunc(l.sweepPeriod(), l.sweepTick)
	return l
}

// FindOne returns one server id for the service, chosen uniformly at
// random from the cached list. A missing, empty, or stale cache entry
// triggers a remote key scan first, so a server evicted after a timeout
// can be rediscovered as soon as it re-registers.
//
// Fails with CodeNoAvailableServer when no server is registered, and
// CodeTransport when the scan itself fails.
func (l *List) FindOne(ctx context.Context, service string) (string, error) {
	l.mu.Lock()
	e, ok := l.entries[service]
	if ok && len(e.servers) > 0 && !l.stale(e) {
		id := e.servers[l.random.Intn(len(e.servers))]
		l.mu.Unlock()
		return id, nil
	}
	l.mu.Unlock()

	servers, err := l.scan(ctx, service)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[service] = &entry{servers: servers, refreshedAt: l.clock.Now()}
	if len(servers) == 0 {
		return "", busrpcerrors.NoAvailableServerErrorf("no available server for service %q", service)
	}
	return servers[l.random.Intn(len(servers))], nil
}

// Remove filters the server out of the in-memory list for the service.
// Removing an absent id is a no-op. Unless remote cleanup is disabled,
// the server's registration key is deleted too, best-effort: a delete
// failure is logged, never propagated.
func (l *List) Remove(ctx context.Context, service, serverID string) {
	l.mu.Lock()
	if e, ok := l.entries[service]; ok {
		filtered := e.servers[:0]
		for _, id := range e.servers {
			if id != serverID {
				filtered = append(filtered, id)
			}
		}
		e.servers = filtered
	}
	l.mu.Unlock()

	if l.disableRemoteCleanup {
		return
	}
	key := keys.ServerKey(l.prefix, service, serverID)
	if err := l.bus.Delete(ctx, key); err != nil {
		l.logger.Warn("could not delete remote server registration",
			zap.String("service", service),
			zap.String("server", serverID),
			zap.Error(err))
	}
}

// Stop halts the eviction sweep. It does not close the bus; the bus is
// owned by the client. Stop is idempotent.
func (l *List) Stop() {
	l.mu.Lock()
	l.stopped = true
	timer := l.sweepTimer
	l.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

func (l *List) scan(ctx context.Context, service string) ([]string, error) {
	matched, err := l.bus.ScanKeys(ctx, keys.ServerPattern(l.prefix, service))
	if err != nil {
		return nil, busrpcerrors.Wrap(busrpcerrors.CodeTransport, err)
	}
	servers := make([]string, 0, len(matched))
	for _, key := range matched {
		id, ok := keys.ServerIDFromKey(key)
		if !ok {
			l.logger.Debug("ignoring malformed registration key", zap.String("key", key))
			continue
		}
		servers = append(servers, id)
	}
	return servers, nil
}

// stale must be called with l.mu held.
func (l *List) stale(e *entry) bool {
	return l.clock.Now().Sub(e.refreshedAt) > l.maxAge
}

func (l *List) sweepPeriod() time.Duration {
	return l.maxAge / 2
}

// sweepTick runs one eviction pass and schedules the next one.
func (l *List) sweepTick() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for service, e := range l.entries {
		if l.stale(e) {
			delete(l.entries, service)
			l.logger.Debug("swept stale server list", zap.String("service", service))
		}
	}
	if !l.stopped {
		l.sweepTimer = l.clock.AfterFunc(l.sweepPeriod(), l.sweepTick)
	}
}
