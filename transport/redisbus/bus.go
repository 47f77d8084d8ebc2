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

// Package redisbus implements the bus capability over Redis using
// github.com/redis/go-redis/v9.
//
// Two separate redis clients are held: one reserved for subscription
// delivery, one for command calls, so that PUBLISH, SCAN, INCR, and DEL
// traffic never blocks message delivery.
package redisbus

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/atomic"
	"go.uber.org/busrpc/api/bus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	dialTimeout      = 5 * time.Second
	scanCount        = 100
	subscribeBacklog = 128
)

// Config holds the redis connection target.
type Config struct {
	Host string
	Port int
	DB   int
}

// Addr returns the host:port form of the config.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Bus is a bus.Bus backed by Redis.
type Bus struct {
	cmd    *redis.Client
	sub    *redis.Client
	logger *zap.Logger

	mu      sync.Mutex
	pubsubs []*redis.PubSub
	wg      sync.WaitGroup
	closed  atomic.Bool
}

var _ bus.Bus = (*Bus)(nil)

// Option configures a Bus.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(opts *options) { f(opts) }

type options struct {
	logger *zap.Logger
}

// Logger specifies a logger.
func Logger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		opts.logger = logger
	})
}

// New dials both redis connections and verifies them with a ping.
func New(cfg Config, opts ...Option) (*Bus, error) {
	options := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt.apply(&options)
	}

	redisOpts := &redis.Options{
		Addr:        cfg.Addr(),
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	}
	cmd := redis.NewClient(redisOpts)
	sub := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := cmd.Ping(ctx).Err(); err != nil {
		_ = cmd.Close()
		_ = sub.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", cfg.Addr(), err)
	}

	return &Bus{
		cmd:    cmd,
		sub:    sub,
		logger: options.logger,
	}, nil
}

// Publish sends a payload to a channel on the command connection.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.cmd.Publish(ctx, channel, payload).Err()
}

// Subscribe opens a subscription on the dedicated subscription
// connection and returns its delivery stream. The stream closes when
// the Bus closes.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan bus.Message, error) {
	pubsub := b.sub.Subscribe(ctx, channel)
	// Wait for the subscribe acknowledgment so callers observe an
	// established subscription.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		_ = pubsub.Close()
		return nil, fmt.Errorf("bus is closed")
	}
	b.pubsubs = append(b.pubsubs, pubsub)
	b.wg.Add(1)
	b.mu.Unlock()

	out := make(chan bus.Message, subscribeBacklog)
	go func() {
		defer b.wg.Done()
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- bus.Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}
		}
	}()
	return out, nil
}

// ScanKeys iterates SCAN until exhaustion; it never issues KEYS.
func (b *Bus) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var matched []string
	iter := b.cmd.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		matched = append(matched, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return matched, nil
}

// Increment atomically increments the counter at key.
func (b *Bus) Increment(ctx context.Context, key string) (int64, error) {
	return b.cmd.Incr(ctx, key).Result()
}

// Delete removes the given keys.
func (b *Bus) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.cmd.Del(ctx, keys...).Err()
}

// Close tears down every subscription and both connections. All
// subscription streams are drained and closed before Close returns.
func (b *Bus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	pubsubs := b.pubsubs
	b.pubsubs = nil
	b.mu.Unlock()

	var err error
	for _, pubsub := range pubsubs {
		err = multierr.Append(err, pubsub.Close())
	}
	b.wg.Wait()

	err = multierr.Append(err, b.sub.Close())
	err = multierr.Append(err, b.cmd.Close())
	return err
}
