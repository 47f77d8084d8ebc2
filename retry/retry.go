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

// Package retry wraps a dispatcher in a bounded retry policy keyed on
// error kind.
//
// Only two kinds of failure are ever re-attempted: call timeouts, which
// retry immediately because the timeout itself already consumed a full
// timeout window, and empty discovery results, which retry after one
// timeout-sized delay so an unpopulated service is not scanned in a hot
// loop. Every other failure, including transport errors, is terminal on
// first occurrence.
package retry

import (
	"context"
	"time"

	"go.uber.org/busrpc/busrpcerrors"
	"go.uber.org/busrpc/clock"
	"go.uber.org/zap"
)

// Caller dispatches a single call to a named service. *busrpc.Client
// satisfies Caller.
type Caller interface {
	Call(ctx context.Context, service string, args ...interface{}) ([]interface{}, error)
}

// BoundCall is a reusable caller bound to one service name and one
// retry policy. The attempt budget resets on every invocation.
type BoundCall func(ctx context.Context, args ...interface{}) ([]interface{}, error)

// BindOption customizes the behavior of a bound caller.
type BindOption interface {
	apply(*bindOptions)
}

type bindOptionFunc func(*bindOptions)

func (f bindOptionFunc) apply(opts *bindOptions) { f(opts) }

type bindOptions struct {
	noServerDelay time.Duration
	clock         clock.Clock
	logger        *zap.Logger
}

// NoServerDelay sets the pause before re-attempting a call that failed
// discovery. This is conventionally the dispatcher's call timeout.
func NoServerDelay(d time.Duration) BindOption {
	return bindOptionFunc(func(opts *bindOptions) {
		opts.noServerDelay = d
	})
}

// Clock overrides the time source used for the discovery delay, for
// tests.
func Clock(c clock.Clock) BindOption {
	return bindOptionFunc(func(opts *bindOptions) {
		opts.clock = c
	})
}

// Logger sets a zap Logger that will be used to record retry attempts.
func Logger(logger *zap.Logger) BindOption {
	return bindOptionFunc(func(opts *bindOptions) {
		opts.logger = logger
	})
}

// Bind produces a BoundCall for the service using the given policy. A
// nil policy means no retries.
func Bind(caller Caller, service string, policy *Policy, opts ...BindOption) BoundCall {
	options := bindOptions{
		clock:  clock.NewReal(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt.apply(&options)
	}
	if policy == nil {
		policy = NewPolicy()
	}

	return func(ctx context.Context, args ...interface{}) ([]interface{}, error) {
		for attempt := uint(0); ; attempt++ {
			res, err := caller.Call(ctx, service, args...)
			if err == nil {
				return res, nil
			}

			code := busrpcerrors.ErrorCode(err)
			if attempt >= policy.opts.retries || !retryable(code) {
				return res, err
			}

			if code == busrpcerrors.CodeNoAvailableServer && options.noServerDelay > 0 {
				if waitErr := sleep(ctx, options.clock, options.noServerDelay); waitErr != nil {
					return nil, err
				}
			}

			options.logger.Debug("retrying call",
				zap.String("service", service),
				zap.Uint("attempt", attempt+1),
				zap.Error(err))

			if policy.opts.onRetry != nil {
				args = policy.opts.onRetry(args)
			}
		}
	}
}

func retryable(code busrpcerrors.Code) bool {
	switch code {
	case busrpcerrors.CodeCallTimeout, busrpcerrors.CodeNoAvailableServer:
		return true
	default:
		return false
	}
}

// sleep waits on the clock, not time.Sleep, so tests can drive the
// delay. It returns early with the context error if ctx ends first.
func sleep(ctx context.Context, c clock.Clock, d time.Duration) error {
	timer := c.Timer(d)
	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}
