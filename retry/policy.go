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

package retry

// Policy defines how many times a bound caller re-attempts a failed
// call, and how arguments are reshaped between attempts.
type Policy struct {
	opts policyOptions
}

type policyOptions struct {
	retries uint
	onRetry ArgsFunc
}

// ArgsFunc transforms the call arguments before a re-attempt, for
// non-idempotent calls that need a fresh token per attempt. It receives
// the arguments of the previous attempt and returns the arguments for
// the next one.
type ArgsFunc func(args []interface{}) []interface{}

// PolicyOption customizes a Policy.
type PolicyOption interface {
	apply(*policyOptions)
}

type policyOptionFunc func(*policyOptions)

func (f policyOptionFunc) apply(opts *policyOptions) { f(opts) }

// Retries sets the number of re-attempts after the initial call. A
// policy with Retries(2) dispatches at most 3 calls.
func Retries(retries uint) PolicyOption {
	return policyOptionFunc(func(opts *policyOptions) {
		opts.retries = retries
	})
}

// OnRetry installs an argument transformer that runs before every
// re-attempt. By default re-attempts reuse the original arguments
// unchanged.
func OnRetry(f ArgsFunc) PolicyOption {
	return policyOptionFunc(func(opts *policyOptions) {
		opts.onRetry = f
	})
}

// NewPolicy creates a retry Policy.
func NewPolicy(opts ...PolicyOption) *Policy {
	var options policyOptions
	for _, opt := range opts {
		opt.apply(&options)
	}
	return &Policy{opts: options}
}
