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

// Package sync provides small synchronization helpers shared across the
// module.
package sync

import (
	"sync"

	"go.uber.org/atomic"
)

// OnceWithError is a wrapper around sync.Once that returns the same
// error to every caller of Do.
type OnceWithError struct {
	finished    atomic.Bool
	once        sync.Once
	returnedErr error
}

// IsFinished returns whether Do has run.
func (o *OnceWithError) IsFinished() bool {
	return o.finished.Load()
}

// Do runs f on the first call and returns f's error on this and every
// subsequent call.
func (o *OnceWithError) Do(f func() error) error {
	o.once.Do(func() {
		o.returnedErr = f()
		o.finished.Store(true)
	})
	return o.returnedErr
}
