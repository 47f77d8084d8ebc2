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

// Package busrpc is the client-side dispatch core of a broker-mediated
// RPC framework. Callers invoke named services without holding a
// connection to any server; a shared message bus carries both service
// discovery and call/response traffic.
//
// A Client correlates every call with a unique id, balances uniformly
// across the servers discovered for the service, bounds each call with
// a timeout, and guarantees that each call completes exactly once even
// when a late result races the timeout. The transport is
// fire-and-forget: a call that times out locally may still execute
// remotely, and its late result is dropped.
//
// Basic usage:
//
//	b, err := redisbus.New(redisbus.Config{Host: "127.0.0.1", Port: 6379})
//	if err != nil {
//		// handle
//	}
//	client, err := busrpc.New(b, busrpc.Timeout(10*time.Second))
//	if err != nil {
//		// handle
//	}
//	defer client.Stop()
//
//	res, err := client.Call(ctx, "math.add", 1, 2)
//
// Calls that should survive a flaky server can be bound to a retry
// policy:
//
//	add := client.Bind("math.add", retry.NewPolicy(retry.Retries(2)))
//	res, err := add(ctx, 1, 2)
package busrpc
