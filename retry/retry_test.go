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

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/busrpc/busrpcerrors"
)

// scriptedCaller replays a fixed sequence of results and records every
// dispatch it receives. Once the script runs out, the last step repeats.
type scriptedCaller struct {
	mu    sync.Mutex
	steps []step
	calls [][]interface{}
}

type step struct {
	res []interface{}
	err error
}

func (c *scriptedCaller) Call(_ context.Context, _ string, args ...interface{}) ([]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, args)
	i := len(c.calls) - 1
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	return c.steps[i].res, c.steps[i].err
}

func (c *scriptedCaller) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func alwaysFailing(err error) *scriptedCaller {
	return &scriptedCaller{steps: []step{{err: err}}}
}

func TestBindSuccessFirstAttempt(t *testing.T) {
	caller := &scriptedCaller{steps: []step{{res: []interface{}{"pong"}}}}
	call := Bind(caller, "svc", NewPolicy(Retries(5)))

	res, err := call(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"pong"}, res)
	assert.Equal(t, 1, caller.callCount())
}

func TestBindRetriesTimeoutsToBudget(t *testing.T) {
	caller := alwaysFailing(busrpcerrors.CallTimeoutErrorf("server did not answer"))
	call := Bind(caller, "svc", NewPolicy(Retries(2)))

	_, err := call(context.Background())
	require.Error(t, err)
	assert.True(t, busrpcerrors.IsCallTimeout(err))
	assert.Equal(t, 3, caller.callCount())
}

func TestBindStopsRetryingOnSuccess(t *testing.T) {
	caller := &scriptedCaller{steps: []step{
		{err: busrpcerrors.CallTimeoutErrorf("server did not answer")},
		{res: []interface{}{float64(7)}},
	}}
	call := Bind(caller, "svc", NewPolicy(Retries(5)))

	res, err := call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []interface{}{float64(7)}, res)
	assert.Equal(t, 2, caller.callCount())
}

func TestBindTransportErrorIsTerminal(t *testing.T) {
	caller := alwaysFailing(busrpcerrors.TransportErrorf("broker connection lost"))
	call := Bind(caller, "svc", NewPolicy(Retries(5)))

	_, err := call(context.Background())
	require.Error(t, err)
	assert.True(t, busrpcerrors.IsTransport(err))
	assert.Equal(t, 1, caller.callCount())
}

func TestBindInvalidArgumentIsTerminal(t *testing.T) {
	caller := alwaysFailing(busrpcerrors.InvalidArgumentErrorf("empty service name"))
	call := Bind(caller, "svc", NewPolicy(Retries(5)))

	_, err := call(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, caller.callCount())
}

func TestBindNilPolicyMeansNoRetries(t *testing.T) {
	caller := alwaysFailing(busrpcerrors.CallTimeoutErrorf("server did not answer"))
	call := Bind(caller, "svc", nil)

	_, err := call(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, caller.callCount())
}

func TestBindBudgetResetsPerInvocation(t *testing.T) {
	caller := alwaysFailing(busrpcerrors.CallTimeoutErrorf("server did not answer"))
	call := Bind(caller, "svc", NewPolicy(Retries(1)))

	_, err := call(context.Background())
	require.Error(t, err)
	_, err = call(context.Background())
	require.Error(t, err)
	assert.Equal(t, 4, caller.callCount())
}

func TestBindOnRetryTransformsArgs(t *testing.T) {
	caller := alwaysFailing(busrpcerrors.CallTimeoutErrorf("server did not answer"))
	call := Bind(caller, "svc", NewPolicy(
		Retries(2),
		OnRetry(func(args []interface{}) []interface{} {
			return append(args, "again")
		}),
	))

	_, err := call(context.Background(), "first")
	require.Error(t, err)

	require.Equal(t, 3, caller.callCount())
	assert.Equal(t, []interface{}{"first"}, caller.calls[0])
	assert.Equal(t, []interface{}{"first", "again"}, caller.calls[1])
	assert.Equal(t, []interface{}{"first", "again", "again"}, caller.calls[2])
}

func TestBindDelaysNoServerRetries(t *testing.T) {
	caller := alwaysFailing(busrpcerrors.NoAvailableServerErrorf("nobody registered"))
	call := Bind(caller, "svc", NewPolicy(Retries(1)), NoServerDelay(30*time.Millisecond))

	start := time.Now()
	_, err := call(context.Background())
	require.Error(t, err)
	assert.True(t, busrpcerrors.IsNoAvailableServer(err))
	assert.Equal(t, 2, caller.callCount())
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestBindContextEndsDelayEarly(t *testing.T) {
	caller := alwaysFailing(busrpcerrors.NoAvailableServerErrorf("nobody registered"))
	call := Bind(caller, "svc", NewPolicy(Retries(5)), NoServerDelay(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := call(ctx)
	require.Error(t, err)
	assert.True(t, busrpcerrors.IsNoAvailableServer(err))
	assert.Equal(t, 1, caller.callCount())
	assert.Less(t, time.Since(start), time.Minute)
}
