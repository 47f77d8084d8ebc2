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

package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/busrpc/busrpcerrors"
	"go.uber.org/busrpc/bustest"
	"go.uber.org/busrpc/clock"
	"go.uber.org/busrpc/internal/keys"
)

const testPrefix = "test"

// countingBus counts key scans on top of the in-memory bus.
type countingBus struct {
	*bustest.Bus

	mu    sync.Mutex
	scans int
}

func newCountingBus() *countingBus {
	return &countingBus{Bus: bustest.New()}
}

func (b *countingBus) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	b.mu.Lock()
	b.scans++
	b.mu.Unlock()
	return b.Bus.ScanKeys(ctx, pattern)
}

func (b *countingBus) scanCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scans
}

func register(t *testing.T, b *countingBus, service, serverID string) {
	t.Helper()
	_, err := b.Increment(context.Background(), keys.ServerKey(testPrefix, service, serverID))
	require.NoError(t, err)
}

func newTestList(t *testing.T, b *countingBus, maxAge time.Duration, opts ...Option) (*List, *clock.FakeClock) {
	t.Helper()
	fc := clock.NewFake()
	l := New(b, testPrefix, maxAge, append([]Option{Clock(fc)}, opts...)...)
	t.Cleanup(l.Stop)
	return l, fc
}

func TestFindOneScansOnMiss(t *testing.T) {
	b := newCountingBus()
	register(t, b, "svc", "s1")
	register(t, b, "svc", "s2")
	l, _ := newTestList(t, b, time.Minute)

	id, err := l.FindOne(context.Background(), "svc")
	require.NoError(t, err)
	assert.Contains(t, []string{"s1", "s2"}, id)
	assert.Equal(t, 1, b.scanCount())
}

func TestFindOneUsesCacheWhileFresh(t *testing.T) {
	b := newCountingBus()
	register(t, b, "svc", "s1")
	l, _ := newTestList(t, b, time.Minute)

	for i := 0; i < 10; i++ {
		id, err := l.FindOne(context.Background(), "svc")
		require.NoError(t, err)
		assert.Equal(t, "s1", id)
	}
	assert.Equal(t, 1, b.scanCount())
}

func TestFindOneRescansWhenStale(t *testing.T) {
	b := newCountingBus()
	register(t, b, "svc", "s1")
	l, fc := newTestList(t, b, time.Minute)

	_, err := l.FindOne(context.Background(), "svc")
	require.NoError(t, err)

	fc.Add(2 * time.Minute)

	_, err = l.FindOne(context.Background(), "svc")
	require.NoError(t, err)
	assert.Equal(t, 2, b.scanCount())
}

func TestFindOneNoServers(t *testing.T) {
	b := newCountingBus()
	l, _ := newTestList(t, b, time.Minute)

	_, err := l.FindOne(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, busrpcerrors.IsNoAvailableServer(err))
}

func TestFindOneScanFailure(t *testing.T) {
	b := newCountingBus()
	busErr := errors.New("scan refused")
	b.FailScan(busErr)
	l, _ := newTestList(t, b, time.Minute)

	_, err := l.FindOne(context.Background(), "svc")
	require.Error(t, err)
	assert.True(t, busrpcerrors.IsTransport(err))
	assert.ErrorIs(t, err, busErr)
}

func TestFindOneIgnoresMalformedKeys(t *testing.T) {
	b := newCountingBus()
	register(t, b, "svc", "s1")
	_, err := b.Increment(context.Background(), "test:S:svc:")
	require.NoError(t, err)
	l, _ := newTestList(t, b, time.Minute)

	for i := 0; i < 10; i++ {
		id, findErr := l.FindOne(context.Background(), "svc")
		require.NoError(t, findErr)
		assert.Equal(t, "s1", id)
	}
}

func TestRemoveEvictsLocallyAndRemotely(t *testing.T) {
	b := newCountingBus()
	register(t, b, "svc", "s1")
	register(t, b, "svc", "s2")
	l, _ := newTestList(t, b, time.Minute)

	_, err := l.FindOne(context.Background(), "svc")
	require.NoError(t, err)

	l.Remove(context.Background(), "svc", "s1")
	assert.False(t, b.HasKey(keys.ServerKey(testPrefix, "svc", "s1")))

	// Only s2 remains in the cached list; no rescan happens while the
	// entry is non-empty and fresh.
	for i := 0; i < 10; i++ {
		id, findErr := l.FindOne(context.Background(), "svc")
		require.NoError(t, findErr)
		assert.Equal(t, "s2", id)
	}
	assert.Equal(t, 1, b.scanCount())

	// Removing an absent id is a no-op.
	l.Remove(context.Background(), "svc", "never-there")
	l.Remove(context.Background(), "unknown-service", "s1")
}

func TestRemoveKeepsRemoteKeyWhenDisabled(t *testing.T) {
	b := newCountingBus()
	register(t, b, "svc", "s1")
	l, _ := newTestList(t, b, time.Minute, DisableRemoteCleanup())

	_, err := l.FindOne(context.Background(), "svc")
	require.NoError(t, err)

	l.Remove(context.Background(), "svc", "s1")
	assert.True(t, b.HasKey(keys.ServerKey(testPrefix, "svc", "s1")))
}

func TestSweepEvictsStaleEntries(t *testing.T) {
	b := newCountingBus()
	register(t, b, "svc", "s1")
	l, fc := newTestList(t, b, 2*time.Second)

	_, err := l.FindOne(context.Background(), "svc")
	require.NoError(t, err)

	// With serverMaxAge=2s the sweep runs every second; the entry
	// refreshed at t=0 must be gone by t=3s with no further lookups.
	fc.Add(3 * time.Second)

	l.mu.Lock()
	_, ok := l.entries["svc"]
	l.mu.Unlock()
	assert.False(t, ok, "stale entry must be swept")
}

func TestSweepSparesFreshEntries(t *testing.T) {
	b := newCountingBus()
	register(t, b, "svc", "s1")
	l, fc := newTestList(t, b, time.Minute)

	_, err := l.FindOne(context.Background(), "svc")
	require.NoError(t, err)

	fc.Add(30 * time.Second)

	l.mu.Lock()
	_, ok := l.entries["svc"]
	l.mu.Unlock()
	assert.True(t, ok, "fresh entry must survive the sweep")
}

func TestStopHaltsSweep(t *testing.T) {
	b := newCountingBus()
	l, fc := newTestList(t, b, 2*time.Second)

	l.Stop()
	l.Stop() // idempotent

	// No sweep tick gets rescheduled after Stop.
	fc.Add(time.Minute)
}

func TestSelectionIsUniform(t *testing.T) {
	b := newCountingBus()
	servers := []string{"s1", "s2", "s3"}
	for _, id := range servers {
		register(t, b, "svc", id)
	}
	l, _ := newTestList(t, b, time.Minute)

	const picks = 3000
	counts := make(map[string]int)
	for i := 0; i < picks; i++ {
		id, err := l.FindOne(context.Background(), "svc")
		require.NoError(t, err)
		counts[id]++
	}

	expected := picks / len(servers)
	for _, id := range servers {
		assert.InDelta(t, expected, counts[id], float64(expected)*0.15,
			"server %s is outside the uniform share", id)
	}
}
