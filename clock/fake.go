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

package clock

import (
	"container/heap"
	"sync"
	"time"
)

// FakeClock is a clock that only moves forward when told to. Timer
// callbacks run synchronously inside Add, in scheduled order, which
// makes timeout and sweep behavior deterministic in tests.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers timerHeap
}

var _ Clock = (*FakeClock)(nil)

// NewFake returns a fake clock set to the Unix epoch.
func NewFake() *FakeClock {
	return &FakeClock{now: time.Unix(0, 0)}
}

// Now returns the current time on the fake clock.
func (fc *FakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.now
}

// Add moves the clock forward by d, firing every timer scheduled within
// that window in time order. The lock is released around each fire so
// callbacks may schedule or stop other timers.
func (fc *FakeClock) Add(d time.Duration) {
	fc.mu.Lock()
	end := fc.now.Add(d)
	for len(fc.timers) > 0 && !fc.timers[0].when.After(end) {
		t := heap.Pop(&fc.timers).(*fakeTimer)
		if fc.now.Before(t.when) {
			fc.now = t.when
		}
		fc.mu.Unlock()
		t.fire()
		fc.mu.Lock()
	}
	if fc.now.Before(end) {
		fc.now = end
	}
	fc.mu.Unlock()
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (fc *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	return fc.newTimer(d, f)
}

// Timer produces a timer that will emit a time once the clock has
// advanced by d.
func (fc *FakeClock) Timer(d time.Duration) Timer {
	return fc.newTimer(d, nil)
}

func (fc *FakeClock) newTimer(d time.Duration, f func()) *fakeTimer {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	t := &fakeTimer{
		c:     make(chan time.Time, 1),
		fn:    f,
		when:  fc.now.Add(d),
		clock: fc,
	}
	heap.Push(&fc.timers, t)
	return t
}

type fakeTimer struct {
	c     chan time.Time
	fn    func()
	when  time.Time
	clock *FakeClock
	index int
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&t.clock.timers, t.index)
	return true
}

// fire runs outside the clock lock.
func (t *fakeTimer) fire() {
	if t.fn != nil {
		t.fn()
		return
	}
	select {
	case t.c <- t.when:
	default:
	}
}

// timerHeap orders timers by scheduled time.
type timerHeap []*fakeTimer

func (ts timerHeap) Len() int { return len(ts) }

func (ts timerHeap) Less(i, j int) bool { return ts[i].when.Before(ts[j].when) }

func (ts timerHeap) Swap(i, j int) {
	ts[i], ts[j] = ts[j], ts[i]
	ts[i].index = i
	ts[j].index = j
}

func (ts *timerHeap) Push(x interface{}) {
	t := x.(*fakeTimer)
	t.index = len(*ts)
	*ts = append(*ts, t)
}

func (ts *timerHeap) Pop() interface{} {
	old := *ts
	t := old[len(old)-1]
	old[len(old)-1] = nil
	t.index = -1
	*ts = old[:len(old)-1]
	return t
}
