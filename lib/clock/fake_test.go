// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(5 * time.Second)
	want := epoch.Add(5 * time.Second)
	if got := clock.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfterFuncOrder(t *testing.T) {
	clock := Fake(epoch)
	var order []int
	clock.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	clock.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	clock.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	clock.Advance(5 * time.Second)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("callbacks fired in order %v, want [1 2 3]", order)
	}
}

func TestFakeClockAfterFuncStop(t *testing.T) {
	clock := Fake(epoch)
	var fired atomic.Bool
	timer := clock.AfterFunc(time.Second, func() { fired.Store(true) })

	if !timer.Stop() {
		t.Fatal("Stop() on pending timer returned false")
	}
	if timer.Stop() {
		t.Error("second Stop() returned true")
	}

	clock.Advance(2 * time.Second)
	if fired.Load() {
		t.Error("stopped timer fired")
	}
}

func TestFakeClockAfterFuncStopAfterFire(t *testing.T) {
	clock := Fake(epoch)
	timer := clock.AfterFunc(time.Second, func() {})
	clock.Advance(time.Second)
	if timer.Stop() {
		t.Error("Stop() after fire returned true")
	}
}

func TestFakeClockAfterFuncImmediate(t *testing.T) {
	clock := Fake(epoch)
	fired := false
	clock.AfterFunc(0, func() { fired = true })
	if !fired {
		t.Fatal("AfterFunc(0) did not run synchronously")
	}
}

func TestFakeClockCallbackSchedulesWithinWindow(t *testing.T) {
	clock := Fake(epoch)
	var count atomic.Int32
	clock.AfterFunc(time.Second, func() {
		count.Add(1)
		clock.AfterFunc(time.Second, func() { count.Add(1) })
	})

	clock.Advance(5 * time.Second)
	if got := count.Load(); got != 2 {
		t.Errorf("callbacks fired %d times, want 2", got)
	}
}

func TestFakeClockPendingCount(t *testing.T) {
	clock := Fake(epoch)
	first := clock.AfterFunc(time.Second, func() {})
	clock.AfterFunc(2*time.Second, func() {})
	if got := clock.PendingCount(); got != 2 {
		t.Fatalf("PendingCount = %d, want 2", got)
	}

	first.Stop()
	if got := clock.PendingCount(); got != 1 {
		t.Errorf("PendingCount after Stop = %d, want 1", got)
	}

	clock.Advance(2 * time.Second)
	if got := clock.PendingCount(); got != 0 {
		t.Errorf("PendingCount after fire = %d, want 0", got)
	}
}
