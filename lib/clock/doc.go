// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source behind every timer
// in warden: the abuse counter's decay window, the ticket close grace
// delay, and the self-deleting command replies.
//
// Production code receives a [Clock] and never calls time.Now or
// time.AfterFunc directly. [Real] wraps the time package; [Fake] returns
// a [FakeClock] whose time moves only when a test calls Advance.
//
// AfterFunc callbacks on a FakeClock run synchronously inside Advance,
// in deadline order. A callback must not call Advance, and code that
// schedules a timer while holding a lock must not take that same lock
// from the callback's caller.
package clock
