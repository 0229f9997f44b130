// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for warden packages.
//
// [RequireReceive] and [RequireClosed] wrap the timeout
// safety valve pattern (select with a time.After fallback) so that
// individual tests never wait on the wall clock directly. Component
// timers run on lib/clock's fake clock; these helpers only guard against
// a hung goroutine, such as a notification dispatcher that never sends.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no warden-internal dependencies.
package testutil
