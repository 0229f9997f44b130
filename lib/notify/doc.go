// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify delivers observational records (role deleted, member
// joined, ticket opened, and so on) to a fixed log channel.
//
// Delivery is best-effort. [Sink.Log] never blocks and never returns an
// error: it places the record on a bounded queue and returns. A single
// goroutine started by [Sink.Run] takes records off the queue, resolves
// the log channel in the record's guild, fills in the guild icon, waits
// on a token-bucket limiter, and sends one embed per record. Anything
// that goes wrong on that path is logged and swallowed, so a failing log
// channel can never change the outcome of the handler that produced the
// record.
//
// When the queue is full the record is dropped and [Sink.Dropped] is
// incremented. On shutdown Run flushes the remaining queue within a
// bounded timeout.
//
// [Recorder] is an in-memory [Notifier] for tests of components that
// emit records.
package notify
