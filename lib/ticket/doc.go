// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticket manages support tickets: private channels opened from a
// select menu and closed by support staff.
//
// A ticket is a text channel named "ticket-<requesterID>-<category>"
// under the category's container. The name is the ticket's identity;
// the platform's channel list is the record of which tickets exist.
// The registry keeps only transient state on top of that:
//
//   - A reservation per (requester, category), inserted atomically
//     before the existence check and creation. A second open request
//     that arrives while the first is still in flight is rejected with
//     [ErrOpenInProgress] instead of racing it to create a duplicate
//     channel. The reservation records the channel ID once created and
//     is released on close, on creation failure, or via [Registry.Forget]
//     when the platform reports the channel deleted.
//
//   - A pending-close timer per channel. [Registry.Close] schedules the
//     deletion after a grace delay so the closer can read the
//     acknowledgement. A second close while one is pending is
//     acknowledged without scheduling another. When the timer fires and
//     the channel is already gone, the deletion is a silent no-op.
//
// Every state transition is keyed and timed through lib/clock, so tests
// drive the grace delay with a fake clock.
//
// [Registry.PublishMenu] keeps a single menu message in the ticket
// channel: it edits the agent's existing menu among the most recent
// messages, or sends a fresh one.
package ticket
