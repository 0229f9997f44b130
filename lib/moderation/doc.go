// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package moderation routes platform events to the components that act
// on them.
//
// [Service.Dispatch] submits each event to a [reactor.Reactor] under a
// key that serializes related work:
//
//   - role and channel deletions are keyed by guild, so deletions
//     attributed to the same actor are counted in arrival order
//   - interactions and text commands are keyed by the invoking user
//   - member joins and departures are keyed by the member
//
// [Service.Handle] does the work for one event. Deletions are attributed
// through the audit resolver, counted by the abuse counter, and escalate
// to a ban through the punishment executor. Exempt actors (automated
// accounts and the agent itself) are logged but never counted, and an
// unresolved actor is logged as unknown. Joining bots that are not on
// the allow-list are kicked before they receive any role.
package moderation
