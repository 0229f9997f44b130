// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package platform describes the chat platform warden moderates, as plain
// Go types and a handful of narrow interfaces.
//
// Warden's components never import a platform SDK. They depend on the
// smallest interface that covers their calls ([AuditLog], [Members],
// [Channels], [Messenger], [Responder]); [Platform] is the union that an
// adapter implements. The production adapter lives in platform/discord and
// wraps discordgo. The in-memory adapter in platform/platformtest backs the
// unit tests.
//
// Inbound traffic is delivered as [Event] values: [RoleDeleted],
// [ChannelDeleted], [MemberJoined], [MemberLeft], [InteractionSubmitted],
// [TextCommandInvoked], and [Ready].
//
// All adapter failures are returned as [*Error] carrying a [Code] and the
// HTTP status when there was one. [IsError] tests for a code.
package platform
