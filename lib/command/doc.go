// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command implements the prefix text commands staff use from any
// guild channel ("!kick @user spamming").
//
// [Dispatcher.Handle] receives every guild message. Messages without the
// configured prefix, and messages written by automated accounts, are not
// commands and are left alone. For a command message the dispatcher:
//
//  1. Deletes the invoking message, whether or not the author may use
//     commands, to keep channels free of command noise.
//  2. Ignores the command silently unless the author holds one of the
//     authorized roles.
//  3. Looks the command up in a fixed table and runs its handler.
//
// Handlers answer with an embed that deletes itself after a short
// lifetime (15 seconds by default), and report completed actions to the
// notification sink. Validation failures (missing mentions, role
// hierarchy) and platform failures both surface as a red reply; the
// latter are also logged.
//
// Role assignment respects the guild's role hierarchy: the invoker's
// highest role and the agent's own highest role must both outrank the
// role being assigned.
package command
