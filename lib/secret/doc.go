// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps the bot token out of the Go heap while the agent
// starts.
//
// A [Buffer] is an anonymous mmap region that is locked into RAM and
// excluded from core dumps. Close zeroes and unmaps it. [ReadFile]
// loads a token from a mounted secret file, the way container
// orchestrators deliver credentials, and [FromString] wraps a token
// that arrived through the environment.
//
// The gateway client needs the token as a string, so [Buffer.String]
// makes the one heap copy at that boundary.
package secret
