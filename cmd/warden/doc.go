// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// warden is a Discord moderation agent. It watches a guild for bursts
// of role and channel deletions and bans the member responsible, kicks
// bots that are not on the allow list, gives new members a starting
// role, runs a ticket menu that opens private support channels, and
// answers prefixed text commands from moderators.
//
// Configuration comes from a YAML file named by --config or
// WARDEN_CONFIG; without either the built-in defaults apply. The bot
// token is read from the file named by DISCORD_TOKEN_FILE or from
// DISCORD_TOKEN, either of which may be set in a dotenv file
// (--env-file, default .env). When keepalive is enabled an HTTP server
// on PORT answers health checks for hosting platforms that require one.
//
// Logs go to stderr: text on a terminal, JSON otherwise. SIGINT or
// SIGTERM disconnects from the gateway, waits for in-flight event
// handling, and flushes queued log channel messages before exiting.
package main
