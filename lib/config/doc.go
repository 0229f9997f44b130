// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the warden configuration.
//
// Configuration comes from a single YAML file named by either the
// WARDEN_CONFIG environment variable (via [Load]) or the --config flag
// (via [LoadFile]). There is no automatic discovery. The file is
// merged over [Default], then the section matching [Config].Environment
// (development, staging, production) overrides base values. Production
// without an explicit section logs at info instead of debug.
//
// ID fields may reference the environment with ${VAR} or
// ${VAR:-default}, so one file can serve several guilds.
//
// Secrets never live in the file. [LoadSecrets] reads DISCORD_TOKEN and
// PORT from the process environment, after loading an optional .env
// file.
package config
