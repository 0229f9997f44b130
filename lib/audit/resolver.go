// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit attributes destructive guild events to the user who
// performed them.
//
// The platform delivers "role deleted" and "channel deleted" events
// without saying who did it. The only source of attribution is the audit
// trail, which is queried separately and may lag, be empty, or describe
// an unrelated action. [Resolver.ResolveActor] therefore accepts an
// entry only when it is recent and names the same object as the event;
// otherwise the actor is unresolved and the caller must not count or
// punish anyone.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/warden/lib/clock"
	"github.com/bureau-foundation/warden/platform"
)

// DefaultFreshness is how old an audit entry may be and still explain
// an event.
const DefaultFreshness = 15 * time.Second

// DestructiveEvent is a deletion awaiting attribution.
type DestructiveEvent struct {
	GuildID  string
	Action   platform.AuditAction
	TargetID string
}

// Actor is the resolved performer of a destructive event.
type Actor struct {
	User platform.User
	// Entry is the audit entry the attribution came from.
	Entry platform.AuditEntry
}

// Config configures a Resolver.
type Config struct {
	// Freshness defaults to DefaultFreshness.
	Freshness time.Duration
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Resolver looks up the acting user of destructive events.
type Resolver struct {
	auditLog  platform.AuditLog
	freshness time.Duration
	clock     clock.Clock
	logger    *slog.Logger
}

// NewResolver creates a Resolver reading from auditLog.
func NewResolver(auditLog platform.AuditLog, config Config) *Resolver {
	freshness := config.Freshness
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		auditLog:  auditLog,
		freshness: freshness,
		clock:     clk,
		logger:    logger.With("component", "audit"),
	}
}

// ResolveActor returns the actor of event, or false when the audit trail
// does not conclusively identify one. Query failures are logged and
// reported as unresolved.
func (r *Resolver) ResolveActor(ctx context.Context, event DestructiveEvent) (Actor, bool) {
	entry, err := r.auditLog.LatestAuditEntry(ctx, event.GuildID, event.Action)
	if err != nil {
		r.logger.Warn("audit log query failed",
			"guild_id", event.GuildID,
			"action", event.Action.String(),
			"target_id", event.TargetID,
			"error", err,
		)
		return Actor{}, false
	}
	if entry == nil {
		r.logger.Debug("no audit entry for event",
			"guild_id", event.GuildID,
			"action", event.Action.String(),
		)
		return Actor{}, false
	}
	if entry.Actor.ID == "" {
		return Actor{}, false
	}
	if entry.TargetID != "" && event.TargetID != "" && entry.TargetID != event.TargetID {
		r.logger.Debug("latest audit entry names a different target",
			"guild_id", event.GuildID,
			"action", event.Action.String(),
			"target_id", event.TargetID,
			"entry_target_id", entry.TargetID,
		)
		return Actor{}, false
	}
	if age := r.clock.Now().Sub(entry.CreatedAt); age > r.freshness {
		r.logger.Debug("latest audit entry is stale",
			"guild_id", event.GuildID,
			"action", event.Action.String(),
			"age", age,
		)
		return Actor{}, false
	}
	return Actor{User: entry.Actor, Entry: *entry}, true
}

// Exempt reports whether actor is excluded from counting: the agent
// itself, or any automated account.
func Exempt(actor Actor, selfID string) bool {
	return actor.User.Bot || (selfID != "" && actor.User.ID == selfID)
}
