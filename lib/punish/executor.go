// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package punish strips an abusive actor of every role and bans them.
//
// Punishment runs once per escalation. It is not retried: a failure is
// logged, reported to the log channel, and left for a human to finish.
package punish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bureau-foundation/warden/lib/notify"
	"github.com/bureau-foundation/warden/platform"
)

// Reason is the ban reason recorded on the platform.
const Reason = "excessive deletions within the tracking window"

// Outcome is the result of one punishment attempt.
type Outcome int

const (
	// OutcomeBanned means the ban call succeeded.
	OutcomeBanned Outcome = iota + 1
	// OutcomeMemberAbsent means the actor was not a member; nothing
	// was done.
	OutcomeMemberAbsent
	// OutcomeFailed means a platform call failed before the ban
	// completed.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBanned:
		return "banned"
	case OutcomeMemberAbsent:
		return "member_absent"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result describes a punishment attempt.
type Result struct {
	Outcome Outcome
	// IncidentID correlates the log lines and the notification of one
	// attempt.
	IncidentID string
	// RolesCleared is false when the role-clearing call failed; the ban
	// is still attempted in that case.
	RolesCleared bool
	Err          error
}

// Executor applies punishments.
type Executor struct {
	members  platform.Members
	notifier notify.Notifier
	logger   *slog.Logger
	newID    func() string
}

// NewExecutor creates an Executor.
func NewExecutor(members platform.Members, notifier notify.Notifier, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		members:  members,
		notifier: notifier,
		logger:   logger.With("component", "punish"),
		newID:    uuid.NewString,
	}
}

// Punish clears actorID's roles and bans them from guildID.
func (e *Executor) Punish(ctx context.Context, guildID, actorID string) Result {
	result := Result{IncidentID: e.newID()}
	logger := e.logger.With(
		"incident_id", result.IncidentID,
		"guild_id", guildID,
		"actor_id", actorID,
	)

	member, err := e.members.Member(ctx, guildID, actorID)
	if err != nil {
		if platform.IsError(err, platform.CodeNotFound) {
			logger.Info("actor is no longer a member, nothing to punish")
			result.Outcome = OutcomeMemberAbsent
			return result
		}
		logger.Error("fetching member for punishment failed", "error", err)
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("fetching member %s: %w", actorID, err)
		e.reportFailure(guildID, actorID, result)
		return result
	}

	if err := e.members.SetRoles(ctx, guildID, actorID, nil); err != nil {
		logger.Error("clearing roles failed, attempting ban anyway",
			"role_count", len(member.RoleIDs),
			"error", err,
		)
	} else {
		result.RolesCleared = true
	}

	if err := e.members.Ban(ctx, guildID, actorID, Reason); err != nil {
		logger.Error("ban failed", "error", err)
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("banning %s: %w", actorID, err)
		e.reportFailure(guildID, actorID, result)
		return result
	}

	logger.Warn("actor banned for excessive deletions",
		"username", member.User.Tag(),
		"roles_cleared", result.RolesCleared,
	)
	result.Outcome = OutcomeBanned
	e.notifier.Log(guildID, notify.Record{
		Title:       "User banned",
		Description: fmt.Sprintf("User %s was banned for excessive deletions.", member.User.Tag()),
		Class:       notify.ClassDanger,
		Fields: []platform.EmbedField{
			{Name: "User", Value: member.User.Mention(), Inline: true},
			{Name: "Incident", Value: result.IncidentID, Inline: true},
		},
	})
	return result
}

func (e *Executor) reportFailure(guildID, actorID string, result Result) {
	e.notifier.Log(guildID, notify.Record{
		Title:       "Punishment failed",
		Description: fmt.Sprintf("Could not ban <@%s>: %v", actorID, result.Err),
		Class:       notify.ClassDanger,
		Fields: []platform.EmbedField{
			{Name: "Incident", Value: result.IncidentID, Inline: true},
		},
	})
}
