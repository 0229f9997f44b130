// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bureau-foundation/warden/lib/abuse"
	"github.com/bureau-foundation/warden/lib/audit"
	"github.com/bureau-foundation/warden/lib/command"
	"github.com/bureau-foundation/warden/lib/notify"
	"github.com/bureau-foundation/warden/lib/punish"
	"github.com/bureau-foundation/warden/lib/reactor"
	"github.com/bureau-foundation/warden/lib/ticket"
	"github.com/bureau-foundation/warden/platform"
)

// UnauthorizedBotReason is the kick reason for bots outside the
// allow-list.
const UnauthorizedBotReason = "Unauthorized bot detected and removed."

// Components are the collaborators a Service routes events to. Reactor
// is only needed by Dispatch.
type Components struct {
	Resolver *audit.Resolver
	Counter  *abuse.Counter
	Executor *punish.Executor
	Tickets  *ticket.Registry
	Commands *command.Dispatcher
	Notifier notify.Notifier
	Reactor  *reactor.Reactor
}

// Config configures a Service.
type Config struct {
	// AutoRoleID is given to every member that joins. Empty disables
	// the automatic role.
	AutoRoleID string

	// AuthorizedBotIDs may join without being kicked.
	AuthorizedBotIDs []string

	// TicketMenuChannelID receives the ticket menu on Ready. Empty
	// disables menu publication.
	TicketMenuChannelID string

	Logger *slog.Logger
}

// Service handles platform events.
type Service struct {
	platform platform.Platform
	Components

	autoRoleID          string
	authorizedBotIDs    []string
	ticketMenuChannelID string
	logger              *slog.Logger
}

// New creates a Service.
func New(target platform.Platform, components Components, config Config) *Service {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if components.Notifier == nil {
		components.Notifier = &notify.Recorder{}
	}
	return &Service{
		platform:            target,
		Components:          components,
		autoRoleID:          config.AutoRoleID,
		authorizedBotIDs:    config.AuthorizedBotIDs,
		ticketMenuChannelID: config.TicketMenuChannelID,
		logger:              logger.With("component", "moderation"),
	}
}

// Dispatch queues event on the reactor. It returns false once the
// reactor is closed.
func (s *Service) Dispatch(event platform.Event) bool {
	key, name := routeKey(event)
	return s.Reactor.Submit(key, name, func(ctx context.Context) {
		s.Handle(ctx, event)
	})
}

// routeKey returns the reactor key and task name for an event.
func routeKey(event platform.Event) (key, name string) {
	switch e := event.(type) {
	case platform.RoleDeleted:
		return "guild:" + e.GuildID, "role_deleted"
	case platform.ChannelDeleted:
		return "guild:" + e.Channel.GuildID, "channel_deleted"
	case platform.MemberJoined:
		return "member:" + e.Member.GuildID + ":" + e.Member.User.ID, "member_joined"
	case platform.MemberLeft:
		return "member:" + e.GuildID + ":" + e.User.ID, "member_left"
	case platform.InteractionSubmitted:
		return "user:" + e.Interaction.Invoker.User.ID, "interaction"
	case platform.TextCommandInvoked:
		return "user:" + e.Author.User.ID, "text_command"
	case platform.Ready:
		return "ready", "ready"
	default:
		return "unknown", fmt.Sprintf("%T", event)
	}
}

// Handle processes one event synchronously.
func (s *Service) Handle(ctx context.Context, event platform.Event) {
	switch e := event.(type) {
	case platform.RoleDeleted:
		name := e.RoleName
		if name == "" {
			name = e.RoleID
		}
		s.handleDeletion(ctx, audit.DestructiveEvent{
			GuildID:  e.GuildID,
			Action:   platform.AuditRoleDelete,
			TargetID: e.RoleID,
		}, "Role deleted", "Role", name)
	case platform.ChannelDeleted:
		if s.Tickets != nil {
			s.Tickets.Forget(e.Channel.ID)
		}
		s.handleDeletion(ctx, audit.DestructiveEvent{
			GuildID:  e.Channel.GuildID,
			Action:   platform.AuditChannelDelete,
			TargetID: e.Channel.ID,
		}, "Channel deleted", "Channel", e.Channel.Name)
	case platform.MemberJoined:
		s.handleJoin(ctx, e.Member)
	case platform.MemberLeft:
		s.Notifier.Log(e.GuildID, notify.Record{
			Title:       "Member left",
			Description: fmt.Sprintf("%s left the server.", e.User.Tag()),
			Class:       notify.ClassWarning,
		})
	case platform.InteractionSubmitted:
		s.handleInteraction(ctx, e.Interaction)
	case platform.TextCommandInvoked:
		if s.Commands != nil {
			s.Commands.Handle(ctx, e)
		}
	case platform.Ready:
		s.handleReady(ctx, e)
	default:
		s.logger.Warn("ignoring unsupported event", "type", fmt.Sprintf("%T", event))
	}
}

func (s *Service) handleDeletion(ctx context.Context, event audit.DestructiveEvent, title, noun, objectName string) {
	logger := s.logger.With(
		"guild_id", event.GuildID,
		"action", event.Action.String(),
		"target_id", event.TargetID,
	)

	actor, resolved := s.Resolver.ResolveActor(ctx, event)
	if !resolved {
		logger.Info("deletion with unresolved actor")
		s.logDeletion(event.GuildID, title, noun, objectName, "unknown")
		return
	}
	logger = logger.With("actor_id", actor.User.ID)

	if audit.Exempt(actor, s.platform.SelfID()) {
		logger.Debug("deletion by exempt actor, not counted")
		s.logDeletion(event.GuildID, title, noun, objectName, actor.User.Mention())
		return
	}

	decision := s.Counter.RecordDestructiveAction(actor.User.ID)
	logger.Info("deletion counted", "count", decision.Count, "escalate", decision.Escalate)
	s.logDeletion(event.GuildID, title, noun, objectName, actor.User.Mention())

	if decision.Escalate {
		result := s.Executor.Punish(ctx, event.GuildID, actor.User.ID)
		logger.Info("escalation finished",
			"outcome", result.Outcome.String(),
			"incident_id", result.IncidentID,
		)
	}
}

func (s *Service) logDeletion(guildID, title, noun, objectName, by string) {
	s.Notifier.Log(guildID, notify.Record{
		Title:       title,
		Description: fmt.Sprintf("%s deleted: **%s**\nBy: %s", noun, objectName, by),
		Class:       notify.ClassWarning,
	})
}

func (s *Service) handleJoin(ctx context.Context, member platform.Member) {
	logger := s.logger.With("guild_id", member.GuildID, "user_id", member.User.ID)

	if member.User.Bot && !slices.Contains(s.authorizedBotIDs, member.User.ID) {
		if err := s.platform.Kick(ctx, member.GuildID, member.User.ID, UnauthorizedBotReason); err != nil {
			logger.Error("kicking unauthorized bot failed", "error", err)
			return
		}
		logger.Warn("unauthorized bot removed", "username", member.User.Tag())
		s.Notifier.Log(member.GuildID, notify.Record{
			Title:       "Unauthorized bot removed",
			Description: fmt.Sprintf("Bot: %s (%s)", member.User.Tag(), member.User.ID),
			Class:       notify.ClassDanger,
		})
		return
	}

	description := fmt.Sprintf("%s joined the server.", member.User.Mention())
	if s.autoRoleID != "" {
		if err := s.platform.AddRole(ctx, member.GuildID, member.User.ID, s.autoRoleID); err != nil {
			logger.Error("assigning automatic role failed", "role_id", s.autoRoleID, "error", err)
			return
		}
		description = fmt.Sprintf("%s received the automatic role.", member.User.Mention())
	}
	s.Notifier.Log(member.GuildID, notify.Record{
		Title:       "New member joined",
		Description: description,
		Class:       notify.ClassInfo,
	})
}

func (s *Service) handleInteraction(ctx context.Context, interaction platform.Interaction) {
	if s.Tickets == nil {
		return
	}
	var content string
	switch interaction.CustomID {
	case ticket.MenuCustomID:
		content = s.openTicket(ctx, interaction)
	case ticket.CloseCustomID:
		content = s.closeTicket(ctx, interaction)
	default:
		s.logger.Debug("ignoring interaction", "custom_id", interaction.CustomID)
		return
	}
	if err := s.platform.RespondEphemeral(ctx, interaction, content); err != nil {
		s.logger.Warn("responding to interaction failed",
			"interaction_id", interaction.ID,
			"custom_id", interaction.CustomID,
			"error", err,
		)
	}
}

// openTicket opens the selected ticket and returns the reply for the
// requester.
func (s *Service) openTicket(ctx context.Context, interaction platform.Interaction) string {
	result, err := s.Tickets.Open(ctx, interaction.GuildID, interaction.Invoker.User, interaction.Value())
	switch {
	case errors.Is(err, ticket.ErrInvalidCategory):
		return "Unknown ticket type."
	case errors.Is(err, ticket.ErrOpenInProgress):
		return "Your ticket is already being created."
	case errors.Is(err, ticket.ErrClosing):
		return fmt.Sprintf("Your %s ticket %s is closing. Try again in a few seconds.", interaction.Value(), result.Channel.Mention())
	case err != nil:
		s.logger.Error("opening ticket failed",
			"guild_id", interaction.GuildID,
			"requester_id", interaction.Invoker.User.ID,
			"error", err,
		)
		return "Error creating the ticket."
	case !result.Created:
		return fmt.Sprintf("You already have a %s ticket: %s", interaction.Value(), result.Channel.Mention())
	default:
		return fmt.Sprintf("Ticket created: %s", result.Channel.Mention())
	}
}

// closeTicket schedules the interaction's channel for deletion and
// returns the reply for the closer.
func (s *Service) closeTicket(ctx context.Context, interaction platform.Interaction) string {
	result, err := s.Tickets.Close(ctx, interaction.ChannelID, interaction.Invoker)
	switch {
	case errors.Is(err, ticket.ErrNotAuthorized):
		return "You do not have permission to close tickets."
	case errors.Is(err, ticket.ErrNotTicket):
		return "This channel is not a ticket."
	case err != nil:
		s.logger.Error("closing ticket failed",
			"channel_id", interaction.ChannelID,
			"closer_id", interaction.Invoker.User.ID,
			"error", err,
		)
		return "Error closing the ticket."
	case result == ticket.CloseAlreadyPending:
		return "This ticket is already closing."
	default:
		return fmt.Sprintf("Closing ticket in %d seconds...", int(s.Tickets.CloseDelay().Seconds()))
	}
}

func (s *Service) handleReady(ctx context.Context, event platform.Ready) {
	s.logger.Info("connected", "user", event.Self.Tag(), "guilds", len(event.GuildIDs))
	if s.Tickets == nil || s.ticketMenuChannelID == "" {
		return
	}
	if err := s.Tickets.PublishMenu(ctx, s.ticketMenuChannelID, event.Self.ID); err != nil {
		s.logger.Warn("publishing ticket menu failed",
			"channel_id", s.ticketMenuChannelID,
			"error", err,
		)
	}
}
