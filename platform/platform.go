// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import "context"

// AuditLog reads the guild audit trail.
type AuditLog interface {
	// LatestAuditEntry returns the most recent entry of the given action
	// type, or nil when the log has none.
	LatestAuditEntry(ctx context.Context, guildID string, action AuditAction) (*AuditEntry, error)
}

// Members reads and mutates guild membership.
type Members interface {
	// Member returns a CodeNotFound error if the user is not a member.
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	Roles(ctx context.Context, guildID string) ([]Role, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	// SetRoles replaces the member's roles with roleIDs.
	SetRoles(ctx context.Context, guildID, userID string, roleIDs []string) error
	Ban(ctx context.Context, guildID, userID, reason string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
}

// Channels reads and mutates guild channels.
type Channels interface {
	// Channel returns a CodeNotFound error if the channel does not exist.
	Channel(ctx context.Context, channelID string) (*Channel, error)
	Channels(ctx context.Context, guildID string) ([]Channel, error)
	CreateChannel(ctx context.Context, guildID string, spec ChannelSpec) (*Channel, error)
	// DeleteChannel returns a CodeNotFound error if the channel is
	// already gone.
	DeleteChannel(ctx context.Context, channelID string) error
}

// Messenger sends and manages channel messages.
type Messenger interface {
	SendMessage(ctx context.Context, channelID string, message Message) (*SentMessage, error)
	EditMessage(ctx context.Context, channelID, messageID string, message Message) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// RecentMessages returns up to limit messages, newest first.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]SentMessage, error)
}

// Responder answers interactions.
type Responder interface {
	// RespondEphemeral replies to the interaction with a message only the
	// invoker can see.
	RespondEphemeral(ctx context.Context, interaction Interaction, content string) error
}

// Guilds exposes guild metadata.
type Guilds interface {
	// GuildIconURL returns the guild's icon URL, or "" if it has none.
	GuildIconURL(ctx context.Context, guildID string) string
}

// Platform is the full collaborator surface an adapter implements.
type Platform interface {
	AuditLog
	Members
	Channels
	Messenger
	Responder
	Guilds

	// SelfID returns the bot's own user ID. Empty until Ready.
	SelfID() string
}
