// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

// Event is an inbound notification from the platform.
type Event interface {
	// Guild returns the guild the event belongs to.
	Guild() string
}

// RoleDeleted reports a deleted role. RoleName is empty when the adapter
// did not know the role before it was removed.
type RoleDeleted struct {
	GuildID  string
	RoleID   string
	RoleName string
}

// ChannelDeleted reports a deleted channel.
type ChannelDeleted struct {
	Channel Channel
}

// MemberJoined reports a new guild member.
type MemberJoined struct {
	Member Member
}

// MemberLeft reports a member that left or was removed.
type MemberLeft struct {
	GuildID string
	User    User
}

// InteractionSubmitted reports a menu selection or button press.
type InteractionSubmitted struct {
	Interaction Interaction
}

// TextCommandInvoked reports a guild message. Prefix filtering happens in
// the command dispatcher, not the adapter.
type TextCommandInvoked struct {
	GuildID   string
	ChannelID string
	MessageID string
	Content   string
	Author    Member
	// MentionedUserIDs and MentionedRoleIDs preserve mention order.
	MentionedUserIDs []string
	MentionedRoleIDs []string
}

// Ready reports that the adapter connected and knows its own identity.
// It carries every guild the bot is in.
type Ready struct {
	Self     User
	GuildIDs []string
}

func (e RoleDeleted) Guild() string          { return e.GuildID }
func (e ChannelDeleted) Guild() string       { return e.Channel.GuildID }
func (e MemberJoined) Guild() string         { return e.Member.GuildID }
func (e MemberLeft) Guild() string           { return e.GuildID }
func (e InteractionSubmitted) Guild() string { return e.Interaction.GuildID }
func (e TextCommandInvoked) Guild() string   { return e.GuildID }

// Guild returns "" for Ready, which spans guilds.
func (e Ready) Guild() string { return "" }
