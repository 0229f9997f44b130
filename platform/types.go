// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"slices"
	"time"
)

// User is an account on the platform, human or automated.
type User struct {
	ID       string
	Username string
	// Bot is set for automated accounts.
	Bot bool
}

// Mention returns the inline mention markup for the user.
func (u User) Mention() string { return "<@" + u.ID + ">" }

// Tag returns the display form used in log records.
func (u User) Tag() string {
	if u.Username == "" {
		return u.ID
	}
	return u.Username
}

// Member is a user's membership in one guild.
type Member struct {
	GuildID string
	User    User
	RoleIDs []string
}

// HasRole reports whether the member holds roleID.
func (m Member) HasRole(roleID string) bool {
	return roleID != "" && slices.Contains(m.RoleIDs, roleID)
}

// HasAnyRole reports whether the member holds at least one of roleIDs.
func (m Member) HasAnyRole(roleIDs []string) bool {
	for _, roleID := range roleIDs {
		if m.HasRole(roleID) {
			return true
		}
	}
	return false
}

// Role is a guild role. Higher Position outranks lower.
type Role struct {
	ID       string
	Name     string
	Position int
}

// Mention returns the inline mention markup for the role.
func (r Role) Mention() string { return "<@&" + r.ID + ">" }

// Channel is a guild channel. ParentID is the category container, empty
// for top-level channels.
type Channel struct {
	ID       string
	GuildID  string
	ParentID string
	Name     string
}

// Mention returns the inline mention markup for the channel.
func (c Channel) Mention() string { return "<#" + c.ID + ">" }

// AuditAction is the audit log event type a lookup filters on.
type AuditAction int

const (
	AuditRoleDelete AuditAction = iota + 1
	AuditChannelDelete
)

func (a AuditAction) String() string {
	switch a {
	case AuditRoleDelete:
		return "role_delete"
	case AuditChannelDelete:
		return "channel_delete"
	default:
		return "unknown"
	}
}

// AuditEntry is one audit log record.
type AuditEntry struct {
	ID     string
	Action AuditAction
	// Actor is the user who performed the action.
	Actor User
	// TargetID is the affected object, empty when the platform omits it.
	TargetID string
	// TargetName is the affected object's name before the action, when
	// the entry records it.
	TargetName string
	CreatedAt  time.Time
}

// Permission is a bit in a channel permission overwrite.
type Permission int64

const (
	PermissionViewChannel        Permission = 1 << 10
	PermissionSendMessages       Permission = 1 << 11
	PermissionReadMessageHistory Permission = 1 << 16
)

// OverwriteKind says whether an overwrite targets a role or a member.
type OverwriteKind int

const (
	OverwriteRole OverwriteKind = iota
	OverwriteMember
)

// Overwrite is a per-channel permission override.
type Overwrite struct {
	ID    string
	Kind  OverwriteKind
	Allow Permission
	Deny  Permission
}

// ChannelSpec describes a text channel to create.
type ChannelSpec struct {
	Name       string
	ParentID   string
	Overwrites []Overwrite
}

// Color is a 24-bit RGB embed accent.
type Color int

const (
	ColorGreen   Color = 0x57F287
	ColorOrange  Color = 0xE67E22
	ColorRed     Color = 0xED4245
	ColorBrand   Color = 0xE54A2F
	ColorBlurple Color = 0x5865F2
)

// EmbedField is a name/value pair inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a structured card attached to a message.
type Embed struct {
	Title        string
	Description  string
	Color        Color
	Timestamp    time.Time
	ThumbnailURL string
	Footer       string
	Fields       []EmbedField
}

// MenuOption is one choice in a select menu.
type MenuOption struct {
	Label       string
	Value       string
	Description string
}

// SelectMenu is a single-choice dropdown.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	Options     []MenuOption
}

// ButtonStyle selects a button's color.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonDanger
)

// Button is a clickable control that produces an interaction.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
}

// Message is outbound message content. Menu and Buttons each render as
// their own component row.
type Message struct {
	Content string
	Embeds  []Embed
	Menu    *SelectMenu
	Buttons []Button
}

// CustomIDs returns the custom IDs of every component in the message.
func (m Message) CustomIDs() []string {
	var ids []string
	if m.Menu != nil {
		ids = append(ids, m.Menu.CustomID)
	}
	for _, button := range m.Buttons {
		ids = append(ids, button.CustomID)
	}
	return ids
}

// SentMessage is a message as it exists on the platform.
type SentMessage struct {
	ID        string
	ChannelID string
	AuthorID  string
	// CustomIDs lists the component custom IDs attached to the message.
	CustomIDs []string
}

// InteractionKind distinguishes component interactions.
type InteractionKind int

const (
	InteractionMenu InteractionKind = iota + 1
	InteractionButton
)

// Interaction is a menu selection or button press.
type Interaction struct {
	ID        string
	Kind      InteractionKind
	CustomID  string
	Values    []string
	GuildID   string
	ChannelID string
	Invoker   Member
	// Handle is the adapter's own representation, needed to respond.
	// Components pass it through untouched.
	Handle any
}

// Value returns the first selected value, or "".
func (i Interaction) Value() string {
	if len(i.Values) == 0 {
		return ""
	}
	return i.Values[0]
}
