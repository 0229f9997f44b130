// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bureau-foundation/warden/lib/notify"
	"github.com/bureau-foundation/warden/platform"
)

// MaxEmbedDescription is the platform's limit on an embed description.
const MaxEmbedDescription = 4096

// defaultReason is used by kick and ban when none is given.
const defaultReason = "No reason given"

type commandDefinition struct {
	handler func(ctx context.Context, d *Dispatcher, invocation Invocation)
}

// builtinCommands maps command names to handlers. Anything else is
// ignored.
var builtinCommands = map[string]commandDefinition{
	"addrole":    {handleAddRole},
	"removerole": {handleRemoveRole},
	"addadmin":   {handleAddAdmin},
	"kick":       {handleKick},
	"ban":        {handleBan},
	"roles":      {handleRoles},
	"help":       {handleHelp},
}

// helpEntries lists commands in the order help shows them.
var helpEntries = []struct {
	usage   string
	summary string
}{
	{"addrole @role @member", "Gives a role to a member."},
	{"removerole @role @member", "Takes a role from a member."},
	{"addadmin @member", "Gives the admin role to a member."},
	{"kick @member [reason]", "Removes a member from the server."},
	{"ban @member [reason]", "Bans a member from the server."},
	{"roles", "Lists every role with its ID."},
	{"help", "Shows this message."},
}

func handleAddRole(ctx context.Context, d *Dispatcher, invocation Invocation) {
	event := invocation.Event
	if len(event.MentionedUserIDs) == 0 || len(event.MentionedRoleIDs) == 0 {
		d.replyError(ctx, invocation, fmt.Sprintf("Usage: `%saddrole @role @member`", d.prefix))
		return
	}
	target, role, roles, ok := d.resolveRoleTarget(ctx, invocation)
	if !ok {
		return
	}

	if highestPosition(roles, event.Author.RoleIDs) <= role.Position {
		d.replyError(ctx, invocation, "You cannot assign a role equal to or higher than your own.")
		return
	}
	self, err := d.platform.Member(ctx, event.GuildID, d.platform.SelfID())
	if err != nil {
		d.failed(ctx, invocation, "Failed to add the role.", err)
		return
	}
	if highestPosition(roles, self.RoleIDs) <= role.Position {
		d.replyError(ctx, invocation, "That role is equal to or higher than mine.")
		return
	}

	if err := d.platform.AddRole(ctx, event.GuildID, target.User.ID, role.ID); err != nil {
		d.failed(ctx, invocation, "Failed to add the role.", err)
		return
	}
	d.reply(ctx, invocation, platform.Embed{
		Title: "Role Added",
		Color: platform.ColorGreen,
		Fields: []platform.EmbedField{
			{Name: "Role", Value: role.Mention(), Inline: true},
			{Name: "Member", Value: target.User.Tag(), Inline: true},
			{Name: "By", Value: event.Author.User.Mention(), Inline: true},
		},
	})
	d.notifier.Log(event.GuildID, notify.Record{
		Title:       "Role Added",
		Description: fmt.Sprintf("Role %s given to %s by %s", role.Mention(), target.User.Tag(), event.Author.User.Tag()),
		Class:       notify.ClassInfo,
	})
}

func handleRemoveRole(ctx context.Context, d *Dispatcher, invocation Invocation) {
	event := invocation.Event
	if len(event.MentionedUserIDs) == 0 || len(event.MentionedRoleIDs) == 0 {
		d.replyError(ctx, invocation, fmt.Sprintf("Usage: `%sremoverole @role @member`", d.prefix))
		return
	}
	target, role, _, ok := d.resolveRoleTarget(ctx, invocation)
	if !ok {
		return
	}

	if err := d.platform.RemoveRole(ctx, event.GuildID, target.User.ID, role.ID); err != nil {
		d.failed(ctx, invocation, "Failed to remove the role.", err)
		return
	}
	d.reply(ctx, invocation, platform.Embed{
		Title: "Role Removed",
		Color: platform.ColorOrange,
		Fields: []platform.EmbedField{
			{Name: "Role", Value: role.Mention(), Inline: true},
			{Name: "Member", Value: target.User.Tag(), Inline: true},
			{Name: "By", Value: event.Author.User.Mention(), Inline: true},
		},
	})
	d.notifier.Log(event.GuildID, notify.Record{
		Title:       "Role Removed",
		Description: fmt.Sprintf("Role %s removed from %s by %s", role.Mention(), target.User.Tag(), event.Author.User.Tag()),
		Class:       notify.ClassWarning,
	})
}

func handleAddAdmin(ctx context.Context, d *Dispatcher, invocation Invocation) {
	event := invocation.Event
	if len(event.MentionedUserIDs) == 0 {
		d.replyError(ctx, invocation, fmt.Sprintf("Usage: `%saddadmin @member`", d.prefix))
		return
	}
	roles, err := d.platform.Roles(ctx, event.GuildID)
	if err != nil {
		d.failed(ctx, invocation, "Failed to add the admin role.", err)
		return
	}
	index := slices.IndexFunc(roles, func(role platform.Role) bool { return role.ID == d.adminRoleID })
	if d.adminRoleID == "" || index < 0 {
		d.replyError(ctx, invocation, "Admin role not found.")
		return
	}
	if !event.Author.HasRole(d.adminGrantRoleID) {
		d.replyError(ctx, invocation, "You do not have permission to use this command.")
		return
	}
	target, ok := d.resolveMember(ctx, invocation, event.MentionedUserIDs[0])
	if !ok {
		return
	}

	if err := d.platform.AddRole(ctx, event.GuildID, target.User.ID, d.adminRoleID); err != nil {
		d.failed(ctx, invocation, "Failed to add the admin role.", err)
		return
	}
	d.reply(ctx, invocation, platform.Embed{
		Title:       "Admin Role Added",
		Description: fmt.Sprintf("%s received the admin role.", target.User.Tag()),
		Color:       platform.ColorGreen,
	})
	d.notifier.Log(event.GuildID, notify.Record{
		Title:       "Admin Role Added",
		Description: fmt.Sprintf("%s received %s from %s", target.User.Tag(), roles[index].Mention(), event.Author.User.Tag()),
		Class:       notify.ClassWarning,
	})
}

func handleKick(ctx context.Context, d *Dispatcher, invocation Invocation) {
	event := invocation.Event
	if len(event.MentionedUserIDs) == 0 {
		d.replyError(ctx, invocation, fmt.Sprintf("Usage: `%skick @member [reason]`", d.prefix))
		return
	}
	target, ok := d.resolveMember(ctx, invocation, event.MentionedUserIDs[0])
	if !ok {
		return
	}
	reason := reasonFrom(invocation.Args)

	if err := d.platform.Kick(ctx, event.GuildID, target.User.ID, reason); err != nil {
		d.failed(ctx, invocation, "Failed to kick the member.", err)
		return
	}
	d.reply(ctx, invocation, platform.Embed{
		Title:       "Member Kicked",
		Description: fmt.Sprintf("%s was kicked.\nReason: %s", target.User.Tag(), reason),
		Color:       platform.ColorOrange,
	})
	d.notifier.Log(event.GuildID, notify.Record{
		Title:       "Member Kicked",
		Description: fmt.Sprintf("%s kicked by %s\nReason: %s", target.User.Tag(), event.Author.User.Tag(), reason),
		Class:       notify.ClassWarning,
	})
}

func handleBan(ctx context.Context, d *Dispatcher, invocation Invocation) {
	event := invocation.Event
	if len(event.MentionedUserIDs) == 0 {
		d.replyError(ctx, invocation, fmt.Sprintf("Usage: `%sban @member [reason]`", d.prefix))
		return
	}
	target, ok := d.resolveMember(ctx, invocation, event.MentionedUserIDs[0])
	if !ok {
		return
	}
	reason := reasonFrom(invocation.Args)

	if err := d.platform.Ban(ctx, event.GuildID, target.User.ID, reason); err != nil {
		d.failed(ctx, invocation, "Failed to ban the member.", err)
		return
	}
	d.reply(ctx, invocation, platform.Embed{
		Title:       "Member Banned",
		Description: fmt.Sprintf("%s was banned.\nReason: %s", target.User.Tag(), reason),
		Color:       platform.ColorRed,
	})
	d.notifier.Log(event.GuildID, notify.Record{
		Title:       "Member Banned",
		Description: fmt.Sprintf("%s banned by %s\nReason: %s", target.User.Tag(), event.Author.User.Tag(), reason),
		Class:       notify.ClassDanger,
	})
}

func handleRoles(ctx context.Context, d *Dispatcher, invocation Invocation) {
	event := invocation.Event
	roles, err := d.platform.Roles(ctx, event.GuildID)
	if err != nil {
		d.failed(ctx, invocation, "Failed to list roles.", err)
		return
	}
	// The @everyone role shares the guild's ID.
	roles = slices.DeleteFunc(roles, func(role platform.Role) bool { return role.ID == event.GuildID })
	if len(roles) == 0 {
		d.replyError(ctx, invocation, "No roles found on this server.")
		return
	}
	slices.SortStableFunc(roles, func(a, b platform.Role) int { return b.Position - a.Position })

	lines := make([]string, len(roles))
	for i, role := range roles {
		lines[i] = fmt.Sprintf("%s · `%s`\n", role.Mention(), role.ID)
	}
	for _, chunk := range ChunkLines(lines, MaxEmbedDescription) {
		d.reply(ctx, invocation, platform.Embed{
			Title:       "Server Roles",
			Description: chunk,
			Color:       platform.ColorBrand,
		})
	}
}

func handleHelp(ctx context.Context, d *Dispatcher, invocation Invocation) {
	fields := make([]platform.EmbedField, len(helpEntries))
	for i, entry := range helpEntries {
		fields[i] = platform.EmbedField{Name: d.prefix + entry.usage, Value: entry.summary}
	}
	d.reply(ctx, invocation, platform.Embed{
		Title:       "Commands",
		Description: "These are the commands you can use:",
		Color:       platform.ColorBrand,
		Fields:      fields,
	})
}

// ChunkLines joins lines into strings no longer than limit, never
// splitting a line. A single line longer than limit gets its own chunk.
func ChunkLines(lines []string, limit int) []string {
	var chunks []string
	var current strings.Builder
	for _, line := range lines {
		if current.Len() > 0 && current.Len()+len(line) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// highestPosition returns the highest position among roleIDs, or zero
// (the @everyone position) when the member holds none of them.
func highestPosition(roles []platform.Role, roleIDs []string) int {
	highest := 0
	for _, role := range roles {
		if slices.Contains(roleIDs, role.ID) && role.Position > highest {
			highest = role.Position
		}
	}
	return highest
}

// reasonFrom takes the words after the first mention as the reason.
func reasonFrom(args []string) string {
	if len(args) < 2 {
		return defaultReason
	}
	return strings.Join(args[1:], " ")
}

// resolveRoleTarget finds the first mentioned role and the last
// mentioned member, replying when either is missing. It also returns
// the guild's roles.
func (d *Dispatcher) resolveRoleTarget(ctx context.Context, invocation Invocation) (*platform.Member, platform.Role, []platform.Role, bool) {
	event := invocation.Event
	roles, err := d.platform.Roles(ctx, event.GuildID)
	if err != nil {
		d.failed(ctx, invocation, "Failed to look up the role.", err)
		return nil, platform.Role{}, nil, false
	}
	roleID := event.MentionedRoleIDs[0]
	index := slices.IndexFunc(roles, func(role platform.Role) bool { return role.ID == roleID })
	if index < 0 {
		d.replyError(ctx, invocation, "Role not found.")
		return nil, platform.Role{}, nil, false
	}
	target, ok := d.resolveMember(ctx, invocation, event.MentionedUserIDs[len(event.MentionedUserIDs)-1])
	if !ok {
		return nil, platform.Role{}, nil, false
	}
	return target, roles[index], roles, true
}

func (d *Dispatcher) resolveMember(ctx context.Context, invocation Invocation, userID string) (*platform.Member, bool) {
	member, err := d.platform.Member(ctx, invocation.Event.GuildID, userID)
	if err != nil {
		if platform.IsError(err, platform.CodeNotFound) {
			d.replyError(ctx, invocation, "Member not found.")
			return nil, false
		}
		d.failed(ctx, invocation, "Failed to look up the member.", err)
		return nil, false
	}
	return member, true
}

// failed logs a platform failure and replies with a generic notice.
func (d *Dispatcher) failed(ctx context.Context, invocation Invocation, notice string, err error) {
	d.logger.Error("command failed",
		"guild_id", invocation.Event.GuildID,
		"command", invocation.Name,
		"author_id", invocation.Event.Author.User.ID,
		"error", err,
	)
	d.replyError(ctx, invocation, notice)
}
