// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/bureau-foundation/warden/platform"
)

// translate converts a gateway event into a platform event. Events the
// agent does not act on, and events it only uses to maintain the role
// cache, return false.
func (a *Adapter) translate(raw any) (platform.Event, bool) {
	switch event := raw.(type) {
	case *discordgo.Ready:
		if event.User != nil {
			a.selfID.Store(event.User.ID)
		}
		ready := platform.Ready{Self: convertUser(event.User)}
		for _, guild := range event.Guilds {
			if guild != nil {
				ready.GuildIDs = append(ready.GuildIDs, guild.ID)
			}
		}
		return ready, true

	case *discordgo.GuildCreate:
		if event.Guild != nil {
			a.cacheRoles(event.ID, event.Roles)
		}
		return nil, false

	case *discordgo.GuildRoleCreate:
		if event.GuildRole != nil && event.Role != nil {
			a.cacheRoles(event.GuildID, []*discordgo.Role{event.Role})
		}
		return nil, false

	case *discordgo.GuildRoleUpdate:
		if event.GuildRole != nil && event.Role != nil {
			a.cacheRoles(event.GuildID, []*discordgo.Role{event.Role})
		}
		return nil, false

	case *discordgo.GuildRoleDelete:
		return platform.RoleDeleted{
			GuildID:  event.GuildID,
			RoleID:   event.RoleID,
			RoleName: a.forgetRole(event.GuildID, event.RoleID),
		}, true

	case *discordgo.ChannelDelete:
		if event.Channel == nil || event.GuildID == "" {
			return nil, false
		}
		return platform.ChannelDeleted{Channel: convertChannel(event.Channel)}, true

	case *discordgo.GuildMemberAdd:
		if event.Member == nil {
			return nil, false
		}
		return platform.MemberJoined{Member: convertMember(event.GuildID, event.Member)}, true

	case *discordgo.GuildMemberRemove:
		if event.Member == nil {
			return nil, false
		}
		return platform.MemberLeft{GuildID: event.GuildID, User: convertUser(event.User)}, true

	case *discordgo.InteractionCreate:
		return translateInteraction(event.Interaction)

	case *discordgo.MessageCreate:
		return translateMessage(event.Message)
	}
	return nil, false
}

func translateInteraction(interaction *discordgo.Interaction) (platform.Event, bool) {
	if interaction == nil || interaction.Type != discordgo.InteractionMessageComponent || interaction.GuildID == "" {
		return nil, false
	}
	data := interaction.MessageComponentData()
	kind := platform.InteractionMenu
	if data.ComponentType == discordgo.ButtonComponent {
		kind = platform.InteractionButton
	}
	return platform.InteractionSubmitted{Interaction: platform.Interaction{
		ID:        interaction.ID,
		Kind:      kind,
		CustomID:  data.CustomID,
		Values:    data.Values,
		GuildID:   interaction.GuildID,
		ChannelID: interaction.ChannelID,
		Invoker:   convertMember(interaction.GuildID, interaction.Member),
		Handle:    interaction,
	}}, true
}

// translateMessage reports guild messages. The member attached to a
// message carries roles but not the user, which comes from the author.
func translateMessage(message *discordgo.Message) (platform.Event, bool) {
	if message == nil || message.GuildID == "" || message.Author == nil {
		return nil, false
	}
	author := platform.Member{GuildID: message.GuildID, User: convertUser(message.Author)}
	if message.Member != nil {
		author.RoleIDs = append([]string(nil), message.Member.Roles...)
	}
	return platform.TextCommandInvoked{
		GuildID:          message.GuildID,
		ChannelID:        message.ChannelID,
		MessageID:        message.ID,
		Content:          message.Content,
		Author:           author,
		MentionedUserIDs: mentionIDs(userMentionPattern, message.Content),
		MentionedRoleIDs: mentionIDs(roleMentionPattern, message.Content),
	}, true
}

func (a *Adapter) cacheRoles(guildID string, roles []*discordgo.Role) {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := a.roleNames[guildID]
	if names == nil {
		names = make(map[string]string)
		a.roleNames[guildID] = names
	}
	for _, role := range roles {
		if role != nil {
			names[role.ID] = role.Name
		}
	}
}

// forgetRole removes a role from the cache and returns its name, or ""
// if it was never seen.
func (a *Adapter) forgetRole(guildID, roleID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	name := a.roleNames[guildID][roleID]
	delete(a.roleNames[guildID], roleID)
	return name
}
