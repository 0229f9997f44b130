// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package discord

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/bureau-foundation/warden/platform"
)

// translateError converts an SDK failure into a *platform.Error.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		result := &platform.Error{Op: op, Err: err}
		if restErr.Response != nil {
			result.StatusCode = restErr.Response.StatusCode
		}
		if restErr.Message != nil {
			result.Message = restErr.Message.Message
		}
		if result.Message == "" {
			result.Message = http.StatusText(result.StatusCode)
		}
		result.Code = codeForStatus(result.StatusCode)
		return result
	}

	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return &platform.Error{
			Op:         op,
			Code:       platform.CodeRateLimited,
			StatusCode: http.StatusTooManyRequests,
			Message:    rateErr.Error(),
			Err:        err,
		}
	}

	return &platform.Error{Op: op, Code: platform.CodeUnavailable, Message: err.Error(), Err: err}
}

func codeForStatus(status int) platform.Code {
	switch {
	case status == http.StatusNotFound:
		return platform.CodeNotFound
	case status == http.StatusForbidden, status == http.StatusUnauthorized:
		return platform.CodeForbidden
	case status == http.StatusTooManyRequests:
		return platform.CodeRateLimited
	case status == http.StatusBadRequest:
		return platform.CodeInvalid
	case status >= 500:
		return platform.CodeUnavailable
	default:
		return platform.CodeUnknown
	}
}

func convertUser(user *discordgo.User) platform.User {
	if user == nil {
		return platform.User{}
	}
	return platform.User{ID: user.ID, Username: user.Username, Bot: user.Bot}
}

// convertMember converts a member. guildID fills in for payloads that
// omit it, such as interactions.
func convertMember(guildID string, member *discordgo.Member) platform.Member {
	if member == nil {
		return platform.Member{GuildID: guildID}
	}
	if member.GuildID != "" {
		guildID = member.GuildID
	}
	return platform.Member{
		GuildID: guildID,
		User:    convertUser(member.User),
		RoleIDs: append([]string(nil), member.Roles...),
	}
}

func convertRole(role *discordgo.Role) platform.Role {
	return platform.Role{ID: role.ID, Name: role.Name, Position: role.Position}
}

func convertChannel(channel *discordgo.Channel) platform.Channel {
	return platform.Channel{
		ID:       channel.ID,
		GuildID:  channel.GuildID,
		ParentID: channel.ParentID,
		Name:     channel.Name,
	}
}

func auditActionType(action platform.AuditAction) (discordgo.AuditLogAction, bool) {
	switch action {
	case platform.AuditRoleDelete:
		return discordgo.AuditLogActionRoleDelete, true
	case platform.AuditChannelDelete:
		return discordgo.AuditLogActionChannelDelete, true
	default:
		return 0, false
	}
}

// convertAuditEntry resolves the entry's actor against the users the
// log carries. The entry time comes from its snowflake ID.
func convertAuditEntry(action platform.AuditAction, log *discordgo.GuildAuditLog, entry *discordgo.AuditLogEntry) platform.AuditEntry {
	result := platform.AuditEntry{
		ID:       entry.ID,
		Action:   action,
		Actor:    platform.User{ID: entry.UserID},
		TargetID: entry.TargetID,
	}
	for _, user := range log.Users {
		if user != nil && user.ID == entry.UserID {
			result.Actor = convertUser(user)
			break
		}
	}
	for _, change := range entry.Changes {
		if change == nil || change.Key == nil || *change.Key != discordgo.AuditLogChangeKeyName {
			continue
		}
		if name, ok := change.OldValue.(string); ok {
			result.TargetName = name
		}
	}
	if created, err := discordgo.SnowflakeTimestamp(entry.ID); err == nil {
		result.CreatedAt = created
	}
	return result
}

func convertOverwrites(overwrites []platform.Overwrite) []*discordgo.PermissionOverwrite {
	result := make([]*discordgo.PermissionOverwrite, len(overwrites))
	for i, overwrite := range overwrites {
		kind := discordgo.PermissionOverwriteTypeRole
		if overwrite.Kind == platform.OverwriteMember {
			kind = discordgo.PermissionOverwriteTypeMember
		}
		result[i] = &discordgo.PermissionOverwrite{
			ID:    overwrite.ID,
			Type:  kind,
			Allow: int64(overwrite.Allow),
			Deny:  int64(overwrite.Deny),
		}
	}
	return result
}

func convertEmbed(embed platform.Embed) *discordgo.MessageEmbed {
	result := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       int(embed.Color),
	}
	if !embed.Timestamp.IsZero() {
		result.Timestamp = embed.Timestamp.UTC().Format(time.RFC3339)
	}
	if embed.ThumbnailURL != "" {
		result.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: embed.ThumbnailURL}
	}
	if embed.Footer != "" {
		result.Footer = &discordgo.MessageEmbedFooter{Text: embed.Footer}
	}
	for _, field := range embed.Fields {
		result.Fields = append(result.Fields, &discordgo.MessageEmbedField{
			Name:   field.Name,
			Value:  field.Value,
			Inline: field.Inline,
		})
	}
	return result
}

func convertEmbeds(embeds []platform.Embed) []*discordgo.MessageEmbed {
	result := make([]*discordgo.MessageEmbed, len(embeds))
	for i, embed := range embeds {
		result[i] = convertEmbed(embed)
	}
	return result
}

var buttonStyles = map[platform.ButtonStyle]discordgo.ButtonStyle{
	platform.ButtonPrimary:   discordgo.PrimaryButton,
	platform.ButtonSecondary: discordgo.SecondaryButton,
	platform.ButtonDanger:    discordgo.DangerButton,
}

// convertComponents renders the menu and the buttons as separate rows.
func convertComponents(message platform.Message) []discordgo.MessageComponent {
	components := []discordgo.MessageComponent{}
	if message.Menu != nil {
		options := make([]discordgo.SelectMenuOption, len(message.Menu.Options))
		for i, option := range message.Menu.Options {
			options[i] = discordgo.SelectMenuOption{
				Label:       option.Label,
				Value:       option.Value,
				Description: option.Description,
			}
		}
		components = append(components, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    message.Menu.CustomID,
				Placeholder: message.Menu.Placeholder,
				Options:     options,
			},
		}})
	}
	if len(message.Buttons) > 0 {
		buttons := make([]discordgo.MessageComponent, len(message.Buttons))
		for i, button := range message.Buttons {
			buttons[i] = discordgo.Button{
				CustomID: button.CustomID,
				Label:    button.Label,
				Style:    buttonStyles[button.Style],
			}
		}
		components = append(components, discordgo.ActionsRow{Components: buttons})
	}
	return components
}

func messageSend(message platform.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    message.Content,
		Embeds:     convertEmbeds(message.Embeds),
		Components: convertComponents(message),
	}
}

// messageEdit replaces every part of the message. Content is always
// sent, so an empty Content clears the previous text.
func messageEdit(channelID, messageID string, message platform.Message) *discordgo.MessageEdit {
	content := message.Content
	embeds := convertEmbeds(message.Embeds)
	components := convertComponents(message)
	return &discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	}
}

// customIDs collects component custom IDs from a received message.
func customIDs(components []discordgo.MessageComponent) []string {
	var ids []string
	for _, component := range components {
		switch c := component.(type) {
		case *discordgo.ActionsRow:
			ids = append(ids, customIDs(c.Components)...)
		case discordgo.ActionsRow:
			ids = append(ids, customIDs(c.Components)...)
		case *discordgo.Button:
			ids = append(ids, c.CustomID)
		case discordgo.Button:
			ids = append(ids, c.CustomID)
		case *discordgo.SelectMenu:
			ids = append(ids, c.CustomID)
		case discordgo.SelectMenu:
			ids = append(ids, c.CustomID)
		}
	}
	return ids
}

func convertSentMessage(message *discordgo.Message) platform.SentMessage {
	result := platform.SentMessage{
		ID:        message.ID,
		ChannelID: message.ChannelID,
		CustomIDs: customIDs(message.Components),
	}
	if message.Author != nil {
		result.AuthorID = message.Author.ID
	}
	return result
}

var (
	userMentionPattern = regexp.MustCompile(`<@!?(\d+)>`)
	roleMentionPattern = regexp.MustCompile(`<@&(\d+)>`)
)

// mentionIDs returns the IDs a pattern captures in content, in order of
// first appearance.
func mentionIDs(pattern *regexp.Regexp, content string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, match := range pattern.FindAllStringSubmatch(content, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			ids = append(ids, match[1])
		}
	}
	return ids
}
