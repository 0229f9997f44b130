// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package discord implements platform.Platform on a discordgo gateway
// session.
//
// REST failures are returned as *platform.Error with a code derived
// from the HTTP status, so components never see SDK types. Gateway
// events are translated into platform events and handed to the
// function passed to [Adapter.OnEvent].
//
// Discord removes a role from the session state before the deletion
// event reaches handlers, so the adapter keeps its own cache of role
// names, filled from guild snapshots and role updates, to report the
// name of a deleted role.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/bureau-foundation/warden/platform"
)

// Intents are the gateway intents the adapter needs. Guild members and
// message content are privileged and must be enabled for the
// application.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

// iconSize is the requested guild icon size in pixels.
const iconSize = "256"

// Adapter is a platform.Platform backed by a Discord bot session.
type Adapter struct {
	session *discordgo.Session
	logger  *slog.Logger

	selfID atomic.Value // string

	mu        sync.Mutex
	roleNames map[string]map[string]string // guild ID -> role ID -> name
	onEvent   func(platform.Event)
	removers  []func()
}

// New creates an adapter for a bot token. Call OnEvent, then Open.
func New(token string, logger *slog.Logger) (*Adapter, error) {
	if token == "" {
		return nil, errors.New("discord: token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: creating session: %w", err)
	}
	session.Identify.Intents = Intents
	return newAdapter(session, logger), nil
}

func newAdapter(session *discordgo.Session, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	adapter := &Adapter{
		session:   session,
		logger:    logger.With("component", "discord"),
		roleNames: make(map[string]map[string]string),
	}
	adapter.selfID.Store("")
	return adapter
}

// OnEvent sets the function translated events are delivered to. It is
// called on the gateway's goroutines and must not block for long.
func (a *Adapter) OnEvent(handler func(platform.Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onEvent = handler
}

// Open connects to the gateway.
func (a *Adapter) Open() error {
	a.mu.Lock()
	a.removers = append(a.removers, a.session.AddHandler(func(_ *discordgo.Session, event any) {
		a.dispatch(event)
	}))
	a.mu.Unlock()

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway and stops event delivery.
func (a *Adapter) Close() error {
	a.mu.Lock()
	for _, remove := range a.removers {
		remove()
	}
	a.removers = nil
	a.mu.Unlock()
	return a.session.Close()
}

func (a *Adapter) dispatch(raw any) {
	event, ok := a.translate(raw)
	if !ok {
		return
	}
	a.mu.Lock()
	handler := a.onEvent
	a.mu.Unlock()
	if handler != nil {
		handler(event)
	}
}

// SelfID returns the bot's user ID, empty until Ready.
func (a *Adapter) SelfID() string {
	return a.selfID.Load().(string)
}

// GuildIconURL returns the guild icon from the session state, falling
// back to a REST lookup.
func (a *Adapter) GuildIconURL(ctx context.Context, guildID string) string {
	guild, err := a.session.State.Guild(guildID)
	if err != nil {
		guild, err = a.session.Guild(guildID, discordgo.WithContext(ctx))
		if err != nil {
			a.logger.Debug("looking up guild icon failed", "guild_id", guildID, "error", err)
			return ""
		}
	}
	if guild.Icon == "" {
		return ""
	}
	return guild.IconURL(iconSize)
}

func (a *Adapter) LatestAuditEntry(ctx context.Context, guildID string, action platform.AuditAction) (*platform.AuditEntry, error) {
	actionType, ok := auditActionType(action)
	if !ok {
		return nil, &platform.Error{Op: "read audit log", Code: platform.CodeInvalid, Message: "unsupported action " + action.String()}
	}
	log, err := a.session.GuildAuditLog(guildID, "", "", int(actionType), 1, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError("read audit log", err)
	}
	if len(log.AuditLogEntries) == 0 || log.AuditLogEntries[0] == nil {
		return nil, nil
	}
	entry := convertAuditEntry(action, log, log.AuditLogEntries[0])
	return &entry, nil
}

func (a *Adapter) Member(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	member, err := a.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError("get member", err)
	}
	result := convertMember(guildID, member)
	return &result, nil
}

func (a *Adapter) Roles(ctx context.Context, guildID string) ([]platform.Role, error) {
	roles, err := a.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError("list roles", err)
	}
	result := make([]platform.Role, 0, len(roles))
	for _, role := range roles {
		if role != nil {
			result = append(result, convertRole(role))
		}
	}
	a.cacheRoles(guildID, roles)
	return result, nil
}

func (a *Adapter) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return translateError("add role", a.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (a *Adapter) RemoveRole(ctx context.Context, guildID, userID, roleID string) error {
	return translateError("remove role", a.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (a *Adapter) SetRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	// A nil slice would encode as null, which Discord ignores.
	roles := append([]string{}, roleIDs...)
	_, err := a.session.GuildMemberEdit(guildID, userID, &discordgo.GuildMemberParams{Roles: &roles}, discordgo.WithContext(ctx))
	return translateError("set roles", err)
}

func (a *Adapter) Ban(ctx context.Context, guildID, userID, reason string) error {
	return translateError("ban member", a.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx)))
}

func (a *Adapter) Kick(ctx context.Context, guildID, userID, reason string) error {
	return translateError("kick member", a.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)))
}

func (a *Adapter) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	channel, err := a.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError("get channel", err)
	}
	result := convertChannel(channel)
	return &result, nil
}

func (a *Adapter) Channels(ctx context.Context, guildID string) ([]platform.Channel, error) {
	channels, err := a.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError("list channels", err)
	}
	result := make([]platform.Channel, 0, len(channels))
	for _, channel := range channels {
		if channel != nil {
			result = append(result, convertChannel(channel))
		}
	}
	return result, nil
}

func (a *Adapter) CreateChannel(ctx context.Context, guildID string, spec platform.ChannelSpec) (*platform.Channel, error) {
	channel, err := a.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             spec.ParentID,
		PermissionOverwrites: convertOverwrites(spec.Overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError("create channel", err)
	}
	result := convertChannel(channel)
	return &result, nil
}

func (a *Adapter) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := a.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return translateError("delete channel", err)
}

func (a *Adapter) SendMessage(ctx context.Context, channelID string, message platform.Message) (*platform.SentMessage, error) {
	sent, err := a.session.ChannelMessageSendComplex(channelID, messageSend(message), discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError("send message", err)
	}
	result := convertSentMessage(sent)
	return &result, nil
}

func (a *Adapter) EditMessage(ctx context.Context, channelID, messageID string, message platform.Message) error {
	_, err := a.session.ChannelMessageEditComplex(messageEdit(channelID, messageID, message), discordgo.WithContext(ctx))
	return translateError("edit message", err)
}

func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return translateError("delete message", a.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (a *Adapter) RecentMessages(ctx context.Context, channelID string, limit int) ([]platform.SentMessage, error) {
	messages, err := a.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, translateError("read messages", err)
	}
	result := make([]platform.SentMessage, 0, len(messages))
	for _, message := range messages {
		if message != nil {
			result = append(result, convertSentMessage(message))
		}
	}
	return result, nil
}

func (a *Adapter) RespondEphemeral(ctx context.Context, interaction platform.Interaction, content string) error {
	raw, ok := interaction.Handle.(*discordgo.Interaction)
	if !ok || raw == nil {
		return &platform.Error{Op: "respond", Code: platform.CodeInvalid, Message: "interaction did not come from this adapter"}
	}
	err := a.session.InteractionRespond(raw, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	return translateError("respond", err)
}

var _ platform.Platform = (*Adapter)(nil)
