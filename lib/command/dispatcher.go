// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/warden/lib/clock"
	"github.com/bureau-foundation/warden/lib/notify"
	"github.com/bureau-foundation/warden/platform"
)

const (
	// DefaultPrefix starts every command.
	DefaultPrefix = "!"

	// DefaultReplyLifetime is how long a reply stays before deleting
	// itself.
	DefaultReplyLifetime = 15 * time.Second
)

// Platform is the subset of the platform commands use.
type Platform interface {
	platform.Members
	platform.Messenger
	platform.Guilds
	SelfID() string
}

// Config configures a Dispatcher.
type Config struct {
	// Prefix defaults to DefaultPrefix.
	Prefix string

	// AuthorizedRoleIDs may use commands at all.
	AuthorizedRoleIDs []string

	// AdminRoleID is the role addadmin grants.
	AdminRoleID string

	// AdminGrantRoleID is the role required to run addadmin.
	AdminGrantRoleID string

	// ReplyLifetime defaults to DefaultReplyLifetime.
	ReplyLifetime time.Duration

	Clock    clock.Clock
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// Invocation is a parsed command message.
type Invocation struct {
	Event platform.TextCommandInvoked
	// Name is the lower-cased command word.
	Name string
	// Args are the whitespace-separated words after the command,
	// mentions included.
	Args []string
}

// Dispatcher parses and runs commands.
type Dispatcher struct {
	platform          Platform
	prefix            string
	authorizedRoleIDs []string
	adminRoleID       string
	adminGrantRoleID  string
	replyLifetime     time.Duration
	clock             clock.Clock
	notifier          notify.Notifier
	logger            *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(target Platform, config Config) *Dispatcher {
	prefix := config.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	lifetime := config.ReplyLifetime
	if lifetime <= 0 {
		lifetime = DefaultReplyLifetime
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	notifier := config.Notifier
	if notifier == nil {
		notifier = &notify.Recorder{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		platform:          target,
		prefix:            prefix,
		authorizedRoleIDs: config.AuthorizedRoleIDs,
		adminRoleID:       config.AdminRoleID,
		adminGrantRoleID:  config.AdminGrantRoleID,
		replyLifetime:     lifetime,
		clock:             clk,
		notifier:          notifier,
		logger:            logger.With("component", "command"),
	}
}

// Parse splits a message into an invocation. It returns false when the
// content does not start with prefix or names no command.
func Parse(prefix string, event platform.TextCommandInvoked) (Invocation, bool) {
	body, found := strings.CutPrefix(event.Content, prefix)
	if !found {
		return Invocation{}, false
	}
	words := strings.Fields(body)
	if len(words) == 0 {
		return Invocation{}, false
	}
	return Invocation{
		Event: event,
		Name:  strings.ToLower(words[0]),
		Args:  words[1:],
	}, true
}

// Handle processes one guild message. It returns true when the message
// was a command, authorized or not.
func (d *Dispatcher) Handle(ctx context.Context, event platform.TextCommandInvoked) bool {
	if event.Author.User.Bot || !strings.HasPrefix(event.Content, d.prefix) {
		return false
	}

	if err := d.platform.DeleteMessage(ctx, event.ChannelID, event.MessageID); err != nil {
		d.logger.Debug("deleting command message failed",
			"channel_id", event.ChannelID,
			"message_id", event.MessageID,
			"error", err,
		)
	}

	if !event.Author.HasAnyRole(d.authorizedRoleIDs) {
		d.logger.Debug("ignoring command from unauthorized member",
			"guild_id", event.GuildID,
			"author_id", event.Author.User.ID,
		)
		return true
	}

	invocation, ok := Parse(d.prefix, event)
	if !ok {
		return true
	}
	definition, exists := builtinCommands[invocation.Name]
	if !exists {
		d.logger.Debug("unknown command", "command", invocation.Name, "author_id", event.Author.User.ID)
		return true
	}

	d.logger.Info("processing command",
		"guild_id", event.GuildID,
		"channel_id", event.ChannelID,
		"author_id", event.Author.User.ID,
		"command", invocation.Name,
	)
	definition.handler(ctx, d, invocation)
	return true
}

// reply sends an embed to the invocation's channel and schedules its
// deletion.
func (d *Dispatcher) reply(ctx context.Context, invocation Invocation, embed platform.Embed) {
	if embed.ThumbnailURL == "" {
		embed.ThumbnailURL = d.platform.GuildIconURL(ctx, invocation.Event.GuildID)
	}
	if embed.Timestamp.IsZero() && embed.Title != "" {
		embed.Timestamp = d.clock.Now()
	}
	channelID := invocation.Event.ChannelID
	sent, err := d.platform.SendMessage(ctx, channelID, platform.Message{Embeds: []platform.Embed{embed}})
	if err != nil {
		d.logger.Warn("sending command reply failed",
			"channel_id", channelID,
			"command", invocation.Name,
			"error", err,
		)
		return
	}
	d.clock.AfterFunc(d.replyLifetime, func() {
		if err := d.platform.DeleteMessage(context.Background(), channelID, sent.ID); err != nil {
			d.logger.Debug("deleting expired reply failed", "channel_id", channelID, "message_id", sent.ID, "error", err)
		}
	})
}

// replyError sends a red, untitled notice.
func (d *Dispatcher) replyError(ctx context.Context, invocation Invocation, description string) {
	d.reply(ctx, invocation, platform.Embed{Description: description, Color: platform.ColorRed})
}
