// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/warden/lib/clock"
	"github.com/bureau-foundation/warden/lib/notify"
	"github.com/bureau-foundation/warden/platform"
)

// DefaultCloseDelay is the grace period between a close request and the
// channel's deletion.
const DefaultCloseDelay = 5 * time.Second

var (
	// ErrInvalidCategory is returned for a menu value that is not a
	// known category.
	ErrInvalidCategory = errors.New("ticket: invalid category")

	// ErrNotAuthorized is returned when the closer lacks the support
	// role.
	ErrNotAuthorized = errors.New("ticket: closer lacks the support role")

	// ErrNotTicket is returned when asked to close a channel that is not
	// a ticket.
	ErrNotTicket = errors.New("ticket: channel is not a ticket")

	// ErrOpenInProgress is returned when an open request for the same
	// requester and category is still being processed.
	ErrOpenInProgress = errors.New("ticket: open already in progress")

	// ErrClosing is returned by Open when the requester's existing
	// ticket has a close scheduled. OpenResult.Channel names it.
	ErrClosing = errors.New("ticket: existing ticket is closing")
)

// Platform is the subset of the platform the registry uses.
type Platform interface {
	platform.Channels
	platform.Messenger
	platform.Guilds
}

// Config configures a Registry.
type Config struct {
	// Containers maps each category to the container its channels are
	// created under. A category without a container creates top-level
	// channels.
	Containers map[Category]string

	// SupportRoleID may see every ticket and is the only role allowed
	// to close one.
	SupportRoleID string

	// CloseDelay defaults to DefaultCloseDelay.
	CloseDelay time.Duration

	// MenuFooter is the footer of the ticket menu embed.
	MenuFooter string

	Clock    clock.Clock
	Notifier notify.Notifier
	Logger   *slog.Logger
}

// OpenResult is the outcome of a successful Open.
type OpenResult struct {
	Channel platform.Channel
	// Created is false when the ticket already existed.
	Created bool
}

// CloseResult is the outcome of an authorized Close.
type CloseResult int

const (
	// CloseScheduled means this call scheduled the deletion.
	CloseScheduled CloseResult = iota + 1
	// CloseAlreadyPending means an earlier call already scheduled it.
	CloseAlreadyPending
)

type reservationKey struct {
	guildID     string
	requesterID string
	category    Category
}

// Registry enforces one live ticket per (requester, category) and runs
// delayed closes.
type Registry struct {
	platform      Platform
	containers    map[Category]string
	supportRoleID string
	closeDelay    time.Duration
	menuFooter    string
	clock         clock.Clock
	notifier      notify.Notifier
	logger        *slog.Logger

	mu sync.Mutex
	// reservations maps a ticket key to its channel ID, or "" while an
	// open is in flight.
	reservations map[reservationKey]string
	pending      map[string]*clock.Timer
}

// NewRegistry creates a Registry.
func NewRegistry(target Platform, config Config) *Registry {
	closeDelay := config.CloseDelay
	if closeDelay <= 0 {
		closeDelay = DefaultCloseDelay
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := config.Notifier
	if notifier == nil {
		notifier = &notify.Recorder{}
	}
	containers := make(map[Category]string, len(config.Containers))
	for category, containerID := range config.Containers {
		containers[category] = containerID
	}
	return &Registry{
		platform:      target,
		containers:    containers,
		supportRoleID: config.SupportRoleID,
		closeDelay:    closeDelay,
		menuFooter:    config.MenuFooter,
		clock:         clk,
		notifier:      notifier,
		logger:        logger.With("component", "ticket"),
		reservations:  make(map[reservationKey]string),
		pending:       make(map[string]*clock.Timer),
	}
}

// Open returns requester's ticket of the given category in guildID,
// creating it if it does not exist.
func (r *Registry) Open(ctx context.Context, guildID string, requester platform.User, value string) (OpenResult, error) {
	category, err := ParseCategory(value)
	if err != nil {
		return OpenResult{}, err
	}
	key := reservationKey{guildID: guildID, requesterID: requester.ID, category: category}
	if !r.reserve(key) {
		return OpenResult{}, ErrOpenInProgress
	}

	name := ChannelName(requester.ID, category)
	containerID := r.containers[category]
	logger := r.logger.With(
		"guild_id", guildID,
		"requester_id", requester.ID,
		"category", string(category),
	)

	existing, err := r.findChannel(ctx, guildID, name, containerID)
	if err != nil {
		r.release(key, "")
		return OpenResult{}, fmt.Errorf("looking up ticket channel %s: %w", name, err)
	}
	if existing != nil {
		r.settle(key, existing.ID)
		if r.closing(existing.ID) {
			logger.Debug("ticket is closing", "channel_id", existing.ID)
			return OpenResult{Channel: *existing}, ErrClosing
		}
		logger.Debug("ticket already open", "channel_id", existing.ID)
		return OpenResult{Channel: *existing}, nil
	}

	channel, err := r.platform.CreateChannel(ctx, guildID, platform.ChannelSpec{
		Name:       name,
		ParentID:   containerID,
		Overwrites: r.overwrites(guildID, requester.ID),
	})
	if err != nil {
		r.release(key, "")
		logger.Error("creating ticket channel failed", "error", err)
		r.notifier.Log(guildID, notify.Record{
			Title:       "Ticket creation failed",
			Description: fmt.Sprintf("Could not open a %s ticket for %s.", category, requester.Mention()),
			Class:       notify.ClassDanger,
		})
		return OpenResult{}, fmt.Errorf("creating ticket channel %s: %w", name, err)
	}
	r.settle(key, channel.ID)

	welcome := WelcomeMessage(requester, category, r.platform.GuildIconURL(ctx, guildID), r.clock.Now())
	if _, err := r.platform.SendMessage(ctx, channel.ID, welcome); err != nil {
		logger.Warn("posting ticket welcome failed", "channel_id", channel.ID, "error", err)
	}

	logger.Info("ticket opened", "channel_id", channel.ID)
	r.notifier.Log(guildID, notify.Record{
		Title:       "Ticket opened",
		Description: fmt.Sprintf("%s opened a %s ticket: %s", requester.Mention(), category, channel.Mention()),
		Class:       notify.ClassInfo,
	})
	return OpenResult{Channel: *channel, Created: true}, nil
}

// Close schedules deletion of the ticket channelID on behalf of closer.
func (r *Registry) Close(ctx context.Context, channelID string, closer platform.Member) (CloseResult, error) {
	if !closer.HasRole(r.supportRoleID) {
		return 0, ErrNotAuthorized
	}

	channel, err := r.platform.Channel(ctx, channelID)
	if err != nil {
		if platform.IsError(err, platform.CodeNotFound) {
			return 0, ErrNotTicket
		}
		return 0, fmt.Errorf("looking up channel %s: %w", channelID, err)
	}
	requesterID, category, ok := ParseChannelName(channel.Name)
	if !ok {
		return 0, ErrNotTicket
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[channelID]; exists {
		return CloseAlreadyPending, nil
	}
	closed := *channel
	key := reservationKey{guildID: channel.GuildID, requesterID: requesterID, category: category}
	r.pending[channelID] = r.clock.AfterFunc(r.closeDelay, func() {
		r.finishClose(closed, key, closer.User)
	})
	r.logger.Info("ticket close scheduled",
		"guild_id", channel.GuildID,
		"channel_id", channelID,
		"closer_id", closer.User.ID,
		"delay", r.closeDelay,
	)
	return CloseScheduled, nil
}

// Forget drops any reservation or pending close for a channel that no
// longer exists.
func (r *Registry) Forget(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, reserved := range r.reservations {
		if reserved == channelID {
			delete(r.reservations, key)
		}
	}
	if timer, exists := r.pending[channelID]; exists {
		timer.Stop()
		delete(r.pending, channelID)
	}
}

// CloseDelay is the grace period between a close request and the
// channel's deletion.
func (r *Registry) CloseDelay() time.Duration { return r.closeDelay }

// PendingCloses returns how many closes are scheduled.
func (r *Registry) PendingCloses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Registry) closing(channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.pending[channelID]
	return exists
}

// Reservation returns the channel reserved for a ticket key. The channel
// ID is empty while an open is in flight.
func (r *Registry) Reservation(guildID, requesterID string, category Category) (channelID string, held bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	channelID, held = r.reservations[reservationKey{guildID: guildID, requesterID: requesterID, category: category}]
	return channelID, held
}

func (r *Registry) finishClose(channel platform.Channel, key reservationKey, closer platform.User) {
	ctx := context.Background()
	err := r.platform.DeleteChannel(ctx, channel.ID)

	r.mu.Lock()
	delete(r.pending, channel.ID)
	if err == nil || platform.IsError(err, platform.CodeNotFound) {
		if r.reservations[key] == channel.ID {
			delete(r.reservations, key)
		}
	}
	r.mu.Unlock()

	logger := r.logger.With("guild_id", channel.GuildID, "channel_id", channel.ID)
	switch {
	case err == nil:
		logger.Info("ticket closed", "closer_id", closer.ID)
		r.notifier.Log(channel.GuildID, notify.Record{
			Title:       "Ticket closed",
			Description: fmt.Sprintf("Ticket `%s` was closed by %s.", channel.Name, closer.Mention()),
			Class:       notify.ClassWarning,
		})
	case platform.IsError(err, platform.CodeNotFound):
		logger.Debug("ticket channel already gone at close")
	default:
		logger.Error("deleting ticket channel failed", "error", err)
		r.notifier.Log(channel.GuildID, notify.Record{
			Title:       "Ticket close failed",
			Description: fmt.Sprintf("Could not delete ticket `%s`: %v", channel.Name, err),
			Class:       notify.ClassDanger,
		})
	}
}

// reserve inserts an in-flight reservation unless one is already in
// flight. A settled reservation is re-validated against the platform by
// the caller, so it may be taken over.
func (r *Registry) reserve(key reservationKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channelID, exists := r.reservations[key]; exists && channelID == "" {
		return false
	}
	r.reservations[key] = ""
	return true
}

func (r *Registry) settle(key reservationKey, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[key] = channelID
}

// release drops the reservation if it still holds channelID.
func (r *Registry) release(key reservationKey, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, exists := r.reservations[key]; exists && current == channelID {
		delete(r.reservations, key)
	}
}

func (r *Registry) findChannel(ctx context.Context, guildID, name, containerID string) (*platform.Channel, error) {
	channels, err := r.platform.Channels(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for _, channel := range channels {
		if channel.Name == name && channel.ParentID == containerID {
			return &channel, nil
		}
	}
	return nil, nil
}

// overwrites hides the channel from everyone but the requester and the
// support role. The @everyone role shares the guild's ID.
func (r *Registry) overwrites(guildID, requesterID string) []platform.Overwrite {
	participant := platform.PermissionViewChannel | platform.PermissionSendMessages | platform.PermissionReadMessageHistory
	overwrites := []platform.Overwrite{
		{ID: guildID, Kind: platform.OverwriteRole, Deny: platform.PermissionViewChannel},
		{ID: requesterID, Kind: platform.OverwriteMember, Allow: participant},
	}
	if r.supportRoleID != "" {
		overwrites = append(overwrites, platform.Overwrite{ID: r.supportRoleID, Kind: platform.OverwriteRole, Allow: participant})
	}
	return overwrites
}
