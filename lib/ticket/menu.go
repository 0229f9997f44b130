// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bureau-foundation/warden/platform"
)

const (
	// MenuCustomID identifies the ticket category select menu.
	MenuCustomID = "select_ticket"

	// CloseCustomID identifies the close button in a ticket channel.
	CloseCustomID = "close_ticket"

	// MenuSearchLimit is how many recent messages PublishMenu inspects
	// for an existing menu.
	MenuSearchLimit = 10

	// DefaultMenuFooter is used when Config.MenuFooter is empty.
	DefaultMenuFooter = "warden support"
)

var titleCaser = cases.Title(language.English)

var menuOptions = map[Category]platform.MenuOption{
	CategorySales:   {Label: "💰 Sales", Description: "Open a ticket about purchases and sales"},
	CategorySupport: {Label: "❓ Support", Description: "Open a ticket to ask for help"},
	CategoryReport:  {Label: "⛔ Report", Description: "Open a ticket to report a member"},
}

// Title returns the display title of a category's tickets.
func (c Category) Title() string {
	return titleCaser.String(string(c)) + " Ticket"
}

// MenuMessage builds the ticket menu message.
func MenuMessage(iconURL, footer string, now time.Time) platform.Message {
	if footer == "" {
		footer = DefaultMenuFooter
	}
	options := make([]platform.MenuOption, 0, len(Categories))
	for _, category := range Categories {
		option := menuOptions[category]
		option.Value = string(category)
		options = append(options, option)
	}
	return platform.Message{
		Embeds: []platform.Embed{{
			Title:        "🎫 Ticket System",
			Description:  "Hello! 👋\n\nPick the kind of ticket you want to open below. Our team is ready to help.",
			Color:        platform.ColorBrand,
			Timestamp:    now,
			ThumbnailURL: iconURL,
			Footer:       footer,
		}},
		Menu: &platform.SelectMenu{
			CustomID:    MenuCustomID,
			Placeholder: "Select the kind of ticket to open",
			Options:     options,
		},
	}
}

// WelcomeMessage builds the first message of a new ticket channel.
func WelcomeMessage(requester platform.User, category Category, iconURL string, now time.Time) platform.Message {
	return platform.Message{
		Content: requester.Mention(),
		Embeds: []platform.Embed{{
			Title:        category.Title(),
			Description:  fmt.Sprintf("Hello %s, a staff member will be with you shortly. Use the button below to close this ticket.", requester.Mention()),
			Color:        platform.ColorBlurple,
			Timestamp:    now,
			ThumbnailURL: iconURL,
		}},
		Buttons: []platform.Button{{
			CustomID: CloseCustomID,
			Label:    "Close Ticket",
			Style:    platform.ButtonDanger,
		}},
	}
}

// PublishMenu makes channelID show the ticket menu. When one of the
// agent's recent messages already carries the menu it is edited in
// place; otherwise a new message is sent.
func (r *Registry) PublishMenu(ctx context.Context, channelID, selfID string) error {
	channel, err := r.platform.Channel(ctx, channelID)
	if err != nil {
		return fmt.Errorf("looking up ticket menu channel %s: %w", channelID, err)
	}
	recent, err := r.platform.RecentMessages(ctx, channelID, MenuSearchLimit)
	if err != nil {
		return fmt.Errorf("reading recent messages in %s: %w", channelID, err)
	}

	message := MenuMessage(r.platform.GuildIconURL(ctx, channel.GuildID), r.menuFooter, r.clock.Now())
	logger := r.logger.With("guild_id", channel.GuildID, "channel_id", channelID)

	for _, existing := range recent {
		if existing.AuthorID != selfID || !slices.Contains(existing.CustomIDs, MenuCustomID) {
			continue
		}
		if err := r.platform.EditMessage(ctx, channelID, existing.ID, message); err != nil {
			return fmt.Errorf("editing ticket menu %s: %w", existing.ID, err)
		}
		logger.Info("ticket menu updated", "message_id", existing.ID)
		return nil
	}

	message.Content = "Select an option to open a ticket:"
	sent, err := r.platform.SendMessage(ctx, channelID, message)
	if err != nil {
		return fmt.Errorf("sending ticket menu: %w", err)
	}
	logger.Info("ticket menu published", "message_id", sent.ID)
	return nil
}
