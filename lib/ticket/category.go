// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"fmt"
	"strings"
)

// Category is a kind of ticket. Each category has its own container.
type Category string

const (
	CategorySales   Category = "sales"
	CategorySupport Category = "support"
	CategoryReport  Category = "report"
)

// Categories lists every valid category in menu order.
var Categories = []Category{CategorySales, CategorySupport, CategoryReport}

// channelPrefix starts every ticket channel name.
const channelPrefix = "ticket-"

// ParseCategory validates a menu value.
func ParseCategory(value string) (Category, error) {
	for _, category := range Categories {
		if string(category) == value {
			return category, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, value)
}

// ChannelName returns the deterministic channel name of the ticket
// (requesterID, category).
func ChannelName(requesterID string, category Category) string {
	return channelPrefix + requesterID + "-" + string(category)
}

// ParseChannelName extracts the requester and category from a ticket
// channel name. It returns false for channels that are not tickets.
//
// Requester IDs are platform snowflakes and never contain "-", but the
// category is matched as a suffix so the parse does not depend on that.
func ParseChannelName(name string) (requesterID string, category Category, ok bool) {
	rest, found := strings.CutPrefix(name, channelPrefix)
	if !found {
		return "", "", false
	}
	for _, candidate := range Categories {
		requester, found := strings.CutSuffix(rest, "-"+string(candidate))
		if found && requester != "" {
			return requester, candidate, true
		}
	}
	return "", "", false
}
