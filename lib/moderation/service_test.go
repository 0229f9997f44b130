// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package moderation

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/warden/lib/abuse"
	"github.com/bureau-foundation/warden/lib/audit"
	"github.com/bureau-foundation/warden/lib/clock"
	"github.com/bureau-foundation/warden/lib/command"
	"github.com/bureau-foundation/warden/lib/notify"
	"github.com/bureau-foundation/warden/lib/punish"
	"github.com/bureau-foundation/warden/lib/reactor"
	"github.com/bureau-foundation/warden/lib/ticket"
	"github.com/bureau-foundation/warden/platform"
	"github.com/bureau-foundation/warden/platform/platformtest"
)

const (
	guildID         = "guild-1"
	autoRoleID      = "role-auto"
	supportRoleID   = "role-support"
	staffRoleID     = "role-staff"
	menuChannelID   = "tickets"
	generalID       = "general"
	supportParentID = "container-support"
	allowedBotID    = "helper-bot"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	raider    = platform.Member{GuildID: guildID, User: platform.User{ID: "666", Username: "raider"}, RoleIDs: []string{staffRoleID}}
	requester = platform.Member{GuildID: guildID, User: platform.User{ID: "1001", Username: "ursula"}}
	staff     = platform.Member{GuildID: guildID, User: platform.User{ID: "2002", Username: "sam"}, RoleIDs: []string{supportRoleID, staffRoleID}}
)

type harness struct {
	service  *Service
	fake     *platformtest.Fake
	clock    *clock.FakeClock
	recorder *notify.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := platformtest.New("bot")
	fake.AddChannel(platform.Channel{ID: menuChannelID, GuildID: guildID, Name: "open-a-ticket"})
	fake.AddChannel(platform.Channel{ID: generalID, GuildID: guildID, Name: "general"})
	fake.AddGuildRole(guildID, platform.Role{ID: staffRoleID, Name: "staff", Position: 5})
	for _, member := range []platform.Member{raider, requester, staff} {
		fake.AddMember(member)
	}

	fakeClock := clock.Fake(epoch)
	recorder := &notify.Recorder{}
	components := Components{
		Resolver: audit.NewResolver(fake, audit.Config{Clock: fakeClock}),
		Counter:  abuse.NewCounter(abuse.Config{Clock: fakeClock}),
		Executor: punish.NewExecutor(fake, recorder, nil),
		Tickets: ticket.NewRegistry(fake, ticket.Config{
			Containers:    map[ticket.Category]string{ticket.CategorySupport: supportParentID},
			SupportRoleID: supportRoleID,
			Clock:         fakeClock,
			Notifier:      recorder,
		}),
		Commands: command.NewDispatcher(fake, command.Config{
			AuthorizedRoleIDs: []string{staffRoleID},
			Clock:             fakeClock,
			Notifier:          recorder,
		}),
		Notifier: recorder,
	}
	service := New(fake, components, Config{
		AutoRoleID:          autoRoleID,
		AuthorizedBotIDs:    []string{allowedBotID},
		TicketMenuChannelID: menuChannelID,
	})
	return &harness{service: service, fake: fake, clock: fakeClock, recorder: recorder}
}

func (h *harness) deleteRole(actor platform.User, roleID string) {
	h.fake.PushAudit(guildID, platformtest.Entry(platform.AuditRoleDelete, actor, roleID, h.clock.Now()))
	h.service.Handle(context.Background(), platform.RoleDeleted{GuildID: guildID, RoleID: roleID, RoleName: "name-" + roleID})
}

func (h *harness) interact(customID string, channelID string, invoker platform.Member, values ...string) string {
	h.service.Handle(context.Background(), platform.InteractionSubmitted{Interaction: platform.Interaction{
		ID:        "interaction-" + customID,
		CustomID:  customID,
		Values:    values,
		GuildID:   guildID,
		ChannelID: channelID,
		Invoker:   invoker,
	}})
	responses := h.fake.Responses()
	if len(responses) == 0 {
		return ""
	}
	return responses[len(responses)-1].Content
}

func TestRepeatedDeletionsBanActor(t *testing.T) {
	h := newHarness(t)

	for i, roleID := range []string{"r1", "r2", "r3", "r4"} {
		h.deleteRole(raider.User, roleID)
		if count := h.service.Counter.Count(raider.User.ID); count != i+1 {
			t.Fatalf("after %s count = %d, want %d", roleID, count, i+1)
		}
	}
	if len(h.fake.Bans()) != 0 {
		t.Fatal("banned before the threshold was exceeded")
	}

	h.deleteRole(raider.User, "r5")

	bans := h.fake.Bans()
	if len(bans) != 1 || bans[0].UserID != raider.User.ID || bans[0].Reason != punish.Reason {
		t.Fatalf("bans = %+v, want one ban of %s", bans, raider.User.ID)
	}
	if h.service.Counter.Len() != 0 {
		t.Error("actor record survived escalation")
	}
	want := []string{"Role deleted", "Role deleted", "Role deleted", "Role deleted", "Role deleted", "User banned"}
	if got := h.recorder.Titles(); !slices.Equal(got, want) {
		t.Errorf("titles = %v, want %v", got, want)
	}
	record, _ := h.recorder.Find("Role deleted")
	if !strings.Contains(record.Description, "name-r1") || !strings.Contains(record.Description, raider.User.Mention()) {
		t.Errorf("deletion record = %q", record.Description)
	}
}

func TestDeletionsSpreadOverWindowsDoNotBan(t *testing.T) {
	h := newHarness(t)

	for _, roleID := range []string{"r1", "r2", "r3", "r4"} {
		h.deleteRole(raider.User, roleID)
	}
	h.clock.Advance(abuse.DefaultWindow)
	if h.service.Counter.Count(raider.User.ID) != 0 {
		t.Fatal("burst did not decay")
	}

	h.deleteRole(raider.User, "r5")
	if len(h.fake.Bans()) != 0 {
		t.Error("banned across separate windows")
	}
	if count := h.service.Counter.Count(raider.User.ID); count != 1 {
		t.Errorf("count = %d, want a fresh window of 1", count)
	}
}

func TestUnresolvedDeletionLoggedAsUnknown(t *testing.T) {
	h := newHarness(t)
	h.service.Handle(context.Background(), platform.RoleDeleted{GuildID: guildID, RoleID: "r1"})

	if h.service.Counter.Len() != 0 {
		t.Error("unresolved deletion was counted")
	}
	record, ok := h.recorder.Find("Role deleted")
	if !ok {
		t.Fatal("unresolved deletion not logged")
	}
	if !strings.Contains(record.Description, "By: unknown") || !strings.Contains(record.Description, "r1") {
		t.Errorf("description = %q", record.Description)
	}
}

func TestStaleAuditEntryNotAttributed(t *testing.T) {
	h := newHarness(t)
	h.fake.PushAudit(guildID, platformtest.Entry(platform.AuditRoleDelete, raider.User, "r1", epoch))
	h.clock.Advance(time.Minute)
	h.service.Handle(context.Background(), platform.RoleDeleted{GuildID: guildID, RoleID: "r1"})

	if h.service.Counter.Len() != 0 {
		t.Error("stale audit entry was counted")
	}
}

func TestExemptActorLoggedNotCounted(t *testing.T) {
	h := newHarness(t)
	otherBot := platform.User{ID: "777", Username: "cleanup", Bot: true}
	self := platform.User{ID: "bot", Username: "warden", Bot: true}

	for i := range 6 {
		h.deleteRole(otherBot, "b"+string(rune('0'+i)))
	}
	h.deleteRole(self, "self-1")

	if h.service.Counter.Len() != 0 {
		t.Error("exempt actor was counted")
	}
	if len(h.fake.Bans()) != 0 {
		t.Error("exempt actor was banned")
	}
	if got := len(h.recorder.Titles()); got != 7 {
		t.Errorf("logged %d deletions, want 7", got)
	}
}

func TestChannelDeletionCounted(t *testing.T) {
	h := newHarness(t)
	for i := range 5 {
		channelID := "c" + string(rune('0'+i))
		h.fake.PushAudit(guildID, platformtest.Entry(platform.AuditChannelDelete, raider.User, channelID, h.clock.Now()))
		h.service.Handle(context.Background(), platform.ChannelDeleted{Channel: platform.Channel{ID: channelID, GuildID: guildID, Name: "chan"}})
	}

	if len(h.fake.Bans()) != 1 {
		t.Errorf("bans = %+v, want one", h.fake.Bans())
	}
	if _, ok := h.recorder.Find("Channel deleted"); !ok {
		t.Error("channel deletion not logged")
	}
}

func TestRoleAndChannelDeletionsShareBudget(t *testing.T) {
	h := newHarness(t)
	h.deleteRole(raider.User, "r1")
	h.deleteRole(raider.User, "r2")
	for _, channelID := range []string{"c1", "c2", "c3"} {
		h.fake.PushAudit(guildID, platformtest.Entry(platform.AuditChannelDelete, raider.User, channelID, h.clock.Now()))
		h.service.Handle(context.Background(), platform.ChannelDeleted{Channel: platform.Channel{ID: channelID, GuildID: guildID}})
	}

	if len(h.fake.Bans()) != 1 {
		t.Errorf("bans = %+v, want one after five mixed deletions", h.fake.Bans())
	}
}

func TestUnauthorizedBotKicked(t *testing.T) {
	h := newHarness(t)
	intruder := platform.Member{GuildID: guildID, User: platform.User{ID: "999", Username: "spambot", Bot: true}}
	h.fake.AddMember(intruder)

	h.service.Handle(context.Background(), platform.MemberJoined{Member: intruder})

	kicks := h.fake.Kicks()
	if len(kicks) != 1 || kicks[0].UserID != intruder.User.ID || kicks[0].Reason != UnauthorizedBotReason {
		t.Fatalf("kicks = %+v", kicks)
	}
	if h.fake.CallCount(platformtest.OpAddRole) != 0 {
		t.Error("unauthorized bot received the automatic role")
	}
	if got := h.recorder.Titles(); !slices.Equal(got, []string{"Unauthorized bot removed"}) {
		t.Errorf("titles = %v", got)
	}
}

func TestAuthorizedBotReceivesAutoRole(t *testing.T) {
	h := newHarness(t)
	helper := platform.Member{GuildID: guildID, User: platform.User{ID: allowedBotID, Username: "helper", Bot: true}}
	h.fake.AddMember(helper)

	h.service.Handle(context.Background(), platform.MemberJoined{Member: helper})

	if len(h.fake.Kicks()) != 0 {
		t.Error("allow-listed bot was kicked")
	}
	if roles := h.fake.MemberRoles(guildID, allowedBotID); !slices.Equal(roles, []string{autoRoleID}) {
		t.Errorf("roles = %v, want [%s]", roles, autoRoleID)
	}
}

func TestMemberJoinedReceivesAutoRole(t *testing.T) {
	h := newHarness(t)
	newcomer := platform.Member{GuildID: guildID, User: platform.User{ID: "4004", Username: "nova"}}
	h.fake.AddMember(newcomer)

	h.service.Handle(context.Background(), platform.MemberJoined{Member: newcomer})

	if roles := h.fake.MemberRoles(guildID, newcomer.User.ID); !slices.Equal(roles, []string{autoRoleID}) {
		t.Errorf("roles = %v, want [%s]", roles, autoRoleID)
	}
	if _, ok := h.recorder.Find("New member joined"); !ok {
		t.Error("join not logged")
	}
}

func TestMemberJoinedRoleFailureNotLogged(t *testing.T) {
	h := newHarness(t)
	h.fake.Fail(platformtest.OpAddRole, platform.Forbidden("add role", "missing permissions"))
	newcomer := platform.Member{GuildID: guildID, User: platform.User{ID: "4004", Username: "nova"}}
	h.fake.AddMember(newcomer)

	h.service.Handle(context.Background(), platform.MemberJoined{Member: newcomer})

	if len(h.recorder.Entries()) != 0 {
		t.Errorf("logged %v after the role assignment failed", h.recorder.Titles())
	}
}

func TestMemberLeftLogged(t *testing.T) {
	h := newHarness(t)
	h.service.Handle(context.Background(), platform.MemberLeft{GuildID: guildID, User: requester.User})

	record, ok := h.recorder.Find("Member left")
	if !ok || !strings.Contains(record.Description, requester.User.Tag()) {
		t.Errorf("record = %+v, %v", record, ok)
	}
}

func TestSupportTicketRequestedTwice(t *testing.T) {
	h := newHarness(t)

	first := h.interact(ticket.MenuCustomID, menuChannelID, requester, "support")
	channels := h.fake.ChannelsNamed("ticket-1001-support")
	if len(channels) != 1 {
		t.Fatalf("ticket channels = %+v, want one", channels)
	}
	if first != "Ticket created: "+channels[0].Mention() {
		t.Errorf("first response = %q", first)
	}

	second := h.interact(ticket.MenuCustomID, menuChannelID, requester, "support")
	if second != "You already have a support ticket: "+channels[0].Mention() {
		t.Errorf("second response = %q", second)
	}
	if h.fake.CallCount(platformtest.OpCreateChannel) != 1 {
		t.Errorf("created %d channels, want 1", h.fake.CallCount(platformtest.OpCreateChannel))
	}
}

func TestInvalidTicketCategory(t *testing.T) {
	h := newHarness(t)
	if response := h.interact(ticket.MenuCustomID, menuChannelID, requester, "refund"); response != "Unknown ticket type." {
		t.Errorf("response = %q", response)
	}
	if h.fake.CallCount(platformtest.OpCreateChannel) != 0 {
		t.Error("invalid category created a channel")
	}
}

func TestCloseTicket(t *testing.T) {
	h := newHarness(t)
	h.interact(ticket.MenuCustomID, menuChannelID, requester, "support")
	channel := h.fake.ChannelsNamed("ticket-1001-support")[0]

	if response := h.interact(ticket.CloseCustomID, channel.ID, requester); response != "You do not have permission to close tickets." {
		t.Errorf("requester close response = %q", response)
	}
	if response := h.interact(ticket.CloseCustomID, channel.ID, staff); response != "Closing ticket in 5 seconds..." {
		t.Errorf("staff close response = %q", response)
	}
	if response := h.interact(ticket.CloseCustomID, channel.ID, staff); response != "This ticket is already closing." {
		t.Errorf("repeated close response = %q", response)
	}

	h.clock.Advance(ticket.DefaultCloseDelay)
	if len(h.fake.ChannelsNamed(channel.Name)) != 0 {
		t.Error("ticket channel still exists after the close delay")
	}
	if _, held := h.service.Tickets.Reservation(guildID, requester.User.ID, ticket.CategorySupport); held {
		t.Error("reservation survived close")
	}
}

func TestTicketRequestedWhileClosing(t *testing.T) {
	h := newHarness(t)
	h.interact(ticket.MenuCustomID, menuChannelID, requester, "support")
	channel := h.fake.ChannelsNamed("ticket-1001-support")[0]
	h.interact(ticket.CloseCustomID, channel.ID, staff)

	response := h.interact(ticket.MenuCustomID, menuChannelID, requester, "support")
	if want := "Your support ticket " + channel.Mention() + " is closing. Try again in a few seconds."; response != want {
		t.Errorf("response = %q, want %q", response, want)
	}
	if h.fake.CallCount(platformtest.OpCreateChannel) != 1 {
		t.Errorf("created %d channels, want 1", h.fake.CallCount(platformtest.OpCreateChannel))
	}
}

func TestCloseOutsideTicket(t *testing.T) {
	h := newHarness(t)
	if response := h.interact(ticket.CloseCustomID, generalID, staff); response != "This channel is not a ticket." {
		t.Errorf("response = %q", response)
	}
}

func TestChannelDeletionForgetsTicket(t *testing.T) {
	h := newHarness(t)
	h.interact(ticket.MenuCustomID, menuChannelID, requester, "support")
	channel := h.fake.ChannelsNamed("ticket-1001-support")[0]

	h.fake.RemoveChannel(channel.ID)
	h.service.Handle(context.Background(), platform.ChannelDeleted{Channel: channel})

	if _, held := h.service.Tickets.Reservation(guildID, requester.User.ID, ticket.CategorySupport); held {
		t.Error("reservation survived channel deletion")
	}
	h.interact(ticket.MenuCustomID, menuChannelID, requester, "support")
	if h.fake.CallCount(platformtest.OpCreateChannel) != 2 {
		t.Error("ticket not recreated after its channel was deleted")
	}
}

func TestUnknownInteractionIgnored(t *testing.T) {
	h := newHarness(t)
	h.interact("vote_yes", generalID, requester)
	if len(h.fake.Responses()) != 0 {
		t.Error("responded to an unknown interaction")
	}
}

func TestReadyPublishesMenu(t *testing.T) {
	h := newHarness(t)
	h.service.Handle(context.Background(), platform.Ready{Self: platform.User{ID: "bot", Username: "warden"}, GuildIDs: []string{guildID}})

	messages := h.fake.Messages(menuChannelID)
	if len(messages) != 1 || messages[0].Menu == nil || messages[0].Menu.CustomID != ticket.MenuCustomID {
		t.Fatalf("menu channel messages = %+v", messages)
	}

	h.service.Handle(context.Background(), platform.Ready{Self: platform.User{ID: "bot", Username: "warden"}})
	if got := len(h.fake.Messages(menuChannelID)); got != 1 {
		t.Errorf("menu channel has %d messages after reconnect, want the menu edited in place", got)
	}
}

func TestTextCommandRouted(t *testing.T) {
	h := newHarness(t)
	invoking := h.fake.SeedMessage(generalID, staff.User.ID, platform.Message{Content: "!help"})
	h.service.Handle(context.Background(), platform.TextCommandInvoked{
		GuildID:   guildID,
		ChannelID: generalID,
		MessageID: invoking.ID,
		Content:   "!help",
		Author:    staff,
	})

	messages := h.fake.Messages(generalID)
	if len(messages) != 1 || len(messages[0].Embeds) != 1 || messages[0].Embeds[0].Title != "Commands" {
		t.Errorf("general channel = %+v, want only the help reply", messages)
	}
}

func TestDispatchRunsThroughReactor(t *testing.T) {
	h := newHarness(t)
	h.service.Reactor = reactor.New(context.Background(), nil)

	if !h.service.Dispatch(platform.MemberLeft{GuildID: guildID, User: requester.User}) {
		t.Fatal("Dispatch refused an event on an open reactor")
	}
	h.service.Reactor.Close()

	if _, ok := h.recorder.Find("Member left"); !ok {
		t.Error("dispatched event was not handled")
	}
	if h.service.Dispatch(platform.MemberLeft{GuildID: guildID, User: requester.User}) {
		t.Error("Dispatch accepted an event after the reactor closed")
	}
}

func TestRouteKeys(t *testing.T) {
	tests := []struct {
		event platform.Event
		key   string
	}{
		{platform.RoleDeleted{GuildID: "g"}, "guild:g"},
		{platform.ChannelDeleted{Channel: platform.Channel{GuildID: "g"}}, "guild:g"},
		{platform.MemberJoined{Member: platform.Member{GuildID: "g", User: platform.User{ID: "u"}}}, "member:g:u"},
		{platform.MemberLeft{GuildID: "g", User: platform.User{ID: "u"}}, "member:g:u"},
		{platform.InteractionSubmitted{Interaction: platform.Interaction{Invoker: platform.Member{User: platform.User{ID: "u"}}}}, "user:u"},
		{platform.TextCommandInvoked{Author: platform.Member{User: platform.User{ID: "u"}}}, "user:u"},
		{platform.Ready{}, "ready"},
	}
	for _, test := range tests {
		if key, _ := routeKey(test.event); key != test.key {
			t.Errorf("routeKey(%T) = %q, want %q", test.event, key, test.key)
		}
	}
}
