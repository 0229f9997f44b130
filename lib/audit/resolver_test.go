// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/bureau-foundation/warden/lib/clock"
	"github.com/bureau-foundation/warden/platform"
	"github.com/bureau-foundation/warden/platform/platformtest"
)

const guildID = "guild-1"

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var mallory = platform.User{ID: "mallory", Username: "mallory"}

func newTestResolver() (*Resolver, *platformtest.Fake, *clock.FakeClock) {
	fake := platformtest.New("bot")
	fakeClock := clock.Fake(epoch)
	return NewResolver(fake, Config{Clock: fakeClock}), fake, fakeClock
}

func roleEvent(roleID string) DestructiveEvent {
	return DestructiveEvent{GuildID: guildID, Action: platform.AuditRoleDelete, TargetID: roleID}
}

func TestResolveActorMatchingEntry(t *testing.T) {
	resolver, fake, _ := newTestResolver()
	fake.PushAudit(guildID, platformtest.Entry(platform.AuditRoleDelete, mallory, "role-1", epoch.Add(-2*time.Second)))

	actor, ok := resolver.ResolveActor(context.Background(), roleEvent("role-1"))
	if !ok {
		t.Fatal("ResolveActor did not resolve a fresh matching entry")
	}
	if actor.User.ID != "mallory" {
		t.Errorf("actor = %q, want mallory", actor.User.ID)
	}
	if actor.Entry.TargetID != "role-1" {
		t.Errorf("entry target = %q", actor.Entry.TargetID)
	}
}

func TestResolveActorEmptyLog(t *testing.T) {
	resolver, _, _ := newTestResolver()
	if _, ok := resolver.ResolveActor(context.Background(), roleEvent("role-1")); ok {
		t.Fatal("resolved an actor from an empty audit log")
	}
}

func TestResolveActorQueryFailure(t *testing.T) {
	resolver, fake, _ := newTestResolver()
	fake.PushAudit(guildID, platformtest.Entry(platform.AuditRoleDelete, mallory, "role-1", epoch))
	fake.Fail(platformtest.OpAuditLog, &platform.Error{Op: "audit log", Code: platform.CodeForbidden, StatusCode: 403})

	if _, ok := resolver.ResolveActor(context.Background(), roleEvent("role-1")); ok {
		t.Fatal("resolved an actor despite a failed query")
	}
}

func TestResolveActorStaleEntry(t *testing.T) {
	resolver, fake, _ := newTestResolver()
	fake.PushAudit(guildID, platformtest.Entry(platform.AuditRoleDelete, mallory, "role-1", epoch.Add(-DefaultFreshness-time.Second)))

	if _, ok := resolver.ResolveActor(context.Background(), roleEvent("role-1")); ok {
		t.Fatal("resolved an actor from a stale entry")
	}
}

func TestResolveActorFreshnessBoundary(t *testing.T) {
	resolver, fake, _ := newTestResolver()
	fake.PushAudit(guildID, platformtest.Entry(platform.AuditRoleDelete, mallory, "role-1", epoch.Add(-DefaultFreshness)))

	if _, ok := resolver.ResolveActor(context.Background(), roleEvent("role-1")); !ok {
		t.Fatal("entry exactly at the freshness bound was rejected")
	}
}

func TestResolveActorTargetMismatch(t *testing.T) {
	resolver, fake, _ := newTestResolver()
	fake.PushAudit(guildID, platformtest.Entry(platform.AuditRoleDelete, mallory, "role-other", epoch))

	if _, ok := resolver.ResolveActor(context.Background(), roleEvent("role-1")); ok {
		t.Fatal("resolved an actor from an entry about another role")
	}
}

func TestResolveActorEntryWithoutTarget(t *testing.T) {
	resolver, fake, _ := newTestResolver()
	fake.PushAudit(guildID, platformtest.Entry(platform.AuditRoleDelete, mallory, "", epoch))

	if _, ok := resolver.ResolveActor(context.Background(), roleEvent("role-1")); !ok {
		t.Fatal("entry without a target should be accepted when fresh")
	}
}

func TestResolveActorFiltersByAction(t *testing.T) {
	resolver, fake, _ := newTestResolver()
	fake.PushAudit(guildID, platformtest.Entry(platform.AuditChannelDelete, mallory, "role-1", epoch))

	if _, ok := resolver.ResolveActor(context.Background(), roleEvent("role-1")); ok {
		t.Fatal("channel-delete entry resolved a role-delete event")
	}
}

func TestResolveActorUsesLatestEntry(t *testing.T) {
	resolver, fake, _ := newTestResolver()
	alice := platform.User{ID: "alice"}
	fake.PushAudit(guildID, platformtest.Entry(platform.AuditRoleDelete, alice, "role-1", epoch.Add(-time.Second)))
	fake.PushAudit(guildID, platformtest.Entry(platform.AuditRoleDelete, mallory, "role-1", epoch))

	actor, ok := resolver.ResolveActor(context.Background(), roleEvent("role-1"))
	if !ok || actor.User.ID != "mallory" {
		t.Fatalf("ResolveActor = %+v, %v; want mallory", actor.User, ok)
	}
}

func TestExempt(t *testing.T) {
	tests := []struct {
		name  string
		actor platform.User
		want  bool
	}{
		{"human", platform.User{ID: "mallory"}, false},
		{"self", platform.User{ID: "bot"}, true},
		{"other bot", platform.User{ID: "helper", Bot: true}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Exempt(Actor{User: test.actor}, "bot"); got != test.want {
				t.Errorf("Exempt(%+v) = %v, want %v", test.actor, got, test.want)
			}
		})
	}
}

func TestExemptWithoutSelfID(t *testing.T) {
	if Exempt(Actor{User: platform.User{ID: ""}}, "") {
		t.Error("empty self ID matched an empty actor ID")
	}
}
