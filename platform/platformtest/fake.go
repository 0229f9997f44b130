// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package platformtest provides an in-memory implementation of
// platform.Platform for unit tests. It records every call, supports
// per-operation failure injection, and publishes sent messages on a
// channel so tests can wait for asynchronous senders without sleeping.
package platformtest

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/bureau-foundation/warden/platform"
)

// Operation names accepted by Fail and reported by Calls.
const (
	OpAuditLog      = "audit_log"
	OpMember        = "member"
	OpRoles         = "roles"
	OpAddRole       = "add_role"
	OpRemoveRole    = "remove_role"
	OpSetRoles      = "set_roles"
	OpBan           = "ban"
	OpKick          = "kick"
	OpChannel       = "channel"
	OpChannels      = "channels"
	OpCreateChannel = "create_channel"
	OpDeleteChannel = "delete_channel"
	OpSendMessage   = "send_message"
	OpEditMessage   = "edit_message"
	OpDeleteMessage = "delete_message"
	OpRecent        = "recent_messages"
	OpRespond       = "respond"
)

// Sent is a message delivered through SendMessage or EditMessage.
type Sent struct {
	ChannelID string
	MessageID string
	Message   platform.Message
	Edited    bool
}

// Ban records a Ban call.
type Ban struct {
	GuildID string
	UserID  string
	Reason  string
}

// Kick records a Kick call.
type Kick struct {
	GuildID string
	UserID  string
	Reason  string
}

// Response records a RespondEphemeral call.
type Response struct {
	InteractionID string
	Content       string
}

type memberKey struct {
	guildID string
	userID  string
}

type storedMessage struct {
	sent    platform.SentMessage
	message platform.Message
}

// Fake is an in-memory platform. The zero value is not usable; call New.
type Fake struct {
	mu sync.Mutex

	selfID   string
	icons    map[string]string
	members  map[memberKey]platform.Member
	roles    map[string][]platform.Role
	channels map[string]platform.Channel
	messages map[string][]storedMessage
	audit    map[string][]platform.AuditEntry

	bans      []Ban
	created   []platform.ChannelSpec
	kicks     []Kick
	responses []Response
	calls     []string
	failures  map[string]error
	nextID    int

	// SentMessages receives every sent or edited message. Buffered;
	// sends beyond the buffer are dropped.
	SentMessages chan Sent
}

// New returns an empty Fake whose own user ID is selfID.
func New(selfID string) *Fake {
	return &Fake{
		selfID:       selfID,
		icons:        make(map[string]string),
		members:      make(map[memberKey]platform.Member),
		roles:        make(map[string][]platform.Role),
		channels:     make(map[string]platform.Channel),
		messages:     make(map[string][]storedMessage),
		audit:        make(map[string][]platform.AuditEntry),
		failures:     make(map[string]error),
		nextID:       9000,
		SentMessages: make(chan Sent, 256),
	}
}

// --- Seeding ---

// SetIcon sets the guild icon URL.
func (f *Fake) SetIcon(guildID, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.icons[guildID] = url
}

// AddMember adds or replaces a member.
func (f *Fake) AddMember(member platform.Member) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[memberKey{member.GuildID, member.User.ID}] = member
}

// AddGuildRole adds a role to the guild.
func (f *Fake) AddGuildRole(guildID string, role platform.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[guildID] = append(f.roles[guildID], role)
}

// AddChannel adds a channel.
func (f *Fake) AddChannel(channel platform.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[channel.ID] = channel
}

// RemoveChannel deletes a channel without recording a call, simulating
// removal by someone else.
func (f *Fake) RemoveChannel(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
}

// PushAudit appends an entry; it becomes the latest for its action.
func (f *Fake) PushAudit(guildID string, entry platform.AuditEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit[guildID] = append(f.audit[guildID], entry)
}

// SeedMessage stores an existing message in a channel and returns it.
func (f *Fake) SeedMessage(channelID, authorID string, message platform.Message) platform.SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storeLocked(channelID, authorID, message)
}

// Fail makes every subsequent call to op return err. A nil err clears
// the failure.
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// --- Inspection ---

// Calls returns the operations invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallCount returns how many times op was invoked.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == op {
			count++
		}
	}
	return count
}

// Bans returns recorded Ban calls that succeeded.
func (f *Fake) Bans() []Ban {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.bans)
}

// Kicks returns recorded Kick calls that succeeded.
func (f *Fake) Kicks() []Kick {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.kicks)
}

// CreatedSpecs returns the spec of every channel created so far.
func (f *Fake) CreatedSpecs() []platform.ChannelSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.created)
}

// Responses returns recorded ephemeral responses.
func (f *Fake) Responses() []Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.responses)
}

// MemberRoles returns the member's current roles, or nil if absent.
func (f *Fake) MemberRoles(guildID, userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[memberKey{guildID, userID}]
	if !ok {
		return nil
	}
	return slices.Clone(member.RoleIDs)
}

// HasMember reports whether the user is still a guild member.
func (f *Fake) HasMember(guildID, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[memberKey{guildID, userID}]
	return ok
}

// ChannelsNamed returns every channel with the given name.
func (f *Fake) ChannelsNamed(name string) []platform.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []platform.Channel
	for _, channel := range f.channels {
		if channel.Name == name {
			result = append(result, channel)
		}
	}
	return result
}

// Messages returns the messages stored in a channel, oldest first.
func (f *Fake) Messages(channelID string) []platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []platform.Message
	for _, stored := range f.messages[channelID] {
		result = append(result, stored.message)
	}
	return result
}

// --- platform.Platform ---

// SelfID returns the configured bot ID.
func (f *Fake) SelfID() string { return f.selfID }

// GuildIconURL returns the seeded icon, or "".
func (f *Fake) GuildIconURL(_ context.Context, guildID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.icons[guildID]
}

func (f *Fake) LatestAuditEntry(_ context.Context, guildID string, action platform.AuditAction) (*platform.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpAuditLog); err != nil {
		return nil, err
	}
	entries := f.audit[guildID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Action == action {
			entry := entries[i]
			return &entry, nil
		}
	}
	return nil, nil
}

func (f *Fake) Member(_ context.Context, guildID, userID string) (*platform.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpMember); err != nil {
		return nil, err
	}
	member, ok := f.members[memberKey{guildID, userID}]
	if !ok {
		return nil, platform.NotFound("get member", "unknown member "+userID)
	}
	member.RoleIDs = slices.Clone(member.RoleIDs)
	return &member, nil
}

func (f *Fake) Roles(_ context.Context, guildID string) ([]platform.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpRoles); err != nil {
		return nil, err
	}
	return slices.Clone(f.roles[guildID]), nil
}

func (f *Fake) AddRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpAddRole); err != nil {
		return err
	}
	key := memberKey{guildID, userID}
	member, ok := f.members[key]
	if !ok {
		return platform.NotFound("add role", "unknown member "+userID)
	}
	if !slices.Contains(member.RoleIDs, roleID) {
		member.RoleIDs = append(slices.Clone(member.RoleIDs), roleID)
	}
	f.members[key] = member
	return nil
}

func (f *Fake) RemoveRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpRemoveRole); err != nil {
		return err
	}
	key := memberKey{guildID, userID}
	member, ok := f.members[key]
	if !ok {
		return platform.NotFound("remove role", "unknown member "+userID)
	}
	member.RoleIDs = slices.DeleteFunc(slices.Clone(member.RoleIDs), func(id string) bool { return id == roleID })
	f.members[key] = member
	return nil
}

func (f *Fake) SetRoles(_ context.Context, guildID, userID string, roleIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpSetRoles); err != nil {
		return err
	}
	key := memberKey{guildID, userID}
	member, ok := f.members[key]
	if !ok {
		return platform.NotFound("set roles", "unknown member "+userID)
	}
	member.RoleIDs = slices.Clone(roleIDs)
	f.members[key] = member
	return nil
}

func (f *Fake) Ban(_ context.Context, guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpBan); err != nil {
		return err
	}
	delete(f.members, memberKey{guildID, userID})
	f.bans = append(f.bans, Ban{GuildID: guildID, UserID: userID, Reason: reason})
	return nil
}

func (f *Fake) Kick(_ context.Context, guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpKick); err != nil {
		return err
	}
	key := memberKey{guildID, userID}
	if _, ok := f.members[key]; !ok {
		return platform.NotFound("kick member", "unknown member "+userID)
	}
	delete(f.members, key)
	f.kicks = append(f.kicks, Kick{GuildID: guildID, UserID: userID, Reason: reason})
	return nil
}

func (f *Fake) Channel(_ context.Context, channelID string) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpChannel); err != nil {
		return nil, err
	}
	channel, ok := f.channels[channelID]
	if !ok {
		return nil, platform.NotFound("get channel", "unknown channel "+channelID)
	}
	return &channel, nil
}

func (f *Fake) Channels(_ context.Context, guildID string) ([]platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpChannels); err != nil {
		return nil, err
	}
	var result []platform.Channel
	for _, channel := range f.channels {
		if channel.GuildID == guildID {
			result = append(result, channel)
		}
	}
	slices.SortFunc(result, func(a, b platform.Channel) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return result, nil
}

func (f *Fake) CreateChannel(_ context.Context, guildID string, spec platform.ChannelSpec) (*platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpCreateChannel); err != nil {
		return nil, err
	}
	channel := platform.Channel{
		ID:       f.newIDLocked(),
		GuildID:  guildID,
		ParentID: spec.ParentID,
		Name:     spec.Name,
	}
	f.channels[channel.ID] = channel
	f.created = append(f.created, spec)
	return &channel, nil
}

func (f *Fake) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpDeleteChannel); err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return platform.NotFound("delete channel", "unknown channel "+channelID)
	}
	delete(f.channels, channelID)
	delete(f.messages, channelID)
	return nil
}

func (f *Fake) SendMessage(_ context.Context, channelID string, message platform.Message) (*platform.SentMessage, error) {
	f.mu.Lock()
	if err := f.beginLocked(OpSendMessage); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if _, ok := f.channels[channelID]; !ok {
		f.mu.Unlock()
		return nil, platform.NotFound("send message", "unknown channel "+channelID)
	}
	sent := f.storeLocked(channelID, f.selfID, message)
	f.mu.Unlock()

	f.publish(Sent{ChannelID: channelID, MessageID: sent.ID, Message: message})
	return &sent, nil
}

func (f *Fake) EditMessage(_ context.Context, channelID, messageID string, message platform.Message) error {
	f.mu.Lock()
	if err := f.beginLocked(OpEditMessage); err != nil {
		f.mu.Unlock()
		return err
	}
	stored := f.messages[channelID]
	index := slices.IndexFunc(stored, func(m storedMessage) bool { return m.sent.ID == messageID })
	if index < 0 {
		f.mu.Unlock()
		return platform.NotFound("edit message", "unknown message "+messageID)
	}
	stored[index].message = message
	stored[index].sent.CustomIDs = message.CustomIDs()
	f.mu.Unlock()

	f.publish(Sent{ChannelID: channelID, MessageID: messageID, Message: message, Edited: true})
	return nil
}

func (f *Fake) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpDeleteMessage); err != nil {
		return err
	}
	stored := f.messages[channelID]
	index := slices.IndexFunc(stored, func(m storedMessage) bool { return m.sent.ID == messageID })
	if index < 0 {
		return platform.NotFound("delete message", "unknown message "+messageID)
	}
	f.messages[channelID] = slices.Delete(stored, index, index+1)
	return nil
}

func (f *Fake) RecentMessages(_ context.Context, channelID string, limit int) ([]platform.SentMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpRecent); err != nil {
		return nil, err
	}
	stored := f.messages[channelID]
	var result []platform.SentMessage
	for i := len(stored) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, stored[i].sent)
	}
	return result, nil
}

func (f *Fake) RespondEphemeral(_ context.Context, interaction platform.Interaction, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginLocked(OpRespond); err != nil {
		return err
	}
	f.responses = append(f.responses, Response{InteractionID: interaction.ID, Content: content})
	return nil
}

// --- internals ---

// beginLocked records op and returns its injected failure, if any.
func (f *Fake) beginLocked(op string) error {
	f.calls = append(f.calls, op)
	return f.failures[op]
}

func (f *Fake) newIDLocked() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *Fake) storeLocked(channelID, authorID string, message platform.Message) platform.SentMessage {
	sent := platform.SentMessage{
		ID:        f.newIDLocked(),
		ChannelID: channelID,
		AuthorID:  authorID,
		CustomIDs: message.CustomIDs(),
	}
	f.messages[channelID] = append(f.messages[channelID], storedMessage{sent: sent, message: message})
	return sent
}

func (f *Fake) publish(sent Sent) {
	select {
	case f.SentMessages <- sent:
	default:
	}
}

// Entry is a convenience constructor for audit entries.
func Entry(action platform.AuditAction, actor platform.User, targetID string, at time.Time) platform.AuditEntry {
	return platform.AuditEntry{
		ID:        "audit-" + targetID,
		Action:    action,
		Actor:     actor,
		TargetID:  targetID,
		CreatedAt: at,
	}
}

var _ platform.Platform = (*Fake)(nil)
