// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/warden/lib/clock"
	"github.com/bureau-foundation/warden/platform"
)

const (
	// DefaultQueueSize bounds the records waiting for dispatch.
	DefaultQueueSize = 256

	// DefaultRate is the sustained send rate to the log channel, in
	// records per second.
	DefaultRate = 2

	// DefaultBurst is how many records may be sent back to back.
	DefaultBurst = 5

	// DefaultDrainTimeout bounds the shutdown flush.
	DefaultDrainTimeout = 5 * time.Second
)

// Class is the severity of a record, rendered as the embed color.
type Class int

const (
	ClassInfo Class = iota
	ClassWarning
	ClassDanger
	ClassBrand
)

// Color returns the embed accent for the class.
func (c Class) Color() platform.Color {
	switch c {
	case ClassWarning:
		return platform.ColorOrange
	case ClassDanger:
		return platform.ColorRed
	case ClassBrand:
		return platform.ColorBrand
	default:
		return platform.ColorGreen
	}
}

// Record is one observational log entry.
type Record struct {
	Title       string
	Description string
	Class       Class
	Fields      []platform.EmbedField
	Footer      string
	// Timestamp defaults to the time Log was called.
	Timestamp time.Time
	// ThumbnailURL defaults to the guild icon.
	ThumbnailURL string
}

// Notifier accepts records for delivery. Implementations never block
// and never fail.
type Notifier interface {
	Log(guildID string, record Record)
}

// Platform is the subset of the platform the sink delivers through.
type Platform interface {
	platform.Channels
	platform.Messenger
	platform.Guilds
}

// Config configures a Sink. Zero fields take the defaults.
type Config struct {
	// ChannelID is the log channel. Records for a guild that does not
	// contain this channel are dropped.
	ChannelID string

	QueueSize    int
	Rate         rate.Limit
	Burst        int
	DrainTimeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

type pending struct {
	guildID string
	record  Record
}

// Sink is the fire-and-forget notification path: Log enqueues, and a
// single Run goroutine formats and sends.
type Sink struct {
	platform     Platform
	channelID    string
	queue        chan pending
	limiter      *rate.Limiter
	drainTimeout time.Duration
	clock        clock.Clock
	logger       *slog.Logger

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewSink creates a Sink. Records are queued immediately but nothing is
// sent until Run is called.
func NewSink(target Platform, config Config) *Sink {
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	limit := config.Rate
	if limit <= 0 {
		limit = DefaultRate
	}
	burst := config.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	drainTimeout := config.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		platform:     target,
		channelID:    config.ChannelID,
		queue:        make(chan pending, queueSize),
		limiter:      rate.NewLimiter(limit, burst),
		drainTimeout: drainTimeout,
		clock:        clk,
		logger:       logger.With("component", "notify"),
	}
}

// Log enqueues a record for guildID. A full queue drops the record.
func (s *Sink) Log(guildID string, record Record) {
	if record.Timestamp.IsZero() {
		record.Timestamp = s.clock.Now()
	}
	select {
	case s.queue <- pending{guildID: guildID, record: record}:
	default:
		s.dropped.Add(1)
		s.logger.Warn("notification queue full, dropping record",
			"guild_id", guildID,
			"title", record.Title,
		)
	}
}

// Dropped returns how many records were discarded because the queue
// was full.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

// Delivered returns how many records reached the log channel.
func (s *Sink) Delivered() uint64 { return s.delivered.Load() }

// Run dispatches queued records until ctx is cancelled, then flushes
// whatever is still queued within the drain timeout.
func (s *Sink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return
		case item := <-s.queue:
			if err := s.limiter.Wait(ctx); err != nil {
				// Cancelled while waiting: the record joins the drain.
				s.deliver(context.Background(), item)
				s.drain()
				return
			}
			s.deliver(ctx, item)
		}
	}
}

func (s *Sink) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()
	for {
		select {
		case item := <-s.queue:
			if ctx.Err() != nil {
				s.logger.Warn("notification drain timed out", "remaining", len(s.queue)+1)
				return
			}
			s.deliver(ctx, item)
		default:
			return
		}
	}
}

func (s *Sink) deliver(ctx context.Context, item pending) {
	if s.channelID == "" {
		return
	}
	channel, err := s.platform.Channel(ctx, s.channelID)
	if err != nil {
		s.logger.Debug("log channel unavailable",
			"guild_id", item.guildID,
			"channel_id", s.channelID,
			"error", err,
		)
		return
	}
	if channel.GuildID != item.guildID {
		s.logger.Debug("log channel belongs to another guild, dropping record",
			"guild_id", item.guildID,
			"title", item.record.Title,
		)
		return
	}

	thumbnail := item.record.ThumbnailURL
	if thumbnail == "" {
		thumbnail = s.platform.GuildIconURL(ctx, item.guildID)
	}
	embed := platform.Embed{
		Title:        item.record.Title,
		Description:  item.record.Description,
		Color:        item.record.Class.Color(),
		Timestamp:    item.record.Timestamp,
		ThumbnailURL: thumbnail,
		Footer:       item.record.Footer,
		Fields:       item.record.Fields,
	}
	if _, err := s.platform.SendMessage(ctx, s.channelID, platform.Message{Embeds: []platform.Embed{embed}}); err != nil {
		s.logger.Warn("sending notification failed",
			"guild_id", item.guildID,
			"title", item.record.Title,
			"error", err,
		)
		return
	}
	s.delivered.Add(1)
}
