// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package abuse tracks bursts of destructive actions per actor and
// decides when a burst warrants punishment.
//
// Each actor is either absent or tracking a burst. The first destructive
// action opens a window of [DefaultWindow] anchored at that action;
// later actions in the window increment the count without moving the
// anchor. When the count exceeds the threshold the counter escalates
// exactly once and forgets the actor, so the next action starts a fresh
// window.
//
// A window closes through a single decay timer per burst. The timer
// carries the generation of the record it was scheduled for and removes
// the record only if that generation is still current, so a timer that
// fires after escalation (or after the actor started a new burst) does
// nothing.
package abuse

import (
	"sync"
	"time"

	"github.com/bureau-foundation/warden/lib/clock"
)

const (
	// DefaultWindow is the burst window length.
	DefaultWindow = 60 * time.Second

	// DefaultThreshold is the highest count that does not escalate;
	// the action that takes the count above it escalates.
	DefaultThreshold = 4
)

// Config configures a Counter. Zero fields take the defaults.
type Config struct {
	Window    time.Duration
	Threshold int
	Clock     clock.Clock
}

// Decision is the counter's verdict on one destructive action.
type Decision struct {
	// Count is the post-increment count for the burst.
	Count int
	// Escalate is set on the action that exceeded the threshold. The
	// actor's record has already been removed when it is returned.
	Escalate bool
	// ExpiresAt is the end of the burst window.
	ExpiresAt time.Time
}

type record struct {
	count      int
	expiresAt  time.Time
	generation uint64
	decay      *clock.Timer
}

// Counter is the single authoritative store of per-actor burst state.
// It is safe for concurrent use; every read-increment-write and every
// decay-delete happens under one mutex.
type Counter struct {
	clock     clock.Clock
	window    time.Duration
	threshold int

	mu             sync.Mutex
	records        map[string]*record
	lastGeneration uint64
}

// NewCounter creates an empty Counter.
func NewCounter(config Config) *Counter {
	window := config.Window
	if window <= 0 {
		window = DefaultWindow
	}
	threshold := config.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Counter{
		clock:     clk,
		window:    window,
		threshold: threshold,
		records:   make(map[string]*record),
	}
}

// RecordDestructiveAction counts one destructive action by actorID.
func (c *Counter) RecordDestructiveAction(actorID string) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	current, exists := c.records[actorID]

	// A window that has ended is absent even if its decay callback has
	// not run yet.
	if exists && !now.Before(current.expiresAt) {
		c.removeLocked(actorID, current)
		exists = false
	}

	if !exists {
		c.lastGeneration++
		generation := c.lastGeneration
		current = &record{
			count:      1,
			expiresAt:  now.Add(c.window),
			generation: generation,
		}
		c.records[actorID] = current
		current.decay = c.clock.AfterFunc(c.window, func() {
			c.expire(actorID, generation)
		})
	} else {
		current.count++
	}

	decision := Decision{
		Count:     current.count,
		ExpiresAt: current.expiresAt,
	}
	if current.count > c.threshold {
		decision.Escalate = true
		c.removeLocked(actorID, current)
	}
	return decision
}

// Clear forgets actorID's burst, if any.
func (c *Counter) Clear(actorID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, exists := c.records[actorID]; exists {
		c.removeLocked(actorID, current)
	}
}

// Count returns actorID's current burst count, zero when absent.
func (c *Counter) Count(actorID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, exists := c.records[actorID]
	if !exists || !c.clock.Now().Before(current.expiresAt) {
		return 0
	}
	return current.count
}

// Len returns the number of stored records, including windows that
// have ended but not yet decayed.
func (c *Counter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// expire is the decay callback. It deletes the record only if it is
// still the one the timer was scheduled for.
func (c *Counter) expire(actorID string, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, exists := c.records[actorID]
	if !exists || current.generation != generation {
		return
	}
	delete(c.records, actorID)
}

// removeLocked deletes the record and stops its decay timer. A timer
// that has already fired is harmless: expire checks the generation.
func (c *Counter) removeLocked(actorID string, current *record) {
	delete(c.records, actorID)
	if current.decay != nil {
		current.decay.Stop()
	}
}
