// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"slices"
	"sync"
)

// Entry is a record captured by a Recorder.
type Entry struct {
	GuildID string
	Record  Record
}

// Recorder is a Notifier that keeps every record in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Log stores the record.
func (r *Recorder) Log(guildID string, record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{GuildID: guildID, Record: record})
}

// Entries returns the captured records in order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// Titles returns the title of every captured record in order.
func (r *Recorder) Titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := make([]string, len(r.entries))
	for i, entry := range r.entries {
		titles[i] = entry.Record.Title
	}
	return titles
}

// Find returns the first record with the given title.
func (r *Recorder) Find(title string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.Record.Title == title {
			return entry.Record, true
		}
	}
	return Record{}, false
}

var _ Notifier = (*Recorder)(nil)
var _ Notifier = (*Sink)(nil)
