// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package reactor runs event handlers with per-key ordering.
//
// Tasks submitted under the same key run one at a time in submission
// order. Tasks under different keys run concurrently. A key's worker
// goroutine exists only while the key has queued work, so idle keys cost
// nothing.
//
// A panicking task is recovered, logged with its stack, and counted; the
// key's remaining tasks and every other key keep running.
package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Task is one unit of work. The context is the reactor's context and is
// cancelled when the reactor's parent context is.
type Task func(ctx context.Context)

type job struct {
	name string
	task Task
}

// Reactor is a keyed, ordered task runner.
type Reactor struct {
	ctx    context.Context
	logger *slog.Logger

	mu     sync.Mutex
	queues map[string][]job
	closed bool

	workers sync.WaitGroup
	panics  atomic.Uint64
}

// New creates a Reactor whose tasks receive ctx.
func New(ctx context.Context, logger *slog.Logger) *Reactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reactor{
		ctx:    ctx,
		logger: logger.With("component", "reactor"),
		queues: make(map[string][]job),
	}
}

// Submit queues task under key. It returns false once the reactor is
// closed. The name appears in panic logs.
func (r *Reactor) Submit(key, name string, task Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	queue, running := r.queues[key]
	r.queues[key] = append(queue, job{name: name, task: task})
	if !running {
		r.workers.Add(1)
		go r.drain(key)
	}
	return true
}

// Close stops accepting tasks and waits for every queued task to finish.
func (r *Reactor) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.workers.Wait()
}

// Panics returns how many tasks have panicked.
func (r *Reactor) Panics() uint64 { return r.panics.Load() }

// Pending returns the number of keys with queued or running work.
func (r *Reactor) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

// drain runs key's tasks until its queue is empty. The queue entry stays
// in the map while a task runs so that Submit does not start a second
// worker for the key.
func (r *Reactor) drain(key string) {
	defer r.workers.Done()
	for {
		r.mu.Lock()
		queue := r.queues[key]
		if len(queue) == 0 {
			delete(r.queues, key)
			r.mu.Unlock()
			return
		}
		next := queue[0]
		queue[0] = job{}
		r.queues[key] = queue[1:]
		r.mu.Unlock()

		r.run(key, next)
	}
}

func (r *Reactor) run(key string, next job) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.panics.Add(1)
			r.logger.Error("handler panicked",
				"key", key,
				"task", next.name,
				"panic", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
		}
	}()
	next.task(r.ctx)
}
