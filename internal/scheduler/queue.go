package scheduler

import (
	"time"

	"github.com/gpuhot/gpuhot/internal/telemetry"
)

// Key identifies a queue entry. The system entry has its own key so it can
// never collide with a GPU's.
type Key struct {
	system bool
	entity string
}

// SystemKey is the reserved key for the system-wide update.
var SystemKey = Key{system: true}

// EntityKey returns the queue key for a GPU.
func EntityKey(id string) Key {
	return Key{entity: id}
}

// IsSystem reports whether k is SystemKey.
func (k Key) IsSystem() bool { return k.system }

// Entity returns the GPU key, or "" for SystemKey.
func (k Key) Entity() string { return k.entity }

func (k Key) String() string {
	if k.system {
		return "<system>"
	}
	return k.entity
}

// PendingUpdate is the latest unflushed update for one key.
type PendingUpdate struct {
	Key    Key
	Entity *telemetry.EntityUpdate
	System *telemetry.SystemUpdate
	// UpdateText is true when the throttle allowed a text refresh for any
	// snapshot merged into this entry.
	UpdateText bool
	At         time.Time
}

// UpdateQueue holds at most one pending update per key and a single-flight
// frame handle.
type UpdateQueue struct {
	pending map[Key]*PendingUpdate
	order   []Key

	frame     *FrameID
	nextFrame FrameID
}

// NewUpdateQueue creates an empty queue.
func NewUpdateQueue() *UpdateQueue {
	return &UpdateQueue{pending: make(map[Key]*PendingUpdate)}
}

// Enqueue stores u, replacing any pending update for the same key. The
// newest snapshot wins; UpdateText is kept if any merged update had it.
// It returns the frame to request when none is scheduled yet.
func (q *UpdateQueue) Enqueue(u PendingUpdate) (FrameID, bool) {
	if prev, ok := q.pending[u.Key]; ok {
		u.UpdateText = u.UpdateText || prev.UpdateText
		*prev = u
	} else {
		entry := u
		q.pending[u.Key] = &entry
		q.order = append(q.order, u.Key)
	}

	if q.frame != nil {
		return 0, false
	}
	q.nextFrame++
	id := q.nextFrame
	q.frame = &id
	return id, true
}

// Flush drains the queue for frame id, in first-enqueue order. The frame
// handle is released before returning, so updates enqueued while the
// caller applies the result schedule the next frame. A stale id returns
// false and leaves the queue untouched.
func (q *UpdateQueue) Flush(id FrameID) ([]PendingUpdate, bool) {
	if q.frame == nil || *q.frame != id {
		return nil, false
	}
	q.frame = nil

	out := make([]PendingUpdate, 0, len(q.order))
	for _, k := range q.order {
		if u, ok := q.pending[k]; ok {
			out = append(out, *u)
		}
	}
	q.pending = make(map[Key]*PendingUpdate)
	q.order = q.order[:0]
	return out, true
}

// Drop removes the pending update for k, if any. The frame stays
// scheduled; an empty flush is harmless.
func (q *UpdateQueue) Drop(k Key) {
	if _, ok := q.pending[k]; !ok {
		return
	}
	delete(q.pending, k)
	for i, o := range q.order {
		if o == k {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Get returns the pending update for k.
func (q *UpdateQueue) Get(k Key) (PendingUpdate, bool) {
	u, ok := q.pending[k]
	if !ok {
		return PendingUpdate{}, false
	}
	return *u, true
}

// Len returns the number of pending updates.
func (q *UpdateQueue) Len() int { return len(q.pending) }

// FrameScheduled reports whether a frame handle is held.
func (q *UpdateQueue) FrameScheduled() bool { return q.frame != nil }

// Reset discards pending updates and the frame handle.
func (q *UpdateQueue) Reset() {
	q.pending = make(map[Key]*PendingUpdate)
	q.order = nil
	q.frame = nil
}
