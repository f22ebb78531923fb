package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ClientIdleTTL is how long a client's in-memory state (current session,
// reply generation, active quiz) outlives its last request.
const ClientIdleTTL = 2 * time.Hour

const sweepEvery = time.Minute

type clientEntry[T any] struct {
	mu    sync.Mutex
	state T

	// guarded by clientStates.mu
	refs     int
	lastUsed time.Time
}

// clientStates hands out per-client state with its own lock. Entries nobody
// holds are dropped once idle for longer than ttl.
type clientStates[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	entries   map[uuid.UUID]*clientEntry[T]
	lastSweep time.Time
}

func newClientStates[T any](ttl time.Duration) *clientStates[T] {
	return &clientStates[T]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]*clientEntry[T]),
	}
}

// hold pins the client's entry until the matching release. It does not lock
// the entry.
func (cs *clientStates[T]) hold(clientID uuid.UUID) *clientEntry[T] {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	if now.Sub(cs.lastSweep) >= sweepEvery {
		cs.sweep(now)
	}

	e, ok := cs.entries[clientID]
	if !ok {
		e = &clientEntry[T]{}
		cs.entries[clientID] = e
	}
	e.refs++
	e.lastUsed = now
	return e
}

func (cs *clientStates[T]) release(e *clientEntry[T]) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	e.refs--
	e.lastUsed = cs.now()
}

// sweep runs with cs.mu held.
func (cs *clientStates[T]) sweep(now time.Time) {
	for id, e := range cs.entries {
		if e.refs == 0 && now.Sub(e.lastUsed) > cs.ttl {
			delete(cs.entries, id)
		}
	}
	cs.lastSweep = now
}

func (cs *clientStates[T]) size() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.entries)
}
