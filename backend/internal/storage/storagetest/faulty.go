// Package storagetest provides storage wrappers and clocks for tests.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"social-network/backend/internal/storage"
)

// ErrInjected is the error returned by injected faults.
var ErrInjected = errors.New("storagetest: injected fault")

// FaultyStore wraps a Store and fails selected edge writes.
type FaultyStore struct {
	storage.Store

	mu       sync.Mutex
	failPut  func(storage.Edge) bool
	failDel  func(storage.EdgeKey) bool
	failures int
}

// Wrap returns a FaultyStore that behaves like s until a fault is armed.
func Wrap(s storage.Store) *FaultyStore {
	return &FaultyStore{Store: s}
}

// FailPutEdge makes PutEdge fail for every edge match selects; nil disarms.
func (f *FaultyStore) FailPutEdge(match func(storage.Edge) bool) {
	f.mu.Lock()
	f.failPut = match
	f.mu.Unlock()
}

// FailDeleteEdge makes DeleteEdge fail for every key match selects; nil disarms.
func (f *FaultyStore) FailDeleteEdge(match func(storage.EdgeKey) bool) {
	f.mu.Lock()
	f.failDel = match
	f.mu.Unlock()
}

// Failures returns how many faults were injected so far.
func (f *FaultyStore) Failures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures
}

func (f *FaultyStore) View(ctx context.Context, fn func(storage.Tx) error) error {
	return f.Store.View(ctx, func(tx storage.Tx) error {
		return fn(&faultyTx{Tx: tx, f: f})
	})
}

func (f *FaultyStore) Update(ctx context.Context, fn func(storage.Tx) error) error {
	return f.Store.Update(ctx, func(tx storage.Tx) error {
		return fn(&faultyTx{Tx: tx, f: f})
	})
}

type faultyTx struct {
	storage.Tx
	f *FaultyStore
}

func (t *faultyTx) PutEdge(ctx context.Context, e storage.Edge) error {
	t.f.mu.Lock()
	fail := t.f.failPut != nil && t.f.failPut(e)
	if fail {
		t.f.failures++
	}
	t.f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return t.Tx.PutEdge(ctx, e)
}

func (t *faultyTx) DeleteEdge(ctx context.Context, k storage.EdgeKey) (bool, error) {
	t.f.mu.Lock()
	fail := t.f.failDel != nil && t.f.failDel(k)
	if fail {
		t.f.failures++
	}
	t.f.mu.Unlock()
	if fail {
		return false, ErrInjected
	}
	return t.Tx.DeleteEdge(ctx, k)
}

// Clock is a manual clock that advances by a fixed step on every reading,
// giving each write a distinct, increasing timestamp.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock starts a clock at start.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

// Now returns the current reading and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
