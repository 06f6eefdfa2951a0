package state

import "sync"

// Cell is a single-writer, multi-reader observable holding the current
// Snapshot of a session. The Executor is the sole writer; readers
// (reader-task builders, metrics emission) obtain immutable snapshots
// without blocking the writer and can wait for the next publish.
type Cell struct {
	mu       sync.RWMutex
	current  Snapshot
	notifyCh chan struct{}
}

// NewCell constructs a Cell holding the given initial snapshot.
func NewCell(initial Snapshot) *Cell {
	return &Cell{
		current:  initial,
		notifyCh: make(chan struct{}),
	}
}

// Get returns the current snapshot.
func (c *Cell) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set publishes a new snapshot and wakes any readers blocked in Changed.
func (c *Cell) Set(next Snapshot) {
	c.mu.Lock()
	c.current = next
	closed := c.notifyCh
	c.notifyCh = make(chan struct{})
	c.mu.Unlock()
	close(closed)
}

// Changed returns a channel that is closed the next time Set is called.
// Readers select on it to wait for a state update without polling.
func (c *Cell) Changed() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notifyCh
}

// Subscription is the read-only view of a Cell handed to reader tasks.
type Subscription struct {
	cell *Cell
}

// Subscribe returns a read-only subscription to the cell.
func (c *Cell) Subscribe() Subscription {
	return Subscription{cell: c}
}

// Get returns the current snapshot.
func (s Subscription) Get() Snapshot {
	return s.cell.Get()
}

// Changed returns a channel closed on the next publish.
func (s Subscription) Changed() <-chan struct{} {
	return s.cell.Changed()
}
