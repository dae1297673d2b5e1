package watcher

import (
	"sort"
	"sync"
	"time"
)

// Op is the kind of change seen for a path.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	}
	return "unknown"
}

// Change is a path (relative to the watched root) and the last operation seen on it.
type Change struct {
	Path string
	Op   Op
}

// Debouncer gathers changes and releases them as one batch once no new change
// has arrived for the quiet interval. Repeated changes to a path keep only the latest op.
type Debouncer struct {
	quiet   time.Duration
	mu      sync.Mutex
	pending map[string]Op
	timer   *time.Timer
	closed  bool
	batches chan []Change
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(quiet time.Duration) *Debouncer {
	return &Debouncer{
		quiet:   quiet,
		pending: make(map[string]Op),
		batches: make(chan []Change, 16),
	}
}

// Batches returns the channel of released batches, sorted by path.
func (d *Debouncer) Batches() <-chan []Change {
	return d.batches
}

// Add records a change and restarts the quiet period.
func (d *Debouncer) Add(path string, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.pending[path] = op
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.release)
}

// Close drops pending changes and closes the batch channel.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
	close(d.batches)
}

func (d *Debouncer) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || len(d.pending) == 0 {
		return
	}

	batch := make([]Change, 0, len(d.pending))
	for path, op := range d.pending {
		batch = append(batch, Change{Path: path, Op: op})
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	d.pending = make(map[string]Op)
	select {
	case d.batches <- batch:
	default:
		// channel full: a queued batch already forces a rescan
	}
}
