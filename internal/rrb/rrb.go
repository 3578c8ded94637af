// Package rrb implements the Retirement Ring Buffer (C2): a per-core FIFO
// of the most recently retired ops, in program order. Grounded on
// original_source/src/fill_buffer.c (Fill_Buffer / fill_buffer_add /
// reset_fill_buffer), renamed to match spec.md's terminology.
package rrb

import "github.com/Hong-git007/scarab-guell/internal/op"

// DefaultSize is RRB_SIZE's default (spec.md §3).
const DefaultSize = 256

// Evictor is invoked just before the head entry is overwritten, whenever
// that entry is H2P. path is the buffer's current contents starting at
// head, oldest-first — so path[0] is the evicted op itself and the rest
// is everything else still resident at the moment of eviction (spec.md
// §4.8: "starting at RRB head and walking forward count entries"). Wired
// to oopr.Cache.Record by internal/core; kept as an interface here so rrb
// never imports oopr and the dependency stays one-directional.
type Evictor interface {
	Record(path []op.Op)
}

// Buffer is a fixed-capacity ring of owned Op copies.
type Buffer struct {
	entries []op.Op
	head    int
	tail    int
	count   int

	// frozen mirrors "BWE state == Walking"; while true, Push silently
	// drops (spec.md §4.2 step 1, §5).
	frozen bool
}

// New allocates a Buffer with the given capacity (RRB_SIZE).
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{entries: make([]op.Op, size)}
}

// Reset clears entries and indices, equivalent to rrb_reset.
func (b *Buffer) Reset() {
	for i := range b.entries {
		b.entries[i] = op.Op{}
	}
	b.head = 0
	b.tail = 0
	b.count = 0
}

// SetFrozen toggles the freeze invariant the BWE owns: true while BWE is
// Walking, false otherwise.
func (b *Buffer) SetFrozen(frozen bool) { b.frozen = frozen }

// Frozen reports the current freeze state.
func (b *Buffer) Frozen() bool { return b.frozen }

// Len returns the number of occupied entries.
func (b *Buffer) Len() int { return b.count }

// Cap returns the buffer's fixed capacity (RRB_SIZE).
func (b *Buffer) Cap() int { return len(b.entries) }

// Push appends an owned copy of o, evicting the oldest entry first if the
// buffer is full (spec.md §4.2). evictor may be nil when no H2P ops can
// possibly be present yet (e.g. during early warm-up); it is invoked
// before head advances, satisfying the ordering invariant in spec.md §3
// ("An H2P op evicted from the RRB must be passed to OOPR *before* the
// RRB's head advances"). Returns true if the op was actually admitted.
func (b *Buffer) Push(o op.Op, evictor Evictor) bool {
	if b.frozen {
		return false
	}

	if b.count == len(b.entries) {
		head := &b.entries[b.head]
		if head.IsHard && evictor != nil {
			evictor.Record(b.forwardFromHead())
		}
		b.head = (b.head + 1) % len(b.entries)
		b.count--
	}

	b.entries[b.tail] = o.Clone()
	b.tail = (b.tail + 1) % len(b.entries)
	b.count++
	return true
}

// forwardFromHead returns the buffer's current contents starting at head,
// oldest-first, before any eviction bookkeeping runs (spec.md §4.8).
func (b *Buffer) forwardFromHead() []op.Op {
	out := make([]op.Op, b.count)
	idx := b.head
	for i := 0; i < b.count; i++ {
		out[i] = b.entries[idx].Clone()
		idx = (idx + 1) % len(b.entries)
	}
	return out
}

// Snapshot returns an owned, oldest-first copy of the buffer's contents —
// the array BSE walks (spec.md §4.4's `ops[0..N]`). The BWE deep-clones
// this at arm time, per spec.md §4.7.
func (b *Buffer) Snapshot() []op.Op {
	out := make([]op.Op, b.count)
	idx := b.head
	for i := 0; i < b.count; i++ {
		out[i] = b.entries[idx].Clone()
		idx = (idx + 1) % len(b.entries)
	}
	return out
}

// Head returns the oldest occupied op and whether one exists.
func (b *Buffer) Head() (op.Op, bool) {
	if b.count == 0 {
		return op.Op{}, false
	}
	return b.entries[b.head], true
}
