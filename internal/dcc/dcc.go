// Package dcc implements the Dependency-Chain Cache (C5): a direct-mapped
// cache of full per-H2P-branch backward slices. Grounded on spec.md §4.5;
// the entry shape and direct-mapped indexing mirror the
// Dependency_Chain_Cache_Entry declared across the dependency_chain_cache.c
// variants in original_source/ (spec.md §9 open question 3 — this port
// follows the newer Backward_Walk_Engine-based variant).
package dcc

import (
	"github.com/Hong-git007/scarab-guell/internal/bse"
	"github.com/Hong-git007/scarab-guell/internal/op"
)

// Size is DCC_SIZE (spec.md §3).
const Size = 1024

// MaxChainLength bounds an entry's chain (spec.md §3).
const MaxChainLength = 64

// Entry is one direct-mapped DCC slot.
type Entry struct {
	Valid       bool
	TagPC       uint64
	AnchorOpNum uint64
	Chain       []op.Op
}

// Cache is one core's DCC.
type Cache struct {
	entries [Size]Entry
}

// New returns an empty DCC.
func New() *Cache {
	return &Cache{}
}

func index(pc uint64) uint64 { return pc % Size }

// Write unconditionally overwrites the entry at trigger.PC's index with
// the slice described by res, taken from the given snapshot. It is the
// BWE's post-BSE write step (spec.md §4.5).
func (c *Cache) Write(ops []op.Op, res bse.Result) {
	if !res.Found {
		return
	}
	trigger := ops[res.TriggerIdx]
	e := &c.entries[index(trigger.PC)]

	e.Valid = true
	e.TagPC = trigger.PC
	e.AnchorOpNum = trigger.OpNum
	e.Chain = e.Chain[:0]

	for i := res.FirstDep; i <= res.TriggerIdx; i++ {
		if !res.IsDataDependent[i] {
			continue
		}
		if len(e.Chain) >= MaxChainLength {
			break
		}
		e.Chain = append(e.Chain, ops[i].Clone())
	}
}

// Get returns the entry for pc iff it is valid and tag-matched
// (get_dependency_chain, spec.md §4.5/§4.10).
func (c *Cache) Get(pc uint64) (Entry, bool) {
	e := c.entries[index(pc)]
	if !e.Valid || e.TagPC != pc {
		return Entry{}, false
	}
	return e, true
}
