// Package oopr implements the On/Off-Path Recorder (C8): a direct-mapped
// cache keyed by branch PC that captures the retired context surrounding
// an H2P op at the moment it is evicted from the Retirement Ring Buffer.
// Grounded on original_source/src/on_off_path_cache.c's record_on_off_path
// and spec.md §4.8; Cache implements rrb.Evictor so internal/core can wire
// it directly as the RRB's eviction sink.
package oopr

import "github.com/Hong-git007/scarab-guell/internal/op"

// Size is OOPC_SIZE (spec.md §3).
const Size = 1024

// MaxPathLength is MAX_ON_OFF_PATH_LENGTH (spec.md §3).
const MaxPathLength = 256

// PathOp is one retired op captured in a path, carrying the optional
// timing fields on_off_path_cache.c's record_on_off_path stamps beyond
// spec.md §3's bare op_num/pc (SPEC_FULL.md §D).
type PathOp struct {
	OpNum          uint64
	PC             uint64
	IssuedAtCycle  uint64
	RetiredAtCycle uint64
}

// Entry is one direct-mapped OOPR slot.
type Entry struct {
	Valid          bool
	H2PBranchPC    uint64
	H2PBranchOpNum uint64
	Path           []PathOp
}

// Cache is one core's on/off-path recorder.
type Cache struct {
	entries [Size]Entry
}

// New returns an empty on/off-path recorder.
func New() *Cache {
	return &Cache{}
}

func index(pc uint64) uint64 { return pc % Size }

// Record implements rrb.Evictor. path is the RRB's contents starting at
// head at the moment of eviction, oldest-first; path[0] is the evicted
// H2P op itself (spec.md §4.8).
func (c *Cache) Record(path []op.Op) {
	if len(path) == 0 {
		return
	}
	anchor := path[0]
	e := &c.entries[index(anchor.PC)]

	e.Valid = true
	e.H2PBranchPC = anchor.PC
	e.H2PBranchOpNum = anchor.OpNum
	e.Path = e.Path[:0]

	n := len(path)
	if n > MaxPathLength {
		n = MaxPathLength
	}
	for i := 0; i < n; i++ {
		o := path[i]
		e.Path = append(e.Path, PathOp{
			OpNum:          o.OpNum,
			PC:             o.PC,
			IssuedAtCycle:  o.IssuedAtCycle,
			RetiredAtCycle: o.RetiredAtCycle,
		})
	}
}

// Get returns the entry for pc iff valid and tag-matched.
func (c *Cache) Get(pc uint64) (Entry, bool) {
	e := c.entries[index(pc)]
	if !e.Valid || e.H2PBranchPC != pc {
		return Entry{}, false
	}
	return e, true
}
