// Package bcc implements the Block-Aligned Chain Cache and its companion
// Empty-Block Tag Store (C6): a direct-mapped cache of slice fragments
// aligned to basic blocks, merged by OR across invocations that visit the
// same block, plus a negative-result store for blocks proven to
// contribute nothing. Grounded on spec.md §4.6; there is no equivalent
// block-granularity cache in original_source/'s surviving
// dependency_chain_cache.c fragment, so the merge-by-OR write path below
// is built directly from spec.md's prose rather than ported line by line.
package bcc

import (
	"math/bits"

	"github.com/Hong-git007/scarab-guell/internal/bse"
	"github.com/Hong-git007/scarab-guell/internal/op"
)

// Size is BCC_SIZE (spec.md §3).
const Size = 1024

// EBTSSize is EBTS_SIZE (spec.md §3).
const EBTSSize = 256

// MaxChainLength bounds a rebuilt entry's chain (spec.md §3); it is also
// the mask width, so a block longer than 64 ops is clamped — spec.md §9
// open question 2, decided: clamp rather than introduce a multi-word mask.
const MaxChainLength = 64

// Entry is one direct-mapped BCC slot.
type Entry struct {
	Valid           bool
	TagPC           uint64
	AnchorOpNum     uint64
	DependencyMask  uint64
	TotalOpsInBlock int
	Chain           []op.Op
}

// ebtsEntry is a negative record: "this block was evaluated and
// contributed nothing".
type ebtsEntry struct {
	valid        bool
	blockStartPC uint64
}

// Cache is one core's BCC plus its EBTS.
type Cache struct {
	entries [Size]Entry
	ebts    [EBTSSize]ebtsEntry
}

// New returns an empty BCC/EBTS pair.
func New() *Cache {
	return &Cache{}
}

func bccIndex(pc uint64) uint64  { return pc % Size }
func ebtsIndex(pc uint64) uint64 { return pc % EBTSSize }

// blockStartPCs computes block_start_pc_map[i] for the snapshot: the
// starting PC of the basic block containing ops[i]. A block ends at any
// op with CFType != NotCF (the terminator is included in that block); the
// next op begins a new block (spec.md §4.6).
func blockStartPCs(ops []op.Op) []uint64 {
	starts := make([]uint64, len(ops))
	if len(ops) == 0 {
		return starts
	}
	blockStart := ops[0].PC
	for i := range ops {
		starts[i] = blockStart
		if ops[i].IsBranch() && i+1 < len(ops) {
			blockStart = ops[i+1].PC
		}
	}
	return starts
}

// Write segments [res.FirstDep..res.TriggerIdx] into basic blocks and
// writes or merges each block's contribution into the BCC, or records an
// empty block in the EBTS (spec.md §4.6).
func (c *Cache) Write(ops []op.Op, res bse.Result) {
	if !res.Found {
		return
	}
	starts := blockStartPCs(ops)

	blockStartIdx := res.FirstDep
	for i := res.FirstDep; i <= res.TriggerIdx; i++ {
		isTerminator := ops[i].IsBranch()
		isLast := i == res.TriggerIdx
		if !isTerminator && !isLast {
			continue
		}

		instructionsInBlock := i - blockStartIdx + 1
		clamped := instructionsInBlock
		if clamped > MaxChainLength {
			clamped = MaxChainLength
		}

		var newMask uint64
		for j := 0; j < clamped; j++ {
			if res.IsDataDependent[blockStartIdx+j] {
				newMask |= 1 << uint(j)
			}
		}
		depCount := bits.OnesCount64(newMask)
		blockStartPC := starts[blockStartIdx]

		if depCount > 0 {
			c.mergeBlock(blockStartPC, ops[blockStartIdx:blockStartIdx+clamped], newMask, clamped)
		} else {
			c.ebts[ebtsIndex(blockStartPC)] = ebtsEntry{valid: true, blockStartPC: blockStartPC}
		}

		blockStartIdx = i + 1
	}
}

// mergeBlock writes new_mask into the BCC entry for blockStartPC, merging
// by OR with any tag-matched existing mask, then rebuilds the entry's
// chain from the merged mask over blockOps (spec.md §4.6).
func (c *Cache) mergeBlock(blockStartPC uint64, blockOps []op.Op, newMask uint64, totalOps int) {
	e := &c.entries[bccIndex(blockStartPC)]

	var oldMask uint64
	if e.Valid && e.TagPC == blockStartPC {
		oldMask = e.DependencyMask
	} else {
		// Tag miss: treat as a fresh entry (spec.md §4.6).
		*e = Entry{}
	}

	e.Valid = true
	e.TagPC = blockStartPC
	if oldMask == 0 {
		e.AnchorOpNum = blockOps[0].OpNum
	}
	e.DependencyMask = oldMask | newMask
	e.TotalOpsInBlock = totalOps

	e.Chain = e.Chain[:0]
	for j := 0; j < totalOps; j++ {
		if e.DependencyMask&(1<<uint(j)) == 0 {
			continue
		}
		if len(e.Chain) >= MaxChainLength {
			break
		}
		e.Chain = append(e.Chain, blockOps[j].Clone())
	}
}

// Get returns the entry for pc iff valid and tag-matched
// (get_dependency_chain_block, spec.md §4.6/§4.10).
func (c *Cache) Get(pc uint64) (Entry, bool) {
	e := c.entries[bccIndex(pc)]
	if !e.Valid || e.TagPC != pc {
		return Entry{}, false
	}
	return e, true
}

// EmptyBlock reports whether pc's block was tag-matched in the EBTS
// (ebts_is_empty_block, spec.md §4.10).
func (c *Cache) EmptyBlock(pc uint64) bool {
	e := c.ebts[ebtsIndex(pc)]
	return e.valid && e.blockStartPC == pc
}

// ResetMasks clears every valid BCC entry's mask and chain (the tag
// stays, so the next writer merges from zero again) and clears the EBTS
// entirely — periodically_reset_caches, spec.md §4.9.
func (c *Cache) ResetMasks() {
	for i := range c.entries {
		if c.entries[i].Valid {
			c.entries[i].DependencyMask = 0
			c.entries[i].Chain = nil
		}
	}
	c.ebts = [EBTSSize]ebtsEntry{}
}
