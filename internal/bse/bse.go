// Package bse implements the Backward Slice Extractor (C4): from a
// trigger H2P op, compute the boolean mask is_data_dependent[i] over a
// snapshot of the retirement ring buffer. Grounded on spec.md §4.4, which
// is this repository's generalization of the register/memory
// def-to-use walk fill_buffer.c and dependency_chain_cache.c perform
// jointly in the original (the original's older register-id-equality
// chain walk is not preserved — spec.md §9 open question 3 picks the
// newer BSE-based version, and so does this port).
package bse

import (
	"github.com/Hong-git007/scarab-guell/internal/liws"
	"github.com/Hong-git007/scarab-guell/internal/op"
)

// Result is the outcome of one backward walk: which snapshot indices are
// part of the slice, and where the slice starts.
type Result struct {
	TriggerIdx      int
	FirstDep        int
	IsDataDependent []bool
	Found           bool // false when no H2P trigger exists in the snapshot
}

// Extract scans ops (oldest-first, program order) for the newest op with
// IsHard set, then walks backward seeding a fresh Live-In Working Set
// from it. live is reused across calls to avoid reallocating its
// backing address slice; Extract clears it before use.
func Extract(ops []op.Op, live *liws.Set) Result {
	triggerIdx := -1
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].IsHard {
			triggerIdx = i
			break
		}
	}
	if triggerIdx < 0 {
		return Result{Found: false}
	}

	live.Clear()
	dep := make([]bool, len(ops))
	dep[triggerIdx] = true

	trigger := ops[triggerIdx]
	for _, s := range trigger.Srcs {
		live.AddReg(s)
	}
	if trigger.MemType == op.MemLoad {
		live.AddAddr(trigger.VA)
	}

	firstDep := triggerIdx
	for i := triggerIdx - 1; i >= 0; i-- {
		cur := ops[i]
		if !cur.TableInfoValid || !cur.InstInfoValid {
			continue
		}

		depends := false
		for _, d := range cur.Dests {
			if live.RemoveReg(d) {
				depends = true
			}
		}
		if cur.MemType == op.MemStore && live.RemoveAddr(cur.VA) {
			depends = true
		}

		if depends {
			dep[i] = true
			firstDep = i
			for _, s := range cur.Srcs {
				live.AddReg(s)
			}
			if cur.MemType == op.MemLoad {
				live.AddAddr(cur.VA)
			}
		}
	}

	return Result{
		TriggerIdx:      triggerIdx,
		FirstDep:        firstDep,
		IsDataDependent: dep,
		Found:           true,
	}
}
