// Package sched implements a bitmap-based out-of-order instruction window:
// dependency tracking, priority classification, and in-order retirement of
// completed ops (SPEC_FULL.md §C, "domain stack"). Grounded on
// proto/ooo/ooo.go's 32-entry window and age-ordered dependency matrix;
// trimmed of its per-gate picosecond accounting and extended with
// RetireOldest, which the original scheduler never needed because nothing
// downstream of it consumed a retirement stream.
package sched

import "math/bits"

const (
	// WindowSize bounds the number of in-flight instructions, matching
	// proto/ooo/ooo.go's 32-entry FIFO window.
	WindowSize = 32

	// IssueWidth bounds how many ready ops SelectIssueBundle will return
	// in one call.
	IssueWidth = 16
)

// Operation is one in-flight instruction. Age is its dispatch-order stamp
// (Engine.nextAge at dispatch): a lower Age, compared modulo 256, means
// older (closer to retirement), which keeps the dependency matrix free of
// false WAR/WAW dependencies.
type Operation struct {
	Valid    bool
	Issued   bool
	Complete bool
	OpNum    uint64
	PC       uint64
	Src1     uint8
	Src2     uint8
	Dest     uint8
	UseDest  bool
	Age      uint8

	IsBranch     bool
	Mispredicted bool
}

// Window holds up to WindowSize in-flight instructions. Dispatch fills the
// lowest free slot, so program order is given by Age, not slot index.
type Window struct {
	Ops [WindowSize]Operation
}

// Scoreboard tracks register readiness as a bitmap: bit N set means
// register N holds committed data.
type Scoreboard uint64

func (s Scoreboard) IsReady(reg uint8) bool { return (s>>reg)&1 != 0 }
func (s *Scoreboard) MarkReady(reg uint8)   { *s |= 1 << reg }
func (s *Scoreboard) MarkPending(reg uint8) { *s &^= 1 << reg }

// DependencyMatrix row i is the bitmap of ops that depend on op i's
// result.
type DependencyMatrix [WindowSize]uint32

// PriorityClass splits ready ops into ops with dependents (schedule first
// to unblock the most work) and leaves.
type PriorityClass struct {
	HighPriority uint32
	LowPriority  uint32
}

// IssueBundle is up to IssueWidth window slots selected for execution this
// cycle.
type IssueBundle struct {
	Indices [IssueWidth]uint8
	Valid   uint16
}

// ComputeReadyBitmap marks every valid, not-yet-issued op whose sources
// are both satisfied in scoreboard.
func ComputeReadyBitmap(window *Window, scoreboard Scoreboard) uint32 {
	var ready uint32
	for i := 0; i < WindowSize; i++ {
		op := &window.Ops[i]
		if !op.Valid || op.Issued {
			continue
		}
		if scoreboard.IsReady(op.Src1) && scoreboard.IsReady(op.Src2) {
			ready |= 1 << i
		}
	}
	return ready
}

// BuildDependencyMatrix records, for every pair of valid ops (i, j) with i
// older than j, whether j reads a register i writes.
func BuildDependencyMatrix(window *Window) DependencyMatrix {
	var matrix DependencyMatrix
	for i := 0; i < WindowSize; i++ {
		opI := &window.Ops[i]
		if !opI.Valid || !opI.UseDest {
			continue
		}
		var row uint32
		for j := 0; j < WindowSize; j++ {
			if i == j {
				continue
			}
			opJ := &window.Ops[j]
			if !opJ.Valid {
				continue
			}
			depends := opJ.Src1 == opI.Dest || opJ.Src2 == opI.Dest
			if depends && int8(opJ.Age-opI.Age) > 0 {
				row |= 1 << j
			}
		}
		matrix[i] = row
	}
	return matrix
}

// ClassifyPriority splits the ready set into ops that block other ops
// (high priority) and leaves (low priority).
func ClassifyPriority(ready uint32, matrix DependencyMatrix) PriorityClass {
	var class PriorityClass
	for i := 0; i < WindowSize; i++ {
		if (ready>>i)&1 == 0 {
			continue
		}
		if matrix[i] != 0 {
			class.HighPriority |= 1 << i
		} else {
			class.LowPriority |= 1 << i
		}
	}
	return class
}

// SelectIssueBundle picks up to IssueWidth ops, preferring high priority
// ops and, within a tier, the highest slot index first.
func SelectIssueBundle(class PriorityClass) IssueBundle {
	var bundle IssueBundle
	tier := class.HighPriority
	if tier == 0 {
		tier = class.LowPriority
	}

	count := 0
	remaining := tier
	for count < IssueWidth && remaining != 0 {
		idx := 31 - bits.LeadingZeros32(remaining)
		bundle.Indices[count] = uint8(idx)
		bundle.Valid |= 1 << count
		count++
		remaining &^= 1 << idx
	}
	return bundle
}

// Engine is the complete two-stage scheduler: a window, a scoreboard, and
// the pipelined priority state computed by ScheduleCycle0.
type Engine struct {
	Window     Window
	Scoreboard Scoreboard
	pipePrio   PriorityClass
	// nextAge is a monotonic dispatch counter, not a slot index; it wraps
	// at 256 and relies on the window holding at most WindowSize ops at
	// once, so the oldest in-flight op is never more than WindowSize
	// dispatches behind the newest.
	nextAge uint8
}

func New() *Engine {
	return &Engine{}
}

// Dispatch admits a new operation into the window at the lowest free slot,
// stamping it with the next dispatch-order Age. Returns false if the
// window is full.
func (e *Engine) Dispatch(opNum, pc uint64, src1, src2, dest uint8, useDest, isBranch bool) (slot int, ok bool) {
	for i := 0; i < WindowSize; i++ {
		if !e.Window.Ops[i].Valid {
			e.Window.Ops[i] = Operation{
				Valid:    true,
				OpNum:    opNum,
				PC:       pc,
				Src1:     src1,
				Src2:     src2,
				Dest:     dest,
				UseDest:  useDest,
				Age:      e.nextAge,
				IsBranch: isBranch,
			}
			if useDest {
				e.Scoreboard.MarkPending(dest)
			}
			e.nextAge++
			return i, true
		}
	}
	return 0, false
}

// ScheduleCycle0 computes the ready bitmap, dependency matrix, and
// priority classification for the current window state.
func (e *Engine) ScheduleCycle0() {
	ready := ComputeReadyBitmap(&e.Window, e.Scoreboard)
	matrix := BuildDependencyMatrix(&e.Window)
	e.pipePrio = ClassifyPriority(ready, matrix)
}

// ScheduleCycle1 selects an issue bundle from the priority state computed
// by ScheduleCycle0 and marks those ops Issued.
func (e *Engine) ScheduleCycle1() IssueBundle {
	bundle := e.ScheduleCycle1Bundle()
	for i := 0; i < IssueWidth; i++ {
		if (bundle.Valid>>i)&1 == 0 {
			continue
		}
		e.Window.Ops[bundle.Indices[i]].Issued = true
	}
	return bundle
}

// ScheduleCycle1Bundle is ScheduleCycle1's pure selection step, split out
// so tests can inspect a bundle before it mutates Issued state.
func (e *Engine) ScheduleCycle1Bundle() IssueBundle {
	return SelectIssueBundle(e.pipePrio)
}

// Complete marks slot's op finished executing: its destination becomes
// ready for dependents, and mispredicted (only meaningful for branches)
// is recorded for eventual retirement.
func (e *Engine) Complete(slot int, mispredicted bool) {
	op := &e.Window.Ops[slot]
	op.Complete = true
	op.Mispredicted = mispredicted
	if op.UseDest {
		e.Scoreboard.MarkReady(op.Dest)
	}
}

// RetireOldest returns the oldest completed op in program order and frees
// its slot, or ok=false if the oldest valid slot has not yet completed.
// "Oldest" is the earliest-dispatched valid op, i.e. the lowest Age
// compared modulo 256 (dispatch order, not execution order).
func (e *Engine) RetireOldest() (op Operation, ok bool) {
	oldestSlot := -1
	var oldestAge uint8
	for i := 0; i < WindowSize; i++ {
		if !e.Window.Ops[i].Valid {
			continue
		}
		if oldestSlot < 0 || int8(e.Window.Ops[i].Age-oldestAge) < 0 {
			oldestSlot = i
			oldestAge = e.Window.Ops[i].Age
		}
	}
	if oldestSlot < 0 || !e.Window.Ops[oldestSlot].Complete {
		return Operation{}, false
	}

	retired := e.Window.Ops[oldestSlot]
	e.Window.Ops[oldestSlot] = Operation{}
	return retired, true
}
