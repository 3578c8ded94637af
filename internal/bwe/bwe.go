// Package bwe implements the Backward-Walk Engine (C7): a latency-modeled
// state machine that, once armed by an H2P push into the RRB, snapshots
// the buffer and runs BSE -> DCC -> BCC/EBTS after a fixed cycle budget.
// Grounded on spec.md §4.7; there is no equivalent countdown state machine
// in original_source/, which runs the chain-cache writers synchronously
// inline with retirement, so this is spec.md's own generalization rather
// than a line-by-line port.
package bwe

import (
	"github.com/Hong-git007/scarab-guell/internal/bcc"
	"github.com/Hong-git007/scarab-guell/internal/bse"
	"github.com/Hong-git007/scarab-guell/internal/dcc"
	"github.com/Hong-git007/scarab-guell/internal/liws"
	"github.com/Hong-git007/scarab-guell/internal/op"
)

// State names the BWE's two variants (spec.md §3's "BWE state").
type State int

const (
	Idle State = iota
	Walking
)

// RRB is the slice of rrb.Buffer's behavior the BWE needs: a snapshot to
// arm with, freeze control, and a reset on completion. An interface here
// keeps bwe from importing rrb, matching the one-directional wiring
// internal/core already uses for rrb.Evictor.
type RRB interface {
	Snapshot() []op.Op
	SetFrozen(bool)
	Reset()
}

// Engine drives one core's walk. Not safe for concurrent use; spec.md §5
// models a single core as single-threaded.
type Engine struct {
	state           State
	cyclesRemaining int
	snapshot        []op.Op
	walkLatency     int
	live            *liws.Set
	dccCache        *dcc.Cache
	bccCache        *bcc.Cache
}

// New returns an Idle engine. walkLatency is WALK_LATENCY (spec.md §6); a
// value of 0 means the walk's result lands in the same cycle it was armed.
func New(walkLatency int, dccCache *dcc.Cache, bccCache *bcc.Cache) *Engine {
	if walkLatency < 0 {
		walkLatency = 0
	}
	return &Engine{
		walkLatency: walkLatency,
		live:        liws.New(),
		dccCache:    dccCache,
		bccCache:    bccCache,
	}
}

// State reports the engine's current variant.
func (e *Engine) State() State { return e.state }

// Arm transitions Idle -> Walking{remaining: WALK_LATENCY, snapshot}, given
// the RRB's current contents and a hook to freeze it (spec.md §4.7). Arm
// is a no-op if the engine is already Walking: the RRB only arms the BWE
// on the push that causes the Idle -> Walking transition, so a caller that
// (incorrectly) calls Arm again mid-walk must not lose the in-flight walk.
func (e *Engine) Arm(rb RRB) {
	if e.state == Walking {
		return
	}
	e.state = Walking
	e.cyclesRemaining = e.walkLatency
	e.snapshot = rb.Snapshot()
	rb.SetFrozen(true)
}

// Cycle advances the countdown by one simulator cycle (cycle_bwe,
// spec.md §4.7/§6). When the countdown reaches zero it runs BSE over the
// snapshot, writes DCC and BCC/EBTS, unfreezes and clears the RRB, and
// returns to Idle.
func (e *Engine) Cycle(rb RRB) {
	if e.state != Walking {
		return
	}
	if e.cyclesRemaining > 0 {
		e.cyclesRemaining--
		return
	}

	res := bse.Extract(e.snapshot, e.live)
	if res.Found {
		e.dccCache.Write(e.snapshot, res)
		e.bccCache.Write(e.snapshot, res)
	}

	e.snapshot = nil
	rb.SetFrozen(false)
	rb.Reset()
	e.state = Idle
}
