package bwe

import (
	"testing"

	"github.com/Hong-git007/scarab-guell/internal/bcc"
	"github.com/Hong-git007/scarab-guell/internal/dcc"
	"github.com/Hong-git007/scarab-guell/internal/op"
	"github.com/Hong-git007/scarab-guell/internal/rrb"
)

func validOp(o op.Op) op.Op {
	o.TableInfoValid = true
	o.InstInfoValid = true
	return o
}

func TestBWE_StartsIdle(t *testing.T) {
	e := New(0, dcc.New(), bcc.New())
	if e.State() != Idle {
		t.Fatalf("State() = %v, want Idle", e.State())
	}
}

func TestBWE_ArmTransitionsToWalkingAndFreezesRRB(t *testing.T) {
	buf := rrb.New(8)
	buf.Push(validOp(op.Op{OpNum: 1, IsHard: true}), nil)

	e := New(5, dcc.New(), bcc.New())
	e.Arm(buf)

	if e.State() != Walking {
		t.Fatalf("State() = %v, want Walking", e.State())
	}
	if !buf.Frozen() {
		t.Fatalf("RRB not frozen after Arm")
	}
}

// S2-equivalent: WALK_LATENCY=0, immediate completion on the first Cycle.
func TestBWE_ZeroLatencyCompletesOnFirstCycle(t *testing.T) {
	buf := rrb.New(8)
	a := validOp(op.Op{OpNum: 1, Dests: []uint32{1}})
	b := validOp(op.Op{OpNum: 2, Srcs: []uint32{1}, Dests: []uint32{3}})
	c := validOp(op.Op{OpNum: 3, PC: 0x4000, Srcs: []uint32{3}, IsHard: true})
	buf.Push(a, nil)
	buf.Push(b, nil)
	buf.Push(c, nil)

	dccCache := dcc.New()
	bccCache := bcc.New()
	e := New(0, dccCache, bccCache)
	e.Arm(buf)
	e.Cycle(buf)

	if e.State() != Idle {
		t.Fatalf("State() = %v, want Idle after zero-latency completion", e.State())
	}
	if buf.Frozen() {
		t.Fatalf("RRB still frozen after completion")
	}
	if buf.Len() != 0 {
		t.Fatalf("RRB.Len() = %d, want 0 after completion's reset", buf.Len())
	}

	entry, ok := dccCache.Get(0x4000)
	if !ok {
		t.Fatalf("DCC Get(pc_C) miss, want hit")
	}
	wantOpNums := []uint64{1, 2, 3}
	if len(entry.Chain) != len(wantOpNums) {
		t.Fatalf("Chain length = %d, want %d", len(entry.Chain), len(wantOpNums))
	}
	for i, want := range wantOpNums {
		if entry.Chain[i].OpNum != want {
			t.Fatalf("Chain[%d].OpNum = %d, want %d", i, entry.Chain[i].OpNum, want)
		}
	}
}

func TestBWE_NonZeroLatencyCountsDownBeforeCompleting(t *testing.T) {
	buf := rrb.New(8)
	buf.Push(validOp(op.Op{OpNum: 1, PC: 0x10, IsHard: true}), nil)

	e := New(3, dcc.New(), bcc.New())
	e.Arm(buf)

	for i := 0; i < 3; i++ {
		e.Cycle(buf)
		if e.State() != Walking {
			t.Fatalf("State() = %v after cycle %d, want still Walking", e.State(), i)
		}
	}
	e.Cycle(buf)
	if e.State() != Idle {
		t.Fatalf("State() = %v after final cycle, want Idle", e.State())
	}
}

func TestBWE_ArmIsNoOpWhileAlreadyWalking(t *testing.T) {
	buf := rrb.New(8)
	buf.Push(validOp(op.Op{OpNum: 1, PC: 0x10, IsHard: true}), nil)

	e := New(5, dcc.New(), bcc.New())
	e.Arm(buf)
	snapshotLenAfterFirstArm := len(e.snapshot)

	buf.Push(validOp(op.Op{OpNum: 2, PC: 0x20, IsHard: true}), nil) // dropped: frozen
	e.Arm(buf)                                                      // must not re-snapshot

	if len(e.snapshot) != snapshotLenAfterFirstArm {
		t.Fatalf("snapshot length changed after re-Arm while Walking: %d vs %d", len(e.snapshot), snapshotLenAfterFirstArm)
	}
}

func TestBWE_CycleIsNoOpWhileIdle(t *testing.T) {
	buf := rrb.New(8)
	e := New(5, dcc.New(), bcc.New())
	e.Cycle(buf) // must not panic or change state
	if e.State() != Idle {
		t.Fatalf("State() = %v, want Idle", e.State())
	}
}
