package dcc

import (
	"testing"

	"github.com/Hong-git007/scarab-guell/internal/bse"
	"github.com/Hong-git007/scarab-guell/internal/liws"
	"github.com/Hong-git007/scarab-guell/internal/op"
)

func validOp(o op.Op) op.Op {
	o.TableInfoValid = true
	o.InstInfoValid = true
	return o
}

// S2 — pure data slice, end to end through BSE -> DCC.
func TestDCC_S2_WriteThenGet(t *testing.T) {
	const pc = 0x4000
	a := validOp(op.Op{OpNum: 1, Dests: []uint32{1}, Srcs: []uint32{2}})
	b := validOp(op.Op{OpNum: 2, Dests: []uint32{3}, Srcs: []uint32{1}})
	c := validOp(op.Op{OpNum: 3, PC: pc, Srcs: []uint32{3}, IsHard: true})
	ops := []op.Op{a, b, c}

	res := bse.Extract(ops, liws.New())
	cache := New()
	cache.Write(ops, res)

	entry, ok := cache.Get(pc)
	if !ok {
		t.Fatalf("Get(pc) miss, want hit")
	}
	if entry.AnchorOpNum != 3 {
		t.Fatalf("AnchorOpNum = %d, want 3", entry.AnchorOpNum)
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

func TestDCC_GetMissOnUnwrittenEntry(t *testing.T) {
	cache := New()
	if _, ok := cache.Get(0x1234); ok {
		t.Fatalf("Get on empty cache returned a hit")
	}
}

func TestDCC_GetMissOnTagCollision(t *testing.T) {
	const pcA = 0x10
	pcB := uint64(0x10 + Size) // same index, different tag

	ops := []op.Op{validOp(op.Op{OpNum: 1, PC: pcA, IsHard: true})}
	res := bse.Extract(ops, liws.New())
	cache := New()
	cache.Write(ops, res)

	if _, ok := cache.Get(pcB); ok {
		t.Fatalf("Get(pcB) hit on a colliding index with a different tag")
	}
}

func TestDCC_WriteIsIdempotentOnIdenticalSlices(t *testing.T) {
	const pc = 0x20
	ops := []op.Op{validOp(op.Op{OpNum: 1, PC: pc, IsHard: true})}
	res := bse.Extract(ops, liws.New())

	cache := New()
	cache.Write(ops, res)
	first, _ := cache.Get(pc)
	cache.Write(ops, res)
	second, _ := cache.Get(pc)

	if first.AnchorOpNum != second.AnchorOpNum || len(first.Chain) != len(second.Chain) {
		t.Fatalf("writing the same slice twice produced different entries: %+v vs %+v", first, second)
	}
}

func TestDCC_ChainLengthNeverExceedsMax(t *testing.T) {
	const pc = 0x30
	ops := make([]op.Op, 0, MaxChainLength+10)
	for i := 0; i < MaxChainLength+10; i++ {
		ops = append(ops, validOp(op.Op{OpNum: uint64(i) + 1, Dests: []uint32{1}, Srcs: []uint32{1}}))
	}
	ops[0].Srcs = nil // oldest def needs no source to stay alive
	trigger := validOp(op.Op{OpNum: uint64(len(ops)) + 1, PC: pc, Srcs: []uint32{1}, IsHard: true})
	ops = append(ops, trigger)

	res := bse.Extract(ops, liws.New())
	cache := New()
	cache.Write(ops, res)

	entry, ok := cache.Get(pc)
	if !ok {
		t.Fatalf("Get(pc) miss")
	}
	if len(entry.Chain) > MaxChainLength {
		t.Fatalf("Chain length = %d, exceeds MaxChainLength %d", len(entry.Chain), MaxChainLength)
	}
	for _, c := range entry.Chain {
		if c.OpNum > entry.AnchorOpNum {
			t.Fatalf("Chain contains OpNum %d > AnchorOpNum %d", c.OpNum, entry.AnchorOpNum)
		}
	}
}
