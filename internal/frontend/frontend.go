// Package frontend drives the suprax execution backend, the sched
// instruction window, and the tage branch predictor together into a
// single-op-per-Step harness that retires op.Op values for core.Manager
// to consume (SPEC_FULL.md §C, "domain stack"). There is no single
// original_source/ file this corresponds to: the original system received
// its op stream from a separate, much larger trace-driven pipeline model
// that this exercise's scope does not reproduce in full; this package is
// the minimal generator needed to drive every core.Manager entry point
// with realistic, register-dependent traffic.
package frontend

import (
	"github.com/Hong-git007/scarab-guell/internal/op"
	"github.com/Hong-git007/scarab-guell/internal/sched"
	"github.com/Hong-git007/scarab-guell/internal/suprax"
	"github.com/Hong-git007/scarab-guell/internal/tage"
)

// Engine is one core's instruction stream generator: a flat memory holding
// a loaded program, an architectural register file, a branch predictor,
// and an instruction window.
//
// Step retires exactly one op per call (or none, on a stall), rather than
// modeling per-op execution latency and issue width the way sched's
// ScheduleCycle0/ScheduleCycle1 can: the H2P core's external interface
// (spec.md §6) only observes retirement order and op content, never
// mid-pipeline occupancy, so a single-op-per-Step harness drives it with
// no loss of fidelity.
type Engine struct {
	mem       *suprax.Memory
	registers [16]uint64
	pc        uint64

	predictor *tage.Predictor
	coreID    uint8

	scheduler *sched.Engine

	flagNotEqual bool
	nextOpNum    uint64
}

// New allocates a frontend for one core, sized memSizeBytes, sharing
// predictor across every core that was constructed with the same
// *tage.Predictor if the caller wants shared history, or given one
// *tage.Predictor per core for the disjoint-state default (spec.md §5).
func New(memSizeBytes uint64, predictor *tage.Predictor, coreID uint8) *Engine {
	return &Engine{
		mem:       suprax.NewMemory(memSizeBytes),
		predictor: predictor,
		coreID:    coreID,
		scheduler: sched.New(),
	}
}

// LoadProgram writes a sequence of 16-bit instruction words starting at
// byte address base.
func (e *Engine) LoadProgram(base uint64, words []uint16) {
	for i, w := range words {
		addr := base + uint64(i)*2
		existing := e.mem.Load(addr &^ 0x7)
		offset := (addr & 0x7) >> 1
		cleared := existing &^ (uint64(0xFFFF) << (offset * 16))
		e.mem.Store(addr&^0x7, cleared|(uint64(w)<<(offset*16)))
	}
}

// SetRegister seeds architectural register r with an initial value,
// primarily used to set up deterministic test programs.
func (e *Engine) SetRegister(r uint8, v uint64) {
	if r < 16 {
		e.registers[r] = v
	}
}

// PC returns the current program counter, for tests that need to assert
// control flow landed where expected.
func (e *Engine) PC() uint64 { return e.pc }

// SetPC moves the fetch point, e.g. to start execution at a loaded
// program's entry address.
func (e *Engine) SetPC(pc uint64) { e.pc = pc }

// Step fetches and decodes the instruction at PC, resolves it (predicting
// and then recording the real outcome for branches, executing the ALU/
// memory op otherwise), advances PC, and retires the oldest completed op
// in the instruction window. Returns ok=false when the window is full or
// nothing was ready to retire yet (a caller that discards this op should
// simply call Step again; it does not indicate an error).
func (e *Engine) Step() (op.Op, bool) {
	instr := suprax.Fetch(e.mem, e.pc)
	decoded := suprax.DecodeInstruction(instr)

	e.nextOpNum++
	opNum := e.nextOpNum
	issuePC := e.pc

	var mispredicted bool
	nextPC := e.pc + 2

	if decoded.IsBranch {
		predictedTaken, _ := e.predictor.Predict(issuePC, e.coreID)
		actualTaken := e.flagNotEqual
		e.predictor.Update(issuePC, e.coreID, actualTaken)
		mispredicted = predictedTaken != actualTaken
		if actualTaken {
			nextPC = uint64(int64(issuePC) + 2 + int64(decoded.BranchOff)*2)
		}
	}

	useDest := !decoded.IsBranch && decoded.Opcode != suprax.OpCMP && decoded.Opcode != suprax.OpMOVS
	slot, ok := e.scheduler.Dispatch(opNum, issuePC, decoded.Src1, decoded.Src2, decoded.Dst, useDest, decoded.IsBranch)
	if !ok {
		return op.Op{}, false
	}

	if !decoded.IsBranch {
		e.execute(decoded)
	}

	e.scheduler.Complete(slot, mispredicted)
	e.pc = nextPC

	retired, ok := e.scheduler.RetireOldest()
	if !ok {
		return op.Op{}, false
	}
	return toOp(retired), true
}

func (e *Engine) execute(decoded suprax.Instruction) {
	var operandA, operandB uint64
	if decoded.Opcode == suprax.OpADDI || decoded.Opcode == suprax.OpMOVI {
		operandA, operandB = e.registers[decoded.Src1], uint64(decoded.Imm)
	} else {
		operandA, operandB = e.registers[decoded.Src1], e.registers[decoded.Src2]
	}

	switch decoded.Opcode {
	case suprax.OpMOVL:
		e.registers[decoded.Dst] = e.mem.Load(operandA)
	case suprax.OpMOVS:
		e.mem.Store(operandA, operandB)
	case suprax.OpCMP:
		e.flagNotEqual = suprax.ExecuteALU(suprax.OpCMP, operandA, operandB) != 0
	default:
		e.registers[decoded.Dst] = suprax.ExecuteALU(decoded.Opcode, operandA, operandB)
	}
}

// toOp converts a retired scheduler slot into the external Op record the
// H2P core consumes (spec.md §4 input). Register ids at or above
// liws.MaxRegBit are still carried through; the core silently ignores the
// ones its LIWS bit-vector can't represent (spec.md §9 open question 4).
func toOp(retired sched.Operation) op.Op {
	o := op.Op{
		OpNum:          retired.OpNum,
		PC:             retired.PC,
		TableInfoValid: true,
		InstInfoValid:  true,
	}
	if retired.IsBranch {
		o.OpType = op.OpBranch
		o.CFType = op.CFConditionalBranch
		o.Mispredicted = retired.Mispredicted
	} else {
		o.OpType = op.OpALU
		o.CFType = op.NotCF
	}
	if retired.Src1 != 0 || retired.Src2 != 0 {
		o.Srcs = []uint32{uint32(retired.Src1), uint32(retired.Src2)}
	}
	if retired.UseDest {
		o.Dests = []uint32{uint32(retired.Dest)}
	}
	return o
}
