package suprax

import "testing"

func TestDecodeInstruction_RegisterRegisterFormat(t *testing.T) {
	// ADD R1, R2 -> opcode=0x0, dst=2, src1=1, src2=0
	instr := DecodeInstruction(0x0210)
	if instr.Opcode != OpADD || instr.Dst != 2 || instr.Src1 != 1 || instr.IsBranch {
		t.Fatalf("DecodeInstruction(0x0210) = %+v, want ADD R1,R2", instr)
	}
}

func TestDecodeInstruction_BranchFormatIsDistinctFromMoveImmediate(t *testing.T) {
	mov := DecodeInstruction(0xF012)
	if mov.IsBranch {
		t.Fatalf("DecodeInstruction(0xF012) decoded as a branch, want MOVI")
	}
	branch := DecodeInstruction(0xF812) // MOVI opcode with the branch flag bit set
	if !branch.IsBranch {
		t.Fatalf("DecodeInstruction(0xF812) did not decode as a branch")
	}
}

func TestDecodeInstruction_BranchOffsetSignExtends(t *testing.T) {
	forward := DecodeInstruction(0xF800) // offset 0
	if forward.BranchOff != 0 {
		t.Fatalf("BranchOff = %d, want 0", forward.BranchOff)
	}
	backward := DecodeInstruction(0xFFFF) // all offset bits set -> -1
	if backward.BranchOff != -1 {
		t.Fatalf("BranchOff = %d, want -1", backward.BranchOff)
	}
}

func TestBarrelShift_LeftAndRight(t *testing.T) {
	if got := BarrelShift(1, 4, true); got != 16 {
		t.Fatalf("BarrelShift(1, 4, left) = %d, want 16", got)
	}
	if got := BarrelShift(16, 4, false); got != 1 {
		t.Fatalf("BarrelShift(16, 4, right) = %d, want 1", got)
	}
}

func TestDivide_ExactDivision(t *testing.T) {
	q, r := Divide(100, 10)
	if q != 10 || r != 0 {
		t.Fatalf("Divide(100, 10) = (%d, %d), want (10, 0)", q, r)
	}
}

func TestDivide_ByZeroSaturates(t *testing.T) {
	q, _ := Divide(42, 0)
	if q != ^uint64(0) {
		t.Fatalf("Divide(42, 0) quotient = %d, want max uint64", q)
	}
}

func TestExecuteALU_Arithmetic(t *testing.T) {
	if got := ExecuteALU(OpADD, 2, 3); got != 5 {
		t.Fatalf("ExecuteALU(ADD, 2, 3) = %d, want 5", got)
	}
	if got := ExecuteALU(OpSUB, 5, 3); got != 2 {
		t.Fatalf("ExecuteALU(SUB, 5, 3) = %d, want 2", got)
	}
	if got := ExecuteALU(OpNOT, 0, 0); got != ^uint64(0) {
		t.Fatalf("ExecuteALU(NOT, 0, 0) = %d, want max uint64", got)
	}
}

func TestExecuteALU_Compare(t *testing.T) {
	if got := ExecuteALU(OpCMP, 3, 3); got != 0 {
		t.Fatalf("ExecuteALU(CMP, 3, 3) = %d, want 0 (equal)", got)
	}
	if got := ExecuteALU(OpCMP, 1, 3); got != 1 {
		t.Fatalf("ExecuteALU(CMP, 1, 3) = %d, want 1 (less than)", got)
	}
	if got := ExecuteALU(OpCMP, 3, 1); got != 2 {
		t.Fatalf("ExecuteALU(CMP, 3, 1) = %d, want 2 (greater than)", got)
	}
}

func TestMemory_StoreThenLoadRoundTrips(t *testing.T) {
	m := NewMemory(64)
	m.Store(8, 0xDEADBEEF)
	if got := m.Load(8); got != 0xDEADBEEF {
		t.Fatalf("Load(8) = %#x, want 0xDEADBEEF", got)
	}
}

func TestMemory_OutOfBoundsAccessIsANoOp(t *testing.T) {
	m := NewMemory(16)
	m.Store(1000, 42) // must not panic
	if got := m.Load(1000); got != 0 {
		t.Fatalf("Load(1000) = %d, want 0 for an out-of-bounds address", got)
	}
}

func TestFetch_ExtractsCorrectHalfWord(t *testing.T) {
	m := NewMemory(16)
	m.Store(0, 0x1111222233334444)
	if got := Fetch(m, 0); got != 0x4444 {
		t.Fatalf("Fetch(pc=0) = %#x, want 0x4444 (lowest half-word)", got)
	}
	if got := Fetch(m, 2); got != 0x3333 {
		t.Fatalf("Fetch(pc=2) = %#x, want 0x3333", got)
	}
}
