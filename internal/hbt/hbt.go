// Package hbt implements the Hard Branch Table (C1): a per-PC saturating
// counter that identifies branches as hard-to-predict (H2P) under tag
// aliasing. Grounded on original_source/src/bp/hbt.c, carried over field
// for field — including the aliasing-skip behavior that leaves
// retired_branch_count un-advanced on a tag miss (spec.md §9 open
// question 1; this port preserves the original's behavior rather than
// "fixing" it).
package hbt

const (
	// Size is the number of direct-mapped entries (HBT_SIZE).
	Size = 1024

	// CounterBits is K in spec.md §3; CtrMax = 2^K - 1.
	CounterBits = 5
	CtrMax      = (1 << CounterBits) - 1 // 31

	// DecayPeriod and DecayAmount are HBT_DECAY_PERIOD / HBT_DECAY_AMOUNT.
	DecayPeriod = 1000
	DecayAmount = 15
)

// entry is a single (tag, counter) pair.
type entry struct {
	tag     uint64
	counter uint32
}

// Table is one core's Hard Branch Table plus its retirement counter. It is
// not safe for concurrent use; per spec.md §5 the surrounding pipeline is
// single-threaded cooperative per core.
type Table struct {
	entries            [Size]entry
	retiredBranchCount uint64
}

// New returns a zeroed HBT, equivalent to calling hbt_init() once.
func New() *Table {
	return &Table{}
}

// Reset zeros every entry and the retired-branch counter.
func (t *Table) Reset() {
	t.entries = [Size]entry{}
	t.retiredBranchCount = 0
}

func index(pc uint64) uint32 { return uint32(pc % Size) }
func tagOf(pc uint64) uint64 { return pc / Size }

// Update runs the exact HBT update algorithm from spec.md §4.1 for a
// single retired branch. mispred should be op.Mispredicted || op.Misfetched
// — the caller (internal/core) computes that OR, since hbt itself only
// tracks PCs and one boolean.
func (t *Table) Update(pc uint64, mispred bool) {
	idx := index(pc)
	tag := tagOf(pc)
	e := &t.entries[idx]

	if e.tag != tag {
		if e.counter == 0 {
			// Entry is unclaimed; take it over for this PC.
			e.tag = tag
			e.counter = 0
		} else {
			// Aliased by a branch whose counter is still nonzero: skip entirely,
			// including the decay tick (spec.md §9 open question 1).
			return
		}
	}

	if mispred {
		if e.counter < CtrMax {
			e.counter++
		}
	}

	t.retiredBranchCount++
	if t.retiredBranchCount%DecayPeriod == 0 {
		t.decay()
	}
}

// decay subtracts DecayAmount from every counter, saturating at zero.
func (t *Table) decay() {
	for i := range t.entries {
		c := t.entries[i].counter
		if c > DecayAmount {
			t.entries[i].counter = c - DecayAmount
		} else {
			t.entries[i].counter = 0
		}
	}
}

// IsHard reports whether pc's entry is tag-matched and saturated.
func (t *Table) IsHard(pc uint64) bool {
	idx := index(pc)
	tag := tagOf(pc)
	e := &t.entries[idx]
	return e.tag == tag && e.counter == CtrMax
}

// Counter returns pc's counter value on a tag match, else 0.
func (t *Table) Counter(pc uint64) uint32 {
	idx := index(pc)
	tag := tagOf(pc)
	e := &t.entries[idx]
	if e.tag == tag {
		return e.counter
	}
	return 0
}

// RetiredBranchCount exposes the internal decay-trigger counter, mostly
// for tests that want to assert on decay timing without retiring exactly
// 1000 branches at a single PC.
func (t *Table) RetiredBranchCount() uint64 {
	return t.retiredBranchCount
}
