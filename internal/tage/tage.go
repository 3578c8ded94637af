// Package tage implements a TAGE-style geometric-history branch predictor:
// the frontend oracle that drives each retired branch's Mispredicted flag
// feeding the H2P core (SPEC_FULL.md §C "domain stack"). Grounded on
// proto/tage/tage.go's 8-table geometric-history design, 4-way LRU
// allocation, and tag/context matching; trimmed of its per-gate
// picosecond accounting, which modeled ASIC timing closure rather than
// anything this simulator's retire-driven clock needs.
package tage

const (
	NumTables       = 8
	EntriesPerTable = 1024
	LRUSearchWidth  = 4

	NumContexts    = 8
	MaxCounter     = 7
	NeutralCounter = 4
	TakenThreshold = 4
	AgingInterval  = 1024

	validBitmapWords = EntriesPerTable / 32
)

// HistoryLengths is the geometric progression of per-table correlation
// depths; table 0 is the tag-free base predictor.
var HistoryLengths = [NumTables]int{0, 4, 8, 12, 16, 24, 32, 64}

// Entry is one tagged SRAM line.
type Entry struct {
	Tag     uint16
	Counter uint8
	Context uint8
	Useful  bool
	Taken   bool
	Age     uint8
}

// Table is one of the predictor's tagged tables, bound to a fixed
// geometric history length at construction.
type Table struct {
	Entries    [EntriesPerTable]Entry
	ValidBits  [validBitmapWords]uint32
	HistoryLen int
}

// Predictor is the complete 8-table TAGE predictor, indexed per hardware
// context so NUM_CORES disjoint cores never share history (spec.md §5's
// "state is disjoint" extends to the surrounding frontend).
type Predictor struct {
	Tables      [NumTables]Table
	History     [NumContexts]uint64
	BranchCount uint64
}

// New allocates a Predictor with every table's history length wired and
// its valid bits clear; tagged tables start with no entries, so every
// Predict falls back to the base predictor's zeroed counter (not-taken,
// confidence 0) until Update trains something.
func New() *Predictor {
	p := &Predictor{}
	for i := 0; i < NumTables; i++ {
		p.Tables[i].HistoryLen = HistoryLengths[i]
	}
	return p
}

func hashIndex(pc uint64, history uint64, historyLen int) uint32 {
	pcBits := uint32((pc >> 12) & 0x3FF)
	if historyLen == 0 {
		return pcBits
	}
	mask := uint64((1 << historyLen) - 1)
	h := history & mask
	folded := uint32(h)
	for folded > 0x3FF {
		folded = (folded & 0x3FF) ^ (folded >> 10)
	}
	return (pcBits ^ folded) & 0x3FF
}

func hashTag(pc uint64) uint16 {
	return uint16((pc >> 22) & 0x1FFF)
}

func validBit(table *Table, idx uint32) bool {
	return table.ValidBits[idx>>5]&(1<<(idx&31)) != 0
}

func setValidBit(table *Table, idx uint32) {
	table.ValidBits[idx>>5] |= 1 << (idx & 31)
}

// Predict returns the taken/not-taken call for pc under ctx's history,
// plus a saturation-derived confidence (2=high, 1=medium, 0=base
// predictor, no tagged-table hit).
//
// A tagged table only hits when both its tag and its Context match: this
// is what makes misprediction recovery in a hardware implementation
// immune to cross-context (Spectre v2 style) history poisoning, since one
// context's trained entries are simply invisible to another's lookups.
func (p *Predictor) Predict(pc uint64, ctx uint8) (taken bool, confidence uint8) {
	if ctx >= NumContexts {
		ctx = 0
	}
	history := p.History[ctx]
	tag := hashTag(pc)

	winner := -1
	var winCounter uint8
	var winTaken bool
	for i := 0; i < NumTables; i++ {
		table := &p.Tables[i]
		idx := hashIndex(pc, history, table.HistoryLen)
		if !validBit(table, idx) {
			continue
		}
		entry := &table.Entries[idx]
		if entry.Tag != tag || entry.Context != ctx {
			continue
		}
		// Tables are scanned shortest-history first; longer history
		// always wins ties, matching TAGE's "prefer the longest matching
		// history" rule.
		winner = i
		winCounter = entry.Counter
		winTaken = entry.Taken
	}

	if winner >= 0 {
		confidence = uint8(1)
		if winCounter <= 1 || winCounter >= MaxCounter-1 {
			confidence = 2
		}
		return winTaken, confidence
	}

	baseIdx := hashIndex(pc, 0, 0)
	return p.Tables[0].Entries[baseIdx].Counter >= TakenThreshold, 0
}

// Update trains the predictor with the branch's actual outcome: it
// refreshes a matching tagged entry in place, or allocates a fresh one in
// table 1 via 4-way LRU replacement when nothing matched (spec.md: "a
// predictor that never learns can't separate routine from hard-to-predict
// branches").
func (p *Predictor) Update(pc uint64, ctx uint8, taken bool) {
	if ctx >= NumContexts {
		ctx = 0
	}
	history := p.History[ctx]
	tag := hashTag(pc)

	matchedTable := -1
	var matchedIdx uint32
	for i := NumTables - 1; i >= 0; i-- {
		table := &p.Tables[i]
		idx := hashIndex(pc, history, table.HistoryLen)
		if !validBit(table, idx) {
			continue
		}
		entry := &table.Entries[idx]
		if entry.Tag == tag && entry.Context == ctx {
			matchedTable = i
			matchedIdx = idx
			break
		}
	}

	if matchedTable >= 0 {
		entry := &p.Tables[matchedTable].Entries[matchedIdx]
		if taken {
			if entry.Counter < MaxCounter {
				entry.Counter++
			}
		} else if entry.Counter > 0 {
			entry.Counter--
		}
		entry.Taken = taken
		entry.Useful = true
		entry.Age = 0
	} else {
		allocTable := &p.Tables[1]
		allocIdx := hashIndex(pc, history, allocTable.HistoryLen)
		victim := findLRUVictim(allocTable, allocIdx)
		allocTable.Entries[victim] = Entry{
			Tag:     tag,
			Context: ctx,
			Taken:   taken,
			Counter: NeutralCounter,
		}
		setValidBit(allocTable, victim)
	}

	p.History[ctx] <<= 1
	if taken {
		p.History[ctx] |= 1
	}

	p.BranchCount++
	if p.BranchCount >= AgingInterval {
		p.AgeAllEntries()
		p.BranchCount = 0
	}
}

// findLRUVictim picks a free slot within a 4-wide neighborhood of
// preferredIdx if one exists, else the oldest occupied one.
func findLRUVictim(table *Table, preferredIdx uint32) uint32 {
	var maxAge uint8
	victim := preferredIdx
	foundFree := false

	for offset := uint32(0); offset < LRUSearchWidth; offset++ {
		idx := (preferredIdx + offset) & (EntriesPerTable - 1)
		if !validBit(table, idx) {
			if !foundFree {
				victim = idx
				foundFree = true
			}
			continue
		}
		if foundFree {
			continue
		}
		if age := table.Entries[idx].Age; age > maxAge {
			maxAge = age
			victim = idx
		}
	}
	return victim
}

// AgeAllEntries increments every valid entry's LRU age (saturating),
// creating the age gradient findLRUVictim relies on.
func (p *Predictor) AgeAllEntries() {
	for t := 0; t < NumTables; t++ {
		table := &p.Tables[t]
		for i := range table.Entries {
			if !validBit(table, uint32(i)) {
				continue
			}
			if table.Entries[i].Age < 7 {
				table.Entries[i].Age++
			}
		}
	}
}

// Reset clears history and every tagged table's valid bits, keeping only
// the base predictor's initialized counters. Used between independent
// simulation runs that share a *Predictor instance.
func (p *Predictor) Reset() {
	for ctx := 0; ctx < NumContexts; ctx++ {
		p.History[ctx] = 0
	}
	for t := 1; t < NumTables; t++ {
		for w := range p.Tables[t].ValidBits {
			p.Tables[t].ValidBits[w] = 0
		}
	}
	p.BranchCount = 0
}

// Stats reports per-table occupancy, useful for frontend logging.
type Stats struct {
	BranchCount uint64
	EntriesUsed [NumTables]int
}

func (p *Predictor) Stats() Stats {
	var s Stats
	s.BranchCount = p.BranchCount
	for i := range p.Tables {
		for w := range p.Tables[i].ValidBits {
			s.EntriesUsed[i] += popcount32(p.Tables[i].ValidBits[w])
		}
	}
	return s
}

func popcount32(w uint32) int {
	n := 0
	for w != 0 {
		w &= w - 1
		n++
	}
	return n
}
