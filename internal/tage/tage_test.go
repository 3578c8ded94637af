package tage

import "testing"

func TestNew_ColdPredictorDefaultsToNotTaken(t *testing.T) {
	p := New()
	taken, confidence := p.Predict(0x1000, 0)
	if taken {
		t.Fatalf("Predict() on a cold predictor = taken, want not-taken (no tagged-table hit yet)")
	}
	if confidence != 0 {
		t.Fatalf("confidence = %d, want 0 for a cold no-hit prediction", confidence)
	}
}

func TestUpdate_RepeatedTakenConvergesToTakenPrediction(t *testing.T) {
	p := New()
	const pc = 0x2000
	for i := 0; i < 20; i++ {
		p.Update(pc, 0, true)
	}
	taken, _ := p.Predict(pc, 0)
	if !taken {
		t.Fatalf("Predict() after repeated taken training = not-taken, want taken")
	}
}

func TestUpdate_FirstCallAllocatesATaggedEntry(t *testing.T) {
	p := New()
	before := p.Stats()
	p.Update(0x3000, 0, true)
	after := p.Stats()

	grew := false
	for i := 1; i < NumTables; i++ {
		if after.EntriesUsed[i] > before.EntriesUsed[i] {
			grew = true
			break
		}
	}
	if !grew {
		t.Fatalf("first Update() on a fresh pc did not allocate a tagged-table entry")
	}
}

func TestPredict_ContextsAreIsolated(t *testing.T) {
	p := New()
	const pc = 0x4000
	for i := 0; i < 20; i++ {
		p.Update(pc, 0, true)
	}
	taken, _ := p.Predict(pc, 1)
	if taken {
		t.Fatalf("Predict() on an untrained context returned taken, want not-taken (contexts must not share history)")
	}
}

func TestPredict_OutOfRangeContextFallsBackToZero(t *testing.T) {
	p := New()
	const pc = 0x5000
	for i := 0; i < 20; i++ {
		p.Update(pc, 0, true)
	}
	taken, _ := p.Predict(pc, 200)
	if !taken {
		t.Fatalf("Predict() with an out-of-range context did not fall back to context 0's trained state")
	}
}

func TestReset_ClearsHistoryAndTaggedTables(t *testing.T) {
	p := New()
	const pc = 0x6000
	for i := 0; i < 20; i++ {
		p.Update(pc, 0, true)
	}
	p.Reset()
	if p.BranchCount != 0 {
		t.Fatalf("BranchCount after Reset() = %d, want 0", p.BranchCount)
	}
	taken, confidence := p.Predict(pc, 0)
	if taken || confidence != 0 {
		t.Fatalf("Predict() after Reset() = (%v, %d), want (false, 0)", taken, confidence)
	}
}

func TestUpdate_AgesTaggedEntriesAfterAnAgingInterval(t *testing.T) {
	p := New()
	for i := 0; i < AgingInterval; i++ {
		p.Update(uint64(0x10000+i*8), 0, i%2 == 0)
	}
	sawValid := false
	table := &p.Tables[1]
	for idx := range table.Entries {
		if !validBit(table, uint32(idx)) {
			continue
		}
		sawValid = true
		if table.Entries[idx].Age == 0 {
			t.Fatalf("table 1 entry %d still has Age=0 after a full aging interval elapsed", idx)
		}
	}
	if !sawValid {
		t.Fatalf("expected table 1 to hold allocated entries after the test loop")
	}
}

func TestPredict_ReportsConfidenceOnceATaggedEntryExists(t *testing.T) {
	p := New()
	const pc = 0x7000
	for i := 0; i < 40; i++ {
		p.Update(pc, 0, i%3 != 0)
	}
	_, confidence := p.Predict(pc, 0)
	if confidence == 0 {
		t.Fatalf("Predict() reported no tagged-table hit after 40 rounds of training")
	}
}
