// Package core wires the eight standalone components (C1-C8) plus this
// package's own periodic maintenance and lookup API (C9-C10) into the
// external interface spec.md §6 exposes to the surrounding pipeline:
// retire, cycle_bwe, periodically_reset_caches, and the read-only lookup
// functions. Grounded on spec.md §6; there is no single original_source/
// file this corresponds to since the original scatters these entry
// points across fill_buffer.c/hbt.c/on_off_path_cache.c's callers.
package core

import (
	"github.com/pkg/errors"

	"github.com/Hong-git007/scarab-guell/internal/bcc"
	"github.com/Hong-git007/scarab-guell/internal/bwe"
	"github.com/Hong-git007/scarab-guell/internal/dcc"
	"github.com/Hong-git007/scarab-guell/internal/hbt"
	"github.com/Hong-git007/scarab-guell/internal/oopr"
	"github.com/Hong-git007/scarab-guell/internal/op"
	"github.com/Hong-git007/scarab-guell/internal/rrb"
)

// Config bundles the sizing knobs spec.md §6's configuration table names
// that this package needs at init time; the rest (HBT_SIZE, DCC_SIZE, ...)
// are compile-time constants in their owning packages.
type Config struct {
	NumCores    int
	RRBSize     int
	WalkLatency int
}

// Core is one core's disjoint instance of every component (spec.md §5:
// "state is disjoint" across cores).
type Core struct {
	id   int
	hbt  *hbt.Table
	rrb  *rrb.Buffer
	oopr *oopr.Cache
	dcc  *dcc.Cache
	bcc  *bcc.Cache
	bwe  *bwe.Engine
}

// Manager owns NUM_CORES disjoint Core instances.
type Manager struct {
	cores []*Core
}

// New allocates NUM_CORES cores, each with its own RRB, OOPR cache, DCC,
// BCC/EBTS, HBT, and BWE — the combined effect of hbt_init, rrb_init,
// init_dep_chain_caches, and init_on_off_path_cache (spec.md §6). Returns
// an error if cfg is invalid; allocation failure at init is fatal per
// spec.md §7, and in Go that means returning an error the caller must not
// ignore, rather than aborting the process directly.
func New(cfg Config) (*Manager, error) {
	if cfg.NumCores <= 0 {
		return nil, errors.New("core: NumCores must be positive")
	}
	rrbSize := cfg.RRBSize
	if rrbSize <= 0 {
		rrbSize = rrb.DefaultSize
	}

	cores := make([]*Core, cfg.NumCores)
	for i := range cores {
		dccCache := dcc.New()
		bccCache := bcc.New()
		cores[i] = &Core{
			id:   i,
			hbt:  hbt.New(),
			rrb:  rrb.New(rrbSize),
			oopr: oopr.New(),
			dcc:  dccCache,
			bcc:  bccCache,
			bwe:  bwe.New(cfg.WalkLatency, dccCache, bccCache),
		}
	}
	return &Manager{cores: cores}, nil
}

func (m *Manager) core(coreID int) (*Core, error) {
	if coreID < 0 || coreID >= len(m.cores) {
		return nil, errors.Errorf("core: core id %d out of range [0,%d)", coreID, len(m.cores))
	}
	return m.cores[coreID], nil
}

// Retire implements retire(core, op) (spec.md §4 control-flow summary,
// §6): updates HBT if op is a branch, stamps Op.IsHard from the result,
// pushes the (possibly re-stamped) op into the RRB — which may itself
// invoke OOPR on eviction — and arms BWE if the push was a newly-idle
// H2P admission.
func (m *Manager) Retire(coreID int, o op.Op) error {
	c, err := m.core(coreID)
	if err != nil {
		return err
	}

	if o.IsBranch() {
		mispred := o.Mispredicted || o.Misfetched
		c.hbt.Update(o.PC, mispred)
		o.IsHard = c.hbt.IsHard(o.PC)
	}

	admitted := c.rrb.Push(o, c.oopr)
	if admitted && o.IsHard && c.bwe.State() == bwe.Idle {
		c.bwe.Arm(c.rrb)
	}
	return nil
}

// CycleBWE implements cycle_bwe(core): advances the BWE state machine by
// one simulator cycle (spec.md §4.7/§6).
func (m *Manager) CycleBWE(coreID int) error {
	c, err := m.core(coreID)
	if err != nil {
		return err
	}
	c.bwe.Cycle(c.rrb)
	return nil
}

// PeriodicallyResetCaches implements periodically_reset_caches(core):
// clears BCC masks/chains and the EBTS (spec.md §4.9). HBT decay is
// internal to hbt_update and deliberately not touched here.
func (m *Manager) PeriodicallyResetCaches(coreID int) error {
	c, err := m.core(coreID)
	if err != nil {
		return err
	}
	c.bcc.ResetMasks()
	return nil
}

// HBTIsHard implements hbt_is_hard(pc) (spec.md §4.1/§4.10).
func (m *Manager) HBTIsHard(coreID int, pc uint64) (bool, error) {
	c, err := m.core(coreID)
	if err != nil {
		return false, err
	}
	return c.hbt.IsHard(pc), nil
}

// HBTGetCounter implements hbt_get_counter(pc) (spec.md §4.1/§4.10).
func (m *Manager) HBTGetCounter(coreID int, pc uint64) (uint32, error) {
	c, err := m.core(coreID)
	if err != nil {
		return 0, err
	}
	return c.hbt.Counter(pc), nil
}

// GetDependencyChain implements get_dependency_chain(core, pc)
// (spec.md §4.5/§4.10).
func (m *Manager) GetDependencyChain(coreID int, pc uint64) (dcc.Entry, bool, error) {
	c, err := m.core(coreID)
	if err != nil {
		return dcc.Entry{}, false, err
	}
	entry, ok := c.dcc.Get(pc)
	return entry, ok, nil
}

// GetDependencyChainBlock implements get_dependency_chain_block(core, pc)
// (spec.md §4.6/§4.10).
func (m *Manager) GetDependencyChainBlock(coreID int, pc uint64) (bcc.Entry, bool, error) {
	c, err := m.core(coreID)
	if err != nil {
		return bcc.Entry{}, false, err
	}
	entry, ok := c.bcc.Get(pc)
	return entry, ok, nil
}

// EBTSIsEmptyBlock implements ebts_is_empty_block(core, pc)
// (spec.md §4.10).
func (m *Manager) EBTSIsEmptyBlock(coreID int, pc uint64) (bool, error) {
	c, err := m.core(coreID)
	if err != nil {
		return false, err
	}
	return c.bcc.EmptyBlock(pc), nil
}

// GetOnOffPath implements OOPR's half of the lookup surface (spec.md
// §4.8's entry shape via §4.10's lookup contract: pure reads, no side
// effects).
func (m *Manager) GetOnOffPath(coreID int, pc uint64) (oopr.Entry, bool, error) {
	c, err := m.core(coreID)
	if err != nil {
		return oopr.Entry{}, false, err
	}
	entry, ok := c.oopr.Get(pc)
	return entry, ok, nil
}
