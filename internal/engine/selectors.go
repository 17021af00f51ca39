package engine

import (
	"time"

	"ciclo/internal/core"
)

// Selectors return copies; the presentation collaborator reads state but
// must never be handed the internal slices.

// ActiveCycle returns the currently active cycle, if any.
func (e *Engine) ActiveCycle() (core.Cycle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.ActiveCycleID == "" {
		return core.Cycle{}, false
	}
	c := e.findCycle(e.state.ActiveCycleID)
	if c == nil {
		return core.Cycle{}, false
	}
	return cloneCycle(*c), true
}

// CycleByID looks up any cycle, active or closed.
func (e *Engine) CycleByID(id string) (core.Cycle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.findCycle(id)
	if c == nil {
		return core.Cycle{}, core.ErrCycleNotFound
	}
	return cloneCycle(*c), nil
}

// Cycles returns the full ledger in creation order.
func (e *Engine) Cycles() []core.Cycle {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]core.Cycle, len(e.state.Cycles))
	for i, c := range e.state.Cycles {
		out[i] = cloneCycle(c)
	}
	return out
}

// BucketByType returns one bucket with its full deposit and withdrawal
// history.
func (e *Engine) BucketByType(bt core.BucketType) (core.Bucket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := core.ParseBucketType(string(bt)); err != nil {
		return core.Bucket{}, err
	}
	return cloneBucket(e.state.Buckets[bt]), nil
}

// BucketBalances returns the compact per-bucket totals in display order,
// without the entry history.
func (e *Engine) BucketBalances() []core.BucketBalance {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]core.BucketBalance, 0, len(core.AllBucketTypes()))
	for _, bt := range core.AllBucketTypes() {
		b := e.state.Buckets[bt]
		out = append(out, core.BucketBalance{Type: b.Type, Total: b.Total})
	}
	return out
}

// BufferBalance is the deficit-absorption pool: the buffer bucket's
// running total.
func (e *Engine) BufferBalance() core.Money {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Buckets[core.BucketBuffer].Total
}

// RemainingSurplus reports how much of a closed cycle's surplus is still
// unallocated.
func (e *Engine) RemainingSurplus(cycleID string) (core.Money, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.findCycle(cycleID)
	if c == nil {
		return core.Money{}, core.ErrCycleNotFound
	}
	return c.RemainingSurplus, nil
}

// PendingAllocations lists closed cycles whose surplus has not been fully
// routed yet, oldest first. This feeds the "you still have money to
// assign" prompt in the presentation layer.
func (e *Engine) PendingAllocations() []core.Cycle {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []core.Cycle
	for _, c := range e.state.Cycles {
		if c.Status == core.CycleClosed && c.RemainingSurplus.Cents > 0 {
			out = append(out, cloneCycle(c))
		}
	}
	return out
}

// Overview derives the pacing summary for the active cycle.
func (e *Engine) Overview(now time.Time) (core.CycleOverview, bool) {
	c, ok := e.ActiveCycle()
	if !ok {
		return core.CycleOverview{}, false
	}
	return core.NewCycleOverview(c, now), true
}

// TotalHeld sums every bucket total. Together with the active cycle's
// unrealized surplus this is the conserved quantity of the system.
func (e *Engine) TotalHeld() core.Money {
	e.mu.Lock()
	defer e.mu.Unlock()

	var sum int64
	for _, b := range e.state.Buckets {
		sum += b.Total.Cents
	}
	return core.Money{Cents: sum}
}
