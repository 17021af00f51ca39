package engine

import (
	"fmt"

	"ciclo/internal/core"
)

// Snapshot returns a deep copy of the aggregate for persistence. The
// persistence collaborator treats it as opaque: serialize after every
// mutation, restore verbatim at startup.
func (e *Engine) Snapshot() core.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneState(e.state)
}

// validateState rejects snapshots that violate the aggregate invariants.
// Load-time corruption is fatal: refusing to initialize beats silently
// substituting defaults and quietly destroying money.
func validateState(s core.State) error {
	if s.Buckets == nil {
		return fmt.Errorf("%w: missing buckets", core.ErrCorruptSnapshot)
	}
	if len(s.Buckets) != len(core.AllBucketTypes()) {
		return fmt.Errorf("%w: expected %d buckets, found %d", core.ErrCorruptSnapshot, len(core.AllBucketTypes()), len(s.Buckets))
	}
	for bt, b := range s.Buckets {
		if _, err := core.ParseBucketType(string(bt)); err != nil {
			return fmt.Errorf("%w: unknown bucket %q", core.ErrCorruptSnapshot, bt)
		}
		if b.Type != bt {
			return fmt.Errorf("%w: bucket %q labeled %q", core.ErrCorruptSnapshot, bt, b.Type)
		}
		if b.Total.IsNegative() {
			return fmt.Errorf("%w: bucket %q has negative total", core.ErrCorruptSnapshot, bt)
		}
		var deposited, withdrawn int64
		for _, d := range b.Deposits {
			if d.Amount.Cents <= 0 {
				return fmt.Errorf("%w: bucket %q has non-positive deposit", core.ErrCorruptSnapshot, bt)
			}
			deposited += d.Amount.Cents
		}
		for _, w := range b.Withdrawals {
			if w.Amount.Cents <= 0 {
				return fmt.Errorf("%w: bucket %q has non-positive withdrawal", core.ErrCorruptSnapshot, bt)
			}
			withdrawn += w.Amount.Cents
		}
		if b.Total.Cents != deposited-withdrawn {
			return fmt.Errorf("%w: bucket %q total %d does not match ledger (%d - %d)",
				core.ErrCorruptSnapshot, bt, b.Total.Cents, deposited, withdrawn)
		}
	}

	seen := make(map[string]bool, len(s.Cycles))
	activeCount := 0
	activeFound := false
	for _, c := range s.Cycles {
		if c.ID == "" || seen[c.ID] {
			return fmt.Errorf("%w: duplicate or empty cycle id %q", core.ErrCorruptSnapshot, c.ID)
		}
		seen[c.ID] = true
		switch c.Status {
		case core.CycleActive:
			activeCount++
			if c.ID == s.ActiveCycleID {
				activeFound = true
			}
		case core.CycleClosed:
		default:
			return fmt.Errorf("%w: cycle %s has unknown status %q", core.ErrCorruptSnapshot, c.ID, c.Status)
		}
		if c.BaseBudget.IsNegative() || c.RolloverBonus.IsNegative() || c.EffectiveBudget.IsNegative() ||
			c.FixedExpenses.IsNegative() || c.SurplusAmount.IsNegative() || c.DeficitAmount.IsNegative() ||
			c.RemainingSurplus.IsNegative() {
			return fmt.Errorf("%w: cycle %s has negative amounts", core.ErrCorruptSnapshot, c.ID)
		}
		if c.EffectiveBudget.Cents != c.BaseBudget.Cents+c.RolloverBonus.Cents {
			return fmt.Errorf("%w: cycle %s effective budget mismatch", core.ErrCorruptSnapshot, c.ID)
		}
		if c.RemainingSurplus.Cents > c.SurplusAmount.Cents {
			return fmt.Errorf("%w: cycle %s remaining surplus exceeds surplus", core.ErrCorruptSnapshot, c.ID)
		}
		for _, dest := range c.Destinations {
			if _, err := core.ParseBucketType(string(dest)); err != nil {
				return fmt.Errorf("%w: cycle %s references unknown bucket %q", core.ErrCorruptSnapshot, c.ID, dest)
			}
		}
	}
	if activeCount > 1 {
		return fmt.Errorf("%w: %d active cycles", core.ErrCorruptSnapshot, activeCount)
	}
	if s.ActiveCycleID != "" && !activeFound {
		return fmt.Errorf("%w: active cycle id %q not found or not active", core.ErrCorruptSnapshot, s.ActiveCycleID)
	}
	if s.ActiveCycleID == "" && activeCount != 0 {
		return fmt.Errorf("%w: active cycle present but no active pointer", core.ErrCorruptSnapshot)
	}
	return nil
}

func cloneState(s core.State) core.State {
	out := core.State{
		ActiveCycleID: s.ActiveCycleID,
		Cycles:        make([]core.Cycle, len(s.Cycles)),
		Buckets:       make(map[core.BucketType]core.Bucket, len(s.Buckets)),
	}
	for i, c := range s.Cycles {
		out.Cycles[i] = cloneCycle(c)
	}
	for bt, b := range s.Buckets {
		out.Buckets[bt] = cloneBucket(b)
	}
	return out
}

func cloneCycle(c core.Cycle) core.Cycle {
	out := c
	if len(c.Destinations) > 0 {
		out.Destinations = append([]core.BucketType(nil), c.Destinations...)
	}
	return out
}

func cloneBucket(b core.Bucket) core.Bucket {
	out := b
	if len(b.Deposits) > 0 {
		out.Deposits = append([]core.SurplusDeposit(nil), b.Deposits...)
	}
	if len(b.Withdrawals) > 0 {
		out.Withdrawals = append([]core.BucketWithdrawal(nil), b.Withdrawals...)
	}
	return out
}
