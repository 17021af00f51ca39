package engine

import (
	"errors"
	"testing"

	"ciclo/internal/core"
)

func TestSnapshotRoundTrip(t *testing.T) {
	e := newTestEngine()
	if err := e.DepositToBuffer(cents(30_00), "cushion"); err != nil {
		t.Fatalf("DepositToBuffer() unexpected error: %v", err)
	}
	a := startCycle(t, e, 1000_00)
	if err := e.AddExpense(a.ID, cents(650_00)); err != nil {
		t.Fatalf("AddExpense() unexpected error: %v", err)
	}
	if _, err := e.CloseCycle(a.ID); err != nil {
		t.Fatalf("CloseCycle() unexpected error: %v", err)
	}
	if err := e.AllocateSurplus(a.ID, core.BucketSavings, cents(100_00)); err != nil {
		t.Fatalf("AllocateSurplus() unexpected error: %v", err)
	}
	b := startCycle(t, e, 500_00)

	restored, err := NewFromSnapshot(e.Snapshot())
	if err != nil {
		t.Fatalf("NewFromSnapshot() unexpected error: %v", err)
	}

	if got := restored.TotalHeld(); got.Cents != e.TotalHeld().Cents {
		t.Errorf("restored TotalHeld = %d, want %d", got.Cents, e.TotalHeld().Cents)
	}
	active, ok := restored.ActiveCycle()
	if !ok || active.ID != b.ID {
		t.Errorf("restored active cycle = (%v, %v), want %s", active.ID, ok, b.ID)
	}
	remaining, err := restored.RemainingSurplus(a.ID)
	if err != nil || remaining.Cents != 250_00 {
		t.Errorf("restored RemainingSurplus = (%d, %v), want 25000", remaining.Cents, err)
	}

	// The restored engine keeps operating where the snapshot left off.
	if err := restored.AddExpense(b.ID, cents(10_00)); err != nil {
		t.Fatalf("restored AddExpense() unexpected error: %v", err)
	}
}

// Snapshot mutations must not leak back into the engine.
func TestSnapshotIsDeepCopy(t *testing.T) {
	e := newTestEngine()
	if err := e.DepositToBuffer(cents(10_00), ""); err != nil {
		t.Fatalf("DepositToBuffer() unexpected error: %v", err)
	}

	snap := e.Snapshot()
	b := snap.Buckets[core.BucketBuffer]
	b.Total.Cents = 999
	b.Deposits[0].Amount.Cents = 999
	snap.Buckets[core.BucketBuffer] = b

	if got := e.BufferBalance(); got.Cents != 10_00 {
		t.Errorf("engine state mutated through snapshot: buffer = %d", got.Cents)
	}
	fresh, _ := e.BucketByType(core.BucketBuffer)
	if fresh.Deposits[0].Amount.Cents != 10_00 {
		t.Errorf("deposit mutated through snapshot: %d", fresh.Deposits[0].Amount.Cents)
	}
}

func TestNewFromSnapshotRejectsCorruption(t *testing.T) {
	valid := func() core.State {
		e := newTestEngine()
		if err := e.DepositToBuffer(cents(10_00), ""); err != nil {
			t.Fatalf("DepositToBuffer() unexpected error: %v", err)
		}
		startCycle(t, e, 100_00)
		return e.Snapshot()
	}

	tests := []struct {
		name   string
		mutate func(*core.State)
	}{
		{
			name:   "missing bucket",
			mutate: func(s *core.State) { delete(s.Buckets, core.BucketSavings) },
		},
		{
			name: "unknown bucket key",
			mutate: func(s *core.State) {
				delete(s.Buckets, core.BucketSavings)
				s.Buckets["vacation"] = core.Bucket{Type: "vacation"}
			},
		},
		{
			name: "total disagrees with ledger",
			mutate: func(s *core.State) {
				b := s.Buckets[core.BucketBuffer]
				b.Total.Cents += 1
				s.Buckets[core.BucketBuffer] = b
			},
		},
		{
			name: "two active cycles",
			mutate: func(s *core.State) {
				dup := s.Cycles[0]
				dup.ID = "second"
				s.Cycles = append(s.Cycles, dup)
			},
		},
		{
			name: "unknown status",
			mutate: func(s *core.State) {
				s.Cycles[0].Status = "pending"
			},
		},
		{
			name: "dangling active pointer",
			mutate: func(s *core.State) {
				s.ActiveCycleID = "ghost"
			},
		},
		{
			name: "effective budget mismatch",
			mutate: func(s *core.State) {
				s.Cycles[0].EffectiveBudget.Cents += 5
			},
		},
		{
			name: "remaining surplus exceeds surplus",
			mutate: func(s *core.State) {
				s.Cycles[0].RemainingSurplus.Cents = s.Cycles[0].SurplusAmount.Cents + 1
			},
		},
		{
			name: "duplicate cycle id",
			mutate: func(s *core.State) {
				dup := s.Cycles[0]
				dup.Status = core.CycleClosed
				s.Cycles = append(s.Cycles, dup)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			if _, err := NewFromSnapshot(s); !errors.Is(err, core.ErrCorruptSnapshot) {
				t.Errorf("NewFromSnapshot() error = %v, want ErrCorruptSnapshot", err)
			}
		})
	}
}
