// Package engine implements the budget-cycle accounting aggregate: the
// cycle ledger, the five bucket accumulators, and the allocation rules
// that move a closed cycle's surplus between them.
//
// All operations validate before mutating; a failed call leaves the
// aggregate untouched. The whole aggregate sits behind one mutex because
// several operations (draining the rollover bucket while creating a
// cycle, absorbing a deficit from the buffer) touch buckets and cycles
// in the same logical step and must land atomically.
package engine

import (
	"fmt"
	"sync"
	"time"

	"ciclo/internal/core"

	"github.com/google/uuid"
)

type Engine struct {
	mu    sync.Mutex
	state core.State

	// swappable in tests
	now   func() time.Time
	newID func() string
}

// StartParams carries the caller-supplied inputs for a new cycle.
// CutoffDate is optional and defaults to five days before EndDate.
type StartParams struct {
	BaseBudget    core.Money
	StartDate     time.Time
	EndDate       time.Time
	CutoffDate    time.Time
	FixedExpenses core.Money
}

// CloseResult classifies a closed cycle. Exactly one of Surplus and
// Deficit is non-zero unless the cycle landed on budget.
type CloseResult struct {
	Surplus core.Money        `json:"surplus"`
	Deficit core.Money        `json:"deficit"`
	Outcome core.CloseOutcome `json:"outcome"`
}

// New returns an engine with the five buckets initialized empty.
func New() *Engine {
	buckets := make(map[core.BucketType]core.Bucket, len(core.AllBucketTypes()))
	for _, bt := range core.AllBucketTypes() {
		buckets[bt] = core.Bucket{Type: bt}
	}
	return &Engine{
		state: core.State{Buckets: buckets},
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// NewFromSnapshot restores an engine from a persisted snapshot. The
// snapshot is validated in full first; anything off (unknown bucket,
// two active cycles, totals that do not match the deposit history)
// fails with core.ErrCorruptSnapshot instead of being papered over.
func NewFromSnapshot(s core.State) (*Engine, error) {
	if err := validateState(s); err != nil {
		return nil, err
	}
	e := New()
	e.state = cloneState(s)
	return e, nil
}

// StartNewCycle creates and activates a new cycle, seeding its effective
// budget from the base budget plus whatever sits in the rollover bucket.
// The rollover bucket is drained in the same step. Fails with
// core.ErrCycleAlreadyActive while another cycle is active.
func (e *Engine) StartNewCycle(p StartParams) (core.Cycle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.ActiveCycleID != "" {
		return core.Cycle{}, core.ErrCycleAlreadyActive
	}
	if p.BaseBudget.IsNegative() || p.FixedExpenses.IsNegative() {
		return core.Cycle{}, core.ErrInvalidAmount
	}
	cutoff := p.CutoffDate
	if cutoff.IsZero() {
		cutoff = p.EndDate.Add(-core.DefaultCutoffLead)
	}
	if err := core.ValidateDates(p.StartDate, cutoff, p.EndDate); err != nil {
		return core.Cycle{}, err
	}

	id := e.newID()
	bonus := e.drainRollover(id)

	cycle := core.Cycle{
		ID:              id,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		CutoffDate:      cutoff,
		BaseBudget:      p.BaseBudget,
		RolloverBonus:   bonus,
		EffectiveBudget: core.Money{Cents: p.BaseBudget.Cents + bonus.Cents},
		FixedExpenses:   p.FixedExpenses,
		Status:          core.CycleActive,
	}
	e.state.Cycles = append(e.state.Cycles, cycle)
	e.state.ActiveCycleID = id
	return cloneCycle(cycle), nil
}

// drainRollover empties the rollover bucket and logs the drain as a
// withdrawal so the bucket history explains where the money went.
// Caller holds the lock.
func (e *Engine) drainRollover(cycleID string) core.Money {
	b := e.state.Buckets[core.BucketRollover]
	bonus := b.Total
	if bonus.Cents == 0 {
		return core.Money{}
	}
	b.Withdrawals = append(b.Withdrawals, core.BucketWithdrawal{
		ID:     e.newID(),
		Amount: bonus,
		Date:   e.now(),
		Note:   fmt.Sprintf("seeded cycle %s", cycleID),
	})
	b.Total = core.Money{}
	e.state.Buckets[core.BucketRollover] = b
	return bonus
}

// AddExpense posts an expense against the active cycle. Posting against
// a stale or closed cycle id is a deliberate no-op so that late ledger
// entries cannot corrupt history. Negative amounts are rejected; refunds
// are not modeled as negative expenses.
func (e *Engine) AddExpense(cycleID string, amount core.Money) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.IsNegative() {
		return core.ErrInvalidAmount
	}
	if cycleID == "" || cycleID != e.state.ActiveCycleID {
		return nil
	}
	c := e.findCycle(cycleID)
	if c == nil || c.Status != core.CycleActive {
		return nil
	}
	c.TotalSpent.Cents += amount.Cents
	return nil
}

// CloseCycle transitions the cycle to closed, recording both sides of the
// signed result and seeding the unallocated-surplus counter. Closing an
// already-closed cycle returns the stored result without touching state.
func (e *Engine) CloseCycle(cycleID string) (CloseResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.findCycle(cycleID)
	if c == nil {
		return CloseResult{}, core.ErrCycleNotFound
	}
	if c.Status == core.CycleClosed {
		return closeResultOf(*c), nil
	}

	raw := c.RawResult()
	if raw > 0 {
		c.SurplusAmount = core.Money{Cents: raw}
	} else {
		c.DeficitAmount = core.Money{Cents: -raw}
	}
	c.RemainingSurplus = c.SurplusAmount
	c.Status = core.CycleClosed
	c.ClosedAt = e.now()
	if e.state.ActiveCycleID == cycleID {
		e.state.ActiveCycleID = ""
	}
	return closeResultOf(*c), nil
}

func closeResultOf(c core.Cycle) CloseResult {
	r := CloseResult{Surplus: c.SurplusAmount, Deficit: c.DeficitAmount, Outcome: core.OutcomeExact}
	switch {
	case c.SurplusAmount.Cents > 0:
		r.Outcome = core.OutcomeSurplus
	case c.DeficitAmount.Cents > 0:
		r.Outcome = core.OutcomeDeficit
	}
	return r
}

// AllocateSurplus routes part of a closed cycle's surplus into a bucket.
// The amount is checked against the running unallocated remainder, never
// against the original surplus, so repeated calls cannot allocate the
// same money twice.
func (e *Engine) AllocateSurplus(cycleID string, dest core.BucketType, amount core.Money) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.allocate(cycleID, dest, amount)
}

// AllocateFullSurplus routes the whole unallocated remainder of a closed
// cycle into a bucket. Fails with core.ErrInsufficientFunds when nothing
// is left to allocate.
func (e *Engine) AllocateFullSurplus(cycleID string, dest core.BucketType) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.findCycle(cycleID)
	if c == nil {
		return core.ErrCycleNotFound
	}
	return e.allocate(cycleID, dest, c.RemainingSurplus)
}

// allocate holds the shared allocation path. Caller holds the lock.
func (e *Engine) allocate(cycleID string, dest core.BucketType, amount core.Money) error {
	if _, err := core.ParseBucketType(string(dest)); err != nil {
		return err
	}
	c := e.findCycle(cycleID)
	if c == nil {
		return core.ErrCycleNotFound
	}
	if c.Status != core.CycleClosed {
		return core.ErrCycleNotClosed
	}
	if amount.Cents <= 0 {
		if amount.IsNegative() {
			return core.ErrInvalidAmount
		}
		return core.ErrInsufficientFunds
	}
	if amount.Cents > c.RemainingSurplus.Cents {
		return core.ErrInsufficientFunds
	}

	b := e.state.Buckets[dest]
	b.Deposits = append(b.Deposits, core.SurplusDeposit{
		ID:          e.newID(),
		Amount:      amount,
		FromCycleID: cycleID,
		Date:        e.now(),
	})
	b.Total.Cents += amount.Cents
	e.state.Buckets[dest] = b

	c.RemainingSurplus.Cents -= amount.Cents
	if !containsBucket(c.Destinations, dest) {
		c.Destinations = append(c.Destinations, dest)
	}
	return nil
}

// ApplyRolloverToNextCycle routes surplus into the rollover bucket, where
// it waits to seed the next cycle's effective budget. Rollover money is
// not user-visible savings; it exists only for the next StartNewCycle.
func (e *Engine) ApplyRolloverToNextCycle(fromCycleID string, amount core.Money) error {
	return e.AllocateSurplus(fromCycleID, core.BucketRollover, amount)
}

// AbsorbDeficitWithBuffer offsets a cycle's overspend from the buffer
// pool. It works on cycles in any status: a deficit can be absorbed
// before formal close. Partial absorption is valid; the call reports
// true only when the entire deficit was covered.
func (e *Engine) AbsorbDeficitWithBuffer(cycleID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := e.findCycle(cycleID)
	if c == nil {
		return false, core.ErrCycleNotFound
	}
	deficit := c.CurrentDeficit()
	buffer := e.state.Buckets[core.BucketBuffer]
	if deficit.Cents <= 0 || buffer.Total.Cents <= 0 {
		return false, nil
	}

	draw := deficit.Cents
	if buffer.Total.Cents < draw {
		draw = buffer.Total.Cents
	}
	buffer.Withdrawals = append(buffer.Withdrawals, core.BucketWithdrawal{
		ID:     e.newID(),
		Amount: core.Money{Cents: draw},
		Date:   e.now(),
		Note:   fmt.Sprintf("absorbed deficit of cycle %s", cycleID),
	})
	buffer.Total.Cents -= draw
	e.state.Buckets[core.BucketBuffer] = buffer

	// Contra-entry against the overspend.
	c.TotalSpent.Cents -= draw
	if c.Status == core.CycleClosed && c.DeficitAmount.Cents > 0 {
		c.DeficitAmount.Cents -= draw
		if c.DeficitAmount.Cents < 0 {
			c.DeficitAmount.Cents = 0
		}
	}
	return draw == deficit.Cents, nil
}

// WithdrawFromBucket takes money out of a bucket, logging the withdrawal
// alongside the deposit history.
func (e *Engine) WithdrawFromBucket(bt core.BucketType, amount core.Money, note string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := core.ParseBucketType(string(bt)); err != nil {
		return err
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	b := e.state.Buckets[bt]
	if amount.Cents > b.Total.Cents {
		return core.ErrInsufficientFunds
	}
	b.Withdrawals = append(b.Withdrawals, core.BucketWithdrawal{
		ID:     e.newID(),
		Amount: amount,
		Date:   e.now(),
		Note:   note,
	})
	b.Total.Cents -= amount.Cents
	e.state.Buckets[bt] = b
	return nil
}

// DepositToBuffer tops up the buffer pool outside any cycle. The deposit
// carries no cycle id, marking it as a manual top-up.
func (e *Engine) DepositToBuffer(amount core.Money, note string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := amount.Validate(); err != nil {
		return err
	}
	b := e.state.Buckets[core.BucketBuffer]
	b.Deposits = append(b.Deposits, core.SurplusDeposit{
		ID:     e.newID(),
		Amount: amount,
		Date:   e.now(),
		Note:   note,
	})
	b.Total.Cents += amount.Cents
	e.state.Buckets[core.BucketBuffer] = b
	return nil
}

// ResetBucket wipes a bucket's total and history. Irreversible; meant
// for destructive reset flows, not normal operation.
func (e *Engine) ResetBucket(bt core.BucketType) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := core.ParseBucketType(string(bt)); err != nil {
		return err
	}
	e.state.Buckets[bt] = core.Bucket{Type: bt}
	return nil
}

// findCycle returns a pointer into the ledger. Caller holds the lock.
func (e *Engine) findCycle(id string) *core.Cycle {
	for i := range e.state.Cycles {
		if e.state.Cycles[i].ID == id {
			return &e.state.Cycles[i]
		}
	}
	return nil
}

func containsBucket(list []core.BucketType, bt core.BucketType) bool {
	for _, v := range list {
		if v == bt {
			return true
		}
	}
	return false
}
