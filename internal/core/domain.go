package core

import (
	"errors"
	"time"
)

const (
	BucketRollover   BucketType = "rollover"
	BucketSavings    BucketType = "savings"
	BucketEmergency  BucketType = "emergency"
	BucketInvestment BucketType = "investment"
	BucketBuffer     BucketType = "buffer"
)

const (
	CycleActive CycleStatus = "active"
	CycleClosed CycleStatus = "closed"
)

const (
	OutcomeSurplus CloseOutcome = "surplus"
	OutcomeDeficit CloseOutcome = "deficit"
	OutcomeExact   CloseOutcome = "exact"
)

// DefaultCutoffLead is how far before the end date the statement cutoff
// falls when the caller does not supply one.
const DefaultCutoffLead = 5 * 24 * time.Hour

type (
	// BucketType names one of the five fixed accumulators. The set is
	// closed; anything else coming out of a persisted snapshot is a
	// corruption, not a new bucket.
	BucketType string

	CycleStatus string

	// CloseOutcome classifies the result of closing a cycle.
	CloseOutcome string

	Money struct {
		Cents int64 `json:"cents"`
	}

	// SurplusDeposit records money moved into a bucket. Immutable once
	// created. FromCycleID is empty for manual buffer top-ups.
	SurplusDeposit struct {
		ID          string    `json:"id"`
		Amount      Money     `json:"amount"`
		FromCycleID string    `json:"fromCycleId,omitempty"`
		Date        time.Time `json:"date"`
		Note        string    `json:"note,omitempty"`
	}

	// BucketWithdrawal is the signed counterpart of a deposit. The running
	// total alone is not auditable; every withdrawal is logged next to the
	// deposits it undoes.
	BucketWithdrawal struct {
		ID     string    `json:"id"`
		Amount Money     `json:"amount"`
		Date   time.Time `json:"date"`
		Note   string    `json:"note,omitempty"`
	}

	Bucket struct {
		Type        BucketType         `json:"type"`
		Total       Money              `json:"total"`
		Deposits    []SurplusDeposit   `json:"deposits,omitempty"`
		Withdrawals []BucketWithdrawal `json:"withdrawals,omitempty"`
	}

	// Cycle is one spending period. TotalSpent only moves while the cycle
	// is active (buffer absorption may contra-reduce it). SurplusAmount and
	// DeficitAmount are both recorded at close so the sign of the result is
	// never lost. RemainingSurplus is the unallocated remainder and is the
	// only value allocation reads, which rules out double-spending the
	// original surplus.
	Cycle struct {
		ID               string       `json:"id"`
		StartDate        time.Time    `json:"startDate"`
		EndDate          time.Time    `json:"endDate"`
		CutoffDate       time.Time    `json:"cutoffDate"`
		BaseBudget       Money        `json:"baseBudget"`
		RolloverBonus    Money        `json:"rolloverBonus"`
		EffectiveBudget  Money        `json:"effectiveBudget"`
		TotalSpent       Money        `json:"totalSpent"`
		FixedExpenses    Money        `json:"fixedExpenses"`
		Status           CycleStatus  `json:"status"`
		SurplusAmount    Money        `json:"surplusAmount"`
		DeficitAmount    Money        `json:"deficitAmount"`
		RemainingSurplus Money        `json:"remainingSurplus"`
		Destinations     []BucketType `json:"destinations,omitempty"`
		ClosedAt         time.Time    `json:"closedAt"`
	}

	// State is the whole aggregate, persisted as one opaque snapshot after
	// every mutation.
	State struct {
		Cycles        []Cycle               `json:"cycles"`
		ActiveCycleID string                `json:"activeCycleId,omitempty"`
		Buckets       map[BucketType]Bucket `json:"buckets"`
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDates       = errors.New("invalid cycle dates")
	ErrCycleAlreadyActive = errors.New("a cycle is already active")
	ErrCycleNotFound      = errors.New("cycle not found")
	ErrCycleNotClosed     = errors.New("cycle is not closed")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrCorruptSnapshot    = errors.New("corrupt snapshot")
)

// AllBucketTypes returns the closed bucket enum in display order.
func AllBucketTypes() []BucketType {
	return []BucketType{BucketRollover, BucketSavings, BucketEmergency, BucketInvestment, BucketBuffer}
}

// ParseBucketType validates a bucket name against the closed enum.
func ParseBucketType(s string) (BucketType, error) {
	switch BucketType(s) {
	case BucketRollover, BucketSavings, BucketEmergency, BucketInvestment, BucketBuffer:
		return BucketType(s), nil
	}
	return "", ErrBucketNotFound
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsNegative reports whether the amount is below zero. Budgets may be
// zero; no money-moving operation accepts a negative amount.
func (m Money) IsNegative() bool {
	return m.Cents < 0
}

// ValidateDates checks the creation-time ordering invariant
// startDate < cutoffDate <= endDate.
func ValidateDates(start, cutoff, end time.Time) error {
	if start.IsZero() || end.IsZero() || cutoff.IsZero() {
		return ErrInvalidDates
	}
	if !start.Before(cutoff) {
		return ErrInvalidDates
	}
	if cutoff.After(end) {
		return ErrInvalidDates
	}
	return nil
}

// RawResult is the signed close result: effective budget minus total spent.
func (c Cycle) RawResult() int64 {
	return c.EffectiveBudget.Cents - c.TotalSpent.Cents
}

// CurrentDeficit is the overspend against the effective budget, zero when
// the cycle is at or under budget. Valid in any status.
func (c Cycle) CurrentDeficit() Money {
	if d := c.TotalSpent.Cents - c.EffectiveBudget.Cents; d > 0 {
		return Money{Cents: d}
	}
	return Money{}
}
