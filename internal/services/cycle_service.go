package services

import (
	"context"
	"fmt"
	"time"

	"ciclo/internal/amqp"
	"ciclo/internal/backend"
	"ciclo/internal/core"
	"ciclo/internal/engine"
	"ciclo/internal/log"
)

// CycleService orchestrates cycle operations: every mutation goes
// through the engine, then the whole aggregate is snapshotted to the
// store, and lifecycle events are published to AMQP. The engine already
// serializes mutations; the service adds persistence and messaging
// around them.
type CycleService struct {
	engine     *engine.Engine
	store      backend.SnapshotStore
	amqpClient *amqp.Client
	accountID  string
	logger     *log.Logger
}

// NewCycleService restores the aggregate for accountID from the store,
// or starts empty when no snapshot exists. A snapshot that fails
// validation is a hard error; booting with a half-read ledger would
// silently lose money.
func NewCycleService(ctx context.Context, store backend.SnapshotStore, amqpClient *amqp.Client, accountID string, logger *log.Logger) (*CycleService, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentService)

	eng := engine.New()
	state, found, err := store.LoadSnapshot(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if found {
		eng, err = engine.NewFromSnapshot(state)
		if err != nil {
			return nil, fmt.Errorf("restore snapshot: %w", err)
		}
		logger.InfoContext(ctx, "Restored aggregate from snapshot",
			log.FieldOperation, log.OpRestore,
			log.FieldAccountID, accountID,
			"cycles", len(state.Cycles))
	}

	return &CycleService{
		engine:     eng,
		store:      store,
		amqpClient: amqpClient,
		accountID:  accountID,
		logger:     logger,
	}, nil
}

func (s *CycleService) persist(ctx context.Context) error {
	if err := s.store.SaveSnapshot(ctx, s.accountID, s.engine.Snapshot()); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// Persist writes the current aggregate snapshot. Used by the periodic
// persistence tick; mutations persist on their own.
func (s *CycleService) Persist(ctx context.Context) error {
	return s.persist(ctx)
}

// StartNewCycle starts a new cycle and persists the result.
func (s *CycleService) StartNewCycle(ctx context.Context, p engine.StartParams) (core.Cycle, error) {
	c, err := s.engine.StartNewCycle(p)
	if err != nil {
		return core.Cycle{}, err
	}
	if err := s.persist(ctx); err != nil {
		return core.Cycle{}, err
	}

	s.logger.InfoContext(ctx, "Started cycle",
		log.FieldOperation, log.OpStart,
		log.FieldAccountID, s.accountID,
		log.FieldCycleID, c.ID,
		log.FieldAmountCents, c.EffectiveBudget.Cents)
	return c, nil
}

// AddExpense records spending against a cycle. A stale cycle ID is a
// no-op, so late feed messages after a close do not fail.
func (s *CycleService) AddExpense(ctx context.Context, cycleID string, amount core.Money) error {
	if err := s.engine.AddExpense(cycleID, amount); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Recorded expense",
		log.FieldOperation, log.OpExpense,
		log.FieldAccountID, s.accountID,
		log.FieldCycleID, cycleID,
		log.FieldAmountCents, amount.Cents)
	return nil
}

// AddExpenseToActive records spending against the currently active
// cycle. Spending while no cycle is active is dropped, matching the
// stale-cycle rule.
func (s *CycleService) AddExpenseToActive(ctx context.Context, amount core.Money) error {
	active, ok := s.engine.ActiveCycle()
	if !ok {
		s.logger.WarnContext(ctx, "No active cycle, expense dropped",
			log.FieldOperation, log.OpExpense,
			log.FieldAccountID, s.accountID,
			log.FieldAmountCents, amount.Cents)
		return nil
	}
	return s.AddExpense(ctx, active.ID, amount)
}

// CloseCycle closes a cycle, persists, and publishes a CycleClosed
// event. Publishing is best-effort: the close already landed locally.
func (s *CycleService) CloseCycle(ctx context.Context, cycleID string) (engine.CloseResult, error) {
	result, err := s.engine.CloseCycle(cycleID)
	if err != nil {
		return engine.CloseResult{}, err
	}
	if err := s.persist(ctx); err != nil {
		return engine.CloseResult{}, err
	}

	s.logger.InfoContext(ctx, "Closed cycle",
		log.FieldOperation, log.OpClose,
		log.FieldAccountID, s.accountID,
		log.FieldCycleID, cycleID,
		log.FieldOutcome, string(result.Outcome))

	s.publishCycleClosed(ctx, cycleID, result)
	return result, nil
}

func (s *CycleService) publishCycleClosed(ctx context.Context, cycleID string, result engine.CloseResult) {
	if s.amqpClient == nil {
		return
	}
	msg := amqp.NewCycleClosedMessage(s.accountID, cycleID,
		result.Surplus.Cents, result.Deficit.Cents, string(result.Outcome))
	if err := s.amqpClient.PublishCycleClosed(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish cycle closed event",
			log.FieldError, err,
			log.FieldCycleID, cycleID)
		// Don't fail the request - the close is persisted locally
	}
}

// AllocateSurplus moves part of a closed cycle's surplus into a bucket.
func (s *CycleService) AllocateSurplus(ctx context.Context, cycleID string, dest core.BucketType, amount core.Money) error {
	if err := s.engine.AllocateSurplus(cycleID, dest, amount); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Allocated surplus",
		log.FieldOperation, log.OpAllocate,
		log.FieldAccountID, s.accountID,
		log.FieldCycleID, cycleID,
		log.FieldBucket, string(dest),
		log.FieldAmountCents, amount.Cents)
	return nil
}

// AllocateFullSurplus moves the whole remaining surplus into one bucket.
func (s *CycleService) AllocateFullSurplus(ctx context.Context, cycleID string, dest core.BucketType) error {
	if err := s.engine.AllocateFullSurplus(cycleID, dest); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Allocated full surplus",
		log.FieldOperation, log.OpAllocate,
		log.FieldAccountID, s.accountID,
		log.FieldCycleID, cycleID,
		log.FieldBucket, string(dest))
	return nil
}

// ApplyRolloverToNextCycle earmarks surplus for the next cycle's budget.
func (s *CycleService) ApplyRolloverToNextCycle(ctx context.Context, cycleID string, amount core.Money) error {
	if err := s.engine.ApplyRolloverToNextCycle(cycleID, amount); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Applied rollover",
		log.FieldOperation, log.OpRollover,
		log.FieldAccountID, s.accountID,
		log.FieldCycleID, cycleID,
		log.FieldAmountCents, amount.Cents)
	return nil
}

// AbsorbDeficitWithBuffer covers a cycle's overspend from the buffer
// bucket. Returns whether the deficit was fully absorbed.
func (s *CycleService) AbsorbDeficitWithBuffer(ctx context.Context, cycleID string) (bool, error) {
	covered, err := s.engine.AbsorbDeficitWithBuffer(cycleID)
	if err != nil {
		return false, err
	}
	if err := s.persist(ctx); err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Absorbed deficit with buffer",
		log.FieldOperation, log.OpAbsorb,
		log.FieldAccountID, s.accountID,
		log.FieldCycleID, cycleID,
		"fully_covered", covered)
	return covered, nil
}

// WithdrawFromBucket takes money out of a bucket, logging the
// withdrawal in the bucket's audit trail.
func (s *CycleService) WithdrawFromBucket(ctx context.Context, bt core.BucketType, amount core.Money, note string) error {
	if err := s.engine.WithdrawFromBucket(bt, amount, note); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Withdrew from bucket",
		log.FieldOperation, log.OpWithdraw,
		log.FieldAccountID, s.accountID,
		log.FieldBucket, string(bt),
		log.FieldAmountCents, amount.Cents)
	return nil
}

// DepositToBuffer is a manual buffer top-up outside any cycle.
func (s *CycleService) DepositToBuffer(ctx context.Context, amount core.Money, note string) error {
	if err := s.engine.DepositToBuffer(amount, note); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Deposited to buffer",
		log.FieldOperation, log.OpDeposit,
		log.FieldAccountID, s.accountID,
		log.FieldAmountCents, amount.Cents)
	return nil
}

// ResetBucket zeroes a bucket and clears its history.
func (s *CycleService) ResetBucket(ctx context.Context, bt core.BucketType) error {
	if err := s.engine.ResetBucket(bt); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Reset bucket",
		log.FieldOperation, log.OpReset,
		log.FieldAccountID, s.accountID,
		log.FieldBucket, string(bt))
	return nil
}

// Read-side passthroughs. The engine returns copies, so callers can
// hold the results without racing mutations.

func (s *CycleService) ActiveCycle() (core.Cycle, bool) { return s.engine.ActiveCycle() }

func (s *CycleService) CycleByID(id string) (core.Cycle, error) { return s.engine.CycleByID(id) }

func (s *CycleService) Cycles() []core.Cycle { return s.engine.Cycles() }

func (s *CycleService) BucketBalances() []core.BucketBalance { return s.engine.BucketBalances() }

func (s *CycleService) BucketByType(bt core.BucketType) (core.Bucket, error) {
	return s.engine.BucketByType(bt)
}

func (s *CycleService) BufferBalance() core.Money { return s.engine.BufferBalance() }

func (s *CycleService) PendingAllocations() []core.Cycle { return s.engine.PendingAllocations() }

func (s *CycleService) Overview(now time.Time) (core.CycleOverview, bool) {
	return s.engine.Overview(now)
}

func (s *CycleService) TotalHeld() core.Money { return s.engine.TotalHeld() }

// Close closes the AMQP connection. The store is owned by the caller
// via the backend cleanup function.
func (s *CycleService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close cycle service: amqp: %w", err)
		}
	}
	return nil
}
