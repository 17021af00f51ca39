package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ciclo/internal/amqp"
	"ciclo/internal/core"
	"ciclo/internal/services"
	"ciclo/internal/sheets"
)

// FeedWorker applies expense feed messages to the active cycle and
// exports closed cycles to the report sheet.
type FeedWorker struct {
	service  *services.CycleService
	amqp     *amqp.Client
	exporter sheets.CycleExporter

	// periodic safety-net persist; the service already persists after
	// each mutation, the tick covers in-memory backends and crashes
	// between feed bursts
	persistInterval time.Duration
}

func NewFeedWorker(service *services.CycleService, amqpClient *amqp.Client, exporter sheets.CycleExporter, persistInterval time.Duration) *FeedWorker {
	return &FeedWorker{
		service:         service,
		amqp:            amqpClient,
		exporter:        exporter,
		persistInterval: persistInterval,
	}
}

// HandleExpenseMessage applies a single feed expense to the ledger.
func (w *FeedWorker) HandleExpenseMessage(ctx context.Context, msg *amqp.ExpensePostedMessage) error {
	slog.InfoContext(ctx, "Processing expense feed message",
		"account_id", msg.AccountID,
		"cycle_id", msg.CycleID,
		"amount_cents", msg.AmountCents)

	amount := core.Money{Cents: msg.AmountCents}
	if msg.CycleID != "" {
		// The stale-cycle rule makes this safe for late deliveries.
		return w.service.AddExpense(ctx, msg.CycleID, amount)
	}
	return w.service.AddExpenseToActive(ctx, amount)
}

// HandleCycleClosedEvent exports the closed cycle to the report sheet.
func (w *FeedWorker) HandleCycleClosedEvent(ctx context.Context, msg *amqp.CycleClosedMessage) error {
	if w.exporter == nil {
		slog.WarnContext(ctx, "No cycle exporter configured, skipping export",
			"cycle_id", msg.CycleID)
		return nil
	}

	cycle, err := w.service.CycleByID(msg.CycleID)
	if err != nil {
		return fmt.Errorf("get cycle %s: %w", msg.CycleID, err)
	}

	ref, err := w.exporter.Append(ctx, cycle)
	if err != nil {
		return fmt.Errorf("export cycle %s: %w", msg.CycleID, err)
	}

	slog.InfoContext(ctx, "Exported closed cycle",
		"cycle_id", msg.CycleID,
		"outcome", msg.Outcome,
		"sheets_ref", ref)
	return nil
}

// Run consumes both queues and keeps the periodic persist tick going
// until the context is cancelled.
func (w *FeedWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.amqp.ConsumeExpensePosted(ctx, func(msg *amqp.ExpensePostedMessage) error {
			return w.HandleExpenseMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		return w.amqp.ConsumeCycleClosed(ctx, func(msg *amqp.CycleClosedMessage) error {
			return w.HandleCycleClosedEvent(ctx, msg)
		})
	})

	g.Go(func() error {
		return w.runPersistTick(ctx)
	})

	return g.Wait()
}

func (w *FeedWorker) runPersistTick(ctx context.Context) error {
	if w.persistInterval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(w.persistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final persist so a clean shutdown never loses the tail.
			if err := w.service.Persist(context.Background()); err != nil {
				slog.Error("Final persist on shutdown failed", "error", err)
			}
			return ctx.Err()
		case <-ticker.C:
			if err := w.service.Persist(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic persist failed", "error", err)
			}
		}
	}
}
