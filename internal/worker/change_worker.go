// Package worker consumes couple change messages: it keeps the activity
// feed, re-exports budget sheets and records overdue items on a schedule.
package worker

import (
	"context"
	"fmt"
	"time"

	"roora/internal/amqp"
	"roora/internal/core"
	"roora/internal/log"
	"roora/internal/sheets"
	"roora/internal/storage"
)

// Outcomes reports handled messages. *metrics.Metrics implements it.
type Outcomes interface {
	WorkerProcessed(ok bool)
}

type ChangeWorker struct {
	repo     *storage.SQLiteRepository
	exporter sheets.BudgetExporter
	outcomes Outcomes
	logger   *log.Logger
	now      func() time.Time
}

// NewChangeWorker builds a worker. exporter may be nil, in which case
// budget exports are skipped.
func NewChangeWorker(repo *storage.SQLiteRepository, exporter sheets.BudgetExporter, outcomes Outcomes, logger *log.Logger) *ChangeWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ChangeWorker{
		repo:     repo,
		exporter: exporter,
		outcomes: outcomes,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandleChange appends the message to the couple's activity feed and, for
// changes that move money, re-exports the budget sheet. Deliveries are
// at-least-once, so the feed entry is keyed on the message identity.
func (w *ChangeWorker) HandleChange(ctx context.Context, msg amqp.ChangeMessage) (err error) {
	defer func() {
		if w.outcomes != nil {
			w.outcomes.WorkerProcessed(err == nil)
		}
	}()

	a := core.Activity{
		CoupleID:  msg.CoupleID,
		Kind:      "change",
		Entity:    msg.Entity,
		EntityID:  msg.EntityID,
		Summary:   msg.Summary,
		CreatedAt: msg.Timestamp,
	}
	key := fmt.Sprintf("change:%s:%s:%s:%d", msg.Entity, msg.EntityID, msg.Op, msg.Timestamp.UnixNano())
	if _, err := w.repo.AppendActivity(ctx, &a, key); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}

	if !msg.AffectsBudget() {
		return nil
	}
	if _, err := w.ExportBudget(ctx, msg.CoupleID); err != nil {
		return err
	}
	return nil
}

// ExportBudget rebuilds the couple's budget sheet and pushes it through the
// exporter. It returns "" when no exporter is configured.
func (w *ChangeWorker) ExportBudget(ctx context.Context, coupleID string) (string, error) {
	if w.exporter == nil {
		w.logger.DebugContext(ctx, "No budget exporter configured, skipping export", log.FieldCoupleID, coupleID)
		return "", nil
	}
	sheet, err := w.BuildSheet(ctx, coupleID)
	if err != nil {
		return "", err
	}
	ref, err := w.exporter.ExportBudget(ctx, sheet)
	if err != nil {
		return "", fmt.Errorf("export budget: %w", err)
	}
	w.logger.InfoContext(ctx, "Exported budget sheet",
		log.FieldCoupleID, coupleID, log.FieldSpreadsheet, ref, "rows", len(sheet.Rows))
	return ref, nil
}

// BuildSheet loads the couple and renders its budget sheet.
func (w *ChangeWorker) BuildSheet(ctx context.Context, coupleID string) (sheets.Sheet, error) {
	couple, err := w.repo.GetCouple(ctx, coupleID)
	if err != nil {
		return sheets.Sheet{}, fmt.Errorf("load couple: %w", err)
	}
	suppliers, err := w.repo.ListSuppliers(ctx, coupleID)
	if err != nil {
		return sheets.Sheet{}, fmt.Errorf("load suppliers: %w", err)
	}
	return sheets.BuildBudgetSheet(couple, suppliers), nil
}

// StartupExport re-exports every couple's budget so sheets catch up with
// changes made while the worker was down.
func (w *ChangeWorker) StartupExport(ctx context.Context) error {
	if w.exporter == nil {
		return nil
	}
	ids, err := w.repo.ListCoupleIDs(ctx)
	if err != nil {
		return fmt.Errorf("list couples: %w", err)
	}
	failed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := w.ExportBudget(ctx, id); err != nil {
			failed++
			w.logger.ErrorContext(ctx, "Startup export failed", log.FieldCoupleID, id, log.FieldError, err)
		}
	}
	w.logger.InfoContext(ctx, "Startup export completed", "couples", len(ids), "errors", failed)
	return nil
}

// RecordOverdue scans for overdue tasks and unpaid quotes and adds one
// "overdue" feed entry per item per day. It returns how many were new.
func (w *ChangeWorker) RecordOverdue(ctx context.Context) (int, error) {
	today := w.now().UTC()
	report, err := w.repo.ScanOverdue(ctx, today)
	if err != nil {
		return 0, err
	}
	day := today.Format("2006-01-02")
	added := 0
	record := func(coupleID, entity, id, summary string) error {
		a := core.Activity{CoupleID: coupleID, Kind: "overdue", Entity: entity, EntityID: id, Summary: summary}
		ok, err := w.repo.AppendActivity(ctx, &a, "overdue:"+id+":"+day)
		if err != nil {
			return fmt.Errorf("record overdue %s: %w", entity, err)
		}
		if ok {
			added++
		}
		return nil
	}
	for _, t := range report.Tasks {
		summary := fmt.Sprintf("Task %q for %s was due %s", t.Title, t.EventName, t.DueDate.Format(core.DateLayout))
		if err := record(t.CoupleID, amqp.EntityTask, t.TaskID, summary); err != nil {
			return added, err
		}
	}
	for _, q := range report.Quotes {
		summary := fmt.Sprintf("%s still owed to %s, due %s",
			core.FormatCurrency(q.Outstanding, q.Currency), q.SupplierName, q.DueDate.Format(core.DateLayout))
		if err := record(q.CoupleID, amqp.EntityQuote, q.QuoteID, summary); err != nil {
			return added, err
		}
	}
	if added > 0 {
		w.logger.InfoContext(ctx, "Recorded overdue items", "count", added)
	}
	return added, nil
}
