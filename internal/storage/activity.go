package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"roora/internal/core"
)

// AppendActivity adds a feed entry. A non-empty dedupeKey makes the insert
// idempotent: it reports false when the key was already recorded.
func (q *Queries) AppendActivity(ctx context.Context, a *core.Activity, dedupeKey string) (bool, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = q.now()
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO activities (id, couple_id, kind, entity, entity_id, summary, dedupe_key, created_at)
		 SELECT ?, c.id, ?, ?, ?, ?, ?, ?
		 FROM couples c WHERE c.id = ?
		 ON CONFLICT(dedupe_key) DO NOTHING`,
		a.ID, a.Kind, a.Entity, a.EntityID, a.Summary, nullString(dedupeKey),
		formatTime(a.CreatedAt), a.CoupleID)
	if err != nil {
		return false, fmt.Errorf("insert activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListActivities returns the couple's most recent feed entries.
func (q *Queries) ListActivities(ctx context.Context, coupleID string, limit int) ([]core.Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, couple_id, kind, entity, entity_id, summary, created_at
		 FROM activities WHERE couple_id = ? ORDER BY created_at DESC LIMIT ?`, coupleID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()
	var out []core.Activity
	for rows.Next() {
		var a core.Activity
		var created string
		if err := rows.Scan(&a.ID, &a.CoupleID, &a.Kind, &a.Entity, &a.EntityID, &a.Summary, &created); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.CreatedAt = parseTime(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

// OverdueTask is an open task past its due date.
type OverdueTask struct {
	CoupleID  string
	TaskID    string
	Title     string
	EventName string
	DueDate   time.Time
}

// OverdueQuote is a quote past its due date with a positive balance.
type OverdueQuote struct {
	CoupleID     string
	QuoteID      string
	SupplierName string
	Outstanding  core.Money
	Currency     core.Currency
	DueDate      time.Time
}

// OverdueReport groups the findings of one scan.
type OverdueReport struct {
	Tasks  []OverdueTask
	Quotes []OverdueQuote
}

// ScanOverdue finds, across all couples, open tasks and unpaid quotes whose
// due date is before today.
func (q *Queries) ScanOverdue(ctx context.Context, today time.Time) (OverdueReport, error) {
	var report OverdueReport
	day := today.Format(dateLayout)

	rows, err := q.db.QueryContext(ctx,
		`SELECT e.couple_id, t.id, t.title, e.name, t.due_date
		 FROM tasks t JOIN events e ON e.id = t.event_id
		 WHERE t.due_date IS NOT NULL AND t.due_date < ? AND t.status != ?
		 ORDER BY t.due_date`, day, string(core.TaskCompleted))
	if err != nil {
		return report, fmt.Errorf("scan overdue tasks: %w", err)
	}
	for rows.Next() {
		var o OverdueTask
		var due string
		if err := rows.Scan(&o.CoupleID, &o.TaskID, &o.Title, &o.EventName, &due); err != nil {
			rows.Close()
			return report, fmt.Errorf("scan overdue task: %w", err)
		}
		o.DueDate, _ = time.Parse(dateLayout, due)
		report.Tasks = append(report.Tasks, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return report, err
	}

	rows, err = q.db.QueryContext(ctx,
		`SELECT e.couple_id, q.id, s.name, q.outstanding_balance_cents, q.currency, q.due_date
		 FROM quotes q JOIN suppliers s ON s.id = q.supplier_id JOIN events e ON e.id = s.event_id
		 WHERE q.due_date IS NOT NULL AND q.due_date < ? AND q.outstanding_balance_cents > 0
		 ORDER BY q.due_date`, day)
	if err != nil {
		return report, fmt.Errorf("scan overdue quotes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var o OverdueQuote
		var currency, due string
		if err := rows.Scan(&o.CoupleID, &o.QuoteID, &o.SupplierName, &o.Outstanding.Cents, &currency, &due); err != nil {
			return report, fmt.Errorf("scan overdue quote: %w", err)
		}
		o.Currency = core.Currency(currency)
		o.DueDate, _ = time.Parse(dateLayout, due)
		report.Quotes = append(report.Quotes, o)
	}
	return report, rows.Err()
}
