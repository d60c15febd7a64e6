package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"roora/internal/core"
)

const quoteColumns = `q.id, q.supplier_id, q.amount_cents, q.currency, q.deposit_required_cents,
 q.deposit_paid_cents, q.outstanding_balance_cents, q.due_date, q.quote_file_url, q.notes,
 q.is_accepted, q.created_at, q.updated_at`

// quoteScope restricts q (quotes) to the couple through supplier and event.
const quoteScope = ` JOIN suppliers s ON s.id = q.supplier_id JOIN events e ON e.id = s.event_id `

func scanQuote(s scanner) (core.Quote, error) {
	var qt core.Quote
	var currency, created, updated string
	var due sql.NullString
	var accepted int
	if err := s.Scan(&qt.ID, &qt.SupplierID, &qt.Amount.Cents, &currency, &qt.DepositRequired.Cents,
		&qt.DepositPaid.Cents, &qt.OutstandingBalance.Cents, &due, &qt.QuoteFileURL, &qt.Notes,
		&accepted, &created, &updated); err != nil {
		return core.Quote{}, err
	}
	qt.Currency = core.Currency(currency)
	qt.DueDate = parseDate(due)
	qt.IsAccepted = accepted != 0
	qt.CreatedAt = parseTime(created)
	qt.UpdatedAt = parseTime(updated)
	return qt, nil
}

func (q *Queries) queryQuotes(ctx context.Context, query string, args ...any) ([]core.Quote, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()
	var out []core.Quote
	for rows.Next() {
		qt, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, qt)
	}
	return out, rows.Err()
}

func (q *Queries) quotesForCouple(ctx context.Context, coupleID, eventID string) ([]core.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes q` + quoteScope + `WHERE e.couple_id = ?`
	args := []any{coupleID}
	if eventID != "" {
		query += ` AND e.id = ?`
		args = append(args, eventID)
	}
	return q.queryQuotes(ctx, query+` ORDER BY q.created_at`, args...)
}

// ListQuotes returns the supplier's quotes, oldest first, with payments.
func (q *Queries) ListQuotes(ctx context.Context, coupleID, supplierID string) ([]core.QuoteWithPayments, error) {
	quotes, err := q.queryQuotes(ctx,
		`SELECT `+quoteColumns+` FROM quotes q`+quoteScope+
			`WHERE q.supplier_id = ? AND e.couple_id = ? ORDER BY q.created_at`, supplierID, coupleID)
	if err != nil {
		return nil, err
	}
	out := make([]core.QuoteWithPayments, 0, len(quotes))
	for _, qt := range quotes {
		payments, err := q.ListPayments(ctx, coupleID, qt.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, core.QuoteWithPayments{Quote: qt, Payments: payments})
	}
	return out, nil
}

func (q *Queries) GetQuote(ctx context.Context, coupleID, id string) (core.Quote, error) {
	qt, err := scanQuote(q.db.QueryRowContext(ctx,
		`SELECT `+quoteColumns+` FROM quotes q`+quoteScope+`WHERE q.id = ? AND e.couple_id = ?`, id, coupleID))
	return qt, notFound(err)
}

// CreateQuote inserts qt when its supplier belongs to the couple. The
// outstanding balance is derived from amount and deposit paid.
func (q *Queries) CreateQuote(ctx context.Context, coupleID string, qt *core.Quote) error {
	now := q.now()
	if qt.ID == "" {
		qt.ID = uuid.NewString()
	}
	qt.CreatedAt, qt.UpdatedAt = now, now
	qt.Settle()
	err := affected(q.db.ExecContext(ctx,
		`INSERT INTO quotes (id, supplier_id, amount_cents, currency, deposit_required_cents,
		  deposit_paid_cents, outstanding_balance_cents, due_date, quote_file_url, notes,
		  is_accepted, created_at, updated_at)
		 SELECT ?, s.id, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 FROM suppliers s JOIN events e ON e.id = s.event_id
		 WHERE s.id = ? AND e.couple_id = ?`,
		qt.ID, qt.Amount.Cents, string(qt.Currency), qt.DepositRequired.Cents,
		qt.DepositPaid.Cents, qt.OutstandingBalance.Cents, formatDate(qt.DueDate), qt.QuoteFileURL,
		qt.Notes, boolInt(qt.IsAccepted), formatTime(now), formatTime(now),
		qt.SupplierID, coupleID))
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("insert quote: %w", err)
	}
	return err
}

// UpdateQuote rewrites the editable fields of qt and re-derives its
// outstanding balance.
func (q *Queries) UpdateQuote(ctx context.Context, coupleID string, qt core.Quote) error {
	qt.Settle()
	return affected(q.db.ExecContext(ctx,
		`UPDATE quotes SET amount_cents = ?, currency = ?, deposit_required_cents = ?,
		  deposit_paid_cents = ?, outstanding_balance_cents = ?, due_date = ?, notes = ?,
		  is_accepted = ?, updated_at = ?
		 WHERE id = ? AND supplier_id IN (
		   SELECT s.id FROM suppliers s JOIN events e ON e.id = s.event_id WHERE e.couple_id = ?)`,
		qt.Amount.Cents, string(qt.Currency), qt.DepositRequired.Cents, qt.DepositPaid.Cents,
		qt.OutstandingBalance.Cents, formatDate(qt.DueDate), qt.Notes, boolInt(qt.IsAccepted),
		formatTime(q.now()), qt.ID, coupleID))
}

// SetQuoteFile stores the URL of an uploaded quote document.
func (q *Queries) SetQuoteFile(ctx context.Context, coupleID, id, url string) error {
	return affected(q.db.ExecContext(ctx,
		`UPDATE quotes SET quote_file_url = ?, updated_at = ?
		 WHERE id = ? AND supplier_id IN (
		   SELECT s.id FROM suppliers s JOIN events e ON e.id = s.event_id WHERE e.couple_id = ?)`,
		url, formatTime(q.now()), id, coupleID))
}

func (q *Queries) DeleteQuote(ctx context.Context, coupleID, id string) error {
	return affected(q.db.ExecContext(ctx,
		`DELETE FROM quotes WHERE id = ? AND supplier_id IN (
		   SELECT s.id FROM suppliers s JOIN events e ON e.id = s.event_id WHERE e.couple_id = ?)`,
		id, coupleID))
}

// recomputeQuote sets deposit_paid to the sum of the quote's payments and
// re-derives the outstanding balance.
func (q *Queries) recomputeQuote(ctx context.Context, quoteID string) error {
	if _, err := q.db.ExecContext(ctx,
		`UPDATE quotes SET
		   deposit_paid_cents = (SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE quote_id = ?),
		   updated_at = ?
		 WHERE id = ?`, quoteID, formatTime(q.now()), quoteID); err != nil {
		return fmt.Errorf("recompute deposit paid: %w", err)
	}
	if _, err := q.db.ExecContext(ctx,
		`UPDATE quotes SET outstanding_balance_cents = amount_cents - deposit_paid_cents WHERE id = ?`,
		quoteID); err != nil {
		return fmt.Errorf("recompute outstanding balance: %w", err)
	}
	return nil
}
