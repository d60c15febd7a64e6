package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"roora/internal/core"
)

const paymentColumns = `p.id, p.quote_id, p.amount_cents, p.currency, p.paid_at, p.method, p.reference, p.notes, p.created_at`

const paymentScope = ` JOIN quotes q ON q.id = p.quote_id JOIN suppliers s ON s.id = q.supplier_id
 JOIN events e ON e.id = s.event_id `

func scanPayment(s scanner) (core.Payment, error) {
	var p core.Payment
	var currency, paidAt, method, created string
	if err := s.Scan(&p.ID, &p.QuoteID, &p.Amount.Cents, &currency, &paidAt, &method,
		&p.Reference, &p.Notes, &created); err != nil {
		return core.Payment{}, err
	}
	p.Currency = core.Currency(currency)
	p.PaidAt = parseTime(paidAt)
	p.Method = core.PaymentMethod(method)
	p.CreatedAt = parseTime(created)
	return p, nil
}

// ListPayments returns a quote's payments, most recent first.
func (q *Queries) ListPayments(ctx context.Context, coupleID, quoteID string) ([]core.Payment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p`+paymentScope+
			`WHERE p.quote_id = ? AND e.couple_id = ? ORDER BY p.paid_at DESC, p.created_at DESC`,
		quoteID, coupleID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	var out []core.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) GetPayment(ctx context.Context, coupleID, id string) (core.Payment, error) {
	p, err := scanPayment(q.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments p`+paymentScope+`WHERE p.id = ? AND e.couple_id = ?`,
		id, coupleID))
	return p, notFound(err)
}

// CreatePayment records p and recomputes the quote's deposit paid and
// outstanding balance in the same transaction. It returns the updated quote.
func (r *SQLiteRepository) CreatePayment(ctx context.Context, coupleID string, p *core.Payment) (core.Quote, error) {
	var updated core.Quote
	err := r.inTx(ctx, func(q *Queries) error {
		now := q.now()
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.PaidAt.IsZero() {
			p.PaidAt = now
		}
		p.CreatedAt = now
		err := affected(q.db.ExecContext(ctx,
			`INSERT INTO payments (id, quote_id, amount_cents, currency, paid_at, method, reference, notes, created_at)
			 SELECT ?, q.id, ?, ?, ?, ?, ?, ?, ?
			 FROM quotes q JOIN suppliers s ON s.id = q.supplier_id JOIN events e ON e.id = s.event_id
			 WHERE q.id = ? AND e.couple_id = ?`,
			p.ID, p.Amount.Cents, string(p.Currency), formatTime(p.PaidAt), string(p.Method),
			p.Reference, p.Notes, formatTime(now), p.QuoteID, coupleID))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return err
			}
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := q.recomputeQuote(ctx, p.QuoteID); err != nil {
			return err
		}
		updated, err = q.GetQuote(ctx, coupleID, p.QuoteID)
		return err
	})
	return updated, err
}

// DeletePayment removes a payment and recomputes its quote in the same
// transaction. It returns the updated quote.
func (r *SQLiteRepository) DeletePayment(ctx context.Context, coupleID, id string) (core.Quote, error) {
	var updated core.Quote
	err := r.inTx(ctx, func(q *Queries) error {
		p, err := q.GetPayment(ctx, coupleID, id)
		if err != nil {
			return err
		}
		if _, err := q.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		if err := q.recomputeQuote(ctx, p.QuoteID); err != nil {
			return err
		}
		updated, err = q.GetQuote(ctx, coupleID, p.QuoteID)
		return err
	})
	return updated, err
}
