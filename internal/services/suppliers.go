package services

import (
	"context"
	"strings"

	"roora/internal/amqp"
	"roora/internal/core"
)

// ListSuppliers returns the couple's suppliers with their quotes, optionally
// narrowed to one event.
func (p *Planner) ListSuppliers(ctx context.Context, coupleID, eventID string) ([]core.SupplierWithQuotes, error) {
	if eventID != "" {
		return p.repo.ListSuppliersByEvent(ctx, coupleID, eventID)
	}
	return p.repo.ListSuppliers(ctx, coupleID)
}

func (p *Planner) GetSupplier(ctx context.Context, coupleID, id string) (core.SupplierDetail, error) {
	return p.repo.GetSupplier(ctx, coupleID, id)
}

func normalizeSupplier(s *core.Supplier) {
	s.Name = strings.TrimSpace(s.Name)
	s.Category = strings.TrimSpace(s.Category)
	if s.Status == "" {
		s.Status = core.SupplierResearching
	}
}

func (p *Planner) CreateSupplier(ctx context.Context, coupleID string, s core.Supplier) (core.Supplier, error) {
	s.ID = ""
	normalizeSupplier(&s)
	if err := s.Validate(); err != nil {
		return core.Supplier{}, err
	}
	if err := p.repo.CreateSupplier(ctx, coupleID, &s); err != nil {
		return core.Supplier{}, err
	}
	p.changed(ctx, coupleID, amqp.EntitySupplier, s.ID, amqp.OpCreate, "Added supplier "+s.Name)
	return s, nil
}

func (p *Planner) UpdateSupplier(ctx context.Context, coupleID string, s core.Supplier) error {
	normalizeSupplier(&s)
	if err := s.Validate(); err != nil {
		return err
	}
	if err := p.repo.UpdateSupplier(ctx, coupleID, s); err != nil {
		return err
	}
	p.changed(ctx, coupleID, amqp.EntitySupplier, s.ID, amqp.OpUpdate, "Updated supplier "+s.Name)
	return nil
}

func (p *Planner) DeleteSupplier(ctx context.Context, coupleID, id string) error {
	if err := p.repo.DeleteSupplier(ctx, coupleID, id); err != nil {
		return err
	}
	p.changed(ctx, coupleID, amqp.EntitySupplier, id, amqp.OpDelete, "Removed a supplier")
	return nil
}

// CreateQuote stores a quote for a supplier of the couple. An empty currency
// falls back to the supplier's event currency.
func (p *Planner) CreateQuote(ctx context.Context, coupleID string, q core.Quote) (core.Quote, error) {
	if err := p.prepareQuote(ctx, coupleID, &q); err != nil {
		return core.Quote{}, err
	}
	return p.insertQuote(ctx, coupleID, q)
}

// prepareQuote defaults the currency to the event's and validates q.
func (p *Planner) prepareQuote(ctx context.Context, coupleID string, q *core.Quote) error {
	q.ID = ""
	if q.Currency == "" {
		s, err := p.repo.GetSupplier(ctx, coupleID, q.SupplierID)
		if err != nil {
			return err
		}
		q.Currency = s.Event.Currency
	}
	return q.Validate()
}

func (p *Planner) insertQuote(ctx context.Context, coupleID string, q core.Quote) (core.Quote, error) {
	if err := p.repo.CreateQuote(ctx, coupleID, &q); err != nil {
		return core.Quote{}, err
	}
	p.changed(ctx, coupleID, amqp.EntityQuote, q.ID, amqp.OpCreate,
		"Added a quote of "+core.FormatCurrency(q.Amount, q.Currency))
	return q, nil
}

func (p *Planner) GetQuote(ctx context.Context, coupleID, id string) (core.Quote, error) {
	return p.repo.GetQuote(ctx, coupleID, id)
}

// UpdateQuote rewrites the editable fields of q. The supplier and the paid
// total come from the stored quote, since only payments move deposit_paid.
func (p *Planner) UpdateQuote(ctx context.Context, coupleID string, q core.Quote) error {
	current, err := p.repo.GetQuote(ctx, coupleID, q.ID)
	if err != nil {
		return err
	}
	q.SupplierID = current.SupplierID
	q.DepositPaid = current.DepositPaid
	if q.Currency == "" {
		q.Currency = current.Currency
	}
	if err := q.Validate(); err != nil {
		return err
	}
	if err := p.repo.UpdateQuote(ctx, coupleID, q); err != nil {
		return err
	}
	p.changed(ctx, coupleID, amqp.EntityQuote, q.ID, amqp.OpUpdate,
		"Updated a quote to "+core.FormatCurrency(q.Amount, q.Currency))
	return nil
}

func (p *Planner) DeleteQuote(ctx context.Context, coupleID, id string) error {
	if err := p.repo.DeleteQuote(ctx, coupleID, id); err != nil {
		return err
	}
	p.changed(ctx, coupleID, amqp.EntityQuote, id, amqp.OpDelete, "Removed a quote")
	return nil
}

// CreatePayment records a payment against a quote; the quote's deposit paid
// and outstanding balance are recomputed in the same transaction. An empty
// currency falls back to the quote's currency.
func (p *Planner) CreatePayment(ctx context.Context, coupleID string, pay core.Payment) (core.Quote, error) {
	pay.ID = ""
	if pay.Method == "" {
		pay.Method = core.PaymentBankTransfer
	}
	if pay.Currency == "" {
		q, err := p.repo.GetQuote(ctx, coupleID, pay.QuoteID)
		if err != nil {
			return core.Quote{}, err
		}
		pay.Currency = q.Currency
	}
	if err := pay.Validate(); err != nil {
		return core.Quote{}, err
	}
	q, err := p.repo.CreatePayment(ctx, coupleID, &pay)
	if err != nil {
		return core.Quote{}, err
	}
	p.changed(ctx, coupleID, amqp.EntityPayment, pay.ID, amqp.OpCreate,
		"Paid "+core.FormatCurrency(pay.Amount, pay.Currency))
	return q, nil
}

func (p *Planner) DeletePayment(ctx context.Context, coupleID, id string) (core.Quote, error) {
	q, err := p.repo.DeletePayment(ctx, coupleID, id)
	if err != nil {
		return core.Quote{}, err
	}
	p.changed(ctx, coupleID, amqp.EntityPayment, id, amqp.OpDelete, "Removed a payment")
	return q, nil
}
