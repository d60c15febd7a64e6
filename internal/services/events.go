package services

import (
	"context"
	"fmt"

	"roora/internal/amqp"
	"roora/internal/core"
)

// EventDetail is the read model behind an event page.
type EventDetail struct {
	Event     core.Event
	Suppliers []core.SupplierWithQuotes
	Tasks     []core.Task
	Summary   core.BudgetSummary
	Percent   int
	DaysUntil int
}

func (p *Planner) ListEvents(ctx context.Context, coupleID string) ([]core.Event, error) {
	return p.repo.ListEvents(ctx, coupleID)
}

func (p *Planner) GetEvent(ctx context.Context, coupleID, id string) (core.Event, error) {
	return p.repo.GetEvent(ctx, coupleID, id)
}

func (p *Planner) EventDetail(ctx context.Context, coupleID, id string) (EventDetail, error) {
	e, err := p.repo.GetEvent(ctx, coupleID, id)
	if err != nil {
		return EventDetail{}, err
	}
	d := EventDetail{Event: e}
	if d.Suppliers, err = p.repo.ListSuppliersByEvent(ctx, coupleID, id); err != nil {
		return EventDetail{}, err
	}
	if d.Tasks, err = p.repo.ListTasksByEvent(ctx, coupleID, id); err != nil {
		return EventDetail{}, err
	}
	d.Summary = core.CalculateBudgetSummary(d.Suppliers, e.Currency)
	d.Percent = core.CalculateUtilization(d.Summary.TotalQuoted, d.Summary.TotalDepositsPaid)
	if e.Date != nil {
		d.DaysUntil = core.DaysUntil(*e.Date, p.now())
	}
	return d, nil
}

// CreateEvent stores e for the couple. An empty currency falls back to the
// couple's primary currency. With checklist set, the default milestones for
// the event type are inserted alongside it.
func (p *Planner) CreateEvent(ctx context.Context, couple core.Couple, e core.Event, checklist bool) (core.Event, error) {
	e.ID = ""
	e.CoupleID = couple.ID
	if e.Currency == "" {
		e.Currency = couple.PrimaryCurrency
	}
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	var milestones []core.Task
	if checklist {
		milestones = core.DefaultChecklists().MilestoneTasks(e)
	}
	if err := p.repo.CreateEvent(ctx, &e, milestones); err != nil {
		return core.Event{}, fmt.Errorf("create event: %w", err)
	}
	p.changed(ctx, couple.ID, amqp.EntityEvent, e.ID, amqp.OpCreate, "Added event "+e.Name)
	return e, nil
}

func (p *Planner) UpdateEvent(ctx context.Context, couple core.Couple, e core.Event) error {
	e.CoupleID = couple.ID
	if e.Currency == "" {
		e.Currency = couple.PrimaryCurrency
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := p.repo.UpdateEvent(ctx, e); err != nil {
		return err
	}
	p.changed(ctx, couple.ID, amqp.EntityEvent, e.ID, amqp.OpUpdate, "Updated event "+e.Name)
	return nil
}

// DeleteEvent removes the event with its suppliers, quotes, payments and
// tasks.
func (p *Planner) DeleteEvent(ctx context.Context, coupleID, id string) error {
	e, err := p.repo.GetEvent(ctx, coupleID, id)
	if err != nil {
		return err
	}
	if err := p.repo.DeleteEvent(ctx, coupleID, id); err != nil {
		return err
	}
	p.changed(ctx, coupleID, amqp.EntityEvent, id, amqp.OpDelete, "Removed event "+e.Name)
	return nil
}
