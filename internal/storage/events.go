package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"roora/internal/core"
)

const eventColumns = `id, couple_id, name, type, date, location, currency, budget_cents, notes, created_at, updated_at`

func scanEvent(s scanner) (core.Event, error) {
	var e core.Event
	var typ, currency, created, updated string
	var date sql.NullString
	if err := s.Scan(&e.ID, &e.CoupleID, &e.Name, &typ, &date, &e.Location, &currency,
		&e.Budget.Cents, &e.Notes, &created, &updated); err != nil {
		return core.Event{}, err
	}
	e.Type = core.EventType(typ)
	e.Currency = core.Currency(currency)
	e.Date = parseDate(date)
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return e, nil
}

// ListEvents returns the couple's events by date, undated events last.
func (q *Queries) ListEvents(ctx context.Context, coupleID string) ([]core.Event, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE couple_id = ?
		 ORDER BY date IS NULL, date ASC, created_at ASC`, coupleID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) GetEvent(ctx context.Context, coupleID, id string) (core.Event, error) {
	e, err := scanEvent(q.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ? AND couple_id = ?`, id, coupleID))
	return e, notFound(err)
}

func (q *Queries) insertEvent(ctx context.Context, e *core.Event) error {
	now := q.now()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt, e.UpdatedAt = now, now
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CoupleID, e.Name, string(e.Type), formatDate(e.Date), e.Location,
		string(e.Currency), e.Budget.Cents, e.Notes, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (q *Queries) UpdateEvent(ctx context.Context, e core.Event) error {
	return affected(q.db.ExecContext(ctx,
		`UPDATE events SET name = ?, type = ?, date = ?, location = ?, currency = ?,
		 budget_cents = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND couple_id = ?`,
		e.Name, string(e.Type), formatDate(e.Date), e.Location, string(e.Currency),
		e.Budget.Cents, e.Notes, formatTime(q.now()), e.ID, e.CoupleID))
}

// DeleteEvent removes the event and, through cascades, its suppliers,
// quotes, payments and tasks.
func (q *Queries) DeleteEvent(ctx context.Context, coupleID, id string) error {
	return affected(q.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = ? AND couple_id = ?`, id, coupleID))
}

// CreateEvent inserts the event and its milestone tasks in one transaction.
func (r *SQLiteRepository) CreateEvent(ctx context.Context, e *core.Event, milestones []core.Task) error {
	return r.inTx(ctx, func(q *Queries) error {
		if err := q.insertEvent(ctx, e); err != nil {
			return err
		}
		for i := range milestones {
			milestones[i].EventID = e.ID
			if err := q.CreateTask(ctx, e.CoupleID, &milestones[i]); err != nil {
				return fmt.Errorf("insert milestone: %w", err)
			}
		}
		return nil
	})
}
