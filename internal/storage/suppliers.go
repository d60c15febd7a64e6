package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"roora/internal/core"
)

const supplierColumns = `s.id, s.event_id, s.name, s.category, s.contact_name, s.phone, s.whatsapp_number,
 s.social_media, s.email, s.notes, s.status, s.created_at, s.updated_at`

func scanSupplierInto(s *core.Supplier, extra ...any) []any {
	return append([]any{&s.ID, &s.EventID, &s.Name, &s.Category, &s.ContactName, &s.Phone,
		&s.WhatsAppNumber, &s.SocialMedia, &s.Email, &s.Notes}, extra...)
}

// ListSuppliers returns every supplier of the couple with its quotes and
// event, ordered by event date then supplier name.
func (q *Queries) ListSuppliers(ctx context.Context, coupleID string) ([]core.SupplierWithQuotes, error) {
	return q.listSuppliers(ctx, coupleID, "")
}

// ListSuppliersByEvent is ListSuppliers restricted to one event.
func (q *Queries) ListSuppliersByEvent(ctx context.Context, coupleID, eventID string) ([]core.SupplierWithQuotes, error) {
	return q.listSuppliers(ctx, coupleID, eventID)
}

func (q *Queries) listSuppliers(ctx context.Context, coupleID, eventID string) ([]core.SupplierWithQuotes, error) {
	query := `SELECT ` + supplierColumns + `, e.name, e.type
		FROM suppliers s JOIN events e ON e.id = s.event_id
		WHERE e.couple_id = ?`
	args := []any{coupleID}
	if eventID != "" {
		query += ` AND e.id = ?`
		args = append(args, eventID)
	}
	query += ` ORDER BY e.date IS NULL, e.date, s.name COLLATE NOCASE`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var out []core.SupplierWithQuotes
	index := map[string]int{}
	for rows.Next() {
		var s core.SupplierWithQuotes
		var status, created, updated, eventType string
		if err := rows.Scan(scanSupplierInto(&s.Supplier, &status, &created, &updated, &s.EventName, &eventType)...); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		s.Status = core.SupplierStatus(status)
		s.CreatedAt = parseTime(created)
		s.UpdatedAt = parseTime(updated)
		s.EventType = core.EventType(eventType)
		index[s.ID] = len(out)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	quotes, err := q.quotesForCouple(ctx, coupleID, eventID)
	if err != nil {
		return nil, err
	}
	for _, qt := range quotes {
		if i, ok := index[qt.SupplierID]; ok {
			out[i].Quotes = append(out[i].Quotes, qt)
		}
	}
	return out, nil
}

// GetSupplier returns the supplier with its event and its quotes, each
// carrying its payments.
func (q *Queries) GetSupplier(ctx context.Context, coupleID, id string) (core.SupplierDetail, error) {
	var d core.SupplierDetail
	var status, created, updated string
	err := q.db.QueryRowContext(ctx,
		`SELECT `+supplierColumns+`
		 FROM suppliers s JOIN events e ON e.id = s.event_id
		 WHERE s.id = ? AND e.couple_id = ?`, id, coupleID).
		Scan(scanSupplierInto(&d.Supplier, &status, &created, &updated)...)
	if err != nil {
		return core.SupplierDetail{}, notFound(err)
	}
	d.Status = core.SupplierStatus(status)
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)

	if d.Event, err = q.GetEvent(ctx, coupleID, d.EventID); err != nil {
		return core.SupplierDetail{}, fmt.Errorf("load supplier event: %w", err)
	}
	if d.Quotes, err = q.ListQuotes(ctx, coupleID, id); err != nil {
		return core.SupplierDetail{}, err
	}
	return d, nil
}

// SupplierInCouple reports whether the supplier belongs to the couple.
func (q *Queries) SupplierInCouple(ctx context.Context, coupleID, id string) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx,
		`SELECT 1 FROM suppliers s JOIN events e ON e.id = s.event_id
		 WHERE s.id = ? AND e.couple_id = ?`, id, coupleID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// CreateSupplier inserts s under its event. The insert only happens when the
// event belongs to the couple; otherwise ErrNotFound.
func (q *Queries) CreateSupplier(ctx context.Context, coupleID string, s *core.Supplier) error {
	now := q.now()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt, s.UpdatedAt = now, now
	err := affected(q.db.ExecContext(ctx,
		`INSERT INTO suppliers (id, event_id, name, category, contact_name, phone, whatsapp_number,
		  social_media, email, notes, status, created_at, updated_at)
		 SELECT ?, e.id, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 FROM events e WHERE e.id = ? AND e.couple_id = ?`,
		s.ID, s.Name, s.Category, s.ContactName, s.Phone, s.WhatsAppNumber,
		s.SocialMedia, s.Email, s.Notes, string(s.Status), formatTime(now), formatTime(now),
		s.EventID, coupleID))
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("insert supplier: %w", err)
	}
	return err
}

// UpdateSupplier rewrites s. Both the supplier and its (possibly new) event
// must belong to the couple.
func (q *Queries) UpdateSupplier(ctx context.Context, coupleID string, s core.Supplier) error {
	return affected(q.db.ExecContext(ctx,
		`UPDATE suppliers SET event_id = ?, name = ?, category = ?, contact_name = ?, phone = ?,
		  whatsapp_number = ?, social_media = ?, email = ?, notes = ?, status = ?, updated_at = ?
		 WHERE id = ?
		   AND event_id IN (SELECT id FROM events WHERE couple_id = ?)
		   AND EXISTS (SELECT 1 FROM events WHERE id = ? AND couple_id = ?)`,
		s.EventID, s.Name, s.Category, s.ContactName, s.Phone, s.WhatsAppNumber,
		s.SocialMedia, s.Email, s.Notes, string(s.Status), formatTime(q.now()),
		s.ID, coupleID, s.EventID, coupleID))
}

func (q *Queries) DeleteSupplier(ctx context.Context, coupleID, id string) error {
	return affected(q.db.ExecContext(ctx,
		`DELETE FROM suppliers WHERE id = ?
		 AND event_id IN (SELECT id FROM events WHERE couple_id = ?)`, id, coupleID))
}
