package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"roora/internal/core"
)

const coupleColumns = `id, name, primary_currency, total_budget_cents, invite_code, created_at, updated_at`

func scanCouple(s scanner) (core.Couple, error) {
	var c core.Couple
	var currency, created, updated string
	if err := s.Scan(&c.ID, &c.Name, &currency, &c.TotalBudget.Cents, &c.InviteCode, &created, &updated); err != nil {
		return core.Couple{}, err
	}
	c.PrimaryCurrency = core.Currency(currency)
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}

func (q *Queries) insertCouple(ctx context.Context, c *core.Couple) error {
	now := q.now()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO couples (`+coupleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.PrimaryCurrency), c.TotalBudget.Cents, c.InviteCode,
		formatTime(now), formatTime(now))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert couple: %w", err)
	}
	return nil
}

// AddMembership links a user to a couple. Joining twice yields ErrConflict.
func (q *Queries) AddMembership(ctx context.Context, m *core.Membership) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = q.now()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO memberships (id, couple_id, user_id, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.CoupleID, m.UserID, string(m.Role), formatTime(m.CreatedAt))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (q *Queries) GetCouple(ctx context.Context, id string) (core.Couple, error) {
	c, err := scanCouple(q.db.QueryRowContext(ctx,
		`SELECT `+coupleColumns+` FROM couples WHERE id = ?`, id))
	return c, notFound(err)
}

func (q *Queries) GetCoupleByInviteCode(ctx context.Context, code string) (core.Couple, error) {
	c, err := scanCouple(q.db.QueryRowContext(ctx,
		`SELECT `+coupleColumns+` FROM couples WHERE invite_code = ?`, code))
	return c, notFound(err)
}

func (q *Queries) UpdateCoupleBudget(ctx context.Context, coupleID string, budget core.Money) error {
	return affected(q.db.ExecContext(ctx,
		`UPDATE couples SET total_budget_cents = ?, updated_at = ? WHERE id = ?`,
		budget.Cents, formatTime(q.now()), coupleID))
}

// MembershipForUser returns the user's oldest membership.
func (q *Queries) MembershipForUser(ctx context.Context, userID string) (core.Membership, error) {
	var m core.Membership
	var role, created string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, couple_id, user_id, role, created_at FROM memberships
		 WHERE user_id = ? ORDER BY created_at ASC LIMIT 1`, userID).
		Scan(&m.ID, &m.CoupleID, &m.UserID, &role, &created)
	if err != nil {
		return core.Membership{}, notFound(err)
	}
	m.Role = core.MemberRole(role)
	m.CreatedAt = parseTime(created)
	return m, nil
}

// ListMembers returns the couple's members with their display names.
func (q *Queries) ListMembers(ctx context.Context, coupleID string) ([]core.Member, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT m.id, m.couple_id, m.user_id, m.role, m.created_at, u.display_name, u.email
		 FROM memberships m JOIN users u ON u.id = m.user_id
		 WHERE m.couple_id = ? ORDER BY m.created_at ASC`, coupleID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var m core.Member
		var role, created string
		if err := rows.Scan(&m.ID, &m.CoupleID, &m.UserID, &role, &created, &m.DisplayName, &m.Email); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Role = core.MemberRole(role)
		m.CreatedAt = parseTime(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListCoupleIDs returns every couple id, for batch jobs.
func (q *Queries) ListCoupleIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM couples ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list couples: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateCouple inserts the couple and the creator's membership atomically.
func (r *SQLiteRepository) CreateCouple(ctx context.Context, c *core.Couple, m *core.Membership) error {
	return r.inTx(ctx, func(q *Queries) error {
		if err := q.insertCouple(ctx, c); err != nil {
			return err
		}
		m.CoupleID = c.ID
		return q.AddMembership(ctx, m)
	})
}
