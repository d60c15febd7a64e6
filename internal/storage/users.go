package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"roora/internal/core"
)

const userColumns = `id, email, display_name, password_hash, created_at`

func scanUser(s scanner) (*core.User, error) {
	var u core.User
	var created string
	if err := s.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// CreateUser inserts u, assigning an id and creation time when unset.
// A duplicate email yields ErrConflict.
func (q *Queries) CreateUser(ctx context.Context, u *core.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = q.now()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetProfile returns the public view of a user.
func (q *Queries) GetProfile(ctx context.Context, id string) (core.Profile, error) {
	var p core.Profile
	err := q.db.QueryRowContext(ctx,
		`SELECT id, display_name, avatar_url FROM users WHERE id = ?`, id).
		Scan(&p.ID, &p.DisplayName, &p.AvatarURL)
	if err != nil {
		return core.Profile{}, notFound(err)
	}
	return p, nil
}

func (q *Queries) UpdateDisplayName(ctx context.Context, id, name string) error {
	return affected(q.db.ExecContext(ctx,
		`UPDATE users SET display_name = ? WHERE id = ?`, name, id))
}
