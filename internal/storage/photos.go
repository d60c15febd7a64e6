package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"roora/internal/core"
)

const photoColumns = `id, couple_id, file_url, file_path, caption, created_at`

func scanPhoto(s scanner) (core.InspirationPhoto, error) {
	var p core.InspirationPhoto
	var created string
	if err := s.Scan(&p.ID, &p.CoupleID, &p.FileURL, &p.FilePath, &p.Caption, &created); err != nil {
		return core.InspirationPhoto{}, err
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

// ListPhotos returns the couple's inspiration photos, newest first.
func (q *Queries) ListPhotos(ctx context.Context, coupleID string) ([]core.InspirationPhoto, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM inspiration_photos WHERE couple_id = ?
		 ORDER BY created_at DESC`, coupleID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()
	var out []core.InspirationPhoto
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) GetPhoto(ctx context.Context, coupleID, id string) (core.InspirationPhoto, error) {
	p, err := scanPhoto(q.db.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM inspiration_photos WHERE id = ? AND couple_id = ?`, id, coupleID))
	return p, notFound(err)
}

func (q *Queries) CreatePhoto(ctx context.Context, p *core.InspirationPhoto) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = q.now()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO inspiration_photos (`+photoColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.CoupleID, p.FileURL, p.FilePath, p.Caption, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

func (q *Queries) DeletePhoto(ctx context.Context, coupleID, id string) error {
	return affected(q.db.ExecContext(ctx,
		`DELETE FROM inspiration_photos WHERE id = ? AND couple_id = ?`, id, coupleID))
}
