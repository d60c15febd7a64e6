package storage

import (
	"context"
	"fmt"
	"time"
)

// ConsumeLoginCode marks the login code id as redeemed. It returns
// ErrConflict when the code was redeemed before. Rows for codes past
// their expiry are pruned in the same transaction, since an expired code
// is rejected before it gets here.
func (r *SQLiteRepository) ConsumeLoginCode(ctx context.Context, id, userID string, expiresAt time.Time) error {
	return r.inTx(ctx, func(q *Queries) error {
		now := q.now()
		if _, err := q.db.ExecContext(ctx,
			`DELETE FROM login_codes WHERE expires_at < ?`, formatTime(now)); err != nil {
			return fmt.Errorf("prune login codes: %w", err)
		}
		_, err := q.db.ExecContext(ctx,
			`INSERT INTO login_codes (id, user_id, expires_at, redeemed_at) VALUES (?, ?, ?, ?)`,
			id, userID, formatTime(expiresAt), formatTime(now))
		if isUniqueViolation(err) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("redeem login code: %w", err)
		}
		return nil
	})
}
