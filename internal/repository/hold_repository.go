package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

// HoldRepository is the hold ledger.  Holds are never updated: they are
// inserted, redeemed (deleted) or reaped once expired.  A hold is live
// while expires_at > now.
type HoldRepository interface {
	// DeleteExpired removes every hold with expires_at <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// DeleteExpiredAt removes expired holds on one (date, time).
	DeleteExpiredAt(ctx context.Context, date string, at slot.Clock, now time.Time) (int64, error)
	// ListLive returns the live holds on date without locking.
	ListLive(ctx context.Context, date string, now time.Time) ([]model.Hold, error)
	// FindLiveAt is a locking read of the live hold on (date, time).
	// ErrNotFound when the slot is not held.
	FindLiveAt(ctx context.Context, date string, at slot.Clock, now time.Time) (*model.Hold, error)
	// FindLiveByToken is a locking read of a live hold by token.
	// ErrNotFound when the token is unknown or the hold has expired.
	FindLiveByToken(ctx context.Context, token string, now time.Time) (*model.Hold, error)
	// Create inserts h and fills in its ID.
	Create(ctx context.Context, h *model.Hold) error
	Delete(ctx context.Context, id uint64) error
}

type HoldMySQLRepository struct {
	db Execer
}

func NewHoldMySQLRepository(db Execer) *HoldMySQLRepository {
	return &HoldMySQLRepository{db: db}
}

const holdColumns = `id, DATE_FORMAT(date, '%Y-%m-%d'), time, token, expires_at, created_at`

func (r *HoldMySQLRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const op = "repository.hold.DeleteExpired"

	res, err := r.db.ExecContext(ctx, `DELETE FROM booking_holds WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}
	return res.RowsAffected()
}

func (r *HoldMySQLRepository) DeleteExpiredAt(ctx context.Context, date string, at slot.Clock, now time.Time) (int64, error) {
	const op = "repository.hold.DeleteExpiredAt"

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM booking_holds WHERE date = ? AND time = ? AND expires_at <= ?`,
		date, at.String(), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}
	return res.RowsAffected()
}

func (r *HoldMySQLRepository) ListLive(ctx context.Context, date string, now time.Time) ([]model.Hold, error) {
	const op = "repository.hold.ListLive"

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+holdColumns+` FROM booking_holds WHERE date = ? AND expires_at > ? ORDER BY time`,
		date, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	out := make([]model.Hold, 0)
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *HoldMySQLRepository) FindLiveAt(ctx context.Context, date string, at slot.Clock, now time.Time) (*model.Hold, error) {
	const op = "repository.hold.FindLiveAt"

	h, err := scanHold(r.db.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM booking_holds
		 WHERE date = ? AND time = ? AND expires_at > ? LIMIT 1 FOR UPDATE`,
		date, at.String(), now.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return h, nil
}

func (r *HoldMySQLRepository) FindLiveByToken(ctx context.Context, token string, now time.Time) (*model.Hold, error) {
	const op = "repository.hold.FindLiveByToken"

	h, err := scanHold(r.db.QueryRowContext(ctx,
		`SELECT `+holdColumns+` FROM booking_holds
		 WHERE token = ? AND expires_at > ? LIMIT 1 FOR UPDATE`,
		token, now.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return h, nil
}

func (r *HoldMySQLRepository) Create(ctx context.Context, h *model.Hold) error {
	const op = "repository.hold.Create"

	if h.Token == "" {
		tok, err := NewHoldToken()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		h.Token = tok
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO booking_holds (date, time, token, expires_at, created_at) VALUES (?,?,?,?,?)`,
		h.Date, h.Time.String(), h.Token, h.ExpiresAt.UTC(), h.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	h.ID = uint64(id)
	return nil
}

func (r *HoldMySQLRepository) Delete(ctx context.Context, id uint64) error {
	const op = "repository.hold.Delete"

	if _, err := r.db.ExecContext(ctx, `DELETE FROM booking_holds WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

// NewHoldToken returns 16 random bytes, hex encoded.
func NewHoldToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func scanHold(row rowScanner) (*model.Hold, error) {
	var (
		h  model.Hold
		at string
	)
	if err := row.Scan(&h.ID, &h.Date, &at, &h.Token, &h.ExpiresAt, &h.CreatedAt); err != nil {
		return nil, err
	}
	c, err := slot.ParseClock(at)
	if err != nil {
		return nil, fmt.Errorf("hold %d time: %w", h.ID, err)
	}
	h.Time = c
	return &h, nil
}
