package repository

import (
	"context"
	"fmt"
)

// DayLockRepository serialises slot claims per calendar date.  Every hold
// insert, booking insert and hold redemption on a date takes the same row
// lock first, so claims on one date are ordered by commit.
type DayLockRepository interface {
	// Lock blocks until the caller's transaction owns the row for date.
	Lock(ctx context.Context, date string) error
}

type DayLockMySQLRepository struct {
	db Execer
}

func NewDayLockMySQLRepository(db Execer) *DayLockMySQLRepository {
	return &DayLockMySQLRepository{db: db}
}

func (r *DayLockMySQLRepository) Lock(ctx context.Context, date string) error {
	const op = "repository.daylock.Lock"

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO booking_day_locks (date) VALUES (?) ON DUPLICATE KEY UPDATE date = date`,
		date); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	var locked string
	if err := r.db.QueryRowContext(ctx,
		`SELECT DATE_FORMAT(date, '%Y-%m-%d') FROM booking_day_locks WHERE date = ? FOR UPDATE`,
		date).Scan(&locked); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}
