package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/slot"
)

// BookingRepository is the durable booking ledger.  Rows are never deleted;
// they only move between statuses.
type BookingRepository interface {
	// Create inserts b as given and returns the new id.
	Create(ctx context.Context, b *model.Booking) (uint64, error)
	// GetByID returns ErrNotFound when no row matches.  forUpdate takes a
	// row lock and must only be used inside a transaction.
	GetByID(ctx context.Context, id uint64, forUpdate bool) (*model.Booking, error)
	// ListActive returns pending and confirmed bookings on date.  Callers
	// drop stale pending rows themselves.
	ListActive(ctx context.Context, date string) ([]model.Booking, error)
	// List returns bookings newest first, optionally filtered by status.
	List(ctx context.Context, status model.BookingStatus, limit int) ([]model.Booking, error)
	// UpdateStatus sets status and overwrites admin_notes.
	UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus, notes *string, now time.Time) error
	// ResetCreatedAt restarts the pending clock of a booking.
	ResetCreatedAt(ctx context.Context, id uint64, now time.Time) error
	// ExpirePending moves pending rows created before cutoff to expired
	// and returns how many rows changed.
	ExpirePending(ctx context.Context, cutoff, now time.Time) (int64, error)
	// ExpirePendingOn is ExpirePending restricted to one date.
	ExpirePendingOn(ctx context.Context, date string, cutoff, now time.Time) (int64, error)
	// Stats counts pending rows, confirmed rows on today and confirmed
	// rows on or after weekStart.
	Stats(ctx context.Context, today, weekStart string) (model.BookingStats, error)
}

type BookingMySQLRepository struct {
	db Execer
}

func NewBookingMySQLRepository(db Execer) *BookingMySQLRepository {
	return &BookingMySQLRepository{db: db}
}

const bookingColumns = `id, DATE_FORMAT(date, '%Y-%m-%d'), time, end_time, customer_name, phone, email,
	dog_name, dog_notes, services, admin_notes, status, created_at, updated_at`

func (r *BookingMySQLRepository) Create(ctx context.Context, b *model.Booking) (uint64, error) {
	const op = "repository.booking.Create"

	services := b.Services
	if services == nil {
		services = []string{}
	}
	servicesJSON, err := json.Marshal(services)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var end any
	if b.EndTime != nil {
		end = b.EndTime.String()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO booking_requests
			(date, time, end_time, customer_name, phone, email, dog_name, dog_notes,
			 services, admin_notes, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.Date, b.Time.String(), end, b.CustomerName, b.Phone, b.Email,
		nullString(b.DogName), nullString(b.DogNotes), servicesJSON, nullString(b.AdminNotes),
		string(b.Status), b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return uint64(id), nil
}

func (r *BookingMySQLRepository) GetByID(ctx context.Context, id uint64, forUpdate bool) (*model.Booking, error) {
	const op = "repository.booking.GetByID"

	q := `SELECT ` + bookingColumns + ` FROM booking_requests WHERE id = ?`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	return b, nil
}

func (r *BookingMySQLRepository) ListActive(ctx context.Context, date string) ([]model.Booking, error) {
	const op = "repository.booking.ListActive"

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM booking_requests
		 WHERE date = ? AND status IN (?, ?)
		 ORDER BY time`,
		date, string(model.StatusPendingConfirmation), string(model.StatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	out, err := collectBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *BookingMySQLRepository) List(ctx context.Context, status model.BookingStatus, limit int) ([]model.Booking, error) {
	const op = "repository.booking.List"

	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+bookingColumns+` FROM booking_requests WHERE status = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
			string(status), limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+bookingColumns+` FROM booking_requests ORDER BY created_at DESC, id DESC LIMIT ?`,
			limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	out, err := collectBookings(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *BookingMySQLRepository) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus, notes *string, now time.Time) error {
	const op = "repository.booking.UpdateStatus"

	res, err := r.db.ExecContext(ctx,
		`UPDATE booking_requests SET status = ?, admin_notes = ?, updated_at = ? WHERE id = ?`,
		string(status), nullString(notes), now.UTC(), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return requireAffected(res)
}

func (r *BookingMySQLRepository) ResetCreatedAt(ctx context.Context, id uint64, now time.Time) error {
	const op = "repository.booking.ResetCreatedAt"

	res, err := r.db.ExecContext(ctx,
		`UPDATE booking_requests SET created_at = ?, updated_at = ? WHERE id = ?`,
		now.UTC(), now.UTC(), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return requireAffected(res)
}

func (r *BookingMySQLRepository) ExpirePending(ctx context.Context, cutoff, now time.Time) (int64, error) {
	const op = "repository.booking.ExpirePending"

	res, err := r.db.ExecContext(ctx,
		`UPDATE booking_requests SET status = ?, updated_at = ?
		 WHERE status = ? AND created_at < ?`,
		string(model.StatusExpired), now.UTC(), string(model.StatusPendingConfirmation), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (r *BookingMySQLRepository) ExpirePendingOn(ctx context.Context, date string, cutoff, now time.Time) (int64, error) {
	const op = "repository.booking.ExpirePendingOn"

	res, err := r.db.ExecContext(ctx,
		`UPDATE booking_requests SET status = ?, updated_at = ?
		 WHERE date = ? AND status = ? AND created_at < ?`,
		string(model.StatusExpired), now.UTC(), date, string(model.StatusPendingConfirmation), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (r *BookingMySQLRepository) Stats(ctx context.Context, today, weekStart string) (model.BookingStats, error) {
	const op = "repository.booking.Stats"

	var s model.BookingStats
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(status = ?), 0),
			COALESCE(SUM(status = ? AND date = ?), 0),
			COALESCE(SUM(status = ? AND date >= ?), 0)
		 FROM booking_requests`,
		string(model.StatusPendingConfirmation),
		string(model.StatusConfirmed), today,
		string(model.StatusConfirmed), weekStart,
	).Scan(&s.PendingConfirmation, &s.ConfirmedToday, &s.ConfirmedWeek)
	if err != nil {
		return s, fmt.Errorf("%s: %w", op, classify(err))
	}
	s.NewRequests = s.PendingConfirmation
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b          model.Booking
		start      string
		end        sql.NullString
		dogName    sql.NullString
		dogNotes   sql.NullString
		services   []byte
		adminNotes sql.NullString
		status     string
	)
	if err := row.Scan(&b.ID, &b.Date, &start, &end, &b.CustomerName, &b.Phone, &b.Email,
		&dogName, &dogNotes, &services, &adminNotes, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	t, err := slot.ParseClock(start)
	if err != nil {
		return nil, fmt.Errorf("booking %d time: %w", b.ID, err)
	}
	b.Time = t
	if end.Valid {
		e, err := slot.ParseClock(end.String)
		if err != nil {
			return nil, fmt.Errorf("booking %d end_time: %w", b.ID, err)
		}
		b.EndTime = &e
	}
	b.DogName = stringPtr(dogName)
	b.DogNotes = stringPtr(dogNotes)
	b.AdminNotes = stringPtr(adminNotes)
	b.Status = model.BookingStatus(status)
	b.Services = []string{}
	if len(services) > 0 {
		if err := json.Unmarshal(services, &b.Services); err != nil {
			return nil, fmt.Errorf("booking %d services: %w", b.ID, err)
		}
	}
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
