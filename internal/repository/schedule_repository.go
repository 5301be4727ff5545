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

// TemplateRepository stores one slot template per weekday.
type TemplateRepository interface {
	List(ctx context.Context) ([]model.SlotTemplate, error)
	// Get returns ErrNotFound when the weekday has no template.
	Get(ctx context.Context, weekday int) (*model.SlotTemplate, error)
	Upsert(ctx context.Context, t model.SlotTemplate, now time.Time) error
}

// OverrideRepository stores date-specific schedule overrides.
type OverrideRepository interface {
	// GetByDate returns ErrNotFound when date has no override.
	GetByDate(ctx context.Context, date string) (*model.DateOverride, error)
	// ListFrom returns overrides on or after from, ordered by date.
	ListFrom(ctx context.Context, from string, limit int) ([]model.DateOverride, error)
	// Upsert inserts or replaces the override for o.Date and returns its id.
	Upsert(ctx context.Context, o model.DateOverride, now time.Time) (uint64, error)
	// Delete returns ErrNotFound when id does not exist.
	Delete(ctx context.Context, id uint64) error
}

type TemplateMySQLRepository struct {
	db Execer
}

func NewTemplateMySQLRepository(db Execer) *TemplateMySQLRepository {
	return &TemplateMySQLRepository{db: db}
}

func (r *TemplateMySQLRepository) List(ctx context.Context) ([]model.SlotTemplate, error) {
	const op = "repository.template.List"

	rows, err := r.db.QueryContext(ctx,
		`SELECT weekday, times_json, is_enabled, updated_at FROM schedule_weekday_templates ORDER BY weekday`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	out := make([]model.SlotTemplate, 0, 7)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *TemplateMySQLRepository) Get(ctx context.Context, weekday int) (*model.SlotTemplate, error) {
	const op = "repository.template.Get"

	t, err := scanTemplate(r.db.QueryRowContext(ctx,
		`SELECT weekday, times_json, is_enabled, updated_at FROM schedule_weekday_templates WHERE weekday = ?`,
		weekday))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

func (r *TemplateMySQLRepository) Upsert(ctx context.Context, t model.SlotTemplate, now time.Time) error {
	const op = "repository.template.Upsert"

	times, err := marshalClocks(t.Times)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO schedule_weekday_templates (weekday, times_json, is_enabled, updated_at)
		 VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE times_json = VALUES(times_json), is_enabled = VALUES(is_enabled),
		                         updated_at = VALUES(updated_at)`,
		t.Weekday, times, t.Enabled, now.UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

type OverrideMySQLRepository struct {
	db Execer
}

func NewOverrideMySQLRepository(db Execer) *OverrideMySQLRepository {
	return &OverrideMySQLRepository{db: db}
}

const overrideColumns = `id, DATE_FORMAT(date, '%Y-%m-%d'), is_closed, times_json`

func (r *OverrideMySQLRepository) GetByDate(ctx context.Context, date string) (*model.DateOverride, error) {
	const op = "repository.override.GetByDate"

	o, err := scanOverride(r.db.QueryRowContext(ctx,
		`SELECT `+overrideColumns+` FROM schedule_date_overrides WHERE date = ?`, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

func (r *OverrideMySQLRepository) ListFrom(ctx context.Context, from string, limit int) ([]model.DateOverride, error) {
	const op = "repository.override.ListFrom"

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+overrideColumns+` FROM schedule_date_overrides WHERE date >= ? ORDER BY date LIMIT ?`,
		from, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	out := make([]model.DateOverride, 0)
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *OverrideMySQLRepository) Upsert(ctx context.Context, o model.DateOverride, now time.Time) (uint64, error) {
	const op = "repository.override.Upsert"

	times, err := marshalClocks(o.Times)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	// LAST_INSERT_ID(id) makes the existing row's id visible on update.
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO schedule_date_overrides (date, is_closed, times_json, updated_at)
		 VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), is_closed = VALUES(is_closed),
		                         times_json = VALUES(times_json), updated_at = VALUES(updated_at)`,
		o.Date, o.Closed, times, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return uint64(id), nil
}

func (r *OverrideMySQLRepository) Delete(ctx context.Context, id uint64) error {
	const op = "repository.override.Delete"

	res, err := r.db.ExecContext(ctx, `DELETE FROM schedule_date_overrides WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return requireAffected(res)
}

func scanTemplate(row rowScanner) (*model.SlotTemplate, error) {
	var (
		t   model.SlotTemplate
		raw []byte
	)
	if err := row.Scan(&t.Weekday, &raw, &t.Enabled, &t.UpdatedAt); err != nil {
		return nil, err
	}
	times, err := unmarshalClocks(raw)
	if err != nil {
		return nil, fmt.Errorf("template %d times: %w", t.Weekday, err)
	}
	t.Times = times
	return &t, nil
}

func scanOverride(row rowScanner) (*model.DateOverride, error) {
	var (
		o   model.DateOverride
		raw []byte
	)
	if err := row.Scan(&o.ID, &o.Date, &o.Closed, &raw); err != nil {
		return nil, err
	}
	times, err := unmarshalClocks(raw)
	if err != nil {
		return nil, fmt.Errorf("override %s times: %w", o.Date, err)
	}
	o.Times = times
	return &o, nil
}

func marshalClocks(cs []slot.Clock) ([]byte, error) {
	return json.Marshal(slot.Strings(cs))
}

// unmarshalClocks accepts NULL or empty columns as an empty list.
func unmarshalClocks(raw []byte) ([]slot.Clock, error) {
	if len(raw) == 0 {
		return []slot.Clock{}, nil
	}
	var ss []string
	if err := json.Unmarshal(raw, &ss); err != nil {
		return nil, err
	}
	return slot.ParseList(ss)
}
