package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SettingsRepository reads and writes integer rows of site_settings.
type SettingsRepository interface {
	// GetInts returns the stored values for keys.  Missing keys and
	// non-numeric values are left out of the result.
	GetInts(ctx context.Context, keys ...string) (map[string]int, error)
	SetInt(ctx context.Context, key string, value int, now time.Time) error
}

type SettingsMySQLRepository struct {
	db Execer
}

func NewSettingsMySQLRepository(db Execer) *SettingsMySQLRepository {
	return &SettingsMySQLRepository{db: db}
}

func (r *SettingsMySQLRepository) GetInts(ctx context.Context, keys ...string) (map[string]int, error) {
	const op = "repository.settings.GetInts"

	out := make(map[string]int, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	rows, err := r.db.QueryContext(ctx,
		`SELECT setting_key, setting_value FROM site_settings WHERE setting_key IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		out[k] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *SettingsMySQLRepository) SetInt(ctx context.Context, key string, value int, now time.Time) error {
	const op = "repository.settings.SetInt"

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO site_settings (setting_key, setting_value, updated_at) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value), updated_at = VALUES(updated_at)`,
		key, strconv.Itoa(value), now.UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}
