package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
)

// AuditRepository appends staff actions to audit_log.
type AuditRepository interface {
	Insert(ctx context.Context, e model.AuditEntry, at time.Time) error
	// Recent returns the newest entries first.
	Recent(ctx context.Context, limit int) ([]model.AuditRecord, error)
}

type AuditMySQLRepository struct {
	db Execer
}

func NewAuditMySQLRepository(db Execer) *AuditMySQLRepository {
	return &AuditMySQLRepository{db: db}
}

// auditMeta is the JSON stored in audit_log.meta_json.
type auditMeta struct {
	Previous model.BookingStatus `json:"previous,omitempty"`
}

func (r *AuditMySQLRepository) Insert(ctx context.Context, e model.AuditEntry, at time.Time) error {
	const op = "repository.audit.Insert"

	meta, err := json.Marshal(auditMeta{Previous: e.BeforeStatus})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	var actor any
	if e.ActorID != 0 {
		actor = e.ActorID
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_log (actor_id, action, entity, entity_id, meta_json, created_at) VALUES (?,?,?,?,?,?)`,
		actor, e.Action, e.Entity, e.EntityID, meta, at.UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

func (r *AuditMySQLRepository) Recent(ctx context.Context, limit int) ([]model.AuditRecord, error) {
	const op = "repository.audit.Recent"

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, actor_id, action, entity, entity_id, meta_json, created_at
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer rows.Close()

	out := make([]model.AuditRecord, 0)
	for rows.Next() {
		var (
			rec   model.AuditRecord
			actor sql.NullInt64
			meta  []byte
		)
		if err := rows.Scan(&rec.ID, &actor, &rec.Action, &rec.Entity, &rec.EntityID, &meta, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if actor.Valid {
			rec.ActorID = uint64(actor.Int64)
		}
		if len(meta) > 0 {
			var m auditMeta
			if err := json.Unmarshal(meta, &m); err == nil {
				rec.BeforeStatus = m.Previous
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
