package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Execer is satisfied by both *sql.DB and *sql.Tx so a repository can run
// inside or outside a transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories bundles every repository bound to one Execer.
type Repositories struct {
	Templates TemplateRepository
	Overrides OverrideRepository
	Settings  SettingsRepository
	Holds     HoldRepository
	Bookings  BookingRepository
	DayLocks  DayLockRepository
	Audit     AuditRepository
}

// NewRepositories binds all MySQL repositories to execer.
func NewRepositories(execer Execer) Repositories {
	return Repositories{
		Templates: NewTemplateMySQLRepository(execer),
		Overrides: NewOverrideMySQLRepository(execer),
		Settings:  NewSettingsMySQLRepository(execer),
		Holds:     NewHoldMySQLRepository(execer),
		Bookings:  NewBookingMySQLRepository(execer),
		DayLocks:  NewDayLockMySQLRepository(execer),
		Audit:     NewAuditMySQLRepository(execer),
	}
}

// TxManager runs fn inside one transaction.  fn receives repositories bound
// to that transaction; returning an error rolls everything back.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// MySQLTxManager opens READ COMMITTED transactions on db.  Locking reads
// (SELECT ... FOR UPDATE) inside fn provide the ordering guarantees; the
// isolation level keeps the non-locking reads cheap.
type MySQLTxManager struct {
	db *sql.DB
}

func NewMySQLTxManager(db *sql.DB) *MySQLTxManager {
	return &MySQLTxManager{db: db}
}

func (m *MySQLTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", classify(err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", classify(err))
	}
	committed = true
	return nil
}
