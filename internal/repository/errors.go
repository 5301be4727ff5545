// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation engine and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with a unique key, such
// as a duplicate staff email or hold token.
var ErrConflict = errors.New("conflict")

// ErrTransient marks lock-wait timeouts and deadlocks.  The whole
// transaction may be retried.
var ErrTransient = errors.New("transient transaction failure")

// MySQL server error numbers we classify.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// classify maps driver errors onto the sentinels above.  Errors it does
// not recognise are returned unchanged.
func classify(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case mysqlDuplicateEntry:
		return fmt.Errorf("%w: %s", ErrConflict, me.Message)
	case mysqlLockWaitTimeout, mysqlDeadlock:
		return fmt.Errorf("%w: %s", ErrTransient, me.Message)
	}
	return err
}

// IsTransient reports whether err is safe to retry as a whole transaction.
func IsTransient(err error) bool {
	return errors.Is(classify(err), ErrTransient)
}
