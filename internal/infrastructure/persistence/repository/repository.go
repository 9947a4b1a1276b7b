// Package repository implements the persistence ports on sqlite.
// Money columns hold exact decimal strings.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/bizflow/internal/domain/entity"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// conditions collects the AND-ed predicates of a list filter
type conditions struct {
	clauses []string
	args    []interface{}
}

func (c *conditions) addInt64(column string, v *int64) {
	if v != nil {
		c.clauses = append(c.clauses, column+" = ?")
		c.args = append(c.args, *v)
	}
}

func (c *conditions) addString(column string, v *string) {
	if v != nil {
		c.clauses = append(c.clauses, column+" = ?")
		c.args = append(c.args, *v)
	}
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// notFound maps sql.ErrNoRows to entity.ErrNotFound
func notFound(err error, kind entity.Kind, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", entity.ErrNotFound, kind, id)
	}
	return err
}

// checkAffected reports ErrNotFound when an update touched no row
func checkAffected(result sql.Result, kind entity.Kind, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", entity.ErrNotFound, kind, id)
	}
	return nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
