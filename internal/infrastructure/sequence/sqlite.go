package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/sqlite"
)

// SQLite keeps counters in the sequences table. Inside a transaction the
// serial is only consumed if the transaction commits.
type SQLite struct {
	db *sqlite.DB
}

// NewSQLite creates a durable sequence generator
func NewSQLite(db *sqlite.DB) *SQLite {
	return &SQLite{db: db}
}

// Next returns the next serial for kind
func (s *SQLite) Next(ctx context.Context, kind entity.Kind) (uint64, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO sequences (kind, value) VALUES (?, 1)
		ON CONFLICT(kind) DO UPDATE SET value = value + 1 WHERE value < ?
		RETURNING value
	`

	// A counter at the ceiling matches no row, so nothing is returned
	var value int64
	err := s.db.Executor(ctx).QueryRowContext(ctx, query, string(kind), int64(MaxSerial)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, exhausted(kind)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", kind, err)
	}
	return uint64(value), nil
}

var _ port.SequenceGenerator = (*SQLite)(nil)
