package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/sqlite"
)

// ApprovalRepository implements port.ApprovalRepository.
// The approvals table rejects updates and deletes.
type ApprovalRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *sqlite.DB, logger *zap.Logger) port.ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

// Append inserts an approval record and sets its ID
func (r *ApprovalRepository) Append(ctx context.Context, a *entity.Approval) error {
	query := `
		INSERT INTO approvals (
			business_type, business_id, approver_id, approval_level, result, comments, approved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		a.BusinessType, a.BusinessID, a.ApproverID, a.ApprovalLevel, a.Result, a.Comments, a.ApprovedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append approval",
			zap.String("business_type", a.BusinessType),
			zap.Int64("business_id", a.BusinessID),
			zap.Error(err))
		return fmt.Errorf("failed to append approval: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// List returns approvals ordered by level, decision time and ID
func (r *ApprovalRepository) List(ctx context.Context, filter port.ApprovalFilter) ([]*entity.Approval, error) {
	var c conditions
	c.addString("business_type", filter.BusinessType)
	c.addInt64("business_id", filter.BusinessID)
	c.addString("result", filter.Result)

	query := `
		SELECT id, business_type, business_id, approver_id, approval_level, result, comments, approved_at
		FROM approvals` + c.where() + `
		ORDER BY approval_level, approved_at, id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()

	var result []*entity.Approval
	for rows.Next() {
		var a entity.Approval
		if err := rows.Scan(
			&a.ID, &a.BusinessType, &a.BusinessID, &a.ApproverID, &a.ApprovalLevel, &a.Result, &a.Comments, &a.ApprovedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

// Verify interface compliance
var _ port.ApprovalRepository = (*ApprovalRepository)(nil)
