package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/sqlite"
)

const expenseRequestColumns = `id, code, employee_id, expense_type, amount, description, expense_date,
	attachment_ref, status, approval_status, manager_id, finance_id, ceo_id, voucher_no,
	payment_method, paid_at, created_at, updated_at`

// ExpenseRequestRepository implements port.ExpenseRequestRepository
type ExpenseRequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewExpenseRequestRepository creates a new expense request repository
func NewExpenseRequestRepository(db *sqlite.DB, logger *zap.Logger) port.ExpenseRequestRepository {
	return &ExpenseRequestRepository{db: db, logger: logger}
}

// Create inserts a new expense request and sets its ID
func (r *ExpenseRequestRepository) Create(ctx context.Context, req *entity.ExpenseRequest) error {
	query := `
		INSERT INTO expense_requests (
			code, employee_id, expense_type, amount, description, expense_date,
			attachment_ref, status, approval_status, manager_id, finance_id, ceo_id,
			voucher_no, payment_method, paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.Code, req.EmployeeID, req.ExpenseType, req.Amount, req.Description, req.ExpenseDate,
		req.AttachmentRef, req.Status, req.ApprovalStatus, req.ManagerID, req.FinanceID, req.CEOID,
		req.VoucherNo, req.PaymentMethod, req.PaidAt, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense request", zap.String("code", req.Code), zap.Error(err))
		return fmt.Errorf("failed to create expense request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	req.ID = id
	return nil
}

// GetByID retrieves an expense request by ID
func (r *ExpenseRequestRepository) GetByID(ctx context.Context, id int64) (*entity.ExpenseRequest, error) {
	query := `SELECT ` + expenseRequestColumns + ` FROM expense_requests WHERE id = ?`

	req, err := scanExpenseRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, entity.KindExpenseRequest, id)
	}
	return req, nil
}

// Update persists the mutable fields of an expense request
func (r *ExpenseRequestRepository) Update(ctx context.Context, req *entity.ExpenseRequest) error {
	query := `
		UPDATE expense_requests
		SET description = ?, attachment_ref = ?, status = ?, approval_status = ?,
			manager_id = ?, finance_id = ?, ceo_id = ?, voucher_no = ?,
			payment_method = ?, paid_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		req.Description, req.AttachmentRef, req.Status, req.ApprovalStatus,
		req.ManagerID, req.FinanceID, req.CEOID, req.VoucherNo,
		req.PaymentMethod, req.PaidAt, req.UpdatedAt, req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense request", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update expense request: %w", err)
	}
	return checkAffected(result, entity.KindExpenseRequest, req.ID)
}

// List returns expense requests matching the filter ordered by ID
func (r *ExpenseRequestRepository) List(ctx context.Context, filter port.ExpenseRequestFilter) ([]*entity.ExpenseRequest, error) {
	var c conditions
	c.addInt64("employee_id", filter.EmployeeID)
	c.addString("status", filter.Status)

	query := `SELECT ` + expenseRequestColumns + ` FROM expense_requests` + c.where() + ` ORDER BY id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expense requests: %w", err)
	}
	defer rows.Close()

	var result []*entity.ExpenseRequest
	for rows.Next() {
		req, err := scanExpenseRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense request: %w", err)
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func scanExpenseRequest(s rowScanner) (*entity.ExpenseRequest, error) {
	var (
		req    entity.ExpenseRequest
		paidAt sql.NullTime
	)
	err := s.Scan(
		&req.ID, &req.Code, &req.EmployeeID, &req.ExpenseType, &req.Amount, &req.Description, &req.ExpenseDate,
		&req.AttachmentRef, &req.Status, &req.ApprovalStatus, &req.ManagerID, &req.FinanceID, &req.CEOID, &req.VoucherNo,
		&req.PaymentMethod, &paidAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		req.PaidAt = &paidAt.Time
	}
	return &req, nil
}

// Verify interface compliance
var _ port.ExpenseRequestRepository = (*ExpenseRequestRepository)(nil)
