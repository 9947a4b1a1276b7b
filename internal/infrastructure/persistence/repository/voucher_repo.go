package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/sqlite"
)

// VoucherRepository implements port.VoucherRepository
type VoucherRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sqlite.DB, logger *zap.Logger) port.VoucherRepository {
	return &VoucherRepository{db: db, logger: logger}
}

// Create creates a new voucher record
func (r *VoucherRepository) Create(ctx context.Context, v *entity.Voucher) error {
	query := `
		INSERT INTO vouchers (
			expense_request_id, voucher_no, voucher_date, summary, total_amount, voucher_type,
			status, debit_subject, credit_subject, file_path, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		v.ExpenseRequestID, v.VoucherNo, v.VoucherDate, v.Summary, v.TotalAmount, v.VoucherType,
		v.Status, v.DebitSubject, v.CreditSubject, v.FilePath, v.CreatedBy, v.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create voucher", zap.String("voucher_no", v.VoucherNo), zap.Error(err))
		return fmt.Errorf("failed to create voucher: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	v.ID = id
	return nil
}

// GetByExpenseRequestID retrieves the voucher of an expense request
func (r *VoucherRepository) GetByExpenseRequestID(ctx context.Context, expenseRequestID int64) (*entity.Voucher, error) {
	query := `
		SELECT id, expense_request_id, voucher_no, voucher_date, summary, total_amount, voucher_type,
			status, debit_subject, credit_subject, file_path, created_by, created_at
		FROM vouchers
		WHERE expense_request_id = ?
	`

	var v entity.Voucher
	err := r.db.Executor(ctx).QueryRowContext(ctx, query, expenseRequestID).Scan(
		&v.ID, &v.ExpenseRequestID, &v.VoucherNo, &v.VoucherDate, &v.Summary, &v.TotalAmount, &v.VoucherType,
		&v.Status, &v.DebitSubject, &v.CreditSubject, &v.FilePath, &v.CreatedBy, &v.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, entity.KindVoucher, expenseRequestID)
	}
	return &v, nil
}

// Verify interface compliance
var _ port.VoucherRepository = (*VoucherRepository)(nil)
