package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/sqlite"
)

const purchaseRequestColumns = `id, code, department_id, requester_id, item_name, item_description,
	specification, quantity, unit, estimated_unit_price, estimated_total_amount, required_date,
	reason, supplier_name, status, approval_status, created_at, updated_at`

// PurchaseRequestRepository implements port.PurchaseRequestRepository
type PurchaseRequestRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPurchaseRequestRepository creates a new purchase request repository
func NewPurchaseRequestRepository(db *sqlite.DB, logger *zap.Logger) port.PurchaseRequestRepository {
	return &PurchaseRequestRepository{db: db, logger: logger}
}

// Create inserts a new purchase request and sets its ID
func (r *PurchaseRequestRepository) Create(ctx context.Context, pr *entity.PurchaseRequest) error {
	query := `
		INSERT INTO purchase_requests (
			code, department_id, requester_id, item_name, item_description, specification,
			quantity, unit, estimated_unit_price, estimated_total_amount, required_date,
			reason, supplier_name, status, approval_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		pr.Code, pr.DepartmentID, pr.RequesterID, pr.ItemName, pr.ItemDescription, pr.Specification,
		pr.Quantity, pr.Unit, pr.EstimatedUnitPrice, pr.EstimatedTotalAmount, pr.RequiredDate,
		pr.Reason, pr.SupplierName, pr.Status, pr.ApprovalStatus, pr.CreatedAt, pr.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create purchase request", zap.String("code", pr.Code), zap.Error(err))
		return fmt.Errorf("failed to create purchase request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	pr.ID = id
	return nil
}

// GetByID retrieves a purchase request by ID
func (r *PurchaseRequestRepository) GetByID(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	query := `SELECT ` + purchaseRequestColumns + ` FROM purchase_requests WHERE id = ?`

	pr, err := scanPurchaseRequest(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, entity.KindPurchaseRequest, id)
	}
	return pr, nil
}

// Update persists the mutable fields of a purchase request
func (r *PurchaseRequestRepository) Update(ctx context.Context, pr *entity.PurchaseRequest) error {
	query := `
		UPDATE purchase_requests
		SET item_name = ?, item_description = ?, specification = ?, quantity = ?, unit = ?,
			estimated_unit_price = ?, estimated_total_amount = ?, required_date = ?,
			reason = ?, supplier_name = ?, status = ?, approval_status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		pr.ItemName, pr.ItemDescription, pr.Specification, pr.Quantity, pr.Unit,
		pr.EstimatedUnitPrice, pr.EstimatedTotalAmount, pr.RequiredDate,
		pr.Reason, pr.SupplierName, pr.Status, pr.ApprovalStatus, pr.UpdatedAt, pr.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update purchase request", zap.Int64("id", pr.ID), zap.Error(err))
		return fmt.Errorf("failed to update purchase request: %w", err)
	}
	return checkAffected(result, entity.KindPurchaseRequest, pr.ID)
}

// List returns purchase requests matching the filter ordered by ID
func (r *PurchaseRequestRepository) List(ctx context.Context, filter port.PurchaseRequestFilter) ([]*entity.PurchaseRequest, error) {
	var c conditions
	c.addInt64("department_id", filter.DepartmentID)
	c.addString("status", filter.Status)

	query := `SELECT ` + purchaseRequestColumns + ` FROM purchase_requests` + c.where() + ` ORDER BY id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase requests: %w", err)
	}
	defer rows.Close()

	var result []*entity.PurchaseRequest
	for rows.Next() {
		pr, err := scanPurchaseRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase request: %w", err)
		}
		result = append(result, pr)
	}
	return result, rows.Err()
}

func scanPurchaseRequest(s rowScanner) (*entity.PurchaseRequest, error) {
	var pr entity.PurchaseRequest
	err := s.Scan(
		&pr.ID, &pr.Code, &pr.DepartmentID, &pr.RequesterID, &pr.ItemName, &pr.ItemDescription,
		&pr.Specification, &pr.Quantity, &pr.Unit, &pr.EstimatedUnitPrice, &pr.EstimatedTotalAmount, &pr.RequiredDate,
		&pr.Reason, &pr.SupplierName, &pr.Status, &pr.ApprovalStatus, &pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// Verify interface compliance
var _ port.PurchaseRequestRepository = (*PurchaseRequestRepository)(nil)
