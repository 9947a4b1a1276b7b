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

const invoiceColumns = `id, code, project_id, purchase_request_id, customer_id, invoice_type,
	amount, received_amount, invoice_date, due_date, status, payment_status, created_by,
	created_at, updated_at`

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sqlite.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

// Create inserts a new invoice and sets its ID
func (r *InvoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			code, project_id, purchase_request_id, customer_id, invoice_type, amount,
			received_amount, invoice_date, due_date, status, payment_status, created_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		inv.Code, nullInt64(inv.ProjectID), nullInt64(inv.PurchaseRequestID), inv.CustomerID, inv.InvoiceType, inv.Amount,
		inv.ReceivedAmount, inv.InvoiceDate, inv.DueDate, inv.Status, inv.PaymentStatus, inv.CreatedBy,
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.String("code", inv.Code), zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	inv.ID = id
	return nil
}

// GetByID retrieves an invoice by ID
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`

	inv, err := scanInvoice(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, entity.KindInvoice, id)
	}
	return inv, nil
}

// Update persists status and payment progress of an invoice
func (r *InvoiceRepository) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET received_amount = ?, invoice_date = ?, due_date = ?, status = ?,
			payment_status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		inv.ReceivedAmount, inv.InvoiceDate, inv.DueDate, inv.Status,
		inv.PaymentStatus, inv.UpdatedAt, inv.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update invoice", zap.Int64("id", inv.ID), zap.Error(err))
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return checkAffected(result, entity.KindInvoice, inv.ID)
}

// List returns invoices matching the filter ordered by ID
func (r *InvoiceRepository) List(ctx context.Context, filter port.InvoiceFilter) ([]*entity.Invoice, error) {
	var c conditions
	c.addInt64("project_id", filter.ProjectID)
	c.addString("status", filter.Status)

	query := `SELECT ` + invoiceColumns + ` FROM invoices` + c.where() + ` ORDER BY id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var result []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func scanInvoice(s rowScanner) (*entity.Invoice, error) {
	var (
		inv               entity.Invoice
		projectID         sql.NullInt64
		purchaseRequestID sql.NullInt64
	)
	err := s.Scan(
		&inv.ID, &inv.Code, &projectID, &purchaseRequestID, &inv.CustomerID, &inv.InvoiceType,
		&inv.Amount, &inv.ReceivedAmount, &inv.InvoiceDate, &inv.DueDate, &inv.Status, &inv.PaymentStatus, &inv.CreatedBy,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.ProjectID = int64Ptr(projectID)
	inv.PurchaseRequestID = int64Ptr(purchaseRequestID)
	return &inv, nil
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
