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

const contractColumns = `id, code, opportunity_id, customer_id, name, contract_type, amount,
	currency, start_date, end_date, payment_terms, status, approval_status, owner_id,
	created_by, created_at, updated_at`

// ContractRepository implements port.ContractRepository
type ContractRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *sqlite.DB, logger *zap.Logger) port.ContractRepository {
	return &ContractRepository{db: db, logger: logger}
}

// Create inserts a new contract and sets its ID
func (r *ContractRepository) Create(ctx context.Context, c *entity.Contract) error {
	query := `
		INSERT INTO contracts (
			code, opportunity_id, customer_id, name, contract_type, amount, currency,
			start_date, end_date, payment_terms, status, approval_status, owner_id,
			created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		c.Code, nullInt64(c.OpportunityID), c.CustomerID, c.Name, c.ContractType, c.Amount, c.Currency,
		c.StartDate, c.EndDate, c.PaymentTerms, c.Status, c.ApprovalStatus, c.OwnerID,
		c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create contract", zap.String("code", c.Code), zap.Error(err))
		return fmt.Errorf("failed to create contract: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	return nil
}

// GetByID retrieves a contract by ID
func (r *ContractRepository) GetByID(ctx context.Context, id int64) (*entity.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = ?`

	c, err := scanContract(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, entity.KindContract, id)
	}
	return c, nil
}

// Update persists the mutable fields of a contract
func (r *ContractRepository) Update(ctx context.Context, c *entity.Contract) error {
	query := `
		UPDATE contracts
		SET name = ?, contract_type = ?, amount = ?, currency = ?, start_date = ?,
			end_date = ?, payment_terms = ?, status = ?, approval_status = ?,
			owner_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		c.Name, c.ContractType, c.Amount, c.Currency, c.StartDate,
		c.EndDate, c.PaymentTerms, c.Status, c.ApprovalStatus,
		c.OwnerID, c.UpdatedAt, c.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update contract", zap.Int64("id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to update contract: %w", err)
	}
	return checkAffected(result, entity.KindContract, c.ID)
}

// List returns contracts matching the filter ordered by ID
func (r *ContractRepository) List(ctx context.Context, filter port.ContractFilter) ([]*entity.Contract, error) {
	var c conditions
	c.addInt64("customer_id", filter.CustomerID)
	c.addString("status", filter.Status)

	query := `SELECT ` + contractColumns + ` FROM contracts` + c.where() + ` ORDER BY id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var result []*entity.Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		result = append(result, contract)
	}
	return result, rows.Err()
}

func scanContract(s rowScanner) (*entity.Contract, error) {
	var (
		c             entity.Contract
		opportunityID sql.NullInt64
	)
	err := s.Scan(
		&c.ID, &c.Code, &opportunityID, &c.CustomerID, &c.Name, &c.ContractType, &c.Amount,
		&c.Currency, &c.StartDate, &c.EndDate, &c.PaymentTerms, &c.Status, &c.ApprovalStatus, &c.OwnerID,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.OpportunityID = int64Ptr(opportunityID)
	return &c, nil
}

// Verify interface compliance
var _ port.ContractRepository = (*ContractRepository)(nil)
