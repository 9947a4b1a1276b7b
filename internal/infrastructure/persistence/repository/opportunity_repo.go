package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/sqlite"
)

const opportunityColumns = `id, code, customer_id, name, description, amount, win_probability,
	expected_close_date, source, status, owner_id, created_by, remarks, created_at, updated_at`

// OpportunityRepository implements port.OpportunityRepository
type OpportunityRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewOpportunityRepository creates a new opportunity repository
func NewOpportunityRepository(db *sqlite.DB, logger *zap.Logger) port.OpportunityRepository {
	return &OpportunityRepository{db: db, logger: logger}
}

// Create inserts a new opportunity and sets its ID
func (r *OpportunityRepository) Create(ctx context.Context, o *entity.SalesOpportunity) error {
	query := `
		INSERT INTO sales_opportunities (
			code, customer_id, name, description, amount, win_probability,
			expected_close_date, source, status, owner_id, created_by, remarks,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		o.Code, o.CustomerID, o.Name, o.Description, o.Amount, o.WinProbability,
		o.ExpectedCloseDate, o.Source, o.Status, o.OwnerID, o.CreatedBy, o.Remarks,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create opportunity", zap.String("code", o.Code), zap.Error(err))
		return fmt.Errorf("failed to create opportunity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	o.ID = id
	return nil
}

// GetByID retrieves an opportunity by ID
func (r *OpportunityRepository) GetByID(ctx context.Context, id int64) (*entity.SalesOpportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM sales_opportunities WHERE id = ?`

	o, err := scanOpportunity(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, entity.KindOpportunity, id)
	}
	return o, nil
}

// Update persists the mutable fields of an opportunity
func (r *OpportunityRepository) Update(ctx context.Context, o *entity.SalesOpportunity) error {
	query := `
		UPDATE sales_opportunities
		SET name = ?, description = ?, amount = ?, win_probability = ?,
			expected_close_date = ?, source = ?, status = ?, owner_id = ?,
			remarks = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		o.Name, o.Description, o.Amount, o.WinProbability,
		o.ExpectedCloseDate, o.Source, o.Status, o.OwnerID,
		o.Remarks, o.UpdatedAt, o.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update opportunity", zap.Int64("id", o.ID), zap.Error(err))
		return fmt.Errorf("failed to update opportunity: %w", err)
	}
	return checkAffected(result, entity.KindOpportunity, o.ID)
}

// List returns opportunities matching the filter ordered by ID
func (r *OpportunityRepository) List(ctx context.Context, filter port.OpportunityFilter) ([]*entity.SalesOpportunity, error) {
	var c conditions
	c.addInt64("customer_id", filter.CustomerID)
	c.addString("status", filter.Status)

	query := `SELECT ` + opportunityColumns + ` FROM sales_opportunities` + c.where() + ` ORDER BY id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	defer rows.Close()

	var result []*entity.SalesOpportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func scanOpportunity(s rowScanner) (*entity.SalesOpportunity, error) {
	var o entity.SalesOpportunity
	err := s.Scan(
		&o.ID, &o.Code, &o.CustomerID, &o.Name, &o.Description, &o.Amount, &o.WinProbability,
		&o.ExpectedCloseDate, &o.Source, &o.Status, &o.OwnerID, &o.CreatedBy, &o.Remarks,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Verify interface compliance
var _ port.OpportunityRepository = (*OpportunityRepository)(nil)
