package port

import (
	"context"

	"github.com/garyjia/bizflow/internal/domain/entity"
)

// Repositories return entity.ErrNotFound (wrapped) from GetByID when the id
// is unknown. List results are ordered by id ascending; nil filter fields
// match everything.

// OpportunityFilter selects sales opportunities
type OpportunityFilter struct {
	CustomerID *int64
	Status     *string
}

// ContractFilter selects contracts
type ContractFilter struct {
	CustomerID *int64
	Status     *string
}

// ProjectFilter selects projects
type ProjectFilter struct {
	ContractID *int64
	Status     *string
}

// InvoiceFilter selects invoices
type InvoiceFilter struct {
	ProjectID *int64
	Status    *string
}

// PurchaseRequestFilter selects purchase requests
type PurchaseRequestFilter struct {
	DepartmentID *int64
	Status       *string
}

// ExpenseRequestFilter selects expense requests
type ExpenseRequestFilter struct {
	EmployeeID *int64
	Status     *string
}

// ApprovalFilter selects ledger records
type ApprovalFilter struct {
	BusinessType *string
	BusinessID   *int64
	Result       *string
}

// OpportunityRepository defines persistence operations for SalesOpportunity
type OpportunityRepository interface {
	Create(ctx context.Context, o *entity.SalesOpportunity) error
	GetByID(ctx context.Context, id int64) (*entity.SalesOpportunity, error)
	Update(ctx context.Context, o *entity.SalesOpportunity) error
	List(ctx context.Context, filter OpportunityFilter) ([]*entity.SalesOpportunity, error)
}

// ContractRepository defines persistence operations for Contract
type ContractRepository interface {
	Create(ctx context.Context, c *entity.Contract) error
	GetByID(ctx context.Context, id int64) (*entity.Contract, error)
	Update(ctx context.Context, c *entity.Contract) error
	List(ctx context.Context, filter ContractFilter) ([]*entity.Contract, error)
}

// ProjectRepository defines persistence operations for Project
type ProjectRepository interface {
	Create(ctx context.Context, p *entity.Project) error
	GetByID(ctx context.Context, id int64) (*entity.Project, error)
	Update(ctx context.Context, p *entity.Project) error
	List(ctx context.Context, filter ProjectFilter) ([]*entity.Project, error)
}

// InvoiceRepository defines persistence operations for Invoice
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	Update(ctx context.Context, inv *entity.Invoice) error
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, error)
}

// PurchaseRequestRepository defines persistence operations for PurchaseRequest
type PurchaseRequestRepository interface {
	Create(ctx context.Context, pr *entity.PurchaseRequest) error
	GetByID(ctx context.Context, id int64) (*entity.PurchaseRequest, error)
	Update(ctx context.Context, pr *entity.PurchaseRequest) error
	List(ctx context.Context, filter PurchaseRequestFilter) ([]*entity.PurchaseRequest, error)
}

// ExpenseRequestRepository defines persistence operations for ExpenseRequest
type ExpenseRequestRepository interface {
	Create(ctx context.Context, req *entity.ExpenseRequest) error
	GetByID(ctx context.Context, id int64) (*entity.ExpenseRequest, error)
	Update(ctx context.Context, req *entity.ExpenseRequest) error
	List(ctx context.Context, filter ExpenseRequestFilter) ([]*entity.ExpenseRequest, error)
}

// ApprovalRepository is the append-only store behind the approval ledger.
// List orders by approval level, then decision time, then id.
type ApprovalRepository interface {
	Append(ctx context.Context, a *entity.Approval) error
	List(ctx context.Context, filter ApprovalFilter) ([]*entity.Approval, error)
}

// VoucherRepository defines persistence operations for accounting vouchers
type VoucherRepository interface {
	Create(ctx context.Context, v *entity.Voucher) error
	GetByExpenseRequestID(ctx context.Context, expenseRequestID int64) (*entity.Voucher, error)
}

// SequenceGenerator hands out serials per entity kind.
// Each serial is returned exactly once, even under concurrent callers.
type SequenceGenerator interface {
	Next(ctx context.Context, kind entity.Kind) (uint64, error)
}

// TransactionManager defines transaction boundary management
type TransactionManager interface {
	// WithTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
