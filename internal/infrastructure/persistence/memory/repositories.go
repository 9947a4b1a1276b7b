package memory

import (
	"context"
	"sort"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

// OpportunityRepository implements port.OpportunityRepository
type OpportunityRepository struct {
	rows *store[entity.SalesOpportunity]
}

// NewOpportunityRepository creates an empty repository
func NewOpportunityRepository() *OpportunityRepository {
	return &OpportunityRepository{rows: newStore(entity.KindOpportunity, func(o *entity.SalesOpportunity) *int64 { return &o.ID })}
}

func (r *OpportunityRepository) Create(_ context.Context, o *entity.SalesOpportunity) error {
	r.rows.create(o)
	return nil
}

func (r *OpportunityRepository) GetByID(_ context.Context, id int64) (*entity.SalesOpportunity, error) {
	return r.rows.get(id)
}

func (r *OpportunityRepository) Update(_ context.Context, o *entity.SalesOpportunity) error {
	return r.rows.update(o)
}

func (r *OpportunityRepository) List(_ context.Context, f port.OpportunityFilter) ([]*entity.SalesOpportunity, error) {
	return r.rows.list(func(o *entity.SalesOpportunity) bool {
		return eqInt64(f.CustomerID, o.CustomerID) && eqString(f.Status, o.Status)
	}), nil
}

// ContractRepository implements port.ContractRepository
type ContractRepository struct {
	rows *store[entity.Contract]
}

// NewContractRepository creates an empty repository
func NewContractRepository() *ContractRepository {
	return &ContractRepository{rows: newStore(entity.KindContract, func(c *entity.Contract) *int64 { return &c.ID })}
}

func (r *ContractRepository) Create(_ context.Context, c *entity.Contract) error {
	r.rows.create(c)
	return nil
}

func (r *ContractRepository) GetByID(_ context.Context, id int64) (*entity.Contract, error) {
	return r.rows.get(id)
}

func (r *ContractRepository) Update(_ context.Context, c *entity.Contract) error {
	return r.rows.update(c)
}

func (r *ContractRepository) List(_ context.Context, f port.ContractFilter) ([]*entity.Contract, error) {
	return r.rows.list(func(c *entity.Contract) bool {
		return eqInt64(f.CustomerID, c.CustomerID) && eqString(f.Status, c.Status)
	}), nil
}

// ProjectRepository implements port.ProjectRepository
type ProjectRepository struct {
	rows *store[entity.Project]
}

// NewProjectRepository creates an empty repository
func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{rows: newStore(entity.KindProject, func(p *entity.Project) *int64 { return &p.ID })}
}

func (r *ProjectRepository) Create(_ context.Context, p *entity.Project) error {
	r.rows.create(p)
	return nil
}

func (r *ProjectRepository) GetByID(_ context.Context, id int64) (*entity.Project, error) {
	return r.rows.get(id)
}

func (r *ProjectRepository) Update(_ context.Context, p *entity.Project) error {
	return r.rows.update(p)
}

func (r *ProjectRepository) List(_ context.Context, f port.ProjectFilter) ([]*entity.Project, error) {
	return r.rows.list(func(p *entity.Project) bool {
		return eqInt64(f.ContractID, p.ContractID) && eqString(f.Status, p.Status)
	}), nil
}

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	rows *store[entity.Invoice]
}

// NewInvoiceRepository creates an empty repository
func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{rows: newStore(entity.KindInvoice, func(inv *entity.Invoice) *int64 { return &inv.ID })}
}

func (r *InvoiceRepository) Create(_ context.Context, inv *entity.Invoice) error {
	r.rows.create(inv)
	return nil
}

func (r *InvoiceRepository) GetByID(_ context.Context, id int64) (*entity.Invoice, error) {
	return r.rows.get(id)
}

func (r *InvoiceRepository) Update(_ context.Context, inv *entity.Invoice) error {
	return r.rows.update(inv)
}

func (r *InvoiceRepository) List(_ context.Context, f port.InvoiceFilter) ([]*entity.Invoice, error) {
	return r.rows.list(func(inv *entity.Invoice) bool {
		return eqOptInt64(f.ProjectID, inv.ProjectID) && eqString(f.Status, inv.Status)
	}), nil
}

// PurchaseRequestRepository implements port.PurchaseRequestRepository
type PurchaseRequestRepository struct {
	rows *store[entity.PurchaseRequest]
}

// NewPurchaseRequestRepository creates an empty repository
func NewPurchaseRequestRepository() *PurchaseRequestRepository {
	return &PurchaseRequestRepository{rows: newStore(entity.KindPurchaseRequest, func(pr *entity.PurchaseRequest) *int64 { return &pr.ID })}
}

func (r *PurchaseRequestRepository) Create(_ context.Context, pr *entity.PurchaseRequest) error {
	r.rows.create(pr)
	return nil
}

func (r *PurchaseRequestRepository) GetByID(_ context.Context, id int64) (*entity.PurchaseRequest, error) {
	return r.rows.get(id)
}

func (r *PurchaseRequestRepository) Update(_ context.Context, pr *entity.PurchaseRequest) error {
	return r.rows.update(pr)
}

func (r *PurchaseRequestRepository) List(_ context.Context, f port.PurchaseRequestFilter) ([]*entity.PurchaseRequest, error) {
	return r.rows.list(func(pr *entity.PurchaseRequest) bool {
		return eqInt64(f.DepartmentID, pr.DepartmentID) && eqString(f.Status, pr.Status)
	}), nil
}

// ExpenseRequestRepository implements port.ExpenseRequestRepository
type ExpenseRequestRepository struct {
	rows *store[entity.ExpenseRequest]
}

// NewExpenseRequestRepository creates an empty repository
func NewExpenseRequestRepository() *ExpenseRequestRepository {
	return &ExpenseRequestRepository{rows: newStore(entity.KindExpenseRequest, func(req *entity.ExpenseRequest) *int64 { return &req.ID })}
}

func (r *ExpenseRequestRepository) Create(_ context.Context, req *entity.ExpenseRequest) error {
	r.rows.create(req)
	return nil
}

func (r *ExpenseRequestRepository) GetByID(_ context.Context, id int64) (*entity.ExpenseRequest, error) {
	return r.rows.get(id)
}

func (r *ExpenseRequestRepository) Update(_ context.Context, req *entity.ExpenseRequest) error {
	return r.rows.update(req)
}

func (r *ExpenseRequestRepository) List(_ context.Context, f port.ExpenseRequestFilter) ([]*entity.ExpenseRequest, error) {
	return r.rows.list(func(req *entity.ExpenseRequest) bool {
		return eqInt64(f.EmployeeID, req.EmployeeID) && eqString(f.Status, req.Status)
	}), nil
}

// ApprovalRepository implements port.ApprovalRepository. There is no update
// or delete path.
type ApprovalRepository struct {
	rows *store[entity.Approval]
}

// NewApprovalRepository creates an empty ledger store
func NewApprovalRepository() *ApprovalRepository {
	return &ApprovalRepository{rows: newStore(entity.Kind("APPROVAL"), func(a *entity.Approval) *int64 { return &a.ID })}
}

func (r *ApprovalRepository) Append(_ context.Context, a *entity.Approval) error {
	r.rows.create(a)
	return nil
}

// List returns approvals ordered by level, decision time and ID
func (r *ApprovalRepository) List(_ context.Context, f port.ApprovalFilter) ([]*entity.Approval, error) {
	result := r.rows.list(func(a *entity.Approval) bool {
		return eqString(f.BusinessType, a.BusinessType) &&
			eqInt64(f.BusinessID, a.BusinessID) &&
			eqString(f.Result, a.Result)
	})
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.ApprovalLevel != b.ApprovalLevel {
			return a.ApprovalLevel < b.ApprovalLevel
		}
		if !a.ApprovedAt.Equal(b.ApprovedAt) {
			return a.ApprovedAt.Before(b.ApprovedAt)
		}
		return a.ID < b.ID
	})
	return result, nil
}

// VoucherRepository implements port.VoucherRepository
type VoucherRepository struct {
	rows *store[entity.Voucher]
}

// NewVoucherRepository creates an empty repository
func NewVoucherRepository() *VoucherRepository {
	return &VoucherRepository{rows: newStore(entity.KindVoucher, func(v *entity.Voucher) *int64 { return &v.ID })}
}

func (r *VoucherRepository) Create(_ context.Context, v *entity.Voucher) error {
	r.rows.create(v)
	return nil
}

func (r *VoucherRepository) GetByExpenseRequestID(_ context.Context, expenseRequestID int64) (*entity.Voucher, error) {
	v, ok := r.rows.find(func(v *entity.Voucher) bool { return v.ExpenseRequestID == expenseRequestID })
	if !ok {
		return nil, notFoundVoucher(expenseRequestID)
	}
	return v, nil
}

var (
	_ port.OpportunityRepository     = (*OpportunityRepository)(nil)
	_ port.ContractRepository        = (*ContractRepository)(nil)
	_ port.ProjectRepository         = (*ProjectRepository)(nil)
	_ port.InvoiceRepository         = (*InvoiceRepository)(nil)
	_ port.PurchaseRequestRepository = (*PurchaseRequestRepository)(nil)
	_ port.ExpenseRequestRepository  = (*ExpenseRequestRepository)(nil)
	_ port.ApprovalRepository        = (*ApprovalRepository)(nil)
	_ port.VoucherRepository         = (*VoucherRepository)(nil)
)
